package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soundmesh/musiccast-hub-go/hub"
	"github.com/soundmesh/musiccast-hub-go/internal/config"
	"github.com/soundmesh/musiccast-hub-go/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	addr := cfg.Host + ":" + cfg.Port

	h := hub.New(cfg)
	if err := h.Start(); err != nil {
		logrus.WithError(err).Fatal("hub start error")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewHandler(cfg, h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownCh
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		h.Stop()
		if err := srv.Shutdown(ctx); err != nil {
			logrus.WithError(err).Warn("shutdown error")
		}
	}()

	logrus.WithField("addr", addr).Info("musiccast-hub listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.WithError(err).Fatal("server error")
	}
}

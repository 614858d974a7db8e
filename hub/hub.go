// Package hub is the public face of the MusicCast control plane. It wires
// discovery, device agents, event ingress and the delta stream together
// and exposes device lookups and commands keyed by device id.
package hub

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soundmesh/musiccast-hub-go/internal/agent"
	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
	"github.com/soundmesh/musiccast-hub-go/internal/config"
	"github.com/soundmesh/musiccast-hub-go/internal/discovery"
	"github.com/soundmesh/musiccast-hub-go/internal/ingress"
	"github.com/soundmesh/musiccast-hub-go/internal/registry"
	"github.com/soundmesh/musiccast-hub-go/internal/supervisor"
	"github.com/soundmesh/musiccast-hub-go/internal/upnp"
	"github.com/soundmesh/musiccast-hub-go/internal/yxc"
)

// TopicNetwork is the topology topic: online and offline announcements.
// Device deltas are published under the device id itself.
const TopicNetwork = registry.TopicNetwork

// Hub runs the control plane for all devices it can see.
type Hub struct {
	cfg config.Config
	log *logrus.Entry

	yxc  *yxc.Client
	upnp *upnp.Client
	reg  *registry.Registry
	bus  *registry.PubSub
	sup  *supervisor.Supervisor
	disc *discovery.Discovery
	udp  *ingress.YXCListener
}

// New assembles a hub from configuration. Nothing is started yet.
func New(cfg config.Config) *Hub {
	yxcClient := yxc.NewClient(time.Duration(cfg.YXCTimeoutMs)*time.Millisecond, cfg.YXCEventPort)
	upnpClient := upnp.NewClient(time.Duration(cfg.UPnPTimeoutMs) * time.Millisecond)
	reg := registry.New()
	bus := registry.NewPubSub(0)

	sup := supervisor.New(agent.Config{
		YXC:         yxcClient,
		UPnP:        upnpClient,
		Registry:    reg,
		Bus:         bus,
		CallbackURL: cfg.UPnPCallbackURL,
	})

	return &Hub{
		cfg:  cfg,
		log:  logrus.WithField("component", "hub"),
		yxc:  yxcClient,
		upnp: upnpClient,
		reg:  reg,
		bus:  bus,
		sup:  sup,
		disc: discovery.New(sup, upnpClient),
		udp:  ingress.NewYXCListener(reg),
	}
}

// Start brings up the YXC event listener and SSDP discovery. The first
// network search fires on its own shortly after.
func (h *Hub) Start() error {
	if err := h.udp.Start(h.cfg.YXCEventPort); err != nil {
		return err
	}
	if err := h.disc.Start(time.Duration(h.cfg.SSDPRescanSec) * time.Second); err != nil {
		h.udp.Stop()
		return err
	}
	h.log.Info("hub started")
	return nil
}

// Stop tears everything down: discovery first so no new devices arrive,
// then every agent, then the ingress and the delta stream.
func (h *Hub) Stop() {
	h.disc.Stop()
	h.sup.Stop()
	h.udp.Stop()
	h.bus.Shutdown()
	h.log.Info("hub stopped")
}

// Discover triggers an immediate SSDP search.
func (h *Hub) Discover() {
	h.disc.Search()
}

// AddDevice starts an agent for a device whose description is already
// known, bypassing discovery.
func (h *Hub) AddDevice(ctx context.Context, ip net.IP, root *upnp.RootDescription) error {
	return h.sup.AddDevice(ctx, ip, root)
}

// Subscribe opens a delta stream over the given topics: TopicNetwork
// and/or device ids. Slow consumers lose the newest messages rather than
// stalling the publishers.
func (h *Hub) Subscribe(topics ...string) *registry.Subscription {
	return h.bus.Subscribe(topics...)
}

// Unsubscribe closes a delta stream.
func (h *Hub) Unsubscribe(sub *registry.Subscription) {
	h.bus.Unsubscribe(sub)
}

// WhereIs resolves a device id to its host address.
func (h *Hub) WhereIs(deviceID string) (string, bool) {
	entry, ok := h.reg.Lookup(deviceID)
	if !ok {
		return "", false
	}
	return entry.Host, true
}

// Devices lists the device ids currently online.
func (h *Hub) Devices() []string {
	entries := h.reg.List()
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.DeviceID)
	}
	return ids
}

// Lookup reads state keys from one device. With no keys the full snapshot
// is returned. Unknown devices fail with ErrNotFound.
func (h *Hub) Lookup(ctx context.Context, deviceID string, keys ...string) (map[string]any, error) {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return nil, err
	}
	return a.Lookup(ctx, keys...)
}

// WhichDevices reads the given state keys from every online device,
// keyed by device id. Devices that fail the lookup are omitted.
func (h *Hub) WhichDevices(ctx context.Context, keys ...string) map[string]map[string]any {
	result := make(map[string]map[string]any)
	for _, entry := range h.reg.List() {
		a, ok := entry.Agent.(*agent.Agent)
		if !ok {
			continue
		}
		values, err := a.Lookup(ctx, keys...)
		if err != nil {
			continue
		}
		result[entry.DeviceID] = values
	}
	return result
}

// Agent returns the live agent for a device id, for direct command
// access.
func (h *Hub) Agent(deviceID string) (*agent.Agent, error) {
	return h.agentFor(deviceID)
}

// CallbackHandler returns the HTTP handler for UPnP GENA notifications.
// Mount it at the path of the configured callback URL.
func (h *Hub) CallbackHandler() http.HandlerFunc {
	return ingress.UPnPCallback(h.reg)
}

func (h *Hub) agentFor(deviceID string) (*agent.Agent, error) {
	entry, ok := h.reg.Lookup(deviceID)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	a, ok := entry.Agent.(*agent.Agent)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return a, nil
}

package ingress

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/soundmesh/musiccast-hub-go/internal/agent"
	"github.com/soundmesh/musiccast-hub-go/internal/registry"
)

// YXCListener receives the unicast extended-control event datagrams the
// devices send to the port advertised at subscription time, and routes
// each one to the agent registered under the payload's device id.
type YXCListener struct {
	reg *registry.Registry
	log *logrus.Entry

	conn net.PacketConn

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

func NewYXCListener(reg *registry.Registry) *YXCListener {
	return &YXCListener{
		reg:    reg,
		log:    logrus.WithField("component", "yxc_ingress"),
		closed: make(chan struct{}),
	}
}

// Start binds the event port and begins routing datagrams.
func (l *YXCListener) Start(port int) error {
	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("yxc event listen: %w", err)
	}
	l.conn = conn

	l.wg.Add(1)
	go l.readLoop()
	return nil
}

func (l *YXCListener) Stop() {
	l.closeOnce.Do(func() {
		close(l.closed)
		if l.conn != nil {
			l.conn.Close()
		}
	})
	l.wg.Wait()
}

func (l *YXCListener) readLoop() {
	defer l.wg.Done()

	buf := make([]byte, 4096)
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-l.closed:
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				continue
			}
			return
		}
		l.route(buf[:n])
	}
}

// route decodes one datagram and hands it to its agent. Packets without a
// device_id, or for a device nobody registered, are dropped quietly; the
// sender may simply not belong to this hub.
func (l *YXCListener) route(datagram []byte) {
	var payload map[string]any
	if err := json.Unmarshal(datagram, &payload); err != nil {
		l.log.WithError(err).Debug("bad event datagram")
		return
	}

	deviceID, _ := payload["device_id"].(string)
	if deviceID == "" {
		return
	}
	delete(payload, "device_id")

	entry, ok := l.reg.Lookup(deviceID)
	if !ok {
		return
	}
	entry.Agent.Deliver(agent.YXCEvent{Payload: payload})
}

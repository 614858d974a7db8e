package discovery

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"

	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
	"github.com/soundmesh/musiccast-hub-go/internal/supervisor"
	"github.com/soundmesh/musiccast-hub-go/internal/upnp"
)

const (
	ssdpAddr   = "239.255.255.250:1900"
	ssdpTarget = "urn:schemas-upnp-org:device:MediaRenderer:1"

	// initialSearchDelay gives the rest of the process time to bring its
	// listeners up before the first M-SEARCH goes out.
	initialSearchDelay = 2 * time.Second
)

// Discovery listens for SSDP announcements and periodically searches the
// network for MediaRenderer devices, handing each new one to the
// supervisor.
type Discovery struct {
	sup  *supervisor.Supervisor
	upnp *upnp.Client
	log  *logrus.Entry

	listener net.PacketConn
	searcher net.PacketConn
	cron     *cron.Cron

	mu      sync.Mutex
	pending map[string]struct{}

	closed chan struct{}
	wg     sync.WaitGroup
}

// New creates a Discovery that reports devices to sup and fetches their
// descriptions with client.
func New(sup *supervisor.Supervisor, client *upnp.Client) *Discovery {
	return &Discovery{
		sup:     sup,
		upnp:    client,
		log:     logrus.WithField("component", "discovery"),
		pending: make(map[string]struct{}),
		closed:  make(chan struct{}),
	}
}

// Start opens the multicast listener and the search socket, schedules the
// periodic rescan, and fires the first search shortly after.
func (d *Discovery) Start(rescanInterval time.Duration) error {
	group, err := net.ResolveUDPAddr("udp4", ssdpAddr)
	if err != nil {
		return err
	}

	listener, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return fmt.Errorf("ssdp listen: %w", err)
	}
	d.listener = listener

	searcher, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		listener.Close()
		return fmt.Errorf("ssdp search socket: %w", err)
	}
	d.searcher = searcher

	// Announcements must not leave the local network.
	p := ipv4.NewPacketConn(searcher)
	p.SetMulticastTTL(2)
	p.SetMulticastLoopback(false)

	d.wg.Add(2)
	go d.readLoop(listener)
	go d.readLoop(searcher)

	time.AfterFunc(initialSearchDelay, d.Search)

	if rescanInterval > 0 {
		d.cron = cron.New()
		schedule := fmt.Sprintf("@every %s", rescanInterval)
		if _, err := d.cron.AddFunc(schedule, d.Search); err != nil {
			d.Stop()
			return err
		}
		d.cron.Start()
	}

	return nil
}

// Search sends one M-SEARCH burst. Responses arrive on the search socket
// and flow through the same handling as unsolicited announcements.
func (d *Discovery) Search() {
	group, err := net.ResolveUDPAddr("udp4", ssdpAddr)
	if err != nil {
		return
	}

	msg := strings.Join([]string{
		"M-SEARCH * HTTP/1.1",
		"HOST: " + ssdpAddr,
		"MAN: \"ssdp:discover\"",
		"MX: 2",
		"ST: " + ssdpTarget,
		"",
		"",
	}, "\r\n")

	if _, err := d.searcher.WriteTo([]byte(msg), group); err != nil {
		d.log.WithError(err).Warn("m-search send failed")
	}
}

// Stop tears the sockets and the rescan schedule down.
func (d *Discovery) Stop() {
	select {
	case <-d.closed:
		return
	default:
	}
	close(d.closed)
	if d.cron != nil {
		d.cron.Stop()
	}
	if d.listener != nil {
		d.listener.Close()
	}
	if d.searcher != nil {
		d.searcher.Close()
	}
	d.wg.Wait()
}

func (d *Discovery) readLoop(conn net.PacketConn) {
	defer d.wg.Done()

	buf := make([]byte, 2048)
	for {
		n, raddr, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-d.closed:
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				continue
			}
			return
		}

		headers, ok := parsePacket(string(buf[:n]))
		if !ok {
			continue
		}
		if !isMediaRenderer(headers) {
			continue
		}

		udpAddr, ok := raddr.(*net.UDPAddr)
		if !ok {
			continue
		}
		d.handleAnnouncement(udpAddr.IP, headers["location"])
	}
}

// handleAnnouncement vets one announcement source. Hosts with a live
// agent or an in-flight add are skipped, so the steady chatter of NOTIFY
// packets costs nothing.
func (d *Discovery) handleAnnouncement(ip net.IP, location string) {
	if location == "" {
		return
	}
	host := ip.String()

	if d.sup.Live(host) {
		return
	}

	d.mu.Lock()
	if _, busy := d.pending[host]; busy {
		d.mu.Unlock()
		return
	}
	d.pending[host] = struct{}{}
	d.mu.Unlock()

	go func() {
		defer func() {
			d.mu.Lock()
			delete(d.pending, host)
			d.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		root, err := d.upnp.FetchDescription(ctx, location)
		if err != nil {
			d.log.WithError(err).WithField("host", host).Debug("description fetch failed")
			return
		}
		if root.FindService(upnp.AVTransportServiceID) == nil {
			return
		}

		if err := d.sup.AddDevice(ctx, ip, root); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyRegistered) {
				return
			}
			d.log.WithError(err).WithField("host", host).Warn("device add failed")
			return
		}
		d.log.WithField("host", host).Info("device discovered")
	}()
}

// parsePacket splits an SSDP datagram into its headers. Search requests
// from other control points are dropped, only responses and NOTIFY
// announcements pass.
func parsePacket(raw string) (map[string]string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(raw))

	if !scanner.Scan() {
		return nil, false
	}
	if strings.HasPrefix(scanner.Text(), "M-SEARCH") {
		return nil, false
	}

	headers := make(map[string]string)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(parts[0])), "-", "_")
		headers[key] = strings.TrimSpace(parts[1])
	}
	return headers, true
}

func isMediaRenderer(headers map[string]string) bool {
	return headers["st"] == ssdpTarget || headers["nt"] == ssdpTarget
}

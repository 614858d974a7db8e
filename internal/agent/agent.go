package agent

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soundmesh/musiccast-hub-go/internal/registry"
	"github.com/soundmesh/musiccast-hub-go/internal/upnp"
	"github.com/soundmesh/musiccast-hub-go/internal/yxc"
)

// renewalSlack is subtracted from granted subscription lifetimes so the
// renewal lands strictly before expiry.
const renewalSlack = 3 * time.Second

// inboxSize bounds the agent's message queue. Commands and events are
// served strictly FIFO from it.
const inboxSize = 64

// Config wires an agent to its collaborators.
type Config struct {
	YXC      *yxc.Client
	UPnP     *upnp.Client
	Registry *registry.Registry
	Bus      *registry.PubSub

	// CallbackURL is where this process receives GENA NOTIFY requests.
	// Empty disables UPnP eventing; the agent then runs on YXC alone.
	CallbackURL string
}

// Agent owns the state of one device. All mutation happens on its run
// loop; everything else talks to it through the inbox.
type Agent struct {
	cfg Config
	log *logrus.Entry

	host     string
	deviceID string
	avt      *upnp.AVTransport

	// state and lastSnap are owned by the run loop after Start returns.
	state    State
	lastSnap map[string]any

	inbox  chan any
	stopCh chan struct{}
	done   chan struct{}

	stopOnce sync.Once
	exitMu   sync.Mutex
	exitErr  error

	// sid mirrors state.UPnPSessionID for callers outside the run loop.
	sidMu sync.RWMutex
	sid   string

	yxcTimer  *time.Timer
	upnpTimer *time.Timer

	rng *rand.Rand
	now func() time.Time
}

type command struct {
	name  string
	run   func(ctx context.Context) (any, error)
	reply chan cmdResult
}

type cmdResult struct {
	value any
	err   error
}

// YXCEvent is a unicast extended-control event routed from the UDP
// ingress. The payload maps zone names to event dicts; device_id has
// already been stripped.
type YXCEvent struct {
	Payload map[string]any
}

// UPnPEvent is a decoded AVTransport NOTIFY.
type UPnPEvent struct {
	Event map[string]any
}

// UPnPNotify is a raw NOTIFY body routed from the HTTP ingress. The agent
// decodes it against its own service description.
type UPnPNotify struct {
	Body []byte
}

type yxcRenewTick struct{}

type upnpRenewTick struct{ sid string }

// New creates an agent for the device at ip described by root. Start must
// be called before the agent does anything.
func New(cfg Config, ip net.IP, root *upnp.RootDescription) *Agent {
	host := ip.String()
	return &Agent{
		cfg:    cfg,
		log:    logrus.WithFields(logrus.Fields{"component": "agent", "host": host}),
		host:   host,
		state:  State{Host: host, UPnPService: root},
		inbox:  make(chan any, inboxSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// Start initializes the device: identity, name, inputs, status, playback,
// UPnP subscription, registration and the renewal schedule. Any failure
// aborts the agent with that error. On success the run loop is live and
// an online announcement has been published.
func (a *Agent) Start(ctx context.Context) error {
	if err := a.initialize(ctx); err != nil {
		close(a.done)
		a.setExitErr(err)
		return err
	}
	go a.run()
	return nil
}

func (a *Agent) initialize(ctx context.Context) error {
	info, err := a.cfg.YXC.GetDeviceInfo(ctx, a.host, true)
	if err != nil {
		return fmt.Errorf("get device info: %w", err)
	}
	a.deviceID = info.DeviceID
	a.state.DeviceID = info.DeviceID
	a.log = a.log.WithField("device_id", info.DeviceID)

	network, err := a.cfg.YXC.GetNetworkStatus(ctx, a.host)
	if err != nil {
		return fmt.Errorf("get network status: %w", err)
	}
	a.state.NetworkName = network.NetworkName

	features, err := a.cfg.YXC.GetFeatures(ctx, a.host)
	if err != nil {
		return fmt.Errorf("get features: %w", err)
	}
	inputs := make([]string, 0, len(features.System.InputList))
	for _, input := range features.System.InputList {
		inputs = append(inputs, input.ID)
	}
	a.state.AvailableInputs = inputs

	avt, err := upnp.NewAVTransport(ctx, a.cfg.UPnP, a.state.UPnPService)
	if err != nil {
		return fmt.Errorf("resolve avtransport: %w", err)
	}
	a.avt = avt

	status, err := a.cfg.YXC.GetStatus(ctx, a.host, yxc.DefaultZone, false)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	a.state.Status = status

	playback, err := a.cfg.YXC.GetPlaybackInfo(ctx, a.host)
	if err != nil {
		return fmt.Errorf("get playback info: %w", err)
	}
	playback.AlbumartURL = absolutizeAlbumArt(a.host, playback.AlbumartURL)
	a.state.Playback = playback

	var granted int
	if a.cfg.CallbackURL != "" {
		sub, err := a.cfg.UPnP.Subscribe(ctx, avt.EventSubURL(), a.cfg.CallbackURL, upnp.DefaultSubscriptionTimeout)
		if err != nil {
			return fmt.Errorf("upnp subscribe: %w", err)
		}
		a.state.UPnPSessionID = sub.SID
		a.setSID(sub.SID)
		granted = sub.TimeoutSec
	}

	if err := a.cfg.Registry.Register(a.deviceID, a.host, a); err != nil {
		if a.state.UPnPSessionID != "" {
			a.cfg.UPnP.Unsubscribe(ctx, avt.EventSubURL(), a.state.UPnPSessionID)
		}
		return err
	}

	a.scheduleYXCRenewal(yxc.SubscriptionTimeout)
	if a.state.UPnPSessionID != "" {
		a.scheduleUPnPRenewal(time.Duration(granted)*time.Second, a.state.UPnPSessionID)
	}

	a.lastSnap = a.state.Snapshot()
	a.cfg.Bus.Publish(registry.TopicNetwork, registry.OnlineEvent{
		DeviceID: a.deviceID,
		State:    a.lastSnap,
	})
	a.log.WithField("name", a.state.NetworkName).Info("device online")
	return nil
}

// Deliver enqueues a one-way message for the run loop. It reports false
// once the agent is stopping.
func (a *Agent) Deliver(msg any) bool {
	select {
	case <-a.stopCh:
		return false
	case <-a.done:
		return false
	case a.inbox <- msg:
		return true
	}
}

// UPnPSessionID returns the current GENA subscription id, or "".
func (a *Agent) UPnPSessionID() string {
	a.sidMu.RLock()
	defer a.sidMu.RUnlock()
	return a.sid
}

// DeviceID returns the device identity. Empty until Start succeeds.
func (a *Agent) DeviceID() string {
	return a.deviceID
}

// Host returns the device's IPv4 address.
func (a *Agent) Host() string {
	return a.host
}

// Done is closed when the agent has exited.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// Err returns the cause of the agent's exit, nil for a graceful stop.
func (a *Agent) Err() error {
	a.exitMu.Lock()
	defer a.exitMu.Unlock()
	return a.exitErr
}

// Stop shuts the agent down gracefully: pending inbox messages drain, then
// the agent releases its registry entry and exits.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

func (a *Agent) setSID(sid string) {
	a.sidMu.Lock()
	a.sid = sid
	a.sidMu.Unlock()
}

func (a *Agent) setExitErr(err error) {
	a.exitMu.Lock()
	a.exitErr = err
	a.exitMu.Unlock()
}

// --- run loop ---

func (a *Agent) run() {
	defer a.cleanup()

	for {
		select {
		case <-a.stopCh:
			a.drain()
			return
		case msg := <-a.inbox:
			if err := a.handle(msg); err != nil {
				a.setExitErr(err)
				a.log.WithError(err).Warn("agent terminating")
				return
			}
		}
	}
}

// drain serves messages already queued at stop time, then returns.
func (a *Agent) drain() {
	for {
		select {
		case msg := <-a.inbox:
			if err := a.handle(msg); err != nil {
				a.setExitErr(err)
				return
			}
		default:
			return
		}
	}
}

func (a *Agent) cleanup() {
	if a.yxcTimer != nil {
		a.yxcTimer.Stop()
	}
	if a.upnpTimer != nil {
		a.upnpTimer.Stop()
	}
	if sid := a.UPnPSessionID(); sid != "" && a.avt != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.cfg.UPnP.Unsubscribe(ctx, a.avt.EventSubURL(), sid)
		cancel()
	}
	a.cfg.Registry.Unregister(a.deviceID, a)
	a.cfg.Bus.Publish(registry.TopicNetwork, registry.OfflineEvent{DeviceID: a.deviceID})
	close(a.done)
	a.log.Info("device offline")
}

func (a *Agent) handle(msg any) error {
	switch m := msg.(type) {
	case command:
		value, err := m.run(context.Background())
		m.reply <- cmdResult{value: value, err: err}
		return nil
	case YXCEvent:
		a.handleYXCEvent(m.Payload)
		return nil
	case UPnPEvent:
		a.handleUPnPEvent(m.Event)
		return nil
	case UPnPNotify:
		event, err := upnp.DecodeNotify(m.Body, a.avt.StateVariableTypes())
		if err != nil {
			a.log.WithError(err).Debug("notify decode failed")
			return nil
		}
		a.handleUPnPEvent(event)
		return nil
	case yxcRenewTick:
		return a.handleYXCRenewal()
	case upnpRenewTick:
		return a.handleUPnPRenewal(m.sid)
	default:
		a.log.WithField("type", fmt.Sprintf("%T", msg)).Warn("dropping unknown message")
		return nil
	}
}

// --- event handling ---

// Zone event keys that only signal activity elsewhere in the same payload
// and need no refetch of their own.
var drainedEventKeys = map[string]struct{}{
	"status_updated":      {},
	"play_info_updated":   {},
	"signal_info_updated": {},
	"recent_info_updated": {},
	"play_queue":          {},
}

var zoneNames = map[string]struct{}{
	"main": {}, "zone2": {}, "zone3": {}, "zone4": {},
}

func (a *Agent) handleYXCEvent(payload map[string]any) {
	ctx := context.Background()

	for key, raw := range payload {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		zone := yxc.DefaultZone
		if _, isZone := zoneNames[key]; isZone {
			zone = key
		}

		if truthy(fields["status_updated"]) {
			if status, err := a.cfg.YXC.GetStatus(ctx, a.host, zone, false); err == nil {
				a.state.Status = status
			} else {
				a.log.WithError(err).Debug("status refetch failed")
			}
		}
		if truthy(fields["play_info_updated"]) {
			if playback, err := a.cfg.YXC.GetPlaybackInfo(ctx, a.host); err == nil {
				a.state.Playback = playback
			} else {
				a.log.WithError(err).Debug("play info refetch failed")
			}
		}

		rest := make(map[string]any)
		for field, value := range fields {
			if _, drained := drainedEventKeys[field]; drained {
				continue
			}
			rest[field] = value
		}
		if len(rest) > 0 {
			if err := mergeIntoStruct(&a.state.Status, rest); err != nil {
				a.log.WithError(err).Debug("status merge failed")
			}
			if err := mergeIntoStruct(&a.state.Playback, rest); err != nil {
				a.log.WithError(err).Debug("playback merge failed")
			}
		}
	}

	a.state.Playback.AlbumartURL = absolutizeAlbumArt(a.host, a.state.Playback.AlbumartURL)
	a.publishDiff()
}

func (a *Agent) handleUPnPEvent(event map[string]any) {
	previousURI, _ := a.state.UPnP["av_transport_uri"].(string)
	a.state.UPnP = event

	if uri, ok := event["av_transport_uri"].(string); ok && uri != previousURI {
		a.state.PlaybackQueue.MediaURL = uri

		// Gapless playback: with an active queue, stage the follow-up
		// track as soon as the device reports the new URI.
		if len(a.state.PlaybackQueue.Items) > 0 && a.state.PlaybackQueue.indexOf(uri) >= 0 {
			if next, ok := a.state.PlaybackQueue.neighbor(1, a.shuffleOn(), a.rng); ok {
				avt := a.avt
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if err := avt.SetNextAVTransportURI(ctx, next.URL, next.Meta); err != nil {
						a.log.WithError(err).Debug("set next uri failed")
					}
				}()
			}
		}
	}

	a.publishDiff()
}

// handleYXCRenewal refreshes the unicast event enrollment. The getStatus
// call carries the subscription headers, which is what renews it.
func (a *Agent) handleYXCRenewal() error {
	status, err := a.cfg.YXC.GetStatus(context.Background(), a.host, yxc.DefaultZone, true)
	if err != nil {
		return fmt.Errorf("yxc renewal: %w", err)
	}
	a.state.Status = status
	a.publishDiff()
	a.scheduleYXCRenewal(yxc.SubscriptionTimeout)
	return nil
}

func (a *Agent) handleUPnPRenewal(sid string) error {
	sub, err := a.cfg.UPnP.Subscribe(context.Background(), a.avt.EventSubURL(), sid, upnp.DefaultSubscriptionTimeout)
	if err != nil {
		return fmt.Errorf("upnp renewal: %w", err)
	}
	if sub.SID != sid {
		a.state.UPnPSessionID = sub.SID
		a.setSID(sub.SID)
		a.publishDiff()
	}
	a.scheduleUPnPRenewal(time.Duration(sub.TimeoutSec)*time.Second, sub.SID)
	return nil
}

func (a *Agent) scheduleYXCRenewal(granted time.Duration) {
	interval := granted - renewalSlack
	if interval < 0 {
		interval = 0
	}
	a.yxcTimer = time.AfterFunc(interval, func() {
		a.Deliver(yxcRenewTick{})
	})
}

func (a *Agent) scheduleUPnPRenewal(granted time.Duration, sid string) {
	interval := granted - renewalSlack
	if interval < 0 {
		interval = 0
	}
	a.upnpTimer = time.AfterFunc(interval, func() {
		a.Deliver(upnpRenewTick{sid: sid})
	})
}

func (a *Agent) shuffleOn() bool {
	return a.state.Playback.Shuffle == "on"
}

func (a *Agent) publishDiff() {
	snapshot := a.state.Snapshot()
	diff := Diff(a.lastSnap, snapshot)
	a.lastSnap = snapshot
	if diff == nil {
		return
	}
	a.cfg.Bus.Publish(a.deviceID, registry.UpdateEvent{DeviceID: a.deviceID, Diff: diff})
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

package upnp

import (
	"context"
	"fmt"
)

// AVTransport drives the AVTransport service of one renderer. Instances
// are built from a parsed root description, so every URL is absolute.
type AVTransport struct {
	client      *Client
	serviceType string
	controlURL  string
	eventSubURL string
	scpd        *SCPD
}

// NewAVTransport resolves the AVTransport service from a root description
// and loads its SCPD so event values can be cast per the state-variable
// table.
func NewAVTransport(ctx context.Context, client *Client, root *RootDescription) (*AVTransport, error) {
	svc := root.FindService(AVTransportServiceID)
	if svc == nil {
		return nil, fmt.Errorf("device has no %s service", AVTransportServiceID)
	}

	scpd, err := client.FetchSCPD(ctx, svc.SCPDURL)
	if err != nil {
		return nil, fmt.Errorf("fetch avtransport scpd: %w", err)
	}

	return &AVTransport{
		client:      client,
		serviceType: svc.ServiceType,
		controlURL:  svc.ControlURL,
		eventSubURL: svc.EventSubURL,
		scpd:        scpd,
	}, nil
}

// EventSubURL returns the service's GENA subscription endpoint.
func (t *AVTransport) EventSubURL() string {
	return t.eventSubURL
}

// StateVariableTypes returns the SCPD state-variable type table.
func (t *AVTransport) StateVariableTypes() map[string]string {
	return t.scpd.StateVariables
}

// Call invokes an arbitrary action by name. Typed wrappers below cover the
// actions agents use.
func (t *AVTransport) Call(ctx context.Context, action string, params map[string]string) (map[string]string, error) {
	return t.client.CallAction(ctx, t.controlURL, t.serviceType, action, params)
}

func (t *AVTransport) Play(ctx context.Context) error {
	_, err := t.Call(ctx, "Play", map[string]string{"InstanceID": "0", "Speed": "1"})
	return err
}

func (t *AVTransport) Pause(ctx context.Context) error {
	_, err := t.Call(ctx, "Pause", map[string]string{"InstanceID": "0"})
	return err
}

func (t *AVTransport) Stop(ctx context.Context) error {
	_, err := t.Call(ctx, "Stop", map[string]string{"InstanceID": "0"})
	return err
}

func (t *AVTransport) Next(ctx context.Context) error {
	_, err := t.Call(ctx, "Next", map[string]string{"InstanceID": "0"})
	return err
}

func (t *AVTransport) Previous(ctx context.Context) error {
	_, err := t.Call(ctx, "Previous", map[string]string{"InstanceID": "0"})
	return err
}

func (t *AVTransport) Seek(ctx context.Context, unit, target string) error {
	_, err := t.Call(ctx, "Seek", map[string]string{"InstanceID": "0", "Unit": unit, "Target": target})
	return err
}

// SetAVTransportURI loads a URI. meta may be nil (no metadata), a raw
// DIDL-Lite string passed through verbatim, or a *Track encoded here.
func (t *AVTransport) SetAVTransportURI(ctx context.Context, uri string, meta any) error {
	_, err := t.Call(ctx, "SetAVTransportURI", map[string]string{
		"InstanceID":         "0",
		"CurrentURI":         uri,
		"CurrentURIMetaData": encodeMeta(uri, meta),
	})
	return err
}

// SetNextAVTransportURI queues the gapless follow-up URI.
func (t *AVTransport) SetNextAVTransportURI(ctx context.Context, uri string, meta any) error {
	_, err := t.Call(ctx, "SetNextAVTransportURI", map[string]string{
		"InstanceID":      "0",
		"NextURI":         uri,
		"NextURIMetaData": encodeMeta(uri, meta),
	})
	return err
}

func encodeMeta(uri string, meta any) string {
	switch m := meta.(type) {
	case nil:
		return ""
	case string:
		return m
	case Track:
		return EncodeItem(uri, m)
	case *Track:
		if m == nil {
			return ""
		}
		return EncodeItem(uri, *m)
	default:
		return ""
	}
}

package hub

import (
	"context"

	"github.com/soundmesh/musiccast-hub-go/internal/upnp"
)

// Track is the metadata attached to a loaded URI when DIDL-Lite encoding
// is wanted.
type Track = upnp.Track

// QueueItem is one (url, meta) entry of a playback queue.
type QueueItem = upnp.Item

// Device command helpers. Each resolves the device id and forwards to its
// agent; commands on one device serialize, devices never block each other.

func (h *Hub) PlaybackPlay(ctx context.Context, deviceID string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.PlaybackPlay(ctx)
}

func (h *Hub) PlaybackPause(ctx context.Context, deviceID string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.PlaybackPause(ctx)
}

func (h *Hub) PlaybackStop(ctx context.Context, deviceID string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.PlaybackStop(ctx)
}

func (h *Hub) PlaybackNext(ctx context.Context, deviceID string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.PlaybackNext(ctx)
}

func (h *Hub) PlaybackPrevious(ctx context.Context, deviceID string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.PlaybackPrevious(ctx)
}

// PlaybackLoad loads one URI and plays it. meta may be nil, a prebuilt
// DIDL-Lite string, or a *Track to encode.
func (h *Hub) PlaybackLoad(ctx context.Context, deviceID, uri string, meta any) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.PlaybackLoad(ctx, uri, meta)
}

// PlaybackLoadNext stages the URI the device should switch to gaplessly.
func (h *Hub) PlaybackLoadNext(ctx context.Context, deviceID, uri string, meta any) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.PlaybackLoadNext(ctx, uri, meta)
}

// PlaybackLoadQueue replaces the device's queue and starts its first item.
func (h *Hub) PlaybackLoadQueue(ctx context.Context, deviceID string, items []QueueItem) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.PlaybackLoadQueue(ctx, items)
}

func (h *Hub) SetPower(ctx context.Context, deviceID, power string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.SetPower(ctx, power)
}

func (h *Hub) SetInput(ctx context.Context, deviceID, input string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.SetInput(ctx, input)
}

func (h *Hub) SetVolume(ctx context.Context, deviceID string, volume int) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.SetVolume(ctx, volume)
}

func (h *Hub) IncreaseVolume(ctx context.Context, deviceID string, step int) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.IncreaseVolume(ctx, step)
}

func (h *Hub) DecreaseVolume(ctx context.Context, deviceID string, step int) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.DecreaseVolume(ctx, step)
}

func (h *Hub) Mute(ctx context.Context, deviceID string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.Mute(ctx)
}

func (h *Hub) Unmute(ctx context.Context, deviceID string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.Unmute(ctx)
}

func (h *Hub) TogglePlayPause(ctx context.Context, deviceID string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.TogglePlayPause(ctx)
}

func (h *Hub) ToggleRepeat(ctx context.Context, deviceID string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.ToggleRepeat(ctx)
}

func (h *Hub) ToggleShuffle(ctx context.Context, deviceID string) error {
	a, err := h.agentFor(deviceID)
	if err != nil {
		return err
	}
	return a.ToggleShuffle(ctx)
}

package agent

import (
	"context"
	"errors"

	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
	"github.com/soundmesh/musiccast-hub-go/internal/upnp"
)

// ErrAgentStopped is returned for commands posted to an agent that has
// exited.
var ErrAgentStopped = errors.New("agent stopped")

// call serializes a command through the inbox and waits for its result.
// Commands execute one at a time in arrival order; the i-th completes
// before the (i+1)-th begins.
func (a *Agent) call(ctx context.Context, name string, run func(ctx context.Context) (any, error)) (any, error) {
	cmd := command{name: name, run: run, reply: make(chan cmdResult, 1)}

	select {
	case a.inbox <- cmd:
	case <-a.done:
		return nil, ErrAgentStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res.value, res.err
	case <-a.done:
		// The agent may have answered just before exiting.
		select {
		case res := <-cmd.reply:
			return res.value, res.err
		default:
			return nil, ErrAgentStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Agent) exec(ctx context.Context, name string, run func(ctx context.Context) error) error {
	_, err := a.call(ctx, name, func(ctx context.Context) (any, error) {
		return nil, run(ctx)
	})
	return err
}

// --- YXC passthroughs; device state catches up via the event loop ---

func (a *Agent) SetPower(ctx context.Context, power string) error {
	return a.exec(ctx, "set_power", func(ctx context.Context) error {
		return a.cfg.YXC.SetPower(ctx, a.host, "", power)
	})
}

func (a *Agent) SetInput(ctx context.Context, input string) error {
	return a.exec(ctx, "set_input", func(ctx context.Context) error {
		return a.cfg.YXC.SetInput(ctx, a.host, "", input)
	})
}

func (a *Agent) SetVolume(ctx context.Context, volume int) error {
	return a.exec(ctx, "set_volume", func(ctx context.Context) error {
		return a.cfg.YXC.SetVolume(ctx, a.host, "", volume)
	})
}

func (a *Agent) IncreaseVolume(ctx context.Context, step int) error {
	return a.exec(ctx, "increase_volume", func(ctx context.Context) error {
		return a.cfg.YXC.AdjustVolume(ctx, a.host, "", "up", step)
	})
}

func (a *Agent) DecreaseVolume(ctx context.Context, step int) error {
	return a.exec(ctx, "decrease_volume", func(ctx context.Context) error {
		return a.cfg.YXC.AdjustVolume(ctx, a.host, "", "down", step)
	})
}

func (a *Agent) Mute(ctx context.Context) error {
	return a.exec(ctx, "mute", func(ctx context.Context) error {
		return a.cfg.YXC.SetMute(ctx, a.host, "", true)
	})
}

func (a *Agent) Unmute(ctx context.Context) error {
	return a.exec(ctx, "unmute", func(ctx context.Context) error {
		return a.cfg.YXC.SetMute(ctx, a.host, "", false)
	})
}

func (a *Agent) PlaybackPlay(ctx context.Context) error {
	return a.exec(ctx, "playback_play", func(ctx context.Context) error {
		return a.cfg.YXC.SetPlayback(ctx, a.host, "play")
	})
}

func (a *Agent) PlaybackPause(ctx context.Context) error {
	return a.exec(ctx, "playback_pause", func(ctx context.Context) error {
		return a.cfg.YXC.SetPlayback(ctx, a.host, "pause")
	})
}

func (a *Agent) PlaybackStop(ctx context.Context) error {
	return a.exec(ctx, "playback_stop", func(ctx context.Context) error {
		return a.cfg.YXC.SetPlayback(ctx, a.host, "stop")
	})
}

func (a *Agent) TogglePlayPause(ctx context.Context) error {
	return a.exec(ctx, "toggle_play_pause", func(ctx context.Context) error {
		return a.cfg.YXC.SetPlayback(ctx, a.host, "play_pause")
	})
}

func (a *Agent) ToggleRepeat(ctx context.Context) error {
	return a.exec(ctx, "toggle_repeat", func(ctx context.Context) error {
		return a.cfg.YXC.ToggleRepeat(ctx, a.host)
	})
}

func (a *Agent) ToggleShuffle(ctx context.Context) error {
	return a.exec(ctx, "toggle_shuffle", func(ctx context.Context) error {
		return a.cfg.YXC.ToggleShuffle(ctx, a.host)
	})
}

// --- UPnP-backed playback ---

// loadURI is the Stop -> SetAVTransportURI -> Play sequence shared by the
// load commands. Runs on the agent loop.
func (a *Agent) loadURI(ctx context.Context, uri string, meta any) error {
	if err := a.avt.Stop(ctx); err != nil {
		return err
	}
	if err := a.avt.SetAVTransportURI(ctx, uri, meta); err != nil {
		return err
	}
	return a.avt.Play(ctx)
}

// PlaybackLoad loads a single URI and starts playback. A successful load
// detaches playback from the queue until an AVTransport event re-associates
// it.
func (a *Agent) PlaybackLoad(ctx context.Context, uri string, meta any) error {
	return a.exec(ctx, "playback_load", func(ctx context.Context) error {
		if err := a.loadURI(ctx, uri, meta); err != nil {
			return err
		}
		a.state.PlaybackQueue.MediaURL = ""
		a.publishDiff()
		return nil
	})
}

// PlaybackLoadNext stages a URI for gapless transition.
func (a *Agent) PlaybackLoadNext(ctx context.Context, uri string, meta any) error {
	return a.exec(ctx, "playback_load_next", func(ctx context.Context) error {
		return a.avt.SetNextAVTransportURI(ctx, uri, meta)
	})
}

// PlaybackLoadQueue replaces the playback queue and starts its first item.
func (a *Agent) PlaybackLoadQueue(ctx context.Context, items []upnp.Item) error {
	return a.exec(ctx, "playback_load_queue", func(ctx context.Context) error {
		if len(items) == 0 {
			return &apperrors.ArgumentError{Argument: "items", Message: "queue is empty"}
		}
		a.state.PlaybackQueue.Items = items
		first := items[0]
		if err := a.loadURI(ctx, first.URL, first.Meta); err != nil {
			return err
		}
		a.state.PlaybackQueue.MediaURL = ""
		a.publishDiff()
		return nil
	})
}

// PlaybackNext advances within the queue when one is loaded, honoring
// shuffle; otherwise it falls through to the device's own next.
func (a *Agent) PlaybackNext(ctx context.Context) error {
	return a.exec(ctx, "playback_next", func(ctx context.Context) error {
		return a.queueStep(ctx, 1)
	})
}

// PlaybackPrevious steps back within the queue, or falls through to the
// device.
func (a *Agent) PlaybackPrevious(ctx context.Context) error {
	return a.exec(ctx, "playback_previous", func(ctx context.Context) error {
		return a.queueStep(ctx, -1)
	})
}

func (a *Agent) queueStep(ctx context.Context, direction int) error {
	item, ok := a.state.PlaybackQueue.neighbor(direction, a.shuffleOn(), a.rng)
	if !ok {
		verb := "next"
		if direction < 0 {
			verb = "previous"
		}
		return a.cfg.YXC.SetPlayback(ctx, a.host, verb)
	}
	if err := a.loadURI(ctx, item.URL, item.Meta); err != nil {
		return err
	}
	a.state.PlaybackQueue.MediaURL = item.URL
	a.publishDiff()
	return nil
}

// --- lookups ---

// Lookup returns a snapshot of the requested top-level state keys, or the
// whole state when no keys are given. Unknown keys fail with an
// ArgumentError.
func (a *Agent) Lookup(ctx context.Context, keys ...string) (map[string]any, error) {
	value, err := a.call(ctx, "lookup", func(ctx context.Context) (any, error) {
		snapshot := a.state.Snapshot()
		if len(keys) == 0 {
			return snapshot, nil
		}
		result := make(map[string]any, len(keys))
		for _, key := range keys {
			val, ok := snapshot[key]
			if !ok {
				return nil, &apperrors.ArgumentError{Argument: key, Message: "unknown state key"}
			}
			result[key] = val
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(map[string]any), nil
}

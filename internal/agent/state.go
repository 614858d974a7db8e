package agent

import (
	"encoding/json"
	"strings"

	"github.com/soundmesh/musiccast-hub-go/internal/upnp"
	"github.com/soundmesh/musiccast-hub-go/internal/yxc"
)

// PlaybackQueue is an ordered sequence of (url, metadata) pairs plus the
// url currently loaded from it.
type PlaybackQueue struct {
	MediaURL string      `json:"media_url"`
	Items    []upnp.Item `json:"items"`
}

// State is the full model of one device, owned exclusively by its agent.
// Readers only ever see snapshots.
type State struct {
	Host            string                `json:"host"`
	DeviceID        string                `json:"device_id"`
	NetworkName     string                `json:"network_name"`
	AvailableInputs []string              `json:"available_inputs"`
	Status          yxc.Status            `json:"status"`
	Playback        yxc.Playback          `json:"playback"`
	UPnPService     *upnp.RootDescription `json:"upnp_service,omitempty"`
	UPnP            map[string]any        `json:"upnp,omitempty"`
	UPnPSessionID   string                `json:"upnp_session_id,omitempty"`
	PlaybackQueue   PlaybackQueue         `json:"playback_queue"`
}

// Snapshot renders the state as a nested map. Diffing and lookups operate
// on snapshots so the typed structs never leak mutable references.
func (s *State) Snapshot() map[string]any {
	raw, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}
	var snap map[string]any
	if err := json.Unmarshal(raw, &snap); err != nil {
		return map[string]any{}
	}
	return snap
}

// absolutizeAlbumArt rewrites the device-relative album art path to a full
// URL. An empty path stays empty.
func absolutizeAlbumArt(host, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return "http://" + host + path
}

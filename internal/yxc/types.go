package yxc

import (
	"encoding/json"
	"reflect"
)

// DeviceInfo is the getDeviceInfo payload.
type DeviceInfo struct {
	ModelName       string  `json:"model_name"`
	Destination     string  `json:"destination"`
	DeviceID        string  `json:"device_id"`
	SystemID        string  `json:"system_id"`
	SystemVersion   float64 `json:"system_version"`
	APIVersion      float64 `json:"api_version"`
	NetModuleCheck  string  `json:"netmodule_checksum"`
	SerialNumber    string  `json:"serial_number"`
	OperationMode   string  `json:"operation_mode"`
	UpdateErrorCode string  `json:"update_error_code"`
}

// NetworkStatus is the getNetworkStatus payload, reduced to the fields the
// control plane consumes.
type NetworkStatus struct {
	NetworkName string `json:"network_name"`
	Connection  string `json:"connection"`
	IPAddress   string `json:"ip_address"`
	MacAddress  any    `json:"mac_address,omitempty"`
}

// Features is the getFeatures payload, reduced to the system input list.
type Features struct {
	System struct {
		InputList []Input `json:"input_list"`
		ZoneNum   int     `json:"zone_num"`
	} `json:"system"`
	Zone []ZoneFeature `json:"zone"`
}

// Input describes one entry of getFeatures.system.input_list.
type Input struct {
	ID                 string `json:"id"`
	DistributionEnable bool   `json:"distribution_enable"`
	PlayInfoType       string `json:"play_info_type"`
}

// ZoneFeature describes one entry of getFeatures.zone.
type ZoneFeature struct {
	ID           string   `json:"id"`
	FuncList     []string `json:"func_list"`
	InputList    []string `json:"input_list"`
	RangeStep    []any    `json:"range_step"`
	SoundProgram []string `json:"sound_program_list"`
}

// Equalizer is the per-zone equalizer block.
type Equalizer struct {
	Mode string `json:"mode,omitempty"`
	Low  int    `json:"low"`
	Mid  int    `json:"mid"`
	High int    `json:"high"`
}

// Status is the per-zone getStatus payload. Unknown keys land in Extras so
// event merges never drop device-reported fields.
type Status struct {
	Power              string     `json:"power,omitempty"`
	Sleep              int        `json:"sleep"`
	Volume             int        `json:"volume"`
	MaxVolume          int        `json:"max_volume"`
	Mute               bool       `json:"mute"`
	Input              string     `json:"input,omitempty"`
	Equalizer          *Equalizer `json:"equalizer,omitempty"`
	Balance            int        `json:"balance"`
	BassExtension      bool       `json:"bass_extension"`
	Direct             bool       `json:"direct"`
	Enhancer           bool       `json:"enhancer"`
	LinkControl        string     `json:"link_control,omitempty"`
	LinkAudioDelay     string     `json:"link_audio_delay,omitempty"`
	SubwooferVolume    int        `json:"subwoofer_volume"`
	DistributionEnable bool       `json:"distribution_enable"`
	DisableFlags       int        `json:"disable_flags"`

	Extras map[string]any `json:"-"`
}

// Playback is the netusb getPlayInfo payload. Unknown keys land in Extras.
type Playback struct {
	Input       string `json:"input,omitempty"`
	Playback    string `json:"playback,omitempty"`
	Repeat      string `json:"repeat,omitempty"`
	Shuffle     string `json:"shuffle,omitempty"`
	PlayTime    int    `json:"play_time"`
	TotalTime   int    `json:"total_time"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	Track       string `json:"track,omitempty"`
	AlbumartURL string `json:"albumart_url"`

	Extras map[string]any `json:"-"`
}

// ListInfo is the netusb getListInfo payload.
type ListInfo struct {
	Input        string     `json:"input"`
	MenuLayer    int        `json:"menu_layer"`
	MaxLine      int        `json:"max_line"`
	Index        int        `json:"index"`
	PlayingIndex int        `json:"playing_index"`
	MenuName     string     `json:"menu_name"`
	ListInfo     []ListItem `json:"list_info"`
}

// ListItem is one entry of getListInfo.list_info.
type ListItem struct {
	Text         string   `json:"text"`
	Subtexts     []string `json:"subtexts,omitempty"`
	ThumbnailURL string   `json:"thumbnail"`
	Attribute    int      `json:"attribute"`
}

// PresetInfo is the tuner/netusb getPresetInfo payload.
type PresetInfo struct {
	PresetInfo []map[string]any `json:"preset_info"`
	FuncList   []string         `json:"func_list"`
}

// MarshalJSON inlines Extras next to the known fields so snapshots and
// diffs see device-reported keys the struct does not model.
func (s Status) MarshalJSON() ([]byte, error) {
	type plain Status
	return marshalWithExtras(plain(s), s.Extras)
}

func (p Playback) MarshalJSON() ([]byte, error) {
	type plain Playback
	return marshalWithExtras(plain(p), p.Extras)
}

func marshalWithExtras(known any, extras map[string]any) ([]byte, error) {
	raw, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	if len(extras) == 0 {
		return raw, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	for key, value := range extras {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	type plain Status
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	*s = Status(known)
	s.Extras = extractExtras(data, statusKeys)
	return nil
}

func (p *Playback) UnmarshalJSON(data []byte) error {
	type plain Playback
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	*p = Playback(known)
	p.Extras = extractExtras(data, playbackKeys)
	return nil
}

var (
	statusKeys   = jsonKeys(reflect.TypeOf(Status{}))
	playbackKeys = jsonKeys(reflect.TypeOf(Playback{}))
)

// jsonKeys collects the json tag names of a struct type.
func jsonKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		for j, ch := range tag {
			if ch == ',' {
				tag = tag[:j]
				break
			}
		}
		keys[tag] = struct{}{}
	}
	return keys
}

func extractExtras(data []byte, known map[string]struct{}) map[string]any {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	var extras map[string]any
	for key, value := range raw {
		if _, ok := known[key]; ok {
			continue
		}
		if key == "response_code" {
			continue
		}
		if extras == nil {
			extras = make(map[string]any)
		}
		extras[key] = value
	}
	return extras
}

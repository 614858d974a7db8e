package yxc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
)

const basePath = "/YamahaExtendedControl/v1"

// DefaultZone is used whenever a zone argument is empty.
const DefaultZone = "main"

// Subscription header values for unicast event enrollment. Any request
// carrying these headers (re)enrolls this process with the device; the
// device pushes events to X-AppPort until the enrollment lapses.
const (
	AppName = "MusicCast/1.50"
	// SubscriptionTimeout is the enrollment lifetime granted by devices.
	SubscriptionTimeout = 180 * time.Second
)

// Client is a stateless HTTP/JSON client for the Yamaha Extended Control
// REST API. One client serves any number of devices.
type Client struct {
	httpClient *http.Client
	eventPort  int
	log        *logrus.Entry
}

// NewClient creates a YXC client. eventPort is advertised to devices via
// X-AppPort on enrollment requests.
func NewClient(timeout time.Duration, eventPort int) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		eventPort: eventPort,
		log:       logrus.WithField("component", "yxc"),
	}
}

type requestOpts struct {
	subscribe bool
	method    string
	body      any
}

func (c *Client) do(ctx context.Context, host, path string, params url.Values, opts requestOpts, out any) error {
	method := http.MethodGet
	if opts.method != "" {
		method = opts.method
	}

	endpoint := "http://" + host + basePath + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var body io.Reader
	if opts.body != nil {
		raw, err := json.Marshal(opts.body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if opts.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.subscribe {
		req.Header.Set("X-AppName", AppName)
		req.Header.Set("X-AppPort", strconv.Itoa(c.eventPort))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperrors.TransportError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apperrors.TransportError{Op: path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &apperrors.TransportError{Op: path, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	var envelope struct {
		ResponseCode *int `json:"response_code"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.ResponseCode == nil {
		return &apperrors.InvalidResponseError{Op: path, Err: fmt.Errorf("missing response_code: %w", err)}
	}
	if code := *envelope.ResponseCode; code != 0 {
		c.log.WithFields(logrus.Fields{"host": host, "path": path, "response_code": code}).
			Debug("device rejected request")
		return &Error{Op: path, Code: code, Kind: KindForCode(code), RawBody: payload}
	}

	// response_code is stripped here: out has no field for it, so callers
	// never see the envelope.
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return &apperrors.InvalidResponseError{Op: path, Err: err}
		}
	}
	return nil
}

func zoneOrDefault(zone string) string {
	if zone == "" {
		return DefaultZone
	}
	return zone
}

// --- system ---

// GetDeviceInfo fetches device identity. With subscribe set, the request
// also enrolls this process for unicast events.
func (c *Client) GetDeviceInfo(ctx context.Context, host string, subscribe bool) (DeviceInfo, error) {
	var info DeviceInfo
	err := c.do(ctx, host, "/system/getDeviceInfo", nil, requestOpts{subscribe: subscribe}, &info)
	return info, err
}

func (c *Client) GetFeatures(ctx context.Context, host string) (Features, error) {
	var features Features
	err := c.do(ctx, host, "/system/getFeatures", nil, requestOpts{}, &features)
	return features, err
}

func (c *Client) GetNetworkStatus(ctx context.Context, host string) (NetworkStatus, error) {
	var status NetworkStatus
	err := c.do(ctx, host, "/system/getNetworkStatus", nil, requestOpts{}, &status)
	return status, err
}

func (c *Client) GetFuncStatus(ctx context.Context, host string) (map[string]any, error) {
	var status map[string]any
	err := c.do(ctx, host, "/system/getFuncStatus", nil, requestOpts{}, &status)
	delete(status, "response_code")
	return status, err
}

func (c *Client) GetLocationInfo(ctx context.Context, host string) (map[string]any, error) {
	var info map[string]any
	err := c.do(ctx, host, "/system/getLocationInfo", nil, requestOpts{}, &info)
	delete(info, "response_code")
	return info, err
}

func (c *Client) SetAutoPowerStandby(ctx context.Context, host string, enable bool) error {
	params := url.Values{"enable": {strconv.FormatBool(enable)}}
	return c.do(ctx, host, "/system/setAutoPowerStandby", params, requestOpts{}, nil)
}

func (c *Client) SendIRCode(ctx context.Context, host, code string) error {
	params := url.Values{"code": {code}}
	return c.do(ctx, host, "/system/sendIrCode", params, requestOpts{}, nil)
}

// --- zone ---

// GetStatus fetches zone status. With subscribe set, the request refreshes
// the unicast event enrollment; agents use that for renewal ticks.
func (c *Client) GetStatus(ctx context.Context, host, zone string, subscribe bool) (Status, error) {
	var status Status
	path := "/" + zoneOrDefault(zone) + "/getStatus"
	err := c.do(ctx, host, path, nil, requestOpts{subscribe: subscribe}, &status)
	return status, err
}

func (c *Client) SetPower(ctx context.Context, host, zone, power string) error {
	params := url.Values{"power": {power}}
	return c.do(ctx, host, "/"+zoneOrDefault(zone)+"/setPower", params, requestOpts{}, nil)
}

func (c *Client) SetSleep(ctx context.Context, host, zone string, sleep int) error {
	params := url.Values{"sleep": {strconv.Itoa(sleep)}}
	return c.do(ctx, host, "/"+zoneOrDefault(zone)+"/setSleep", params, requestOpts{}, nil)
}

// SetVolume sets an absolute volume level. The step parameter is only ever
// sent on relative adjustments, see AdjustVolume.
func (c *Client) SetVolume(ctx context.Context, host, zone string, volume int) error {
	params := url.Values{"volume": {strconv.Itoa(volume)}}
	return c.do(ctx, host, "/"+zoneOrDefault(zone)+"/setVolume", params, requestOpts{}, nil)
}

// AdjustVolume moves the volume relatively. direction is "up" or "down";
// step is included when positive.
func (c *Client) AdjustVolume(ctx context.Context, host, zone, direction string, step int) error {
	if direction != "up" && direction != "down" {
		return &apperrors.ArgumentError{Argument: "volume", Message: "direction must be up or down"}
	}
	params := url.Values{"volume": {direction}}
	if step > 0 {
		params.Set("step", strconv.Itoa(step))
	}
	return c.do(ctx, host, "/"+zoneOrDefault(zone)+"/setVolume", params, requestOpts{}, nil)
}

func (c *Client) SetMute(ctx context.Context, host, zone string, enable bool) error {
	params := url.Values{"enable": {strconv.FormatBool(enable)}}
	return c.do(ctx, host, "/"+zoneOrDefault(zone)+"/setMute", params, requestOpts{}, nil)
}

func (c *Client) SetInput(ctx context.Context, host, zone, input string) error {
	params := url.Values{"input": {input}}
	return c.do(ctx, host, "/"+zoneOrDefault(zone)+"/setInput", params, requestOpts{}, nil)
}

func (c *Client) SetSoundProgram(ctx context.Context, host, zone, program string) error {
	params := url.Values{"program": {program}}
	return c.do(ctx, host, "/"+zoneOrDefault(zone)+"/setSoundProgram", params, requestOpts{}, nil)
}

func (c *Client) PrepareInputChange(ctx context.Context, host, zone, input string) error {
	params := url.Values{"input": {input}}
	return c.do(ctx, host, "/"+zoneOrDefault(zone)+"/prepareInputChange", params, requestOpts{}, nil)
}

// --- tuner ---

func (c *Client) GetTunerPresetInfo(ctx context.Context, host, band string) (PresetInfo, error) {
	var info PresetInfo
	params := url.Values{"band": {band}}
	err := c.do(ctx, host, "/tuner/getPresetInfo", params, requestOpts{}, &info)
	return info, err
}

func (c *Client) GetTunerPlayInfo(ctx context.Context, host string) (map[string]any, error) {
	var info map[string]any
	err := c.do(ctx, host, "/tuner/getPlayInfo", nil, requestOpts{}, &info)
	delete(info, "response_code")
	return info, err
}

func (c *Client) RecallTunerPreset(ctx context.Context, host, zone, band string, num int) error {
	params := url.Values{"zone": {zoneOrDefault(zone)}, "band": {band}, "num": {strconv.Itoa(num)}}
	return c.do(ctx, host, "/tuner/recallPreset", params, requestOpts{}, nil)
}

func (c *Client) StoreTunerPreset(ctx context.Context, host string, num int) error {
	params := url.Values{"num": {strconv.Itoa(num)}}
	return c.do(ctx, host, "/tuner/storePreset", params, requestOpts{}, nil)
}

func (c *Client) SwitchTunerPreset(ctx context.Context, host, direction string) error {
	params := url.Values{"dir": {direction}}
	return c.do(ctx, host, "/tuner/switchPreset", params, requestOpts{}, nil)
}

func (c *Client) SetDABService(ctx context.Context, host, direction string) error {
	params := url.Values{"dir": {direction}}
	return c.do(ctx, host, "/tuner/setDabService", params, requestOpts{}, nil)
}

// --- netusb ---

func (c *Client) GetNetUSBPresetInfo(ctx context.Context, host string) (PresetInfo, error) {
	var info PresetInfo
	err := c.do(ctx, host, "/netusb/getPresetInfo", nil, requestOpts{}, &info)
	return info, err
}

func (c *Client) GetPlaybackInfo(ctx context.Context, host string) (Playback, error) {
	var playback Playback
	err := c.do(ctx, host, "/netusb/getPlayInfo", nil, requestOpts{}, &playback)
	return playback, err
}

// SetPlayback drives netusb transport: play, pause, stop, next, previous
// or play_pause.
func (c *Client) SetPlayback(ctx context.Context, host, playback string) error {
	params := url.Values{"playback": {playback}}
	return c.do(ctx, host, "/netusb/setPlayback", params, requestOpts{}, nil)
}

func (c *Client) ToggleRepeat(ctx context.Context, host string) error {
	return c.do(ctx, host, "/netusb/toggleRepeat", nil, requestOpts{}, nil)
}

func (c *Client) ToggleShuffle(ctx context.Context, host string) error {
	return c.do(ctx, host, "/netusb/toggleShuffle", nil, requestOpts{}, nil)
}

// GetListInfo browses the current netusb list. index defaults to 0 and
// size to 8 when out of range.
func (c *Client) GetListInfo(ctx context.Context, host, input string, index, size int) (ListInfo, error) {
	if index < 0 {
		index = 0
	}
	if size <= 0 {
		size = 8
	}
	var info ListInfo
	params := url.Values{
		"input": {input},
		"index": {strconv.Itoa(index)},
		"size":  {strconv.Itoa(size)},
	}
	err := c.do(ctx, host, "/netusb/getListInfo", params, requestOpts{}, &info)
	return info, err
}

func (c *Client) SetListControl(ctx context.Context, host, listID, control string, index int, zone string) error {
	params := url.Values{
		"list_id": {listID},
		"type":    {control},
		"index":   {strconv.Itoa(index)},
		"zone":    {zoneOrDefault(zone)},
	}
	return c.do(ctx, host, "/netusb/setListControl", params, requestOpts{}, nil)
}

// SetSearchString is the one POST endpoint; search strings may not survive
// URL encoding.
func (c *Client) SetSearchString(ctx context.Context, host, search string) error {
	body := map[string]string{"string": search}
	return c.do(ctx, host, "/netusb/setSearchString", nil, requestOpts{method: http.MethodPost, body: body}, nil)
}

func (c *Client) RecallNetUSBPreset(ctx context.Context, host, zone string, num int) error {
	params := url.Values{"zone": {zoneOrDefault(zone)}, "num": {strconv.Itoa(num)}}
	return c.do(ctx, host, "/netusb/recallPreset", params, requestOpts{}, nil)
}

func (c *Client) StoreNetUSBPreset(ctx context.Context, host string, num int) error {
	params := url.Values{"num": {strconv.Itoa(num)}}
	return c.do(ctx, host, "/netusb/storePreset", params, requestOpts{}, nil)
}

func (c *Client) GetAccountStatus(ctx context.Context, host string) (map[string]any, error) {
	var status map[string]any
	err := c.do(ctx, host, "/netusb/getAccountStatus", nil, requestOpts{}, &status)
	delete(status, "response_code")
	return status, err
}

func (c *Client) SwitchAccount(ctx context.Context, host, input string, index int) error {
	params := url.Values{"input": {input}, "index": {strconv.Itoa(index)}}
	return c.do(ctx, host, "/netusb/switchAccount", params, requestOpts{}, nil)
}

func (c *Client) GetServiceInfo(ctx context.Context, host, input, infoType string) (map[string]any, error) {
	var info map[string]any
	params := url.Values{"input": {input}, "type": {infoType}}
	err := c.do(ctx, host, "/netusb/getServiceInfo", params, requestOpts{}, &info)
	delete(info, "response_code")
	return info, err
}

// --- cd ---

func (c *Client) GetCDPlayInfo(ctx context.Context, host string) (map[string]any, error) {
	var info map[string]any
	err := c.do(ctx, host, "/cd/getPlayInfo", nil, requestOpts{}, &info)
	delete(info, "response_code")
	return info, err
}

func (c *Client) SetCDPlayback(ctx context.Context, host, playback string) error {
	params := url.Values{"playback": {playback}}
	return c.do(ctx, host, "/cd/setPlayback", params, requestOpts{}, nil)
}

func (c *Client) ToggleTray(ctx context.Context, host string) error {
	return c.do(ctx, host, "/cd/toggleTray", nil, requestOpts{}, nil)
}

func (c *Client) ToggleCDRepeat(ctx context.Context, host string) error {
	return c.do(ctx, host, "/cd/toggleRepeat", nil, requestOpts{}, nil)
}

func (c *Client) ToggleCDShuffle(ctx context.Context, host string) error {
	return c.do(ctx, host, "/cd/toggleShuffle", nil, requestOpts{}, nil)
}

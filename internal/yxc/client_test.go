package yxc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
)

// testHost strips the scheme so the host can be fed to client methods.
func testHost(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestGetDeviceInfoSubscribeHeaders(t *testing.T) {
	var gotPath, gotAppName, gotAppPort string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAppName = r.Header.Get("X-AppName")
		gotAppPort = r.Header.Get("X-AppPort")
		json.NewEncoder(w).Encode(map[string]any{
			"response_code": 0,
			"model_name":    "WX-030",
			"device_id":     "00A0DEDCF73E",
		})
	}))
	defer srv.Close()

	client := NewClient(2*time.Second, 41100)
	info, err := client.GetDeviceInfo(context.Background(), testHost(srv), true)
	require.NoError(t, err)

	assert.Equal(t, "/YamahaExtendedControl/v1/system/getDeviceInfo", gotPath)
	assert.Equal(t, AppName, gotAppName)
	assert.Equal(t, "41100", gotAppPort)
	assert.Equal(t, "00A0DEDCF73E", info.DeviceID)
	assert.Equal(t, "WX-030", info.ModelName)
}

func TestGetDeviceInfoNoSubscribeHeaders(t *testing.T) {
	var gotAppName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAppName = r.Header.Get("X-AppName")
		json.NewEncoder(w).Encode(map[string]any{"response_code": 0, "device_id": "00A0DEDCF73E"})
	}))
	defer srv.Close()

	client := NewClient(2*time.Second, 41100)
	_, err := client.GetDeviceInfo(context.Background(), testHost(srv), false)
	require.NoError(t, err)
	assert.Empty(t, gotAppName)
}

func TestErrorKindMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response_code": 4})
	}))
	defer srv.Close()

	client := NewClient(2*time.Second, 41100)
	err := client.SetPower(context.Background(), testHost(srv), "", "on")

	var yxcErr *Error
	require.True(t, errors.As(err, &yxcErr))
	assert.Equal(t, 4, yxcErr.Code)
	assert.Equal(t, KindInvalidParameter, yxcErr.Kind)
	assert.NotEmpty(t, yxcErr.RawBody)
}

func TestMissingResponseCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"volume": 30}`))
	}))
	defer srv.Close()

	client := NewClient(2*time.Second, 41100)
	_, err := client.GetStatus(context.Background(), testHost(srv), "", false)

	var invalidErr *apperrors.InvalidResponseError
	assert.True(t, errors.As(err, &invalidErr))
}

func TestTransportError(t *testing.T) {
	client := NewClient(200*time.Millisecond, 41100)
	_, err := client.GetStatus(context.Background(), "127.0.0.1:1", "", false)

	var transportErr *apperrors.TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestGetStatusZoneDefault(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"response_code": 0, "volume": 30})
	}))
	defer srv.Close()

	client := NewClient(2*time.Second, 41100)
	status, err := client.GetStatus(context.Background(), testHost(srv), "", false)
	require.NoError(t, err)
	assert.Equal(t, "/YamahaExtendedControl/v1/main/getStatus", gotPath)
	assert.Equal(t, 30, status.Volume)

	_, err = client.GetStatus(context.Background(), testHost(srv), "zone2", false)
	require.NoError(t, err)
	assert.Equal(t, "/YamahaExtendedControl/v1/zone2/getStatus", gotPath)
}

func TestSetVolumeAbsoluteHasNoStep(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{"response_code": 0})
	}))
	defer srv.Close()

	client := NewClient(2*time.Second, 41100)
	require.NoError(t, client.SetVolume(context.Background(), testHost(srv), "", 42))

	assert.Equal(t, "42", gotQuery.Get("volume"))
	assert.False(t, gotQuery.Has("step"))
}

func TestAdjustVolume(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{"response_code": 0})
	}))
	defer srv.Close()

	client := NewClient(2*time.Second, 41100)

	require.NoError(t, client.AdjustVolume(context.Background(), testHost(srv), "", "up", 5))
	assert.Equal(t, "up", gotQuery.Get("volume"))
	assert.Equal(t, "5", gotQuery.Get("step"))

	require.NoError(t, client.AdjustVolume(context.Background(), testHost(srv), "", "down", 0))
	assert.Equal(t, "down", gotQuery.Get("volume"))
	assert.False(t, gotQuery.Has("step"))

	err := client.AdjustVolume(context.Background(), testHost(srv), "", "sideways", 1)
	var argErr *apperrors.ArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestGetListInfoDefaults(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{"response_code": 0})
	}))
	defer srv.Close()

	client := NewClient(2*time.Second, 41100)

	_, err := client.GetListInfo(context.Background(), testHost(srv), "server", -1, 0)
	require.NoError(t, err)
	assert.Equal(t, "0", gotQuery.Get("index"))
	assert.Equal(t, "8", gotQuery.Get("size"))
	assert.Equal(t, "server", gotQuery.Get("input"))

	_, err = client.GetListInfo(context.Background(), testHost(srv), "server", 16, 4)
	require.NoError(t, err)
	assert.Equal(t, "16", gotQuery.Get("index"))
	assert.Equal(t, "4", gotQuery.Get("size"))
}

func TestSetSearchStringPostsJSON(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"response_code": 0})
	}))
	defer srv.Close()

	client := NewClient(2*time.Second, 41100)
	require.NoError(t, client.SetSearchString(context.Background(), testHost(srv), "dark side & beyond"))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "dark side & beyond", gotBody["string"])
}

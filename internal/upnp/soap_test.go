package upnp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
)

const testServiceType = "urn:schemas-upnp-org:service:AVTransport:1"

func TestCallActionSuccess(t *testing.T) {
	var gotAction, gotContentType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAction = r.Header.Get("SOAPAction")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <u:GetPositionInfoResponse xmlns:u="` + testServiceType + `">
      <Track>3</Track>
      <TrackURI>http://example.com/x.mp3</TrackURI>
    </u:GetPositionInfoResponse>
  </s:Body>
</s:Envelope>`))
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	out, err := client.CallAction(context.Background(), srv.URL, testServiceType, "GetPositionInfo", map[string]string{"InstanceID": "0"})
	require.NoError(t, err)

	assert.Equal(t, `"`+testServiceType+`#GetPositionInfo"`, gotAction)
	assert.Equal(t, `text/xml; charset="utf-8"`, gotContentType)
	assert.Contains(t, string(gotBody), "<InstanceID>0</InstanceID>")
	assert.Contains(t, string(gotBody), `<u:GetPositionInfo xmlns:u="`+testServiceType+`">`)

	assert.Equal(t, "3", out["Track"])
	assert.Equal(t, "http://example.com/x.mp3", out["TrackURI"])
}

func TestCallActionEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body><u:StopResponse xmlns:u="` + testServiceType + `"/></s:Body>
</s:Envelope>`))
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	out, err := client.CallAction(context.Background(), srv.URL, testServiceType, "Stop", map[string]string{"InstanceID": "0"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCallActionFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <s:Fault>
      <faultcode>s:Client</faultcode>
      <faultstring>UPnPError</faultstring>
      <detail>
        <UPnPError xmlns="urn:schemas-upnp-org:control-1-0">
          <errorCode>716</errorCode>
          <errorDescription>Resource not found</errorDescription>
        </UPnPError>
      </detail>
    </s:Fault>
  </s:Body>
</s:Envelope>`))
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	_, err := client.CallAction(context.Background(), srv.URL, testServiceType, "Play", map[string]string{"InstanceID": "0", "Speed": "1"})

	var upnpErr *apperrors.UpnpError
	require.True(t, errors.As(err, &upnpErr))
	assert.Equal(t, "716", upnpErr.Code)
	assert.Equal(t, "Resource not found", upnpErr.Description)
	assert.Equal(t, "Play", upnpErr.Action)
}

func TestCallActionHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	_, err := client.CallAction(context.Background(), srv.URL, testServiceType, "Play", nil)

	var transportErr *apperrors.TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestCallActionEscapesParams(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body/></s:Envelope>`))
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	_, err := client.CallAction(context.Background(), srv.URL, testServiceType, "SetAVTransportURI", map[string]string{
		"CurrentURI": "http://example.com/a?b=1&c=<2>",
	})
	require.NoError(t, err)
	assert.Contains(t, string(gotBody), "http://example.com/a?b=1&amp;c=&lt;2&gt;")
}

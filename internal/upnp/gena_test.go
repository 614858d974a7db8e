package upnp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
)

func TestSubscribeNew(t *testing.T) {
	var gotMethod, gotNT, gotCallback, gotTimeout, gotSID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotNT = r.Header.Get("NT")
		gotCallback = r.Header.Get("CALLBACK")
		gotTimeout = r.Header.Get("TIMEOUT")
		gotSID = r.Header.Get("SID")
		w.Header().Set("SID", "uuid:abc-123")
		w.Header().Set("TIMEOUT", "Second-300")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	sub, err := client.Subscribe(context.Background(), srv.URL, "http://10.0.0.5:9000/upnp/notify", 300)
	require.NoError(t, err)

	assert.Equal(t, "SUBSCRIBE", gotMethod)
	assert.Equal(t, "upnp:event", gotNT)
	assert.Equal(t, "<http://10.0.0.5:9000/upnp/notify>", gotCallback)
	assert.Equal(t, "Second-300", gotTimeout)
	assert.Empty(t, gotSID)

	assert.Equal(t, "uuid:abc-123", sub.SID)
	assert.Equal(t, 300, sub.TimeoutSec)
}

func TestSubscribeRenewal(t *testing.T) {
	var gotNT, gotCallback, gotSID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotNT = r.Header.Get("NT")
		gotCallback = r.Header.Get("CALLBACK")
		gotSID = r.Header.Get("SID")
		w.Header().Set("SID", gotSID)
		w.Header().Set("TIMEOUT", "Second-180")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	sub, err := client.Subscribe(context.Background(), srv.URL, "uuid:abc-123", 300)
	require.NoError(t, err)

	assert.Empty(t, gotNT)
	assert.Empty(t, gotCallback)
	assert.Equal(t, "uuid:abc-123", gotSID)
	assert.Equal(t, "uuid:abc-123", sub.SID)
	assert.Equal(t, 180, sub.TimeoutSec)
}

func TestSubscribePreconditionFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	_, err := client.Subscribe(context.Background(), srv.URL, "uuid:stale", 300)
	assert.ErrorIs(t, err, apperrors.ErrPreconditionFailed)
}

func TestSubscribeMissingSID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	_, err := client.Subscribe(context.Background(), srv.URL, "http://10.0.0.5:9000/upnp/notify", 300)
	assert.Error(t, err)
}

func TestUnsubscribe(t *testing.T) {
	var gotMethod, gotSID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotSID = r.Header.Get("SID")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	err := client.Unsubscribe(context.Background(), srv.URL, "uuid:abc-123")
	require.NoError(t, err)
	assert.Equal(t, "UNSUBSCRIBE", gotMethod)
	assert.Equal(t, "uuid:abc-123", gotSID)
}

func TestUnsubscribeSwallowsNetworkError(t *testing.T) {
	client := NewClient(200 * time.Millisecond)
	err := client.Unsubscribe(context.Background(), "http://127.0.0.1:1/event", "uuid:abc")
	assert.NoError(t, err)
}

func TestParseTimeoutHeader(t *testing.T) {
	assert.Equal(t, 300, parseTimeoutHeader("Second-300", 60))
	assert.Equal(t, 86400, parseTimeoutHeader("infinite", 60))
	assert.Equal(t, 86400, parseTimeoutHeader("INFINITE", 60))
	assert.Equal(t, 60, parseTimeoutHeader("", 60))
	assert.Equal(t, 60, parseTimeoutHeader("Second-abc", 60))
}

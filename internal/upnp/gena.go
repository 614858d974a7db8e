package upnp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
)

// DefaultSubscriptionTimeout is requested when subscribing; devices may
// grant less.
const DefaultSubscriptionTimeout = 300

// Subscription is the result of a GENA SUBSCRIBE.
type Subscription struct {
	SID string
	// TimeoutSec is the server-granted lifetime in seconds.
	TimeoutSec int
}

// Subscribe establishes or renews a GENA event subscription. When
// callbackOrSID starts with "uuid:" it is treated as an existing
// subscription id and the request is a renewal; otherwise it is the
// callback URL for a fresh subscription.
func (c *Client) Subscribe(ctx context.Context, eventSubURL, callbackOrSID string, timeoutSec int) (Subscription, error) {
	if timeoutSec <= 0 {
		timeoutSec = DefaultSubscriptionTimeout
	}

	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", eventSubURL, nil)
	if err != nil {
		return Subscription{}, err
	}

	if strings.HasPrefix(callbackOrSID, "uuid:") {
		req.Header.Set("SID", callbackOrSID)
		req.Header.Set("TIMEOUT", fmt.Sprintf("Second-%d", timeoutSec))
	} else {
		req.Header.Set("NT", "upnp:event")
		req.Header.Set("CALLBACK", "<"+callbackOrSID+">")
		req.Header.Set("TIMEOUT", fmt.Sprintf("Second-%d", timeoutSec))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Subscription{}, &apperrors.TransportError{Op: "subscribe", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusPreconditionFailed {
		return Subscription{}, apperrors.ErrPreconditionFailed
	}
	if resp.StatusCode != http.StatusOK {
		return Subscription{}, &apperrors.TransportError{Op: "subscribe", Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	sub := Subscription{
		SID:        resp.Header.Get("SID"),
		TimeoutSec: parseTimeoutHeader(resp.Header.Get("TIMEOUT"), timeoutSec),
	}
	if sub.SID == "" {
		return Subscription{}, &apperrors.InvalidResponseError{Op: "subscribe", Err: fmt.Errorf("no SID header")}
	}
	return sub, nil
}

// Unsubscribe cancels a GENA subscription. Network errors are swallowed;
// the device may already be gone.
func (c *Client) Unsubscribe(ctx context.Context, eventSubURL, sid string) error {
	req, err := http.NewRequestWithContext(ctx, "UNSUBSCRIBE", eventSubURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("SID", sid)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusPreconditionFailed || resp.StatusCode == http.StatusOK {
		return nil
	}
	return &apperrors.TransportError{Op: "unsubscribe", Err: fmt.Errorf("http %d", resp.StatusCode)}
}

func parseTimeoutHeader(header string, fallback int) int {
	if header == "" {
		return fallback
	}
	if strings.EqualFold(header, "infinite") {
		// Treat infinite as a day so renewal arithmetic stays sane.
		return 86400
	}
	trimmed := strings.TrimPrefix(header, "Second-")
	if n, err := strconv.Atoi(trimmed); err == nil {
		return n
	}
	return fallback
}

package upnp

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/soundmesh/musiccast-hub-go/internal/apperrors"
)

// Client issues SOAP actions and GENA subscription requests against UPnP
// devices. One client serves any number of devices.
type Client struct {
	httpClient *http.Client
	log        *logrus.Entry
}

// NewClient creates a UPnP client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
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
		log: logrus.WithField("component", "upnp"),
	}
}

// FetchDescription GETs and parses a device root description.
func (c *Client) FetchDescription(ctx context.Context, descriptionURL string) (*RootDescription, error) {
	body, err := c.fetch(ctx, descriptionURL)
	if err != nil {
		return nil, err
	}
	return ParseRootDescription(body, descriptionURL)
}

// FetchSCPD GETs and parses a service control protocol description.
func (c *Client) FetchSCPD(ctx context.Context, scpdURL string) (*SCPD, error) {
	body, err := c.fetch(ctx, scpdURL)
	if err != nil {
		return nil, err
	}
	return ParseSCPD(body)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.TransportError{Op: "fetch " + url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperrors.TransportError{Op: "fetch " + url, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}
	return io.ReadAll(resp.Body)
}

// CallAction invokes a SOAP action and returns the response arguments keyed
// by their OUT argument names.
func (c *Client) CallAction(ctx context.Context, controlURL, serviceType, action string, params map[string]string) (map[string]string, error) {
	envelope := buildEnvelope(serviceType, action, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL, bytes.NewReader(envelope))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", serviceType+"#"+action))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.TransportError{Op: action, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.TransportError{Op: action, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return parseActionResponse(payload, action)
	}

	if resp.StatusCode == http.StatusInternalServerError {
		if upnpErr := parseUpnpFault(payload, action); upnpErr != nil {
			c.log.WithFields(logrus.Fields{"action": action, "code": upnpErr.Code}).
				Debug("device rejected action")
			return nil, upnpErr
		}
	}
	return nil, &apperrors.TransportError{Op: action, Err: fmt.Errorf("http %d", resp.StatusCode)}
}

func buildEnvelope(serviceType, action string, params map[string]string) []byte {
	var buf strings.Builder
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	buf.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`)
	buf.WriteString(`<s:Body>`)
	buf.WriteString(`<u:` + action + ` xmlns:u="` + serviceType + `">`)
	for key, value := range params {
		buf.WriteString("<" + key + ">")
		buf.WriteString(escapeXML(value))
		buf.WriteString("</" + key + ">")
	}
	buf.WriteString(`</u:` + action + `>`)
	buf.WriteString(`</s:Body>`)
	buf.WriteString(`</s:Envelope>`)
	return []byte(buf.String())
}

func escapeXML(input string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(input)); err != nil {
		return input
	}
	return b.String()
}

func parseActionResponse(payload []byte, action string) (map[string]string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(payload); err != nil {
		return nil, &apperrors.InvalidResponseError{Op: action, Err: err}
	}

	responseEl := doc.FindElement("//" + action + "Response")
	if responseEl == nil {
		// Actions without OUT arguments may answer with an empty response
		// element; treat a missing one the same way.
		return map[string]string{}, nil
	}

	out := make(map[string]string)
	for _, child := range responseEl.ChildElements() {
		out[child.Tag] = child.Text()
	}
	return out, nil
}

func parseUpnpFault(payload []byte, action string) *apperrors.UpnpError {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(payload); err != nil {
		return nil
	}
	errEl := doc.FindElement("//Fault/detail/UPnPError")
	if errEl == nil {
		errEl = doc.FindElement("//UPnPError")
	}
	if errEl == nil {
		return nil
	}
	return &apperrors.UpnpError{
		Action:      action,
		Code:        childText(errEl, "errorCode"),
		Description: childText(errEl, "errorDescription"),
	}
}

package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResponse = "HTTP/1.1 200 OK\r\n" +
	"CACHE-CONTROL: max-age=1800\r\n" +
	"EXT:\r\n" +
	"LOCATION: http://192.168.1.10:49154/MediaRenderer/desc.xml\r\n" +
	"SERVER: Linux/3.10 UPnP/1.0 Yamaha/1.0\r\n" +
	"ST: urn:schemas-upnp-org:device:MediaRenderer:1\r\n" +
	"USN: uuid:9ab0c000-f668-11de-9976-00a0dedcf73e::urn:schemas-upnp-org:device:MediaRenderer:1\r\n" +
	"\r\n"

const notifyAnnouncement = "NOTIFY * HTTP/1.1\r\n" +
	"HOST: 239.255.255.250:1900\r\n" +
	"NT: urn:schemas-upnp-org:device:MediaRenderer:1\r\n" +
	"NTS: ssdp:alive\r\n" +
	"LOCATION: http://192.168.1.11:49154/MediaRenderer/desc.xml\r\n" +
	"\r\n"

const mSearchPacket = "M-SEARCH * HTTP/1.1\r\n" +
	"HOST: 239.255.255.250:1900\r\n" +
	"MAN: \"ssdp:discover\"\r\n" +
	"ST: ssdp:all\r\n" +
	"\r\n"

func TestParsePacketSearchResponse(t *testing.T) {
	headers, ok := parsePacket(searchResponse)
	require.True(t, ok)

	assert.Equal(t, "http://192.168.1.10:49154/MediaRenderer/desc.xml", headers["location"])
	assert.Equal(t, "urn:schemas-upnp-org:device:MediaRenderer:1", headers["st"])
	// Header names are lowercased with dashes folded to underscores.
	assert.Equal(t, "max-age=1800", headers["cache_control"])
}

func TestParsePacketNotify(t *testing.T) {
	headers, ok := parsePacket(notifyAnnouncement)
	require.True(t, ok)
	assert.Equal(t, "urn:schemas-upnp-org:device:MediaRenderer:1", headers["nt"])
	assert.Equal(t, "ssdp:alive", headers["nts"])
}

func TestParsePacketIgnoresMSearch(t *testing.T) {
	_, ok := parsePacket(mSearchPacket)
	assert.False(t, ok)
}

func TestIsMediaRenderer(t *testing.T) {
	assert.True(t, isMediaRenderer(map[string]string{"st": ssdpTarget}))
	assert.True(t, isMediaRenderer(map[string]string{"nt": ssdpTarget}))
	assert.False(t, isMediaRenderer(map[string]string{"st": "urn:schemas-upnp-org:device:MediaServer:1"}))
	assert.False(t, isMediaRenderer(map[string]string{}))
}

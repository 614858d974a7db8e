package upnp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolInfo(t *testing.T) {
	assert.Equal(t, "", ProtocolInfo(""))
	assert.Equal(t, "http-get:*:audio/mp4:DLNA.ORG_PN=AAC_ISO_320", ProtocolInfo("audio/mp4"))
	assert.Equal(t, "http-get:*:audio/mpeg", ProtocolInfo("audio/mpeg"))
	assert.Equal(t, "http-get:*:audio/flac", ProtocolInfo("audio/flac"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00:00", FormatDuration(0))
	assert.Equal(t, "0:03:25", FormatDuration(205))
	assert.Equal(t, "1:00:01", FormatDuration(3601))
	assert.Equal(t, "12:34:56", FormatDuration(12*3600+34*60+56))
	assert.Equal(t, "0:00:00", FormatDuration(-5))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 205, ParseDuration("0:03:25"))
	assert.Equal(t, 3601, ParseDuration("1:00:01"))
	assert.Equal(t, 205, ParseDuration("03:25"))
	assert.Equal(t, 205, ParseDuration("0:03:25.500"))
	assert.Equal(t, 0, ParseDuration(""))
	assert.Equal(t, 0, ParseDuration("NOT_IMPLEMENTED"))
	assert.Equal(t, 0, ParseDuration("bogus"))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	track := Track{
		ID:            "42",
		Title:         "Song <One> & \"Two\"",
		Artist:        "AC&DC",
		Album:         "Back in <Black>",
		AlbumCoverURL: "http://example.com/cover.jpg",
		Duration:      215,
		Mimetype:      "audio/mp4",
	}

	didl := EncodeItem("http://example.com/stream.m4a", track)
	require.Contains(t, didl, "urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/")
	// The artist goes through an extra escaping pass on encode.
	require.Contains(t, didl, "AC&amp;amp;DC")

	items, err := DecodeItems(didl)
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.Equal(t, "http://example.com/stream.m4a", got.URL)
	assert.Equal(t, track.Title, got.Meta.Title)
	assert.Equal(t, track.Artist, got.Meta.Artist)
	assert.Equal(t, track.Album, got.Meta.Album)
	assert.Equal(t, track.AlbumCoverURL, got.Meta.AlbumCoverURL)
	assert.Equal(t, track.Duration, got.Meta.Duration)
	assert.Equal(t, track.Mimetype, got.Meta.Mimetype)
}

func TestEncodeItemsOmitsAbsentFields(t *testing.T) {
	didl := EncodeItem("http://example.com/a.mp3", Track{Mimetype: "audio/mpeg"})
	assert.NotContains(t, didl, "dc:title")
	assert.NotContains(t, didl, "upnp:album")
	assert.NotContains(t, didl, "upnp:albumArtURI")
	assert.NotContains(t, didl, "upnp:artist")
	assert.Contains(t, didl, "object.item.audioItem.musicTrack")
}

func TestEncodeItemsMultiple(t *testing.T) {
	items := []Item{
		{URL: "http://example.com/1.mp3", Meta: Track{Title: "One"}},
		{URL: "http://example.com/2.mp3", Meta: Track{Title: "Two"}},
	}
	didl := EncodeItems(items)
	assert.Equal(t, 2, strings.Count(didl, "<item"))

	decoded, err := DecodeItems(didl)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, "One", decoded[0].Meta.Title)
	assert.Equal(t, "http://example.com/2.mp3", decoded[1].URL)
}

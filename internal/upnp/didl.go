package upnp

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// DIDL-Lite namespace triple, fixed by the UPnP A/V spec.
const (
	didlNS = "urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/"
	upnpNS = "urn:schemas-upnp-org:metadata-1-0/upnp/"
	dcNS   = "http://purl.org/dc/elements/1.1/"
)

// Track is the metadata carried for one playable item.
type Track struct {
	ID            string `json:"id,omitempty"`
	Title         string `json:"title,omitempty"`
	Artist        string `json:"artist,omitempty"`
	Album         string `json:"album,omitempty"`
	AlbumCoverURL string `json:"album_cover_url,omitempty"`
	// Duration is in seconds.
	Duration int    `json:"duration,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
}

// Item pairs a media URL with its track metadata.
type Item struct {
	URL  string `json:"url"`
	Meta Track  `json:"meta"`
}

// ProtocolInfo derives the res@protocolInfo value for a mimetype. AAC in an
// MP4 container gets the DLNA profile MusicCast renderers expect; an empty
// mimetype yields an empty string.
func ProtocolInfo(mimetype string) string {
	switch mimetype {
	case "":
		return ""
	case "audio/mp4":
		return "http-get:*:audio/mp4:DLNA.ORG_PN=AAC_ISO_320"
	default:
		return "http-get:*:" + mimetype
	}
}

// FormatDuration renders seconds as H:MM:SS with unpadded hours.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
}

// ParseDuration converts an H:MM:SS (or MM:SS) string back to seconds.
func ParseDuration(value string) int {
	if value == "" || value == "NOT_IMPLEMENTED" {
		return 0
	}
	parts := strings.Split(value, ":")
	total := 0
	for _, part := range parts {
		// Some renderers report fractional seconds; drop the fraction.
		if idx := strings.IndexByte(part, '.'); idx != -1 {
			part = part[:idx]
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// EncodeItems renders items as a DIDL-Lite document. Absent metadata fields
// are omitted from the item.
func EncodeItems(items []Item) string {
	doc := etree.NewDocument()
	root := doc.CreateElement("DIDL-Lite")
	root.CreateAttr("xmlns", didlNS)
	root.CreateAttr("xmlns:upnp", upnpNS)
	root.CreateAttr("xmlns:dc", dcNS)

	for _, entry := range items {
		item := root.CreateElement("item")
		item.CreateAttr("id", entry.Meta.ID)
		item.CreateAttr("parentID", "0")
		item.CreateAttr("restricted", "0")

		item.CreateElement("upnp:class").SetText("object.item.audioItem.musicTrack")

		if entry.Meta.Title != "" {
			item.CreateElement("dc:title").SetText(entry.Meta.Title)
		}
		if entry.Meta.Album != "" {
			item.CreateElement("upnp:album").SetText(entry.Meta.Album)
		}
		if entry.Meta.AlbumCoverURL != "" {
			item.CreateElement("upnp:albumArtURI").SetText(entry.Meta.AlbumCoverURL)
		}
		if entry.Meta.Artist != "" {
			item.CreateElement("upnp:artist").SetText(html.EscapeString(entry.Meta.Artist))
		}

		res := item.CreateElement("res")
		res.CreateAttr("protocolInfo", ProtocolInfo(entry.Meta.Mimetype))
		res.CreateAttr("duration", FormatDuration(entry.Meta.Duration))
		res.SetText(entry.URL)
	}

	out, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return out
}

// EncodeItem renders a single (url, track) pair.
func EncodeItem(url string, meta Track) string {
	return EncodeItems([]Item{{URL: url, Meta: meta}})
}

// DecodeItems parses every //item of a DIDL-Lite document back into
// (url, track) pairs.
func DecodeItems(didl string) ([]Item, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(didl); err != nil {
		return nil, err
	}

	var items []Item
	for _, el := range doc.FindElements("//item") {
		entry := Item{}
		entry.Meta.ID = el.SelectAttrValue("id", "")

		if title := el.FindElement("title"); title != nil {
			entry.Meta.Title = title.Text()
		}
		if album := el.FindElement("album"); album != nil {
			entry.Meta.Album = album.Text()
		}
		if art := el.FindElement("albumArtURI"); art != nil {
			entry.Meta.AlbumCoverURL = art.Text()
		}
		if artist := el.FindElement("artist"); artist != nil {
			entry.Meta.Artist = html.UnescapeString(artist.Text())
		}
		if res := el.FindElement("res"); res != nil {
			entry.URL = res.Text()
			entry.Meta.Duration = ParseDuration(res.SelectAttrValue("duration", ""))
			entry.Meta.Mimetype = mimeFromProtocolInfo(res.SelectAttrValue("protocolInfo", ""))
		}
		items = append(items, entry)
	}
	return items, nil
}

func mimeFromProtocolInfo(info string) string {
	parts := strings.Split(info, ":")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

package upnp

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/beevik/etree"
)

// Variables whose values are DIDL-Lite documents rather than scalars.
var metadataVariables = map[string]struct{}{
	"current_track_meta_data":        {},
	"next_track_meta_data":           {},
	"av_transport_uri_meta_data":     {},
	"next_av_transport_uri_meta_data": {},
}

// DecodeNotify parses a GENA NOTIFY body into a map of snake_cased variable
// names. Values are cast using the service's state-variable type table:
// ui4/i4 variables become ints, OK/NOT_IMPLEMENTED literals stay as-is, and
// the *MetaData variables are decoded from DIDL-Lite. When a metadata
// document holds exactly one item the item itself is stored; otherwise the
// item list is.
func DecodeNotify(body []byte, varTypes map[string]string) (map[string]any, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("parse notify body: %w", err)
	}

	lastChange := doc.FindElement("//propertyset/property/LastChange")
	if lastChange == nil {
		return nil, fmt.Errorf("notify body has no LastChange property")
	}

	// LastChange text is an XML document in its own right; etree already
	// unescaped the entity-encoded markup when reading the text node. Some
	// firmwares ship the inner document unescaped, in which case it shows up
	// as child elements instead.
	instance := lastChange.FindElement("Event/InstanceID")
	if instance == nil {
		inner := etree.NewDocument()
		if err := inner.ReadFromString(lastChange.Text()); err != nil {
			return nil, fmt.Errorf("parse LastChange document: %w", err)
		}
		instance = inner.FindElement("//Event/InstanceID")
	}
	if instance == nil {
		return nil, fmt.Errorf("LastChange has no InstanceID element")
	}

	event := make(map[string]any)
	for _, child := range instance.ChildElements() {
		name := camelToSnake(child.Tag)
		value := child.SelectAttrValue("val", "")
		event[name] = castValue(name, child.Tag, value, varTypes)
	}
	return event, nil
}

func castValue(snakeName, varName, value string, varTypes map[string]string) any {
	if _, ok := metadataVariables[snakeName]; ok {
		items, err := DecodeItems(value)
		if err != nil || len(items) == 0 {
			return value
		}
		if len(items) == 1 {
			return items[0]
		}
		return items
	}

	if value == "OK" || value == "NOT_IMPLEMENTED" {
		return value
	}

	switch varTypes[varName] {
	case "ui4", "i4", "ui2", "i2":
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return value
}

// camelToSnake converts a UPnP state variable name to snake_case, keeping
// acronym runs intact (AVTransportURI -> av_transport_uri).
func camelToSnake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			if prevLower || (prevUpper && nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

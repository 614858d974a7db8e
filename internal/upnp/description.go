package upnp

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// AVTransportServiceID identifies the service the agent drives.
const AVTransportServiceID = "urn:upnp-org:serviceId:AVTransport"

// RootDescription is a parsed UPnP device root description. All URLs are
// absolute after parsing.
type RootDescription struct {
	// BaseURL is scheme://host[:port] of the description location.
	BaseURL string `json:"base_url"`
	Device  Device `json:"device"`
}

// Device holds the root description device metadata.
type Device struct {
	DeviceType       string    `json:"device_type"`
	FriendlyName     string    `json:"friendly_name"`
	Manufacturer     string    `json:"manufacturer"`
	ModelName        string    `json:"model_name"`
	ModelNumber      string    `json:"model_number"`
	SerialNumber     string    `json:"serial_number"`
	UDN              string    `json:"udn"`
	PresentationURL  string    `json:"presentation_url"`
	IconList         []Icon    `json:"icon_list"`
	ServiceList      []Service `json:"service_list"`
}

// Icon is one entry of the device icon list.
type Icon struct {
	MimeType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Depth    int    `json:"depth"`
	URL      string `json:"url"`
}

// Service is one entry of the device service list.
type Service struct {
	ServiceType string `json:"service_type"`
	ServiceID   string `json:"service_id"`
	SCPDURL     string `json:"scpd_url"`
	ControlURL  string `json:"control_url"`
	EventSubURL string `json:"event_sub_url"`
}

// FindService returns the service with the given service id, or nil.
func (d *RootDescription) FindService(serviceID string) *Service {
	for i := range d.Device.ServiceList {
		if d.Device.ServiceList[i].ServiceID == serviceID {
			return &d.Device.ServiceList[i]
		}
	}
	return nil
}

// ParseRootDescription parses a device root description fetched from
// descriptionURL and rewrites every relative URL to an absolute one using
// the description's base.
func ParseRootDescription(body []byte, descriptionURL string) (*RootDescription, error) {
	base, err := url.Parse(descriptionURL)
	if err != nil {
		return nil, fmt.Errorf("parse description url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("description url %q is not absolute", descriptionURL)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("parse description xml: %w", err)
	}

	deviceEl := doc.FindElement("//device")
	if deviceEl == nil {
		return nil, fmt.Errorf("description has no device element")
	}

	root := &RootDescription{BaseURL: base.Scheme + "://" + base.Host}
	root.Device = Device{
		DeviceType:      childText(deviceEl, "deviceType"),
		FriendlyName:    childText(deviceEl, "friendlyName"),
		Manufacturer:    childText(deviceEl, "manufacturer"),
		ModelName:       childText(deviceEl, "modelName"),
		ModelNumber:     childText(deviceEl, "modelNumber"),
		SerialNumber:    childText(deviceEl, "serialNumber"),
		UDN:             childText(deviceEl, "UDN"),
		PresentationURL: absolutize(base, childText(deviceEl, "presentationURL")),
	}

	for _, iconEl := range deviceEl.FindElements("iconList/icon") {
		root.Device.IconList = append(root.Device.IconList, Icon{
			MimeType: childText(iconEl, "mimetype"),
			Width:    childInt(iconEl, "width"),
			Height:   childInt(iconEl, "height"),
			Depth:    childInt(iconEl, "depth"),
			URL:      absolutize(base, childText(iconEl, "url")),
		})
	}

	for _, svcEl := range deviceEl.FindElements("serviceList/service") {
		root.Device.ServiceList = append(root.Device.ServiceList, Service{
			ServiceType: childText(svcEl, "serviceType"),
			ServiceID:   childText(svcEl, "serviceId"),
			SCPDURL:     absolutize(base, childText(svcEl, "SCPDURL")),
			ControlURL:  absolutize(base, childText(svcEl, "controlURL")),
			EventSubURL: absolutize(base, childText(svcEl, "eventSubURL")),
		})
	}

	return root, nil
}

// SCPD is a parsed service control protocol description.
type SCPD struct {
	Actions []Action
	// StateVariables maps variable name to its declared data type.
	StateVariables map[string]string
}

// Action describes one SCPD action and its arguments.
type Action struct {
	Name      string
	Arguments []Argument
}

// Argument describes one action argument.
type Argument struct {
	Name                 string
	Direction            string
	RelatedStateVariable string
}

// OutArguments returns the names of the action's OUT arguments.
func (a Action) OutArguments() []string {
	var out []string
	for _, arg := range a.Arguments {
		if strings.EqualFold(arg.Direction, "out") {
			out = append(out, arg.Name)
		}
	}
	return out
}

// ParseSCPD parses a service description into its action table and state
// variable type table.
func ParseSCPD(body []byte) (*SCPD, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("parse scpd xml: %w", err)
	}

	scpd := &SCPD{StateVariables: make(map[string]string)}

	for _, actionEl := range doc.FindElements("//actionList/action") {
		action := Action{Name: childText(actionEl, "name")}
		for _, argEl := range actionEl.FindElements("argumentList/argument") {
			action.Arguments = append(action.Arguments, Argument{
				Name:                 childText(argEl, "name"),
				Direction:            childText(argEl, "direction"),
				RelatedStateVariable: childText(argEl, "relatedStateVariable"),
			})
		}
		scpd.Actions = append(scpd.Actions, action)
	}

	for _, varEl := range doc.FindElements("//serviceStateTable/stateVariable") {
		name := childText(varEl, "name")
		if name == "" {
			continue
		}
		scpd.StateVariables[name] = childText(varEl, "dataType")
	}

	return scpd, nil
}

func childText(parent *etree.Element, tag string) string {
	if el := parent.FindElement(tag); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

func childInt(parent *etree.Element, tag string) int {
	n, _ := strconv.Atoi(childText(parent, tag))
	return n
}

func absolutize(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if parsed.IsAbs() {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

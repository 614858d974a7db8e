package upnp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescription = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaRenderer:1</deviceType>
    <friendlyName>Living Room</friendlyName>
    <manufacturer>Yamaha Corporation</manufacturer>
    <modelName>WX-030</modelName>
    <UDN>uuid:9ab0c000-f668-11de-9976-00a0dedcf73e</UDN>
    <iconList>
      <icon>
        <mimetype>image/jpeg</mimetype>
        <width>120</width>
        <height>120</height>
        <depth>24</depth>
        <url>/Icons/120x120.jpg</url>
      </icon>
    </iconList>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:AVTransport:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:AVTransport</serviceId>
        <SCPDURL>/AVTransport/desc.xml</SCPDURL>
        <controlURL>/AVTransport/ctrl</controlURL>
        <eventSubURL>/AVTransport/event</eventSubURL>
      </service>
      <service>
        <serviceType>urn:schemas-upnp-org:service:RenderingControl:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:RenderingControl</serviceId>
        <SCPDURL>http://192.168.1.10:49154/RenderingControl/desc.xml</SCPDURL>
        <controlURL>/RenderingControl/ctrl</controlURL>
        <eventSubURL>/RenderingControl/event</eventSubURL>
      </service>
    </serviceList>
  </device>
</root>`

func TestParseRootDescription(t *testing.T) {
	root, err := ParseRootDescription([]byte(sampleDescription), "http://192.168.1.10:49154/MediaRenderer/desc.xml")
	require.NoError(t, err)

	assert.Equal(t, "http://192.168.1.10:49154", root.BaseURL)
	assert.Equal(t, "Living Room", root.Device.FriendlyName)
	assert.Equal(t, "uuid:9ab0c000-f668-11de-9976-00a0dedcf73e", root.Device.UDN)

	require.Len(t, root.Device.IconList, 1)
	assert.Equal(t, "http://192.168.1.10:49154/Icons/120x120.jpg", root.Device.IconList[0].URL)
	assert.Equal(t, 120, root.Device.IconList[0].Width)

	require.Len(t, root.Device.ServiceList, 2)
	avt := root.FindService(AVTransportServiceID)
	require.NotNil(t, avt)
	assert.Equal(t, "http://192.168.1.10:49154/AVTransport/ctrl", avt.ControlURL)
	assert.Equal(t, "http://192.168.1.10:49154/AVTransport/event", avt.EventSubURL)

	// Already-absolute URLs pass through untouched.
	assert.Equal(t, "http://192.168.1.10:49154/RenderingControl/desc.xml", root.Device.ServiceList[1].SCPDURL)
}

func TestParseRootDescriptionRejectsRelativeBase(t *testing.T) {
	_, err := ParseRootDescription([]byte(sampleDescription), "/MediaRenderer/desc.xml")
	assert.Error(t, err)
}

func TestFindServiceUnknown(t *testing.T) {
	root, err := ParseRootDescription([]byte(sampleDescription), "http://192.168.1.10:49154/desc.xml")
	require.NoError(t, err)
	assert.Nil(t, root.FindService("urn:upnp-org:serviceId:ConnectionManager"))
}

const sampleSCPD = `<?xml version="1.0"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <actionList>
    <action>
      <name>GetPositionInfo</name>
      <argumentList>
        <argument>
          <name>InstanceID</name>
          <direction>in</direction>
          <relatedStateVariable>A_ARG_TYPE_InstanceID</relatedStateVariable>
        </argument>
        <argument>
          <name>Track</name>
          <direction>out</direction>
          <relatedStateVariable>CurrentTrack</relatedStateVariable>
        </argument>
      </argumentList>
    </action>
  </actionList>
  <serviceStateTable>
    <stateVariable sendEvents="no">
      <name>CurrentTrack</name>
      <dataType>ui4</dataType>
    </stateVariable>
    <stateVariable sendEvents="yes">
      <name>TransportState</name>
      <dataType>string</dataType>
    </stateVariable>
  </serviceStateTable>
</scpd>`

func TestParseSCPD(t *testing.T) {
	scpd, err := ParseSCPD([]byte(sampleSCPD))
	require.NoError(t, err)

	require.Len(t, scpd.Actions, 1)
	assert.Equal(t, "GetPositionInfo", scpd.Actions[0].Name)
	assert.Equal(t, []string{"Track"}, scpd.Actions[0].OutArguments())

	assert.Equal(t, "ui4", scpd.StateVariables["CurrentTrack"])
	assert.Equal(t, "string", scpd.StateVariables["TransportState"])
}

package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundmesh/musiccast-hub-go/internal/yxc"
)

func TestMergeKnownOnlyOverwritesExistingKeys(t *testing.T) {
	dst := map[string]any{"volume": 30, "mute": false}
	src := map[string]any{"volume": 42, "bogus": "x"}

	mergeKnown(dst, src)
	assert.Equal(t, 42, dst["volume"])
	assert.Equal(t, false, dst["mute"])
	assert.NotContains(t, dst, "bogus")
}

func TestMergeKnownRecursesNestedMaps(t *testing.T) {
	dst := map[string]any{
		"equalizer": map[string]any{"low": 0, "mid": 0},
	}
	src := map[string]any{
		"equalizer": map[string]any{"low": 3, "extra": 9},
	}

	mergeKnown(dst, src)
	eq := dst["equalizer"].(map[string]any)
	assert.Equal(t, 3, eq["low"])
	assert.Equal(t, 0, eq["mid"])
	assert.NotContains(t, eq, "extra")
}

func TestMergeIntoStruct(t *testing.T) {
	status := yxc.Status{Volume: 30, Power: "on"}

	err := mergeIntoStruct(&status, map[string]any{"volume": 42, "unknown_field": 1})
	require.NoError(t, err)
	assert.Equal(t, 42, status.Volume)
	assert.Equal(t, "on", status.Power)
}

func TestMergeIntoStructKeepsExtras(t *testing.T) {
	var status yxc.Status
	require.NoError(t, status.UnmarshalJSON([]byte(`{"volume":30,"tone_control":{"bass":2}}`)))

	err := mergeIntoStruct(&status, map[string]any{"tone_control": map[string]any{"bass": 5}})
	require.NoError(t, err)
	tone := status.Extras["tone_control"].(map[string]any)
	assert.Equal(t, 5.0, tone["bass"])
}

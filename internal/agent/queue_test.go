package agent

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundmesh/musiccast-hub-go/internal/upnp"
)

func testQueue(urls ...string) PlaybackQueue {
	q := PlaybackQueue{}
	for _, u := range urls {
		q.Items = append(q.Items, upnp.Item{URL: u})
	}
	return q
}

func TestNeighborEmptyQueue(t *testing.T) {
	q := testQueue()
	_, ok := q.neighbor(1, false, rand.New(rand.NewSource(1)))
	assert.False(t, ok)
}

func TestNeighborForward(t *testing.T) {
	q := testQueue("u1", "u2", "u3")
	q.MediaURL = "u1"

	item, ok := q.neighbor(1, false, rand.New(rand.NewSource(1)))
	require.True(t, ok)
	assert.Equal(t, "u2", item.URL)
}

func TestNeighborBackward(t *testing.T) {
	q := testQueue("u1", "u2", "u3")
	q.MediaURL = "u3"

	item, ok := q.neighbor(-1, false, rand.New(rand.NewSource(1)))
	require.True(t, ok)
	assert.Equal(t, "u2", item.URL)
}

func TestNeighborClampsAtEnds(t *testing.T) {
	q := testQueue("u1", "u2", "u3")
	rng := rand.New(rand.NewSource(1))

	q.MediaURL = "u3"
	item, ok := q.neighbor(1, false, rng)
	require.True(t, ok)
	assert.Equal(t, "u3", item.URL)

	q.MediaURL = "u1"
	item, ok = q.neighbor(-1, false, rng)
	require.True(t, ok)
	assert.Equal(t, "u1", item.URL)
}

func TestNeighborUnknownMediaURL(t *testing.T) {
	q := testQueue("u1", "u2")
	q.MediaURL = "not-in-queue"

	// indexOf is -1; forward lands on the first item.
	item, ok := q.neighbor(1, false, rand.New(rand.NewSource(1)))
	require.True(t, ok)
	assert.Equal(t, "u1", item.URL)
}

func TestNeighborShuffleExcludesCurrent(t *testing.T) {
	q := testQueue("u1", "u2", "u3", "u4")
	q.MediaURL = "u2"
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		item, ok := q.neighbor(1, true, rng)
		require.True(t, ok)
		assert.NotEqual(t, "u2", item.URL)
	}
}

func TestNeighborShuffleSingleItem(t *testing.T) {
	q := testQueue("u1")
	q.MediaURL = "u1"

	item, ok := q.neighbor(1, true, rand.New(rand.NewSource(1)))
	require.True(t, ok)
	assert.Equal(t, "u1", item.URL)
}

package agent

import (
	"math/rand"

	"github.com/soundmesh/musiccast-hub-go/internal/upnp"
)

// indexOf returns the queue position of url, or -1.
func (q *PlaybackQueue) indexOf(url string) int {
	for i, item := range q.Items {
		if item.URL == url {
			return i
		}
	}
	return -1
}

// neighbor picks the item to play next relative to the current media_url.
// direction is +1 or -1. With shuffle on, any other item is chosen at
// random; otherwise the index moves by direction, clamped to the queue
// bounds. ok is false when the queue is empty.
func (q *PlaybackQueue) neighbor(direction int, shuffle bool, rng *rand.Rand) (upnp.Item, bool) {
	if len(q.Items) == 0 {
		return upnp.Item{}, false
	}

	current := q.indexOf(q.MediaURL)

	if shuffle && len(q.Items) > 1 {
		if current < 0 {
			return q.Items[rng.Intn(len(q.Items))], true
		}
		// Random pick excluding the current item.
		pick := rng.Intn(len(q.Items) - 1)
		if pick >= current {
			pick++
		}
		return q.Items[pick], true
	}

	next := current + direction
	if next < 0 {
		next = 0
	}
	if next > len(q.Items)-1 {
		next = len(q.Items) - 1
	}
	return q.Items[next], true
}

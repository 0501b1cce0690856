package main

// dedup suppresses redundant redelivery of the same event from
// multiple relays. Each channel keeps a FIFO ring of recently seen
// event IDs plus a membership set; once the ring is full, the oldest
// ID is forgotten. The filter is approximate: an ID evicted under
// heavy traffic can be re-accepted on a late redelivery, which only
// repeats a line on screen and never corrupts state.
type dedup struct {
	capacity int
	order    map[string][]string
	seen     map[string]map[string]struct{}
}

func newDedup(capacity int) *dedup {
	if capacity <= 0 {
		capacity = defaultDedupCapacity
	}
	return &dedup{
		capacity: capacity,
		order:    make(map[string][]string),
		seen:     make(map[string]map[string]struct{}),
	}
}

// shouldAccept reports whether id is new for the channel. A repeat
// leaves state unchanged; a new ID is recorded, evicting the oldest
// recorded ID when the channel ring is at capacity.
func (d *dedup) shouldAccept(channelKey, id string) bool {
	ids, ok := d.seen[channelKey]
	if !ok {
		ids = make(map[string]struct{})
		d.seen[channelKey] = ids
	}
	if _, dup := ids[id]; dup {
		return false
	}

	ring := d.order[channelKey]
	if len(ring) >= d.capacity {
		oldest := ring[0]
		ring = ring[1:]
		delete(ids, oldest)
	}
	ids[id] = struct{}{}
	d.order[channelKey] = append(ring, id)
	return true
}

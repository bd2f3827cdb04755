package feed

import "container/list"

// venueCache memoises remote venue id to local location id for one run.
// A nil location id records a venue that could not be matched.
type venueCache struct {
	cap   int
	ll    *list.List
	items map[string]*list.Element
}

type venueEntry struct {
	key        string
	locationID *string
}

func newVenueCache(size int) *venueCache {
	if size <= 0 {
		size = 1000
	}
	return &venueCache{cap: size, ll: list.New(), items: make(map[string]*list.Element, size)}
}

func (c *venueCache) get(key string) (locationID *string, ok bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(venueEntry).locationID, true
}

func (c *venueCache) put(key string, locationID *string) {
	if el, ok := c.items[key]; ok {
		el.Value = venueEntry{key: key, locationID: locationID}
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(venueEntry{key: key, locationID: locationID})
	for c.ll.Len() > c.cap {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(venueEntry).key)
	}
}

func (c *venueCache) len() int {
	return c.ll.Len()
}

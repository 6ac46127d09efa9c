package catalog

import "sync"

// ListQueue is the named collection rendering the shared download queue.
const ListQueue = "queue"

// Cache holds the authoritative local copies of channels and videos currently
// rendered. Exactly one live object exists per identity; every list that
// displays a video references the same instance, so a single merge is visible
// everywhere. All mutations funnel through the cache mutex, which serializes
// merges from push handlers, queue reconciliation, and progress trackers.
type Cache struct {
	mu       sync.Mutex
	videos   map[VideoID]*Video
	channels map[ChannelID]*Channel
	lists    map[string][]VideoID

	onVideoChanged   func(*Video)
	onChannelRemoved func(*Channel)
}

// NewCache constructs an empty entity cache.
func NewCache() *Cache {
	return &Cache{
		videos:   make(map[VideoID]*Video),
		channels: make(map[ChannelID]*Channel),
		lists:    make(map[string][]VideoID),
	}
}

// OnVideoChanged registers the observer invoked after any video mutation.
// The UI boundary subscribes here.
func (c *Cache) OnVideoChanged(fn func(*Video)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onVideoChanged = fn
}

// OnChannelRemoved registers the observer invoked after a channel is dropped.
func (c *Cache) OnChannelRemoved(fn func(*Channel)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChannelRemoved = fn
}

// Video returns the live instance for id, if cached.
func (c *Cache) Video(id VideoID) (*Video, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.videos[id]
	return v, ok
}

// PutVideo inserts v unless an instance for the same identity already exists,
// in which case the existing instance is returned unchanged. This preserves
// the one-live-object-per-identity invariant.
func (c *Cache) PutVideo(v *Video) *Video {
	if v == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.videos[v.ID]; ok {
		return existing
	}
	c.videos[v.ID] = v
	return v
}

// MutateVideo runs fn on the live instance for id under the cache lock and
// notifies the video observer afterwards. Returns false when id is not cached.
func (c *Cache) MutateVideo(id VideoID, fn func(*Video)) bool {
	c.mu.Lock()
	v, ok := c.videos[id]
	if ok {
		fn(v)
	}
	observer := c.onVideoChanged
	c.mu.Unlock()

	if ok && observer != nil {
		observer(v)
	}
	return ok
}

// Channel returns the live instance for id, if cached.
func (c *Cache) Channel(id ChannelID) (*Channel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[id]
	return ch, ok
}

// PutChannel inserts ch unless an instance for the same identity already
// exists, in which case the existing instance is returned unchanged.
func (c *Cache) PutChannel(ch *Channel) *Channel {
	if ch == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.channels[ch.ID]; ok {
		return existing
	}
	c.channels[ch.ID] = ch
	return ch
}

// MutateChannel runs fn on the live instance for id under the cache lock.
// Returns false when id is not cached.
func (c *Cache) MutateChannel(id ChannelID, fn func(*Channel)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[id]
	if ok {
		fn(ch)
	}
	return ok
}

// RemoveChannel drops the channel and every list it owns. The propagation
// hook is suppressed and detached before removal so tearing the channel down
// does not emit a secondary outgoing mutation.
func (c *Cache) RemoveChannel(id ChannelID) bool {
	c.mu.Lock()
	ch, ok := c.channels[id]
	if ok {
		ch.BeginBulkUpdate()
		ch.OnChanged(nil)
		delete(c.channels, id)
		delete(c.lists, string(id))
	}
	observer := c.onChannelRemoved
	c.mu.Unlock()

	if ok && observer != nil {
		observer(ch)
	}
	return ok
}

// Channels returns a snapshot of all cached channels.
func (c *Cache) Channels() []*Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

// List returns a copy of the named collection's video ids, front first.
func (c *Cache) List(name string) []VideoID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.lists[name]
	out := make([]VideoID, len(ids))
	copy(out, ids)
	return out
}

// SetList replaces the named collection.
func (c *Cache) SetList(name string, ids []VideoID) {
	cp := make([]VideoID, len(ids))
	copy(cp, ids)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[name] = cp
}

// ListContains reports whether the named collection holds id.
func (c *Cache) ListContains(name string, id VideoID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.lists[name] {
		if existing == id {
			return true
		}
	}
	return false
}

// InsertFront places id at the front of the named collection, removing any
// previous occurrence first.
func (c *Cache) InsertFront(name string, id VideoID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.lists[name]
	out := make([]VideoID, 0, len(ids)+1)
	out = append(out, id)
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	c.lists[name] = out
}

// MoveToFront moves id to the front of the named collection. Returns false
// when the collection does not hold id.
func (c *Cache) MoveToFront(name string, id VideoID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.lists[name]
	found := false
	for _, existing := range ids {
		if existing == id {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	out := make([]VideoID, 0, len(ids))
	out = append(out, id)
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	c.lists[name] = out
	return true
}

package catalog

// ChannelID identifies a subscribed channel. Stable across clients.
type ChannelID string

// Channel is the local copy of a subscribed channel. Mutable display fields
// are accessed through setters so a propagation hook can observe local edits;
// the bulk-update guard suppresses the hook while an incoming remote change is
// copied field by field, which would otherwise echo every assignment back to
// the backend and loop between clients.
type Channel struct {
	ID          ChannelID
	PlaylistKey string

	name              string
	description       string
	filter            string
	markedForDeletion bool

	bulkDepth int
	onChanged func(*Channel)
}

// NewChannel constructs a channel with its stable identity fields.
func NewChannel(id ChannelID, playlistKey string) *Channel {
	return &Channel{ID: id, PlaylistKey: playlistKey}
}

// OnChanged registers the propagation hook fired after any field mutation
// outside a bulk update. Register only after the channel is inserted into the
// cache so construction does not propagate.
func (c *Channel) OnChanged(fn func(*Channel)) {
	c.onChanged = fn
}

// BeginBulkUpdate suppresses the propagation hook until the matching
// EndBulkUpdate. Calls nest.
func (c *Channel) BeginBulkUpdate() {
	c.bulkDepth++
}

// EndBulkUpdate releases one level of suppression.
func (c *Channel) EndBulkUpdate() {
	if c.bulkDepth > 0 {
		c.bulkDepth--
	}
}

func (c *Channel) notify() {
	if c.bulkDepth == 0 && c.onChanged != nil {
		c.onChanged(c)
	}
}

// Name returns the display name.
func (c *Channel) Name() string { return c.name }

// SetName updates the display name.
func (c *Channel) SetName(v string) {
	if c.name == v {
		return
	}
	c.name = v
	c.notify()
}

// Description returns the channel description.
func (c *Channel) Description() string { return c.description }

// SetDescription updates the channel description.
func (c *Channel) SetDescription(v string) {
	if c.description == v {
		return
	}
	c.description = v
	c.notify()
}

// Filter returns the video filter expression.
func (c *Channel) Filter() string { return c.filter }

// SetFilter updates the video filter expression.
func (c *Channel) SetFilter(v string) {
	if c.filter == v {
		return
	}
	c.filter = v
	c.notify()
}

// MarkedForDeletion reports whether the channel is flagged for removal.
func (c *Channel) MarkedForDeletion() bool { return c.markedForDeletion }

// SetMarkedForDeletion flags the channel for removal everywhere.
func (c *Channel) SetMarkedForDeletion(v bool) {
	if c.markedForDeletion == v {
		return
	}
	c.markedForDeletion = v
	c.notify()
}

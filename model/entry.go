package model

import "time"

// Entry is a resolved image.
//
// Entries are immutable once constructed and are shared by pointer between
// the cache tiers. Data must be treated as read-only by every holder; a
// refresh replaces the whole Entry instead of mutating it.
type Entry struct {
	// Data is the image payload as returned by the remote store.
	Data []byte
	// Width and Height are optional pixel dimensions reported by the loader.
	Width  uint32
	Height uint32
	// ContentType is an optional media type (e.g. "image/webp").
	ContentType string
	// Version is a monotonically increasing fetch sequence assigned by the
	// async tier when the entry is stored.
	Version uint64
	// FetchedAt is the time the entry was stored by the async tier.
	FetchedAt time.Time
}

// NewEntry returns an unstamped entry for the payload.
func NewEntry(data []byte) *Entry {
	return &Entry{Data: data}
}

// Size returns the content length in bytes.
func (e *Entry) Size() int64 {
	if e == nil {
		return 0
	}
	return int64(len(e.Data))
}

// Stamp returns a copy of e carrying the given version and fetch time.
// The payload slice is shared, not copied.
func (e *Entry) Stamp(version uint64, at time.Time) *Entry {
	c := *e
	c.Version = version
	c.FetchedAt = at
	return &c
}

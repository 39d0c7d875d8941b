package imgcache

import (
	"github.com/hupe1980/imgcache/model"
)

// Source tells which layer answered a lookup.
type Source uint8

const (
	// SourceNone is set on failed results.
	SourceNone Source = iota
	// SourceSync is a SyncCache hit.
	SourceSync
	// SourceAsync is an AsyncCache hit.
	SourceAsync
	// SourceRemote is a completed remote load.
	SourceRemote
)

func (s Source) String() string {
	switch s {
	case SourceSync:
		return "sync"
	case SourceAsync:
		return "async"
	case SourceRemote:
		return "remote"
	default:
		return "none"
	}
}

// Result is the outcome for one key. Exactly one of Entry and Err is set.
type Result struct {
	Entry  *model.Entry
	Err    error
	Source Source
}

// OK reports whether the key was resolved.
func (r Result) OK() bool { return r.Err == nil && r.Entry != nil }

// Results maps every distinct requested key to its outcome.
type Results map[model.Key]Result

// Entries returns the resolved entries.
func (rs Results) Entries() map[model.Key]*model.Entry {
	out := make(map[model.Key]*model.Entry, len(rs))
	for k, r := range rs {
		if r.OK() {
			out[k] = r.Entry
		}
	}
	return out
}

// Errors returns the per-key errors.
func (rs Results) Errors() map[model.Key]error {
	out := make(map[model.Key]error)
	for k, r := range rs {
		if r.Err != nil {
			out[k] = r.Err
		}
	}
	return out
}

// Failed returns the number of keys that could not be resolved.
func (rs Results) Failed() int {
	n := 0
	for _, r := range rs {
		if !r.OK() {
			n++
		}
	}
	return n
}

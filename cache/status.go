package cache

import "strconv"

// LookupStatus is the outcome of an AsyncCache lookup.
type LookupStatus int

const (
	// LookupStatusHit indicates a fresh entry was found without loading.
	LookupStatusHit = LookupStatus(iota)
	// LookupStatusMiss indicates the entry was loaded from the remote store.
	LookupStatusMiss
	// LookupStatusError indicates the load failed or the caller gave up waiting.
	LookupStatusError
)

var lookupStatusValues = map[LookupStatus]string{
	LookupStatusHit:   "hit",
	LookupStatusMiss:  "miss",
	LookupStatusError: "error",
}

func (s LookupStatus) String() string {
	if v, ok := lookupStatusValues[s]; ok {
		return v
	}
	return strconv.Itoa(int(s))
}

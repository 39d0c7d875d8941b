// Package resource bounds the shared resources of the cache layer.
//
// A single Controller is shared by both cache tiers and the load path:
//
//   - memory: total resident payload bytes across tiers (optional hard limit)
//   - loads: number of remote fetches running at once
//   - rate: remote fetches started per second (token bucket)
//
// A nil *Controller is valid and imposes no limits.
package resource

// Package model defines the identity and value types shared by both cache tiers.
//
// # Identity Types
//
//   - Kind: which family of image a key refers to (post, avatar, drawing, ...)
//   - Key: comparable, immutable cache key built from domain ids
//
// # Value Types
//
//   - Entry: an immutable image payload plus fetch metadata
//
// Keys are plain values and can be used directly as map keys:
//
//	k := model.PostImage(authorID, postID)
//	entries := map[model.Key]*model.Entry{}
//	entries[k] = e
package model

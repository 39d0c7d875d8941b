package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind separates key spaces for the different image families.
type Kind uint8

const (
	KindUnknown      Kind = iota
	KindPostImage         // post thumbnail, owner = author, id = post
	KindAvatar            // profile picture, owner = id = user
	KindDrawing           // full drawing image
	KindDrawingLayer      // a single layer of a drawing
	KindLocalDrawing      // offline drawing read from the local data dir
)

var kindNames = [...]string{
	KindUnknown:      "unknown",
	KindPostImage:    "post",
	KindAvatar:       "avatar",
	KindDrawing:      "drawing",
	KindDrawingLayer: "layer",
	KindLocalDrawing: "local",
}

// String returns the stable short name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ErrInvalidKey is returned by ParseKey for malformed input.
var ErrInvalidKey = errors.New("invalid cache key")

// Key identifies one cacheable image.
//
// Key is comparable; equality and hashing are structural, so it can be used
// as a map key and is stable for the lifetime of the process.
type Key struct {
	Kind  Kind
	Owner uuid.UUID
	ID    uuid.UUID
	// Layer is only meaningful for KindDrawingLayer.
	Layer uint32
}

// PostImage returns the key of a post's thumbnail.
func PostImage(author, post uuid.UUID) Key {
	return Key{Kind: KindPostImage, Owner: author, ID: post}
}

// Avatar returns the key of a user's profile picture.
func Avatar(user uuid.UUID) Key {
	return Key{Kind: KindAvatar, Owner: user, ID: user}
}

// Drawing returns the key of a full drawing image.
func Drawing(owner, drawing uuid.UUID) Key {
	return Key{Kind: KindDrawing, Owner: owner, ID: drawing}
}

// DrawingLayer returns the key of one layer of a drawing.
func DrawingLayer(owner, drawing uuid.UUID, layer uint32) Key {
	return Key{Kind: KindDrawingLayer, Owner: owner, ID: drawing, Layer: layer}
}

// LocalDrawing returns the key of a drawing stored on local disk.
// Local drawings have no remote owner.
func LocalDrawing(drawing uuid.UUID) Key {
	return Key{Kind: KindLocalDrawing, ID: drawing}
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}

// OwnedBy reports whether the key belongs to the given subject.
func (k Key) OwnedBy(owner uuid.UUID) bool {
	return k.Owner == owner
}

// String renders the key as "<kind>/<owner>/<id>[/<layer>]".
// Local drawings omit the owner.
func (k Key) String() string {
	switch k.Kind {
	case KindLocalDrawing:
		return k.Kind.String() + "/" + k.ID.String()
	case KindDrawingLayer:
		return fmt.Sprintf("%s/%s/%s/%d", k.Kind, k.Owner, k.ID, k.Layer)
	default:
		return k.Kind.String() + "/" + k.Owner.String() + "/" + k.ID.String()
	}
}

// ParseKey parses the output of Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}

	kind := KindUnknown
	for i, name := range kindNames {
		if name == parts[0] {
			kind = Kind(i)
			break
		}
	}

	parseIDs := func(ss ...string) ([]uuid.UUID, error) {
		ids := make([]uuid.UUID, len(ss))
		for i, v := range ss {
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidKey, s, err)
			}
			ids[i] = id
		}
		return ids, nil
	}

	switch {
	case kind == KindLocalDrawing && len(parts) == 2:
		ids, err := parseIDs(parts[1])
		if err != nil {
			return Key{}, err
		}
		return LocalDrawing(ids[0]), nil
	case kind == KindDrawingLayer && len(parts) == 4:
		ids, err := parseIDs(parts[1], parts[2])
		if err != nil {
			return Key{}, err
		}
		layer, err := strconv.ParseUint(parts[3], 10, 32)
		if err != nil {
			return Key{}, fmt.Errorf("%w: %q: bad layer", ErrInvalidKey, s)
		}
		return DrawingLayer(ids[0], ids[1], uint32(layer)), nil
	case (kind == KindPostImage || kind == KindAvatar || kind == KindDrawing) && len(parts) == 3:
		ids, err := parseIDs(parts[1], parts[2])
		if err != nil {
			return Key{}, err
		}
		return Key{Kind: kind, Owner: ids[0], ID: ids[1]}, nil
	}
	return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
}

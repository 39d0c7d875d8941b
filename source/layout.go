package source

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hupe1980/imgcache/model"
)

// ErrUnsupportedKind is returned for keys a Layout or Chain cannot place.
var ErrUnsupportedKind = errors.New("source: unsupported key kind")

// DefaultAvatarPath is the placeholder served for users without a profile picture.
const DefaultAvatarPath = "/default_profile_picture.webp"

// Layout maps keys to blob paths.
type Layout struct {
	// Ext is appended to every file name, including the dot.
	Ext string
	// AvatarName is the file name of a user's profile picture.
	AvatarName string
	// LayerPrefix precedes the layer index of a drawing layer.
	LayerPrefix string
	// LocalName is the file name of a local drawing inside its directory.
	LocalName string
	// ContentType is reported on loaded entries.
	ContentType string
}

// DefaultLayout returns the WebP layout used by the application.
func DefaultLayout() Layout {
	return Layout{
		Ext:         ".webp",
		AvatarName:  "profile_picture",
		LayerPrefix: "layer_",
		LocalName:   "data",
		ContentType: "image/webp",
	}
}

// Path returns the blob path of key.
func (l Layout) Path(key model.Key) (string, error) {
	switch key.Kind {
	case model.KindPostImage, model.KindDrawing:
		return "/" + key.Owner.String() + "/" + key.ID.String() + l.Ext, nil
	case model.KindAvatar:
		return "/" + key.Owner.String() + "/" + l.AvatarName + l.Ext, nil
	case model.KindDrawingLayer:
		return "/" + key.Owner.String() + "/" + key.ID.String() + "/" +
			l.LayerPrefix + strconv.FormatUint(uint64(key.Layer), 10) + l.Ext, nil
	case model.KindLocalDrawing:
		return key.ID.String() + "/" + l.LocalName + l.Ext, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, key.Kind)
	}
}

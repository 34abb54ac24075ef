package tagging

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/dhowden/tag"
)

// ErrUnsupported reports an output container that cannot carry cover art
// through this package.
var ErrUnsupported = errors.New("container does not support embedded covers")

// Tags holds the fields used for naming and tagging output files.
type Tags struct {
	Title  string
	Artist string
	Album  string
}

// Empty reports whether no naming field is set.
func (t Tags) Empty() bool {
	return t.Title == "" && t.Artist == ""
}

// ReadTags extracts tags embedded in a decrypted stream. Streams without
// any tag block return empty Tags and no error.
func ReadTags(stream []byte) (Tags, error) {
	meta, err := tag.ReadFrom(bytes.NewReader(stream))
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return Tags{}, nil
		}
		return Tags{}, fmt.Errorf("read tags: %w", err)
	}
	return Tags{
		Title:  strings.TrimSpace(meta.Title()),
		Artist: strings.TrimSpace(meta.Artist()),
		Album:  strings.TrimSpace(meta.Album()),
	}, nil
}

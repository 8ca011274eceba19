package archive

import (
	"errors"
	"fmt"
)

// ErrCorrupt reports a byte stream that fails decompression or tar
// demultiplexing. Wrapped with the underlying decoder error.
var ErrCorrupt = errors.New("model archive corrupt")

// MissingEntryError reports a required archive entry absent from the
// container. Name is the logical entry name ("bert", "acoustic",
// "vocoder", "metadata").
type MissingEntryError struct {
	Name string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("model archive missing entry %q", e.Name)
}

// MetadataError reports metadata that is present but unusable.
type MetadataError struct {
	Reason string
	Err    error
}

func (e *MetadataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid archive metadata: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid archive metadata: %s", e.Reason)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

package codec

import (
	"fmt"

	"github.com/pingcap/errors"
)

var (
	errBadMagic        = errors.New("not a compiled grammar")
	errVersionMismatch = errors.New("unsupported format version")
)

// SerializationError is a failure to read an encoded table. Offset is a position in the decompressed
// body, or 0 when the failure is in the header.
type SerializationError struct {
	Offset int
	Cause  error
}

func (e *SerializationError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("serialization error at offset %v: %v", e.Offset, e.Cause)
	}
	return fmt.Sprintf("serialization error: %v", e.Cause)
}

func (e *SerializationError) Unwrap() error {
	return e.Cause
}

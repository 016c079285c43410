package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Stream is either an encoder or a decoder. Every method takes a pointer to a field: an encoding stream
// writes the value, and a decoding stream overwrites it with the value it reads.
//
// The first failure sticks. Later calls do nothing, and Err returns the failure.
type Stream struct {
	encoding bool
	buf      *bytes.Buffer
	src      []byte
	pos      int
	err      error
}

func newEncodeStream() *Stream {
	return &Stream{
		encoding: true,
		buf:      &bytes.Buffer{},
	}
}

func newDecodeStream(src []byte) *Stream {
	return &Stream{
		src: src,
	}
}

func (s *Stream) Encoding() bool {
	return s.encoding
}

func (s *Stream) Err() error {
	return s.err
}

func (s *Stream) bytes() []byte {
	return s.buf.Bytes()
}

// fail records a malformed input at the current offset.
func (s *Stream) fail(format string, a ...interface{}) {
	if s.err != nil {
		return
	}
	s.err = &SerializationError{
		Offset: s.pos,
		Cause:  fmt.Errorf(format, a...),
	}
}

func (s *Stream) Int(v *int) {
	if s.err != nil {
		return
	}
	if s.encoding {
		var b [binary.MaxVarintLen64]byte
		n := binary.PutVarint(b[:], int64(*v))
		s.buf.Write(b[:n])
		return
	}
	x, n := binary.Varint(s.src[s.pos:])
	if n <= 0 {
		s.fail("malformed integer")
		return
	}
	if x > math.MaxInt32 || x < math.MinInt32 {
		s.fail("integer out of range: %v", x)
		return
	}
	s.pos += n
	*v = int(x)
}

// count reads or writes a length. A decoded length can't exceed the remaining input, since every element
// takes at least one byte.
func (s *Stream) count(n *int) {
	s.Int(n)
	if s.err != nil || s.encoding {
		return
	}
	if *n < 0 || *n > len(s.src)-s.pos {
		s.fail("invalid length: %v", *n)
	}
}

func (s *Stream) Bool(v *bool) {
	if s.err != nil {
		return
	}
	if s.encoding {
		if *v {
			s.buf.WriteByte(1)
		} else {
			s.buf.WriteByte(0)
		}
		return
	}
	if s.pos >= len(s.src) {
		s.fail("unexpected end of stream")
		return
	}
	b := s.src[s.pos]
	if b > 1 {
		s.fail("malformed boolean: %v", b)
		return
	}
	s.pos++
	*v = b == 1
}

func (s *Stream) Bytes(v *[]byte) {
	n := len(*v)
	s.count(&n)
	if s.err != nil {
		return
	}
	if s.encoding {
		s.buf.Write(*v)
		return
	}
	b := make([]byte, n)
	copy(b, s.src[s.pos:s.pos+n])
	s.pos += n
	*v = b
}

func (s *Stream) String(v *string) {
	b := []byte(*v)
	s.Bytes(&b)
	if s.err != nil || s.encoding {
		return
	}
	*v = string(b)
}

func (s *Stream) Ints(v *[]int) {
	n := len(*v)
	s.count(&n)
	if s.err != nil {
		return
	}
	if s.encoding {
		for i := range *v {
			s.Int(&(*v)[i])
		}
		return
	}
	ints := make([]int, n)
	for i := range ints {
		s.Int(&ints[i])
	}
	*v = ints
}

// end fails when a decoding stream has unread bytes.
func (s *Stream) end() {
	if s.err != nil || s.encoding {
		return
	}
	if s.pos != len(s.src) {
		s.fail("%v bytes remain after the table", len(s.src)-s.pos)
	}
}

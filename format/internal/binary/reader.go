package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Reader errors. Callers classify failures with errors.Is.
var (
	// ErrOverrun is returned when a read needs more bytes than remain in the window.
	ErrOverrun = errors.New("read past end of buffer")
	// ErrOverflow is returned when a ULEB128 value exceeds the requested bound.
	ErrOverflow = errors.New("uleb128: overflow")
	// ErrNonCanonical is returned for ULEB128 values with redundant trailing groups.
	ErrNonCanonical = errors.New("uleb128: non-canonical encoding")
)

// Reader is a bounded cursor over a byte window. Every read is checked against
// the remaining bytes before anything is allocated.
type Reader struct {
	data []byte
	pos  int
	base int
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current absolute byte position.
func (r *Reader) Position() int {
	return r.base + r.pos
}

// Remaining returns the number of unread bytes in the window.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Done reports whether the whole window has been consumed.
func (r *Reader) Done() bool {
	return r.pos >= len(r.data)
}

// Window returns a Reader over [offset, offset+length) of the unread bytes
// without advancing r.
func (r *Reader) Window(offset, length int) (*Reader, error) {
	if offset < 0 || length < 0 || offset > r.Remaining() || length > r.Remaining()-offset {
		return nil, r.overrun(offset + length)
	}
	start := r.pos + offset
	return &Reader{data: r.data[start : start+length], base: r.base + start}, nil
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || n > r.Remaining() {
		return r.overrun(n)
	}
	r.pos += n
	return nil
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.overrun(1)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes into a fresh slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, r.overrun(n)
	}
	buf := make([]byte, n)
	copy(buf, r.data[r.pos:r.pos+n])
	r.pos += n
	return buf, nil
}

// ReadULEB reads an unsigned LEB128 value no greater than limit.
func (r *Reader) ReadULEB(limit uint64) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		digit := uint64(b & 0x7f)
		if shift == 63 && digit > 1 {
			return 0, r.wrapError(ErrOverflow)
		}
		result |= digit << shift
		if b&0x80 == 0 {
			if shift > 0 && digit == 0 {
				return 0, r.wrapError(ErrNonCanonical)
			}
			if result > limit {
				return 0, r.wrapError(fmt.Errorf("%w: %d exceeds %d", ErrOverflow, result, limit))
			}
			return result, nil
		}
		shift += 7
		if shift > 63 {
			return 0, r.wrapError(ErrOverflow)
		}
	}
}

// ReadU16 reads a ULEB128 value that must fit in 16 bits.
func (r *Reader) ReadU16() (uint16, error) {
	v, err := r.ReadULEB(0xFFFF)
	return uint16(v), err
}

// ReadU32 reads a ULEB128 value that must fit in 32 bits.
func (r *Reader) ReadU32() (uint32, error) {
	v, err := r.ReadULEB(0xFFFFFFFF)
	return uint32(v), err
}

// ReadU32LE reads a little-endian uint32 (fixed 4 bytes).
func (r *Reader) ReadU32LE() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, r.overrun(4)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadU64LE reads a little-endian uint64 (fixed 8 bytes).
func (r *Reader) ReadU64LE() (uint64, error) {
	if r.Remaining() < 8 {
		return 0, r.overrun(8)
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) overrun(want int) error {
	return r.wrapError(&ShortBufferError{Want: want, Have: r.Remaining()})
}

func (r *Reader) wrapError(err error) error {
	return &ParseError{Position: r.Position(), Err: err}
}

// ShortBufferError records how many bytes a read needed.
type ShortBufferError struct {
	Want int
	Have int
}

func (e *ShortBufferError) Error() string {
	return fmt.Sprintf("need %d bytes, %d remaining", e.Want, e.Have)
}

// Is makes errors.Is(err, ErrOverrun) hold for short reads.
func (e *ShortBufferError) Is(target error) bool {
	return target == ErrOverrun
}

// ParseError represents an error during binary parsing with position information.
type ParseError struct {
	Err      error
	Position int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

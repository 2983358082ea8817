package binary

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderReadByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	for i, want := range data {
		if r.Position() != i {
			t.Errorf("position before read %d: got %d, want %d", i, r.Position(), i)
		}
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte %d: %v", i, err)
		}
		if b != want {
			t.Errorf("ReadByte %d: got 0x%02x, want 0x%02x", i, b, want)
		}
	}

	if !r.Done() {
		t.Error("reader should be done")
	}

	_, err := r.ReadByte()
	if !errors.Is(err, ErrOverrun) {
		t.Errorf("expected ErrOverrun, got %v", err)
	}
}

func TestReaderReadBytes(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	r := NewReader(data)

	got, err := r.ReadBytes(3)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("ReadBytes: got %v, want [1 2 3]", got)
	}

	// returned slice must not alias the input
	got[0] = 0xff
	if data[0] != 0x01 {
		t.Error("ReadBytes aliased the input buffer")
	}

	_, err = r.ReadBytes(10)
	var short *ShortBufferError
	if !errors.As(err, &short) {
		t.Fatalf("expected ShortBufferError, got %v", err)
	}
	if short.Want != 10 || short.Have != 2 {
		t.Errorf("short = %+v", short)
	}
	if r.Position() != 3 {
		t.Errorf("failed read advanced position to %d", r.Position())
	}
}

func TestReaderReadULEB(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    uint64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xff, 0x01}, 255},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}, 0xFFFFFFFFFFFFFFFF},
	}

	for _, tt := range tests {
		r := NewReader(tt.encoded)
		got, err := r.ReadULEB(^uint64(0))
		if err != nil {
			t.Errorf("ReadULEB(%v): %v", tt.encoded, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadULEB(%v): got %d, want %d", tt.encoded, got, tt.want)
		}
		if !r.Done() {
			t.Errorf("ReadULEB(%v): %d bytes left", tt.encoded, r.Remaining())
		}
	}
}

func TestReaderReadULEBErrors(t *testing.T) {
	tests := []struct {
		name    string
		encoded []byte
		limit   uint64
		want    error
	}{
		{"truncated", []byte{0x80}, 0xFFFF, ErrOverrun},
		{"non canonical", []byte{0x80, 0x00}, 0xFFFF, ErrNonCanonical},
		{"over limit", []byte{0x80, 0x80, 0x04}, 0xFFFF, ErrOverflow},
		{"too long", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}, ^uint64(0), ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(tt.encoded).ReadULEB(tt.limit)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReaderWindow(t *testing.T) {
	r := NewReader([]byte{0, 1, 2, 3, 4, 5})
	if err := r.Skip(2); err != nil {
		t.Fatal(err)
	}

	w, err := r.Window(1, 2)
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if w.Position() != 3 {
		t.Errorf("window position = %d, want 3", w.Position())
	}
	b, _ := w.ReadByte()
	if b != 3 {
		t.Errorf("first window byte = %d, want 3", b)
	}
	if r.Position() != 2 {
		t.Error("Window must not advance the parent")
	}

	if _, err := r.Window(3, 2); !errors.Is(err, ErrOverrun) {
		t.Errorf("window past end: got %v", err)
	}
	if _, err := r.Window(-1, 1); !errors.Is(err, ErrOverrun) {
		t.Errorf("negative window: got %v", err)
	}
}

func TestReaderFixedWidth(t *testing.T) {
	r := NewReader([]byte{0x0B, 0xEB, 0x1C, 0xA1, 1, 0, 0, 0, 0, 0, 0, 0})
	v, err := r.ReadU32LE()
	if err != nil || v != 0xA11CEB0B {
		t.Errorf("ReadU32LE = %x, %v", v, err)
	}
	u, err := r.ReadU64LE()
	if err != nil || u != 1 {
		t.Errorf("ReadU64LE = %d, %v", u, err)
	}
	if _, err := r.ReadU32LE(); !errors.Is(err, ErrOverrun) {
		t.Errorf("expected overrun, got %v", err)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 65535, 1 << 32, ^uint64(0)}

	w := NewWriter()
	for _, v := range values {
		w.WriteULEB(v)
	}
	w.WriteU32LE(0xA11CEB0B)
	w.WriteU64LE(42)

	r := NewReader(w.Bytes())
	for _, want := range values {
		got, err := r.ReadULEB(^uint64(0))
		if err != nil {
			t.Fatalf("ReadULEB: %v", err)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	}
	if v, _ := r.ReadU32LE(); v != 0xA11CEB0B {
		t.Errorf("u32 = %x", v)
	}
	if v, _ := r.ReadU64LE(); v != 42 {
		t.Errorf("u64 = %d", v)
	}
}

func TestULEBSize(t *testing.T) {
	for _, v := range []uint64{0, 127, 128, 16383, 16384, ^uint64(0)} {
		w := NewWriter()
		w.WriteULEB(v)
		if ULEBSize(v) != w.Len() {
			t.Errorf("ULEBSize(%d) = %d, wrote %d", v, ULEBSize(v), w.Len())
		}
	}
}

package format

import (
	"bytes"
	"slices"

	"github.com/holiman/uint256"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format/internal/binary"
)

// Constant is a typed value in its canonical serialized form.
//
// Payload encoding: bool and u8 one byte, u64 8 bytes little-endian, u128 16
// bytes little-endian, address 16 raw bytes, vector a ULEB128 length followed
// by the elements.
type Constant struct {
	Type SignatureToken
	Data []byte
}

// Equal reports whether both type and payload match.
func (c Constant) Equal(other Constant) bool {
	return c.Type.Equal(&other.Type) && bytes.Equal(c.Data, other.Data)
}

func (c Constant) clone() Constant {
	return Constant{Type: c.Type.Clone(), Data: slices.Clone(c.Data)}
}

// Value decodes the payload. Results are bool, uint8, uint64, uint256.Int,
// AccountAddress, []byte for vector<u8>, and []any for other vectors.
func (c Constant) Value() (any, error) {
	if err := checkConstantType(&c.Type); err != nil {
		return nil, err
	}
	r := binary.NewReader(c.Data)
	v, err := readConstantValue(r, &c.Type)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDeserialize, errors.KindMalformed, err, "constant payload")
	}
	if !r.Done() {
		return nil, errors.Malformed(errors.PhaseDeserialize, []string{"constant_pool"}, "%d trailing bytes in constant", r.Remaining())
	}
	return v, nil
}

// NewConstant encodes value as a constant of type typ. value must have the Go
// type Value would return for typ; *uint256.Int and []any of the element
// type are also accepted.
func NewConstant(typ SignatureToken, value any) (Constant, error) {
	if err := checkConstantType(&typ); err != nil {
		return Constant{}, err
	}
	w := binary.NewWriter()
	if err := writeConstantValue(w, &typ, value); err != nil {
		return Constant{}, err
	}
	return Constant{Type: typ, Data: w.Bytes()}, nil
}

// checkConstantType admits primitives other than signer and vectors of them.
// Depth is bounded so the recursive payload codec stays shallow.
func checkConstantType(t *SignatureToken) error {
	for n, depth := range t.PreorderWithDepth() {
		if depth >= DefaultMaxTypeDepth {
			return errors.TypeDepth(errors.PhaseBuild, []string{"constant_pool"}, depth+1, DefaultMaxTypeDepth)
		}
		switch n.Kind {
		case TokenBool, TokenU8, TokenU64, TokenU128, TokenAddress:
		case TokenVector:
			if n.Inner == nil {
				return errors.InvalidInput(errors.PhaseBuild, "vector type without element type")
			}
		default:
			return errors.InvalidInput(errors.PhaseBuild, "type "+t.String()+" cannot be a constant")
		}
	}
	return nil
}

func readConstantValue(r *binary.Reader, t *SignatureToken) (any, error) {
	switch t.Kind {
	case TokenBool:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b > 1 {
			return nil, errors.Malformed(errors.PhaseDeserialize, nil, "invalid bool byte 0x%02x", b)
		}
		return b == 1, nil
	case TokenU8:
		return r.ReadByte()
	case TokenU64:
		return r.ReadU64LE()
	case TokenU128:
		raw, err := r.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		return u128FromLE(raw), nil
	case TokenAddress:
		raw, err := r.ReadBytes(AddressLength)
		if err != nil {
			return nil, err
		}
		var a AccountAddress
		copy(a[:], raw)
		return a, nil
	case TokenVector:
		n, err := r.ReadULEB(uint64(r.Remaining()))
		if err != nil {
			return nil, err
		}
		if t.Inner.Kind == TokenU8 {
			return r.ReadBytes(int(n))
		}
		out := make([]any, 0, n)
		for i := uint64(0); i < n; i++ {
			v, err := readConstantValue(r, t.Inner)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, errors.InvalidInput(errors.PhaseDeserialize, "type "+t.String()+" cannot be a constant")
}

func writeConstantValue(w *binary.Writer, t *SignatureToken, value any) error {
	mismatch := func() error {
		return errors.New(errors.PhaseBuild, errors.KindInvalidInput).
			Detail("value of type %T does not match constant type %s", value, t.String()).
			Value(value).
			Build()
	}
	switch t.Kind {
	case TokenBool:
		b, ok := value.(bool)
		if !ok {
			return mismatch()
		}
		if b {
			w.Byte(1)
		} else {
			w.Byte(0)
		}
	case TokenU8:
		b, ok := value.(uint8)
		if !ok {
			return mismatch()
		}
		w.Byte(b)
	case TokenU64:
		v, ok := value.(uint64)
		if !ok {
			return mismatch()
		}
		w.WriteU64LE(v)
	case TokenU128:
		var v *uint256.Int
		switch x := value.(type) {
		case uint256.Int:
			v = &x
		case *uint256.Int:
			v = x
		default:
			return mismatch()
		}
		if v.BitLen() > 128 {
			return errors.InvalidInput(errors.PhaseBuild, "u128 constant out of range: "+v.Dec())
		}
		w.WriteBytes(u128ToLE(v))
	case TokenAddress:
		a, ok := value.(AccountAddress)
		if !ok {
			return mismatch()
		}
		w.WriteBytes(a[:])
	case TokenVector:
		if raw, ok := value.([]byte); ok && t.Inner.Kind == TokenU8 {
			w.WriteULEB(uint64(len(raw)))
			w.WriteBytes(raw)
			return nil
		}
		elems, ok := value.([]any)
		if !ok {
			return mismatch()
		}
		w.WriteULEB(uint64(len(elems)))
		for _, e := range elems {
			if err := writeConstantValue(w, t.Inner, e); err != nil {
				return err
			}
		}
	default:
		return mismatch()
	}
	return nil
}

// u128FromLE converts 16 little-endian bytes to a uint256.Int.
func u128FromLE(le []byte) uint256.Int {
	var be [16]byte
	for i := range be {
		be[i] = le[15-i]
	}
	var v uint256.Int
	v.SetBytes(be[:])
	return v
}

// u128ToLE returns the low 128 bits of v as 16 little-endian bytes.
func u128ToLE(v *uint256.Int) []byte {
	be := v.Bytes32()
	out := make([]byte, 16)
	for i := range out {
		out[i] = be[31-i]
	}
	return out
}

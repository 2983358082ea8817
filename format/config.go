package format

// DefaultMaxTypeDepth bounds the nesting of signature tokens on decode.
const DefaultMaxTypeDepth = 256

// DefaultMaxBinarySize bounds the size of blobs Deserialize accepts.
const DefaultMaxBinarySize = 1 << 20

// DeserializerConfig limits what Deserialize will accept from untrusted input.
type DeserializerConfig struct {
	// MaxBinarySize rejects larger blobs before any parsing.
	MaxBinarySize int
	// MaxTypeDepth rejects signature tokens nested deeper than this. It can
	// only tighten DefaultMaxTypeDepth, which Check enforces on every token.
	MaxTypeDepth int
	// MaxCodeLength caps the instruction count of one code unit.
	MaxCodeLength int
	// MaxSignatureSize caps the token count of one signature.
	MaxSignatureSize int
	// SkipBoundsCheck disables Check after decoding. Module handles, friend
	// declarations, the self handle and script parameters are still checked.
	// Other indices may dangle; only use it on blobs from a trusted producer.
	SkipBoundsCheck bool
}

// DefaultDeserializerConfig returns the limits Deserialize uses.
func DefaultDeserializerConfig() DeserializerConfig {
	return DeserializerConfig{
		MaxBinarySize:    DefaultMaxBinarySize,
		MaxTypeDepth:     DefaultMaxTypeDepth,
		MaxCodeLength:    BytecodeCountMax,
		MaxSignatureSize: SignatureSizeMax,
	}
}

// normalize fills zero fields with defaults and clamps to format maxima.
func (c DeserializerConfig) normalize() DeserializerConfig {
	d := DefaultDeserializerConfig()
	if c.MaxBinarySize <= 0 {
		c.MaxBinarySize = d.MaxBinarySize
	}
	if c.MaxTypeDepth <= 0 || c.MaxTypeDepth > DefaultMaxTypeDepth {
		c.MaxTypeDepth = d.MaxTypeDepth
	}
	if c.MaxCodeLength <= 0 || c.MaxCodeLength > BytecodeCountMax {
		c.MaxCodeLength = d.MaxCodeLength
	}
	if c.MaxSignatureSize <= 0 || c.MaxSignatureSize > SignatureSizeMax {
		c.MaxSignatureSize = d.MaxSignatureSize
	}
	return c
}

package format

import (
	"iter"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format/internal/binary"
)

// TokenKind discriminates SignatureToken variants.
type TokenKind uint8

const (
	TokenBool TokenKind = iota + 1
	TokenU8
	TokenU64
	TokenU128
	TokenAddress
	TokenSigner
	TokenVector
	TokenStruct
	TokenStructInstantiation
	TokenReference
	TokenMutableReference
	TokenTypeParameter
)

func (k TokenKind) String() string {
	switch k {
	case TokenBool:
		return "bool"
	case TokenU8:
		return "u8"
	case TokenU64:
		return "u64"
	case TokenU128:
		return "u128"
	case TokenAddress:
		return "address"
	case TokenSigner:
		return "signer"
	case TokenVector:
		return "vector"
	case TokenStruct:
		return "struct"
	case TokenStructInstantiation:
		return "struct_instantiation"
	case TokenReference:
		return "reference"
	case TokenMutableReference:
		return "mutable_reference"
	case TokenTypeParameter:
		return "type_parameter"
	default:
		return "unknown"
	}
}

// SignatureToken is a node of a type expression. Children are owned by their
// parent; two tokens never share a child.
//
// Inner is set for Vector, Reference and MutableReference. Struct is set for
// Struct and StructInstantiation, TypeArgs for StructInstantiation only.
// TypeParam is set for TypeParameter.
type SignatureToken struct {
	Inner     *SignatureToken
	TypeArgs  []SignatureToken
	Kind      TokenKind
	Struct    StructHandleIndex
	TypeParam TypeParameterIndex
}

// BoolType returns the bool token.
func BoolType() SignatureToken { return SignatureToken{Kind: TokenBool} }

// U8Type returns the u8 token.
func U8Type() SignatureToken { return SignatureToken{Kind: TokenU8} }

// U64Type returns the u64 token.
func U64Type() SignatureToken { return SignatureToken{Kind: TokenU64} }

// U128Type returns the u128 token.
func U128Type() SignatureToken { return SignatureToken{Kind: TokenU128} }

// AddressType returns the address token.
func AddressType() SignatureToken { return SignatureToken{Kind: TokenAddress} }

// SignerType returns the signer token.
func SignerType() SignatureToken { return SignatureToken{Kind: TokenSigner} }

// VectorOf returns vector<elem>.
func VectorOf(elem SignatureToken) SignatureToken {
	return SignatureToken{Kind: TokenVector, Inner: &elem}
}

// StructType returns a non-generic struct token.
func StructType(h StructHandleIndex) SignatureToken {
	return SignatureToken{Kind: TokenStruct, Struct: h}
}

// StructInstantiationType returns h<args...>.
func StructInstantiationType(h StructHandleIndex, args ...SignatureToken) SignatureToken {
	return SignatureToken{Kind: TokenStructInstantiation, Struct: h, TypeArgs: args}
}

// ReferenceTo returns &inner.
func ReferenceTo(inner SignatureToken) SignatureToken {
	return SignatureToken{Kind: TokenReference, Inner: &inner}
}

// MutableReferenceTo returns &mut inner.
func MutableReferenceTo(inner SignatureToken) SignatureToken {
	return SignatureToken{Kind: TokenMutableReference, Inner: &inner}
}

// TypeParam returns the token for type parameter i.
func TypeParam(i TypeParameterIndex) SignatureToken {
	return SignatureToken{Kind: TokenTypeParameter, TypeParam: i}
}

// IsLeaf reports whether the token has no children.
func (t *SignatureToken) IsLeaf() bool {
	switch t.Kind {
	case TokenVector, TokenReference, TokenMutableReference, TokenStructInstantiation:
		return false
	}
	return true
}

// IsPrimitive reports whether the token is bool, an integer, address or signer.
func (t *SignatureToken) IsPrimitive() bool {
	switch t.Kind {
	case TokenBool, TokenU8, TokenU64, TokenU128, TokenAddress, TokenSigner:
		return true
	}
	return false
}

// IsInteger reports whether the token is u8, u64 or u128.
func (t *SignatureToken) IsInteger() bool {
	switch t.Kind {
	case TokenU8, TokenU64, TokenU128:
		return true
	}
	return false
}

// IsReference reports whether the token is & or &mut.
func (t *SignatureToken) IsReference() bool {
	return t.Kind == TokenReference || t.Kind == TokenMutableReference
}

// IsMutableReference reports whether the token is &mut.
func (t *SignatureToken) IsMutableReference() bool {
	return t.Kind == TokenMutableReference
}

// IsSigner reports whether the token is signer.
func (t *SignatureToken) IsSigner() bool {
	return t.Kind == TokenSigner
}

// StructHandle returns the struct handle and type arguments of a struct token.
func (t *SignatureToken) StructHandle() (StructHandleIndex, []SignatureToken, bool) {
	switch t.Kind {
	case TokenStruct:
		return t.Struct, nil, true
	case TokenStructInstantiation:
		return t.Struct, t.TypeArgs, true
	}
	return 0, nil, false
}

// children returns the direct children in order.
func (t *SignatureToken) children() []*SignatureToken {
	switch t.Kind {
	case TokenVector, TokenReference, TokenMutableReference:
		if t.Inner == nil {
			return nil
		}
		return []*SignatureToken{t.Inner}
	case TokenStructInstantiation:
		out := make([]*SignatureToken, len(t.TypeArgs))
		for i := range t.TypeArgs {
			out[i] = &t.TypeArgs[i]
		}
		return out
	}
	return nil
}

// Preorder yields t and all of its descendants, parents before children and
// children left to right. It walks with an explicit stack, so arbitrarily
// deep tokens do not grow the call stack.
func (t *SignatureToken) Preorder() iter.Seq[*SignatureToken] {
	return func(yield func(*SignatureToken) bool) {
		stack := []*SignatureToken{t}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n) {
				return
			}
			stack = pushChildren(stack, n)
		}
	}
}

// PreorderWithDepth is Preorder that also yields each node's depth; the root
// is at depth 0.
func (t *SignatureToken) PreorderWithDepth() iter.Seq2[*SignatureToken, int] {
	type entry struct {
		tok   *SignatureToken
		depth int
	}
	return func(yield func(*SignatureToken, int) bool) {
		stack := []entry{{t, 0}}
		var kids []*SignatureToken
		for len(stack) > 0 {
			e := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(e.tok, e.depth) {
				return
			}
			kids = pushChildren(kids[:0], e.tok)
			for _, k := range kids {
				stack = append(stack, entry{k, e.depth + 1})
			}
		}
	}
}

// pushChildren appends n's children in reverse so they pop left to right.
func pushChildren(stack []*SignatureToken, n *SignatureToken) []*SignatureToken {
	switch n.Kind {
	case TokenVector, TokenReference, TokenMutableReference:
		if n.Inner != nil {
			stack = append(stack, n.Inner)
		}
	case TokenStructInstantiation:
		for i := len(n.TypeArgs) - 1; i >= 0; i-- {
			stack = append(stack, &n.TypeArgs[i])
		}
	}
	return stack
}

// Depth returns the number of nesting levels; a leaf has depth 1.
func (t *SignatureToken) Depth() int {
	maxDepth := 0
	for _, d := range t.PreorderWithDepth() {
		if d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth + 1
}

// NodeCount returns the number of nodes in the tree.
func (t *SignatureToken) NodeCount() int {
	n := 0
	for range t.Preorder() {
		n++
	}
	return n
}

// Fold evaluates f bottom-up over the tree without recursion: every node is
// visited after its children, and children's results arrive in order.
func Fold[R any](t *SignatureToken, f func(n *SignatureToken, children []R) (R, error)) (R, error) {
	var nodes []*SignatureToken
	for n := range t.Preorder() {
		nodes = append(nodes, n)
	}

	// Reverse preorder visits every subtree before its parent; the results of
	// a node's children sit on top of the stack in left-to-right pop order.
	results := make([]R, 0, len(nodes))
	var kids []R
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		k := len(n.children())
		kids = kids[:0]
		for j := 0; j < k; j++ {
			kids = append(kids, results[len(results)-1])
			results = results[:len(results)-1]
		}
		r, err := f(n, kids)
		if err != nil {
			var zero R
			return zero, err
		}
		results = append(results, r)
	}
	return results[0], nil
}

// withChildren rebuilds n's shape around new children.
func withChildren(n *SignatureToken, kids []SignatureToken) SignatureToken {
	switch n.Kind {
	case TokenVector, TokenReference, TokenMutableReference:
		out := SignatureToken{Kind: n.Kind}
		if len(kids) == 1 {
			inner := kids[0]
			out.Inner = &inner
		}
		return out
	case TokenStructInstantiation:
		args := make([]SignatureToken, len(kids))
		copy(args, kids)
		return SignatureToken{Kind: n.Kind, Struct: n.Struct, TypeArgs: args}
	default:
		return SignatureToken{Kind: n.Kind, Struct: n.Struct, TypeParam: n.TypeParam}
	}
}

// Clone returns a deep copy sharing no memory with t.
func (t *SignatureToken) Clone() SignatureToken {
	out, _ := Fold(t, func(n *SignatureToken, kids []SignatureToken) (SignatureToken, error) {
		return withChildren(n, kids), nil
	})
	return out
}

// Substitute replaces every TypeParameter(i) leaf with typeArgs[i]. It fails
// with KindTypeParameterRange when i is not a valid argument index. t is not
// modified.
func (t *SignatureToken) Substitute(typeArgs []SignatureToken) (SignatureToken, error) {
	return Fold(t, func(n *SignatureToken, kids []SignatureToken) (SignatureToken, error) {
		if n.Kind == TokenTypeParameter {
			if int(n.TypeParam) >= len(typeArgs) {
				return SignatureToken{}, errors.TypeParameterRange(errors.PhaseSubstitute, nil, int(n.TypeParam), len(typeArgs))
			}
			return typeArgs[n.TypeParam].Clone(), nil
		}
		return withChildren(n, kids), nil
	})
}

// Substitute applies SignatureToken.Substitute to each token of a signature.
func Substitute(tokens []SignatureToken, typeArgs []SignatureToken) ([]SignatureToken, error) {
	out := make([]SignatureToken, len(tokens))
	for i := range tokens {
		s, err := tokens[i].Substitute(typeArgs)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// ContainsTypeParameters reports whether any leaf is a TypeParameter.
func (t *SignatureToken) ContainsTypeParameters() bool {
	for n := range t.Preorder() {
		if n.Kind == TokenTypeParameter {
			return true
		}
	}
	return false
}

// Equal reports structural equality: same shapes and same leaf indices.
func (t *SignatureToken) Equal(other *SignatureToken) bool {
	type pair struct{ a, b *SignatureToken }
	stack := []pair{{t, other}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.a == nil || p.b == nil {
			if p.a != p.b {
				return false
			}
			continue
		}
		if p.a.Kind != p.b.Kind {
			return false
		}
		switch p.a.Kind {
		case TokenStruct:
			if p.a.Struct != p.b.Struct {
				return false
			}
		case TokenTypeParameter:
			if p.a.TypeParam != p.b.TypeParam {
				return false
			}
		case TokenVector, TokenReference, TokenMutableReference:
			stack = append(stack, pair{p.a.Inner, p.b.Inner})
		case TokenStructInstantiation:
			if p.a.Struct != p.b.Struct || len(p.a.TypeArgs) != len(p.b.TypeArgs) {
				return false
			}
			for i := range p.a.TypeArgs {
				stack = append(stack, pair{&p.a.TypeArgs[i], &p.b.TypeArgs[i]})
			}
		}
	}
	return true
}

// Hash returns a structural hash: equal tokens hash equally.
func (t *SignatureToken) Hash() uint64 {
	w := binary.NewWriter()
	writeToken(w, t)
	return xxh3.Hash(w.Bytes())
}

func (t *SignatureToken) String() string {
	s, _ := Fold(t, func(n *SignatureToken, kids []string) (string, error) {
		switch n.Kind {
		case TokenVector:
			return "vector<" + strings.Join(kids, "") + ">", nil
		case TokenReference:
			return "&" + strings.Join(kids, ""), nil
		case TokenMutableReference:
			return "&mut " + strings.Join(kids, ""), nil
		case TokenStruct:
			return "S" + strconv.Itoa(int(n.Struct)), nil
		case TokenStructInstantiation:
			return "S" + strconv.Itoa(int(n.Struct)) + "<" + strings.Join(kids, ", ") + ">", nil
		case TokenTypeParameter:
			return "T" + strconv.Itoa(int(n.TypeParam)), nil
		default:
			return n.Kind.String(), nil
		}
	})
	return s
}

// Signature is an ordered list of tokens: function parameters, returns,
// locals, or a type argument list.
type Signature []SignatureToken

// Equal reports element-wise structural equality.
func (s Signature) Equal(other Signature) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !s[i].Equal(&other[i]) {
			return false
		}
	}
	return true
}

// Hash returns a structural hash of the whole signature.
func (s Signature) Hash() uint64 {
	w := binary.NewWriter()
	writeSignature(w, s)
	return xxh3.Hash(w.Bytes())
}

// Clone returns a deep copy.
func (s Signature) Clone() Signature {
	if s == nil {
		return nil
	}
	out := make(Signature, len(s))
	for i := range s {
		out[i] = s[i].Clone()
	}
	return out
}

func (s Signature) clone() Signature { return s.Clone() }

func (s Signature) String() string {
	parts := make([]string, len(s))
	for i := range s {
		parts[i] = s[i].String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// TypeSignature is the type of a struct field.
type TypeSignature struct {
	Token SignatureToken
}

// FunctionSignature is the shape of a function: parameters, returns and the
// ability constraints of its type parameters.
type FunctionSignature struct {
	Parameters     Signature
	Return         Signature
	TypeParameters []AbilitySet
}

// Instantiate substitutes typeArgs into parameters and returns.
func (fs FunctionSignature) Instantiate(typeArgs []SignatureToken) (FunctionSignature, error) {
	if len(typeArgs) != len(fs.TypeParameters) {
		return FunctionSignature{}, errors.New(errors.PhaseSubstitute, errors.KindTypeParameterRange).
			Detail("%d type arguments for %d type parameters", len(typeArgs), len(fs.TypeParameters)).
			Value(len(typeArgs)).
			Build()
	}
	params, err := Substitute(fs.Parameters, typeArgs)
	if err != nil {
		return FunctionSignature{}, err
	}
	rets, err := Substitute(fs.Return, typeArgs)
	if err != nil {
		return FunctionSignature{}, err
	}
	return FunctionSignature{Parameters: params, Return: rets}, nil
}

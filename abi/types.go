package abi

import (
	"slices"
	"strconv"
	"strings"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format"
)

// Type names used in the "type" discriminator of a MoveType.
const (
	TypeBool             = "bool"
	TypeU8               = "u8"
	TypeU64              = "u64"
	TypeU128             = "u128"
	TypeAddress          = "address"
	TypeSigner           = "signer"
	TypeVector           = "vector"
	TypeStruct           = "struct"
	TypeReference        = "reference"
	TypeGenericTypeParam = "generic_type_param"
)

// MoveType is a signature token with its struct references resolved to
// fully-qualified names. Only the fields of the variant named by Type are set.
type MoveType struct {
	Items             *MoveType
	To                *MoveType
	Type              string
	Address           string
	Module            string
	Name              string
	GenericTypeParams []MoveType
	Index             uint16
	Mutable           bool
}

// FromToken resolves t against the pools of m.
func FromToken(m *format.CompiledModule, t *format.SignatureToken) (MoveType, error) {
	return format.Fold(t, func(n *format.SignatureToken, children []MoveType) (MoveType, error) {
		switch n.Kind {
		case format.TokenBool:
			return MoveType{Type: TypeBool}, nil
		case format.TokenU8:
			return MoveType{Type: TypeU8}, nil
		case format.TokenU64:
			return MoveType{Type: TypeU64}, nil
		case format.TokenU128:
			return MoveType{Type: TypeU128}, nil
		case format.TokenAddress:
			return MoveType{Type: TypeAddress}, nil
		case format.TokenSigner:
			return MoveType{Type: TypeSigner}, nil
		case format.TokenVector:
			items := children[0]
			return MoveType{Type: TypeVector, Items: &items}, nil
		case format.TokenReference, format.TokenMutableReference:
			to := children[0]
			return MoveType{Type: TypeReference, Mutable: n.Kind == format.TokenMutableReference, To: &to}, nil
		case format.TokenTypeParameter:
			return MoveType{Type: TypeGenericTypeParam, Index: uint16(n.TypeParam)}, nil
		case format.TokenStruct, format.TokenStructInstantiation:
			h, err := m.StructHandles().Get(n.Struct)
			if err != nil {
				return MoveType{}, err
			}
			owner, err := m.ModuleHandles().Get(h.Module)
			if err != nil {
				return MoveType{}, err
			}
			id := m.ModuleIDFor(owner)
			args := slices.Clone(children)
			if args == nil {
				args = []MoveType{}
			}
			return MoveType{
				Type:              TypeStruct,
				Address:           id.Address.ShortString(),
				Module:            string(id.Name),
				Name:              string(m.IdentifierAt(h.Name)),
				GenericTypeParams: args,
			}, nil
		default:
			return MoveType{}, errors.Malformed(errors.PhaseABI, nil, "unknown token kind %d", n.Kind)
		}
	})
}

// String renders t in source syntax with fully-qualified struct names.
func (t MoveType) String() string {
	switch t.Type {
	case TypeVector:
		return "vector<" + t.Items.String() + ">"
	case TypeReference:
		if t.Mutable {
			return "&mut " + t.To.String()
		}
		return "&" + t.To.String()
	case TypeGenericTypeParam:
		return "T" + strconv.Itoa(int(t.Index))
	case TypeStruct:
		s := t.Address + "::" + t.Module + "::" + t.Name
		if len(t.GenericTypeParams) == 0 {
			return s
		}
		args := make([]string, len(t.GenericTypeParams))
		for i, a := range t.GenericTypeParams {
			args[i] = a.String()
		}
		return s + "<" + strings.Join(args, ", ") + ">"
	default:
		return t.Type
	}
}

// The wire shapes below fix the field set and order of each variant.

type primitiveShape struct {
	Type string `json:"type" yaml:"type"`
}

type vectorShape struct {
	Type  string   `json:"type" yaml:"type"`
	Items MoveType `json:"items" yaml:"items"`
}

type referenceShape struct {
	Type    string   `json:"type" yaml:"type"`
	Mutable bool     `json:"mutable" yaml:"mutable"`
	To      MoveType `json:"to" yaml:"to"`
}

type structShape struct {
	Type              string     `json:"type" yaml:"type"`
	Address           string     `json:"address" yaml:"address"`
	Module            string     `json:"module" yaml:"module"`
	Name              string     `json:"name" yaml:"name"`
	GenericTypeParams []MoveType `json:"generic_type_params" yaml:"generic_type_params"`
}

type typeParamShape struct {
	Type  string `json:"type" yaml:"type"`
	Index uint16 `json:"index" yaml:"index"`
}

func (t MoveType) shape() any {
	switch t.Type {
	case TypeVector:
		return vectorShape{Type: t.Type, Items: deref(t.Items)}
	case TypeReference:
		return referenceShape{Type: t.Type, Mutable: t.Mutable, To: deref(t.To)}
	case TypeStruct:
		args := t.GenericTypeParams
		if args == nil {
			args = []MoveType{}
		}
		return structShape{Type: t.Type, Address: t.Address, Module: t.Module, Name: t.Name, GenericTypeParams: args}
	case TypeGenericTypeParam:
		return typeParamShape{Type: t.Type, Index: t.Index}
	default:
		return primitiveShape{Type: t.Type}
	}
}

func (t *MoveType) fromShape(raw map[string]any) error {
	typ, _ := raw["type"].(string)
	t.Type = typ
	switch typ {
	case TypeBool, TypeU8, TypeU64, TypeU128, TypeAddress, TypeSigner:
		return nil
	case TypeVector:
		items, err := childType(raw, "items")
		if err != nil {
			return err
		}
		t.Items = items
	case TypeReference:
		to, err := childType(raw, "to")
		if err != nil {
			return err
		}
		t.To = to
		t.Mutable, _ = raw["mutable"].(bool)
	case TypeGenericTypeParam:
		idx, ok := toUint16(raw["index"])
		if !ok {
			return errors.Malformed(errors.PhaseABI, []string{"index"}, "invalid type parameter index %v", raw["index"])
		}
		t.Index = idx
	case TypeStruct:
		t.Address, _ = raw["address"].(string)
		t.Module, _ = raw["module"].(string)
		t.Name, _ = raw["name"].(string)
		list, _ := raw["generic_type_params"].([]any)
		t.GenericTypeParams = make([]MoveType, 0, len(list))
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return errors.Malformed(errors.PhaseABI, []string{"generic_type_params"}, "expected an object")
			}
			var arg MoveType
			if err := arg.fromShape(m); err != nil {
				return err
			}
			t.GenericTypeParams = append(t.GenericTypeParams, arg)
		}
	default:
		return errors.Malformed(errors.PhaseABI, []string{"type"}, "unknown type %q", typ)
	}
	return nil
}

func childType(raw map[string]any, key string) (*MoveType, error) {
	m, ok := raw[key].(map[string]any)
	if !ok {
		return nil, errors.Malformed(errors.PhaseABI, []string{key}, "expected an object")
	}
	var child MoveType
	if err := child.fromShape(m); err != nil {
		return nil, err
	}
	return &child, nil
}

func toUint16(v any) (uint16, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n > 0xFFFF || n != float64(uint16(n)) {
			return 0, false
		}
		return uint16(n), true
	case int:
		if n < 0 || n > 0xFFFF {
			return 0, false
		}
		return uint16(n), true
	case uint64:
		if n > 0xFFFF {
			return 0, false
		}
		return uint16(n), true
	default:
		return 0, false
	}
}

func deref(t *MoveType) MoveType {
	if t == nil {
		return MoveType{}
	}
	return *t
}

// Equal reports structural equality.
func (t MoveType) Equal(other MoveType) bool {
	if t.Type != other.Type || t.Mutable != other.Mutable || t.Index != other.Index ||
		t.Address != other.Address || t.Module != other.Module || t.Name != other.Name {
		return false
	}
	if (t.Items == nil) != (other.Items == nil) || (t.To == nil) != (other.To == nil) {
		return false
	}
	if t.Items != nil && !t.Items.Equal(*other.Items) {
		return false
	}
	if t.To != nil && !t.To.Equal(*other.To) {
		return false
	}
	return slices.EqualFunc(t.GenericTypeParams, other.GenericTypeParams, MoveType.Equal)
}

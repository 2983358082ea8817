package format

import (
	"iter"
	"strings"

	"github.com/wippyai/move-binary-format/errors"
)

// Ability classifies what operations are permitted on values of a type.
// The numeric values are the wire bits and must never change.
type Ability uint8

const (
	// AbilityCopy allows values to be copied.
	AbilityCopy Ability = 0x1
	// AbilityDrop allows values to be popped/dropped.
	AbilityDrop Ability = 0x2
	// AbilityStore allows values to exist inside a struct in global storage.
	AbilityStore Ability = 0x4
	// AbilityKey allows the type to serve as a key for global storage operations.
	AbilityKey Ability = 0x8
)

var allAbilities = [...]Ability{AbilityCopy, AbilityDrop, AbilityStore, AbilityKey}

func (a Ability) String() string {
	switch a {
	case AbilityCopy:
		return "copy"
	case AbilityDrop:
		return "drop"
	case AbilityStore:
		return "store"
	case AbilityKey:
		return "key"
	default:
		return "unknown"
	}
}

// ParseAbility returns the ability named s.
func ParseAbility(s string) (Ability, bool) {
	for _, a := range allAbilities {
		if a.String() == s {
			return a, true
		}
	}
	return 0, false
}

// Requires returns the ability a type argument must have for a generic type
// to have a. Key on the outer type requires Store on its contents.
func (a Ability) Requires() Ability {
	if a == AbilityKey {
		return AbilityStore
	}
	return a
}

// RequiredBy returns the abilities of an outer type that require a on its
// type arguments.
func (a Ability) RequiredBy() AbilitySet {
	switch a {
	case AbilityStore:
		return Abilities(AbilityStore, AbilityKey)
	case AbilityKey:
		return EmptyAbilities
	default:
		return SingletonAbility(a)
	}
}

// AbilitySet is a set of abilities packed in one byte.
type AbilitySet uint8

// Well-known sets.
const (
	EmptyAbilities AbilitySet = 0
	// PrimitiveAbilities are the abilities of bool, integers and address.
	PrimitiveAbilities = AbilitySet(AbilityCopy | AbilityDrop | AbilityStore)
	// ReferenceAbilities are the abilities of & and &mut.
	ReferenceAbilities = AbilitySet(AbilityCopy | AbilityDrop)
	// SignerAbilities are the abilities of signer.
	SignerAbilities = AbilitySet(AbilityDrop)
	// VectorAbilities are the abilities vector offers before intersecting
	// with its element type.
	VectorAbilities = AbilitySet(AbilityCopy | AbilityDrop | AbilityStore)

	allAbilityBits = AbilitySet(AbilityCopy | AbilityDrop | AbilityStore | AbilityKey)
)

// AllAbilities returns the set containing every ability.
func AllAbilities() AbilitySet {
	return allAbilityBits
}

// SingletonAbility returns the set containing only a.
func SingletonAbility(a Ability) AbilitySet {
	return AbilitySet(a)
}

// Abilities returns the set containing the given abilities.
func Abilities(as ...Ability) AbilitySet {
	var s AbilitySet
	for _, a := range as {
		s |= AbilitySet(a)
	}
	return s
}

// AbilitySetFromByte decodes the wire bit pattern. Unknown bits are rejected.
func AbilitySetFromByte(b byte) (AbilitySet, error) {
	if AbilitySet(b)&^allAbilityBits != 0 {
		return 0, errors.InvalidAbilitySet(errors.PhaseDeserialize, nil, b)
	}
	return AbilitySet(b), nil
}

// Byte returns the wire bit pattern.
func (s AbilitySet) Byte() byte {
	return byte(s)
}

// Has reports whether a is in the set.
func (s AbilitySet) Has(a Ability) bool {
	return s&AbilitySet(a) != 0
}

// HasAll reports whether every ability of other is in the set.
func (s AbilitySet) HasAll(other AbilitySet) bool {
	return other.IsSubsetOf(s)
}

// Add returns the set with a added.
func (s AbilitySet) Add(a Ability) AbilitySet {
	return s | AbilitySet(a)
}

// Remove returns the set with a removed.
func (s AbilitySet) Remove(a Ability) AbilitySet {
	return s &^ AbilitySet(a)
}

// Union returns s ∪ other.
func (s AbilitySet) Union(other AbilitySet) AbilitySet {
	return s | other
}

// Intersect returns s ∩ other.
func (s AbilitySet) Intersect(other AbilitySet) AbilitySet {
	return s & other
}

// IsSubsetOf reports whether every ability of s is in other.
func (s AbilitySet) IsSubsetOf(other AbilitySet) bool {
	return s&other == s
}

// IsEmpty reports whether the set has no abilities.
func (s AbilitySet) IsEmpty() bool {
	return s == 0
}

// Len returns the number of abilities in the set.
func (s AbilitySet) Len() int {
	n := 0
	for _, a := range allAbilities {
		if s.Has(a) {
			n++
		}
	}
	return n
}

// Iter yields the abilities in the set in bit order.
func (s AbilitySet) Iter() iter.Seq[Ability] {
	return func(yield func(Ability) bool) {
		for _, a := range allAbilities {
			if s.Has(a) && !yield(a) {
				return
			}
		}
	}
}

// Names returns the ability names in bit order.
func (s AbilitySet) Names() []string {
	names := make([]string, 0, s.Len())
	for a := range s.Iter() {
		names = append(names, a.String())
	}
	return names
}

func (s AbilitySet) String() string {
	return strings.Join(s.Names(), " + ")
}

// PolymorphicAbilities computes the abilities of a generic type instantiated
// with arguments of the given abilities. declared holds the generic type's own
// abilities; phantom marks type parameters that do not take part in ability
// derivation. An ability survives when every non-phantom argument has the
// ability it requires.
func PolymorphicAbilities(declared AbilitySet, phantom []bool, args []AbilitySet) (AbilitySet, error) {
	if len(phantom) != len(args) {
		return 0, errors.New(errors.PhaseBounds, errors.KindTypeParameterRange).
			Detail("%d type arguments for %d type parameters", len(args), len(phantom)).
			Value(len(args)).
			Build()
	}
	result := declared
	for i, argAbilities := range args {
		if phantom[i] {
			continue
		}
		for _, a := range allAbilities {
			if result.Has(a) && !argAbilities.Has(a.Requires()) {
				result = result.Remove(a)
			}
		}
	}
	return result, nil
}

package format

import (
	"strconv"

	"github.com/wippyai/move-binary-format/errors"
)

// Check verifies the structural invariants of a module: every index
// addresses an entry of its pool, definitions only exist for types and
// functions of the module itself, type parameter references stay within the
// declared arity, field offsets exist, local indices fit the function and
// branch targets lie inside their code unit.
//
// Deserialize and ModuleBuilder.Build run Check. It does not type check code.
func Check(m *CompiledModule) error {
	c := &checker{p: &m.pools, m: m}
	if err := checkIdentity(&m.pools, m.friendDecls); err != nil {
		return err
	}
	if err := c.checkCommon(); err != nil {
		return err
	}
	if err := checkIndex(m.moduleHandles, m.selfHandle, "self_module_handle"); err != nil {
		return err
	}
	if err := c.checkStructDefs(); err != nil {
		return err
	}
	if err := c.checkStructDefInstantiations(); err != nil {
		return err
	}
	if err := c.checkFieldHandles(); err != nil {
		return err
	}
	if err := c.checkFieldInstantiations(); err != nil {
		return err
	}
	if err := c.checkFunctionDefs(); err != nil {
		return err
	}
	return nil
}

// checkIdentity checks the indices module ids are resolved through: every
// module handle and friend declaration. Decoding runs it even when
// SkipBoundsCheck is set, so SelfID and ImmediateDependencies never panic.
func checkIdentity(p *pools, friends []ModuleHandle) error {
	c := &checker{p: p}
	for i, h := range p.moduleHandles.each() {
		if err := c.checkModuleHandle(h, "module_handles", itoa(int(i))); err != nil {
			return err
		}
	}
	for i, f := range friends {
		if err := c.checkModuleHandle(f, "friend_decls", itoa(i)); err != nil {
			return err
		}
	}
	return nil
}

// CheckScript verifies the structural invariants of a script.
func CheckScript(s *CompiledScript) error {
	c := &checker{p: &s.pools}
	if err := checkIdentity(&s.pools, nil); err != nil {
		return err
	}
	if err := c.checkCommon(); err != nil {
		return err
	}
	if len(s.typeParameters) > TypeParameterCountMax {
		return errors.Malformed(errors.PhaseBounds, []string{"script", "type_parameters"}, "%d type parameters", len(s.typeParameters))
	}
	if err := checkIndex(s.signatures, s.parameters, "script", "parameters"); err != nil {
		return err
	}
	arity := len(s.typeParameters)
	for i := range s.signatures.entries[s.parameters] {
		if err := c.checkToken(&s.signatures.entries[s.parameters][i], arity, "script", "parameters", itoa(i)); err != nil {
			return err
		}
	}
	return c.checkCode(&s.code, len(s.signatures.entries[s.parameters]), arity, "script", "code")
}

type checker struct {
	p *pools
	m *CompiledModule
}

func itoa(i int) string { return strconv.Itoa(i) }

func checkIndex[I Index, T any](pool Pool[I, T], idx I, path ...string) error {
	if pool.Has(idx) {
		return nil
	}
	return errors.New(errors.PhaseBounds, errors.KindIndexOutOfBounds).
		Path(path...).
		Detail("%s index %d out of bounds (length %d)", pool.Kind(), uint16(idx), pool.Len()).
		Value(int(idx)).
		Build()
}

func (c *checker) checkCommon() error {
	p := c.p
	if p.signatures.Len() > 0 && len(p.signatures.entries[NoTypeArguments]) != 0 {
		return errors.Malformed(errors.PhaseBounds, []string{"signatures", "0"}, "reserved empty type argument list holds %d tokens", len(p.signatures.entries[NoTypeArguments]))
	}
	for i, h := range p.structHandles.each() {
		if err := checkIndex(p.moduleHandles, h.Module, "struct_handles", itoa(int(i)), "module"); err != nil {
			return err
		}
		if err := checkIndex(p.identifiers, h.Name, "struct_handles", itoa(int(i)), "name"); err != nil {
			return err
		}
		if len(h.TypeParameters) > TypeParameterCountMax {
			return errors.Malformed(errors.PhaseBounds, []string{"struct_handles", itoa(int(i))}, "%d type parameters", len(h.TypeParameters))
		}
	}
	for i, h := range p.functionHandles.each() {
		at := []string{"function_handles", itoa(int(i))}
		if err := checkIndex(p.moduleHandles, h.Module, append(at, "module")...); err != nil {
			return err
		}
		if err := checkIndex(p.identifiers, h.Name, append(at, "name")...); err != nil {
			return err
		}
		if len(h.TypeParameters) > TypeParameterCountMax {
			return errors.Malformed(errors.PhaseBounds, at, "%d type parameters", len(h.TypeParameters))
		}
		for _, part := range []struct {
			name string
			idx  SignatureIndex
		}{{"parameters", h.Parameters}, {"return", h.Return}} {
			if err := checkIndex(p.signatures, part.idx, append(at, part.name)...); err != nil {
				return err
			}
			sig := p.signatures.entries[part.idx]
			for j := range sig {
				if err := c.checkToken(&sig[j], len(h.TypeParameters), append(at, part.name, itoa(j))...); err != nil {
					return err
				}
			}
		}
	}
	for i, fi := range p.functionInstantiations.each() {
		at := []string{"function_instantiations", itoa(int(i))}
		if err := checkIndex(p.functionHandles, fi.Handle, append(at, "handle")...); err != nil {
			return err
		}
		if err := checkIndex(p.signatures, fi.TypeParameters, append(at, "type_parameters")...); err != nil {
			return err
		}
		want := len(p.functionHandles.entries[fi.Handle].TypeParameters)
		if got := len(p.signatures.entries[fi.TypeParameters]); got != want {
			return arityMismatch(at, "function", want, got)
		}
	}
	for i, sig := range p.signatures.each() {
		for j := range sig {
			if err := c.checkToken(&sig[j], -1, "signatures", itoa(int(i)), itoa(j)); err != nil {
				return err
			}
		}
	}
	for i, k := range p.constantPool.each() {
		at := []string{"constant_pool", itoa(int(i))}
		if err := checkConstantType(&k.Type); err != nil {
			return errors.New(errors.PhaseBounds, errors.KindMalformed).
				Path(at...).
				Detail("invalid constant type").
				Cause(err).
				Build()
		}
		if len(k.Data) > ConstantSizeMax {
			return errors.Malformed(errors.PhaseBounds, at, "constant payload of %d bytes", len(k.Data))
		}
		if _, err := k.Value(); err != nil {
			return errors.New(errors.PhaseBounds, errors.KindMalformed).
				Path(at...).
				Detail("payload does not encode a %s", k.Type.String()).
				Cause(err).
				Build()
		}
	}
	for i, id := range p.identifiers.each() {
		if !IsValidIdentifier(string(id)) {
			return errors.Malformed(errors.PhaseBounds, []string{"identifiers", itoa(int(i))}, "invalid identifier %q", string(id))
		}
	}
	return nil
}

func (c *checker) checkModuleHandle(h ModuleHandle, path ...string) error {
	if err := checkIndex(c.p.addressIdentifiers, h.Address, append(path, "address")...); err != nil {
		return err
	}
	return checkIndex(c.p.identifiers, h.Name, append(path, "name")...)
}

// checkToken validates struct references and type parameter indices of a
// token. arity is the number of type parameters in scope, or -1 when the
// token may be checked only once it is used.
func (c *checker) checkToken(t *SignatureToken, arity int, path ...string) error {
	for n, depth := range t.PreorderWithDepth() {
		if depth >= DefaultMaxTypeDepth {
			return errors.TypeDepth(errors.PhaseBounds, path, depth+1, DefaultMaxTypeDepth)
		}
		switch n.Kind {
		case TokenBool, TokenU8, TokenU64, TokenU128, TokenAddress, TokenSigner:
		case TokenVector, TokenReference, TokenMutableReference:
			if n.Inner == nil {
				return errors.Malformed(errors.PhaseBounds, path, "%s without inner type", n.Kind)
			}
		case TokenStruct, TokenStructInstantiation:
			if err := checkIndex(c.p.structHandles, n.Struct, path...); err != nil {
				return err
			}
			want := len(c.p.structHandles.entries[n.Struct].TypeParameters)
			if got := len(n.TypeArgs); got != want {
				return arityMismatch(path, "struct "+string(c.p.StructName(n.Struct)), want, got)
			}
			if n.Kind == TokenStructInstantiation && want == 0 {
				return errors.Malformed(errors.PhaseBounds, path, "instantiation of non-generic struct")
			}
		case TokenTypeParameter:
			if arity >= 0 && int(n.TypeParam) >= arity {
				return errors.TypeParameterRange(errors.PhaseBounds, path, int(n.TypeParam), arity)
			}
		default:
			return errors.Malformed(errors.PhaseBounds, path, "unknown token kind %d", n.Kind)
		}
	}
	return nil
}

func arityMismatch(path []string, what string, want, got int) error {
	return errors.New(errors.PhaseBounds, errors.KindTypeParameterRange).
		Path(path...).
		Detail("%s expects %d type arguments, got %d", what, want, got).
		Value(got).
		Build()
}

func (c *checker) checkStructDefs() error {
	m := c.m
	for i, d := range m.structDefs.each() {
		at := []string{"struct_defs", itoa(int(i))}
		if err := checkIndex(m.structHandles, d.StructHandle, append(at, "handle")...); err != nil {
			return err
		}
		h := m.structHandles.entries[d.StructHandle]
		if h.Module != m.selfHandle {
			return errors.New(errors.PhaseBounds, errors.KindInvalidLocalDefinition).
				Path(at...).
				Detail("struct %s is declared by another module", m.StructName(d.StructHandle)).
				Value(int(d.StructHandle)).
				Build()
		}
		if len(d.FieldInformation.Fields) > FieldCountMax {
			return errors.Malformed(errors.PhaseBounds, at, "%d fields", len(d.FieldInformation.Fields))
		}
		if d.FieldInformation.Native && len(d.FieldInformation.Fields) > 0 {
			return errors.Malformed(errors.PhaseBounds, at, "native struct with declared fields")
		}
		for j, f := range d.FieldInformation.Fields {
			fat := append(at, "fields", itoa(j))
			if err := checkIndex(m.identifiers, f.Name, fat...); err != nil {
				return err
			}
			if err := c.checkToken(&f.Signature.Token, len(h.TypeParameters), fat...); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *checker) checkStructDefInstantiations() error {
	m := c.m
	for i, si := range m.structDefInstantiations.each() {
		at := []string{"struct_def_instantiations", itoa(int(i))}
		if err := checkIndex(m.structDefs, si.Def, append(at, "def")...); err != nil {
			return err
		}
		if err := checkIndex(m.signatures, si.TypeParameters, append(at, "type_parameters")...); err != nil {
			return err
		}
		h := m.structHandles.entries[m.structDefs.entries[si.Def].StructHandle]
		if got := len(m.signatures.entries[si.TypeParameters]); got != len(h.TypeParameters) {
			return arityMismatch(at, "struct "+string(m.IdentifierAt(h.Name)), len(h.TypeParameters), got)
		}
	}
	return nil
}

func (c *checker) checkFieldHandles() error {
	m := c.m
	for i, fh := range m.fieldHandles.each() {
		at := []string{"field_handles", itoa(int(i))}
		if err := checkIndex(m.structDefs, fh.Owner, append(at, "owner")...); err != nil {
			return err
		}
		def := m.structDefs.entries[fh.Owner]
		if def.IsNative() {
			return errors.Malformed(errors.PhaseBounds, at, "field handle into native struct")
		}
		if int(fh.Field) >= def.FieldCount() {
			return errors.OutOfBounds(errors.PhaseBounds, append(at, "field"), int(fh.Field), def.FieldCount())
		}
	}
	return nil
}

func (c *checker) checkFieldInstantiations() error {
	m := c.m
	for i, fi := range m.fieldInstantiations.each() {
		at := []string{"field_instantiations", itoa(int(i))}
		if err := checkIndex(m.fieldHandles, fi.Handle, append(at, "handle")...); err != nil {
			return err
		}
		if err := checkIndex(m.signatures, fi.TypeParameters, append(at, "type_parameters")...); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) checkFunctionDefs() error {
	m := c.m
	for i, d := range m.functionDefs.each() {
		at := []string{"function_defs", itoa(int(i))}
		if err := checkIndex(m.functionHandles, d.Function, append(at, "handle")...); err != nil {
			return err
		}
		h := m.functionHandles.entries[d.Function]
		if h.Module != m.selfHandle {
			return errors.New(errors.PhaseBounds, errors.KindInvalidLocalDefinition).
				Path(at...).
				Detail("function %s is declared by another module", m.FunctionName(d.Function)).
				Value(int(d.Function)).
				Build()
		}
		if !d.Visibility.valid() {
			return errors.Malformed(errors.PhaseBounds, at, "invalid visibility %d", d.Visibility)
		}
		if d.IsEntry && m.version < VersionEntryFunctions {
			return errors.Malformed(errors.PhaseBounds, at, "entry function in version %d module", m.version)
		}
		if len(d.Acquires) > AcquiresCountMax {
			return errors.Malformed(errors.PhaseBounds, at, "%d acquires", len(d.Acquires))
		}
		for j, a := range d.Acquires {
			if err := checkIndex(m.structDefs, a, append(at, "acquires", itoa(j))...); err != nil {
				return err
			}
		}
		if d.Code != nil {
			params := len(m.signatures.entries[h.Parameters])
			if err := c.checkCode(d.Code, params, len(h.TypeParameters), append(at, "code")...); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkCode validates the operands of every instruction against the pools
// and the local and type parameter counts of the enclosing function.
func (c *checker) checkCode(code *CodeUnit, params, arity int, path ...string) error {
	p := c.p
	if err := checkIndex(p.signatures, code.Locals, append(path, "locals")...); err != nil {
		return err
	}
	locals := p.signatures.entries[code.Locals]
	for j := range locals {
		if err := c.checkToken(&locals[j], arity, append(path, "locals", itoa(j))...); err != nil {
			return err
		}
	}
	numLocals := params + len(locals)
	if numLocals > LocalIndexMax+1 {
		return errors.Malformed(errors.PhaseBounds, path, "%d locals exceed %d", numLocals, LocalIndexMax+1)
	}
	if len(code.Code) > BytecodeCountMax {
		return errors.Malformed(errors.PhaseBounds, path, "%d instructions", len(code.Code))
	}

	var (
		fieldHandles   Pool[FieldHandleIndex, FieldHandle]
		fieldInsts     Pool[FieldInstantiationIndex, FieldInstantiation]
		structDefs     Pool[StructDefinitionIndex, StructDefinition]
		structDefInsts Pool[StructDefInstantiationIndex, StructDefInstantiation]
	)
	if c.m != nil {
		fieldHandles = c.m.fieldHandles
		fieldInsts = c.m.fieldInstantiations
		structDefs = c.m.structDefs
		structDefInsts = c.m.structDefInstantiations
	}

	for k, instr := range code.Code {
		at := append(append([]string(nil), path...), itoa(k))
		if !instr.Opcode.Valid() || !instr.immMatches() {
			return errors.Malformed(errors.PhaseBounds, at, "operand %T does not fit opcode %s", instr.Imm, instr.Opcode)
		}
		var err error
		switch imm := instr.Imm.(type) {
		case BranchImm:
			if int(imm.Offset) >= len(code.Code) {
				err = errors.InvalidCodeOffset(errors.PhaseBounds, at, int(imm.Offset), len(code.Code))
			}
		case LocalImm:
			if int(imm.Local) >= numLocals {
				err = errors.OutOfBounds(errors.PhaseBounds, append(at, "local"), int(imm.Local), numLocals)
			}
		case U128Imm:
			if imm.Value.BitLen() > 128 {
				err = errors.Malformed(errors.PhaseBounds, at, "u128 literal out of range")
			}
		case ConstImm:
			err = checkIndex(p.constantPool, imm.Index, at...)
		case CallImm:
			err = checkIndex(p.functionHandles, imm.Function, at...)
		case CallGenericImm:
			err = checkIndex(p.functionInstantiations, imm.Instantiation, at...)
		case StructImm:
			err = checkIndex(structDefs, imm.Def, at...)
		case StructGenericImm:
			err = checkIndex(structDefInsts, imm.Instantiation, at...)
		case FieldImm:
			err = checkIndex(fieldHandles, imm.Field, at...)
		case FieldGenericImm:
			err = checkIndex(fieldInsts, imm.Instantiation, at...)
		case VecImm:
			if err = checkIndex(p.signatures, imm.Elem, at...); err == nil {
				if n := len(p.signatures.entries[imm.Elem]); n != 1 {
					err = errors.Malformed(errors.PhaseBounds, at, "vector element signature has %d tokens", n)
				}
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

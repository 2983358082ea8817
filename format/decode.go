package format

import (
	stderrors "errors"
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format/internal/binary"
)

// Deserialize parses a module blob with the default limits and checks it
// with Check. Nothing is returned on error.
func Deserialize(data []byte) (*CompiledModule, error) {
	return DeserializeWithConfig(data, DefaultDeserializerConfig())
}

// DeserializeWithConfig is Deserialize with explicit limits.
func DeserializeWithConfig(data []byte, cfg DeserializerConfig) (*CompiledModule, error) {
	d := &decoder{cfg: cfg.normalize()}
	m, err := d.module(data)
	if err != nil {
		Logger().Debug("rejected module",
			zap.Int("bytes", len(data)),
			zap.String("kind", string(errors.KindOf(err))),
			zap.Error(err))
		return nil, err
	}
	if ce := Logger().Check(zap.DebugLevel, "deserialized module"); ce != nil {
		ce.Write(zap.Stringer("module", m.SelfID()),
			zap.Int("bytes", len(data)),
			zap.Uint32("version", m.version))
	}
	return m, nil
}

// DeserializeScript parses a script blob with the default limits.
func DeserializeScript(data []byte) (*CompiledScript, error) {
	return DeserializeScriptWithConfig(data, DefaultDeserializerConfig())
}

// DeserializeScriptWithConfig is DeserializeScript with explicit limits.
func DeserializeScriptWithConfig(data []byte, cfg DeserializerConfig) (*CompiledScript, error) {
	d := &decoder{cfg: cfg.normalize(), script: true}
	s, err := d.scriptBlob(data)
	if err != nil {
		Logger().Debug("rejected script",
			zap.Int("bytes", len(data)),
			zap.String("kind", string(errors.KindOf(err))),
			zap.Error(err))
		return nil, err
	}
	Logger().Debug("deserialized script", zap.Int("bytes", len(data)), zap.Uint32("version", s.version))
	return s, nil
}

type decoder struct {
	cfg     DeserializerConfig
	version uint32
	script  bool
}

type tableEntry struct {
	kind   TableKind
	offset uint32
	length uint32
}

// layout is a parsed header: one window per table plus the trailer.
type layout struct {
	tables  map[TableKind]*binary.Reader
	trailer *binary.Reader
}

func (d *decoder) module(data []byte) (*CompiledModule, error) {
	l, err := d.header(data)
	if err != nil {
		return nil, err
	}
	m := &CompiledModule{}
	m.version = d.version
	if err := d.commonTables(l, &m.pools); err != nil {
		return nil, err
	}

	if m.structDefs.entries, err = decodeEntries(d, l, TableStructDefs, d.structDef); err != nil {
		return nil, err
	}
	if m.structDefInstantiations.entries, err = decodeEntries(d, l, TableStructDefInstantiations, func(r *binary.Reader) (StructDefInstantiation, error) {
		def, err := readIndex[StructDefinitionIndex](r)
		if err != nil {
			return StructDefInstantiation{}, err
		}
		sig, err := readIndex[SignatureIndex](r)
		return StructDefInstantiation{Def: def, TypeParameters: sig}, err
	}); err != nil {
		return nil, err
	}
	if m.functionDefs.entries, err = decodeEntries(d, l, TableFunctionDefs, d.functionDef); err != nil {
		return nil, err
	}
	if m.fieldHandles.entries, err = decodeEntries(d, l, TableFieldHandles, func(r *binary.Reader) (FieldHandle, error) {
		owner, err := readIndex[StructDefinitionIndex](r)
		if err != nil {
			return FieldHandle{}, err
		}
		field, err := r.ReadU16()
		return FieldHandle{Owner: owner, Field: field}, err
	}); err != nil {
		return nil, err
	}
	if m.fieldInstantiations.entries, err = decodeEntries(d, l, TableFieldInstantiations, func(r *binary.Reader) (FieldInstantiation, error) {
		fh, err := readIndex[FieldHandleIndex](r)
		if err != nil {
			return FieldInstantiation{}, err
		}
		sig, err := readIndex[SignatureIndex](r)
		return FieldInstantiation{Handle: fh, TypeParameters: sig}, err
	}); err != nil {
		return nil, err
	}
	if m.friendDecls, err = decodeEntries(d, l, TableFriendDecls, readModuleHandle); err != nil {
		return nil, err
	}

	path := []string{"self_module_handle"}
	if m.selfHandle, err = readIndex[ModuleHandleIndex](l.trailer); err != nil {
		return nil, fail(path, err)
	}
	if !l.trailer.Done() {
		return nil, errors.Malformed(errors.PhaseDeserialize, path, "%d trailing bytes", l.trailer.Remaining())
	}
	if err := checkIndex(m.moduleHandles, m.selfHandle, path...); err != nil {
		return nil, err
	}
	if d.cfg.SkipBoundsCheck {
		err = checkIdentity(&m.pools, m.friendDecls)
	} else {
		err = Check(m)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (d *decoder) scriptBlob(data []byte) (*CompiledScript, error) {
	l, err := d.header(data)
	if err != nil {
		return nil, err
	}
	s := &CompiledScript{}
	s.version = d.version
	if err := d.commonTables(l, &s.pools); err != nil {
		return nil, err
	}

	r := l.trailer
	n, err := r.ReadULEB(TypeParameterCountMax)
	if err != nil {
		return nil, fail([]string{"script", "type_parameters"}, err)
	}
	for i := uint64(0); i < n; i++ {
		a, err := readAbilities(r)
		if err != nil {
			return nil, fail([]string{"script", "type_parameters", itoa(int(i))}, err)
		}
		s.typeParameters = append(s.typeParameters, a)
	}
	if s.parameters, err = readIndex[SignatureIndex](r); err != nil {
		return nil, fail([]string{"script", "parameters"}, err)
	}
	code, err := d.codeUnit(r)
	if err != nil {
		return nil, fail([]string{"script", "code"}, err)
	}
	s.code = *code
	if !r.Done() {
		return nil, errors.Malformed(errors.PhaseDeserialize, []string{"script"}, "%d trailing bytes", r.Remaining())
	}
	if err := checkIndex(s.signatures, s.parameters, "script", "parameters"); err != nil {
		return nil, err
	}
	if d.cfg.SkipBoundsCheck {
		err = checkIdentity(&s.pools, nil)
	} else {
		err = CheckScript(s)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// header validates magic and version, reads the table directory and checks
// the table layout against the content window. Tables must be packed from the
// start of the content without gaps.
func (d *decoder) header(data []byte) (*layout, error) {
	if len(data) > d.cfg.MaxBinarySize {
		return nil, errors.New(errors.PhaseDeserialize, errors.KindMalformed).
			Detail("binary of %d bytes exceeds limit %d", len(data), d.cfg.MaxBinarySize).
			Value(len(data)).
			Build()
	}
	r := binary.NewReader(data)
	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, errors.MalformedHeader("truncated magic")
	}
	if magic != Magic {
		return nil, errors.New(errors.PhaseDeserialize, errors.KindMalformedHeader).
			Detail("bad magic 0x%08x", magic).
			Value(magic).
			Build()
	}
	d.version, err = r.ReadU32LE()
	if err != nil {
		return nil, errors.MalformedHeader("truncated version")
	}
	if d.version < VersionMin || d.version > VersionMax {
		return nil, errors.New(errors.PhaseDeserialize, errors.KindMalformedHeader).
			Detail("unsupported version %d (supported %d..%d)", d.version, VersionMin, VersionMax).
			Value(d.version).
			Build()
	}

	dirPath := []string{"table_directory"}
	count, err := r.ReadULEB(TableCountMax)
	if err != nil {
		return nil, fail(dirPath, err)
	}
	entries := make([]tableEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		var e tableEntry
		kind, err := r.ReadByte()
		if err != nil {
			return nil, fail(dirPath, err)
		}
		e.kind = TableKind(kind)
		if e.offset, err = r.ReadU32(); err != nil {
			return nil, fail(dirPath, err)
		}
		if e.length, err = r.ReadU32(); err != nil {
			return nil, fail(dirPath, err)
		}
		entries = append(entries, e)
	}

	l := &layout{tables: make(map[TableKind]*binary.Reader, len(entries))}
	content := r
	size := content.Remaining()
	for _, e := range entries {
		path := []string{e.kind.String()}
		if !e.kind.known() {
			return nil, errors.TableLayout(dirPath, "unknown table kind 0x%02x", byte(e.kind))
		}
		if d.script && e.kind.moduleOnly() {
			return nil, errors.TableLayout(path, "table not allowed in a script")
		}
		if _, dup := l.tables[e.kind]; dup {
			return nil, errors.TableLayout(path, "duplicate table")
		}
		if e.length == 0 {
			return nil, errors.TableLayout(path, "empty table")
		}
		w, err := content.Window(int(e.offset), int(e.length))
		if err != nil {
			return nil, errors.BufferOverrun(path, int(e.offset)+int(e.length), size)
		}
		l.tables[e.kind] = w
	}

	slices.SortFunc(entries, func(a, b tableEntry) int { return int(a.offset) - int(b.offset) })
	end := 0
	for i, e := range entries {
		switch {
		case i > 0 && int(e.offset) < end:
			return nil, errors.TableLayout([]string{e.kind.String()}, "table overlaps %s", entries[i-1].kind)
		case int(e.offset) > end:
			return nil, errors.TableLayout([]string{e.kind.String()}, "%d unused bytes before table", int(e.offset)-end)
		}
		end = int(e.offset) + int(e.length)
	}
	l.trailer, _ = content.Window(end, size-end)
	return l, nil
}

func (d *decoder) commonTables(l *layout, p *pools) error {
	var err error
	if p.moduleHandles.entries, err = decodeEntries(d, l, TableModuleHandles, readModuleHandle); err != nil {
		return err
	}
	if p.structHandles.entries, err = decodeEntries(d, l, TableStructHandles, readStructHandle); err != nil {
		return err
	}
	if p.functionHandles.entries, err = decodeEntries(d, l, TableFunctionHandles, readFunctionHandle); err != nil {
		return err
	}
	if p.functionInstantiations.entries, err = decodeEntries(d, l, TableFunctionInstantiations, func(r *binary.Reader) (FunctionInstantiation, error) {
		h, err := readIndex[FunctionHandleIndex](r)
		if err != nil {
			return FunctionInstantiation{}, err
		}
		sig, err := readIndex[SignatureIndex](r)
		return FunctionInstantiation{Handle: h, TypeParameters: sig}, err
	}); err != nil {
		return err
	}
	if p.signatures.entries, err = decodeEntries(d, l, TableSignatures, d.signature); err != nil {
		return err
	}
	if p.constantPool.entries, err = decodeEntries(d, l, TableConstantPool, d.constant); err != nil {
		return err
	}
	if p.identifiers.entries, err = decodeEntries(d, l, TableIdentifiers, readIdentifier); err != nil {
		return err
	}
	p.addressIdentifiers.entries, err = decodeEntries(d, l, TableAddressIdentifiers, func(r *binary.Reader) (AccountAddress, error) {
		var a AccountAddress
		raw, err := r.ReadBytes(AddressLength)
		copy(a[:], raw)
		return a, err
	})
	return err
}

// decodeEntries reads entries until the table window is exhausted. An absent
// table yields nil.
func decodeEntries[T any](d *decoder, l *layout, kind TableKind, read func(*binary.Reader) (T, error)) ([]T, error) {
	r, ok := l.tables[kind]
	if !ok {
		return nil, nil
	}
	var out []T
	for i := 0; !r.Done(); i++ {
		if i > TableIndexMax {
			return nil, errors.Malformed(errors.PhaseDeserialize, []string{kind.String()}, "more than %d entries", TableIndexMax+1)
		}
		e, err := read(r)
		if err != nil {
			return nil, fail([]string{kind.String(), itoa(i)}, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// fail attaches path to err and maps cursor failures to error kinds.
func fail(path []string, err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		if len(e.Path) == 0 {
			e.Path = path
		}
		return e
	}
	var short *binary.ShortBufferError
	if stderrors.As(err, &short) {
		return errors.BufferOverrun(path, short.Want, short.Have)
	}
	return errors.New(errors.PhaseDeserialize, errors.KindMalformed).
		Path(path...).
		Detail("%v", err).
		Cause(err).
		Build()
}

func readIndex[I Index](r *binary.Reader) (I, error) {
	v, err := r.ReadU16()
	return I(v), err
}

func readAbilities(r *binary.Reader) (AbilitySet, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	return AbilitySetFromByte(b)
}

func readModuleHandle(r *binary.Reader) (ModuleHandle, error) {
	addr, err := readIndex[AddressIdentifierIndex](r)
	if err != nil {
		return ModuleHandle{}, err
	}
	name, err := readIndex[IdentifierIndex](r)
	return ModuleHandle{Address: addr, Name: name}, err
}

func readStructHandle(r *binary.Reader) (StructHandle, error) {
	var h StructHandle
	var err error
	if h.Module, err = readIndex[ModuleHandleIndex](r); err != nil {
		return h, err
	}
	if h.Name, err = readIndex[IdentifierIndex](r); err != nil {
		return h, err
	}
	if h.Abilities, err = readAbilities(r); err != nil {
		return h, err
	}
	n, err := r.ReadULEB(TypeParameterCountMax)
	if err != nil {
		return h, err
	}
	for i := uint64(0); i < n; i++ {
		c, err := readAbilities(r)
		if err != nil {
			return h, err
		}
		phantom, err := r.ReadByte()
		if err != nil {
			return h, err
		}
		if phantom > 1 {
			return h, errors.Malformed(errors.PhaseDeserialize, nil, "invalid phantom flag 0x%02x", phantom)
		}
		h.TypeParameters = append(h.TypeParameters, StructTypeParameter{Constraints: c, IsPhantom: phantom == 1})
	}
	return h, nil
}

func readFunctionHandle(r *binary.Reader) (FunctionHandle, error) {
	var h FunctionHandle
	var err error
	if h.Module, err = readIndex[ModuleHandleIndex](r); err != nil {
		return h, err
	}
	if h.Name, err = readIndex[IdentifierIndex](r); err != nil {
		return h, err
	}
	if h.Parameters, err = readIndex[SignatureIndex](r); err != nil {
		return h, err
	}
	if h.Return, err = readIndex[SignatureIndex](r); err != nil {
		return h, err
	}
	n, err := r.ReadULEB(TypeParameterCountMax)
	if err != nil {
		return h, err
	}
	for i := uint64(0); i < n; i++ {
		a, err := readAbilities(r)
		if err != nil {
			return h, err
		}
		h.TypeParameters = append(h.TypeParameters, a)
	}
	return h, nil
}

func readIdentifier(r *binary.Reader) (Identifier, error) {
	n, err := r.ReadULEB(IdentifierSizeMax)
	if err != nil {
		return "", err
	}
	raw, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	if !IsValidIdentifier(string(raw)) {
		return "", errors.Malformed(errors.PhaseDeserialize, nil, "invalid identifier %q", raw)
	}
	return Identifier(raw), nil
}

func (d *decoder) signature(r *binary.Reader) (Signature, error) {
	n, err := r.ReadULEB(uint64(d.cfg.MaxSignatureSize))
	if err != nil {
		return nil, err
	}
	var sig Signature
	for i := uint64(0); i < n; i++ {
		t, err := readToken(r, d.cfg.MaxTypeDepth)
		if err != nil {
			return nil, err
		}
		sig = append(sig, t)
	}
	return sig, nil
}

func (d *decoder) constant(r *binary.Reader) (Constant, error) {
	t, err := readToken(r, d.cfg.MaxTypeDepth)
	if err != nil {
		return Constant{}, err
	}
	n, err := r.ReadULEB(ConstantSizeMax)
	if err != nil {
		return Constant{}, err
	}
	if n == 0 {
		return Constant{Type: t}, nil
	}
	data, err := r.ReadBytes(int(n))
	if err != nil {
		return Constant{}, err
	}
	return Constant{Type: t, Data: data}, nil
}

// readToken decodes one token without recursion. Composite nodes wait on a
// stack until their children are complete.
func readToken(r *binary.Reader, maxDepth int) (SignatureToken, error) {
	type frame struct {
		args   []SignatureToken
		arity  int
		kind   TokenKind
		handle StructHandleIndex
	}
	var stack []frame
	for {
		if len(stack)+1 > maxDepth {
			return SignatureToken{}, errors.TypeDepth(errors.PhaseDeserialize, nil, len(stack)+1, maxDepth)
		}
		tag, err := r.ReadByte()
		if err != nil {
			return SignatureToken{}, err
		}
		var tok SignatureToken
		switch tag {
		case tagBool:
			tok = BoolType()
		case tagU8:
			tok = U8Type()
		case tagU64:
			tok = U64Type()
		case tagU128:
			tok = U128Type()
		case tagAddress:
			tok = AddressType()
		case tagSigner:
			tok = SignerType()
		case tagStruct:
			h, err := readIndex[StructHandleIndex](r)
			if err != nil {
				return SignatureToken{}, err
			}
			tok = StructType(h)
		case tagTypeParameter:
			i, err := r.ReadU16()
			if err != nil {
				return SignatureToken{}, err
			}
			tok = TypeParam(i)
		case tagVector:
			stack = append(stack, frame{kind: TokenVector})
			continue
		case tagReference:
			stack = append(stack, frame{kind: TokenReference})
			continue
		case tagMutableReference:
			stack = append(stack, frame{kind: TokenMutableReference})
			continue
		case tagStructInstantiation:
			h, err := readIndex[StructHandleIndex](r)
			if err != nil {
				return SignatureToken{}, err
			}
			n, err := r.ReadULEB(TypeArgumentCountMax)
			if err != nil {
				return SignatureToken{}, err
			}
			if n == 0 {
				return SignatureToken{}, errors.Malformed(errors.PhaseDeserialize, nil, "struct instantiation without type arguments")
			}
			stack = append(stack, frame{kind: TokenStructInstantiation, handle: h, arity: int(n), args: make([]SignatureToken, 0, n)})
			continue
		default:
			return SignatureToken{}, errors.Malformed(errors.PhaseDeserialize, nil, "unknown type tag 0x%02x", tag)
		}

		for {
			if len(stack) == 0 {
				return tok, nil
			}
			top := &stack[len(stack)-1]
			if top.kind == TokenStructInstantiation {
				top.args = append(top.args, tok)
				if len(top.args) < top.arity {
					break
				}
				tok = StructInstantiationType(top.handle, top.args...)
			} else {
				inner := tok
				tok = SignatureToken{Kind: top.kind, Inner: &inner}
			}
			stack = stack[:len(stack)-1]
		}
	}
}

func (d *decoder) structDef(r *binary.Reader) (StructDefinition, error) {
	var def StructDefinition
	var err error
	if def.StructHandle, err = readIndex[StructHandleIndex](r); err != nil {
		return def, err
	}
	tag, err := r.ReadByte()
	if err != nil {
		return def, err
	}
	switch tag {
	case fieldInfoNative:
		def.FieldInformation = NativeFields()
		return def, nil
	case fieldInfoDeclared:
	default:
		return def, errors.Malformed(errors.PhaseDeserialize, nil, "unknown field information tag 0x%02x", tag)
	}
	n, err := r.ReadULEB(FieldCountMax)
	if err != nil {
		return def, err
	}
	var fields []FieldDefinition
	for i := uint64(0); i < n; i++ {
		name, err := readIndex[IdentifierIndex](r)
		if err != nil {
			return def, err
		}
		t, err := readToken(r, d.cfg.MaxTypeDepth)
		if err != nil {
			return def, err
		}
		fields = append(fields, FieldDefinition{Name: name, Signature: TypeSignature{Token: t}})
	}
	def.FieldInformation = DeclaredFields(fields...)
	return def, nil
}

func (d *decoder) functionDef(r *binary.Reader) (FunctionDefinition, error) {
	var def FunctionDefinition
	var err error
	if def.Function, err = readIndex[FunctionHandleIndex](r); err != nil {
		return def, err
	}
	vis, err := r.ReadByte()
	if err != nil {
		return def, err
	}
	def.Visibility = Visibility(vis)
	if !def.Visibility.valid() {
		return def, errors.Malformed(errors.PhaseDeserialize, nil, "invalid visibility 0x%02x", vis)
	}
	flags, err := r.ReadByte()
	if err != nil {
		return def, err
	}
	if flags&^(functionFlagNative|functionFlagEntry) != 0 {
		return def, errors.Malformed(errors.PhaseDeserialize, nil, "unknown function flags 0x%02x", flags)
	}
	if flags&functionFlagEntry != 0 {
		if d.version < VersionEntryFunctions {
			return def, errors.Malformed(errors.PhaseDeserialize, nil, "entry flag requires version %d", VersionEntryFunctions)
		}
		def.IsEntry = true
	}
	n, err := r.ReadULEB(AcquiresCountMax)
	if err != nil {
		return def, err
	}
	for i := uint64(0); i < n; i++ {
		a, err := readIndex[StructDefinitionIndex](r)
		if err != nil {
			return def, err
		}
		def.Acquires = append(def.Acquires, a)
	}
	if flags&functionFlagNative != 0 {
		return def, nil
	}
	def.Code, err = d.codeUnit(r)
	return def, err
}

func (d *decoder) codeUnit(r *binary.Reader) (*CodeUnit, error) {
	locals, err := readIndex[SignatureIndex](r)
	if err != nil {
		return nil, err
	}
	n, err := r.ReadULEB(uint64(d.cfg.MaxCodeLength))
	if err != nil {
		return nil, err
	}
	code := &CodeUnit{Locals: locals}
	for i := uint64(0); i < n; i++ {
		instr, err := readInstruction(r)
		if err != nil {
			return nil, err
		}
		code.Code = append(code.Code, instr)
	}
	return code, nil
}

func readInstruction(r *binary.Reader) (Bytecode, error) {
	b, err := r.ReadByte()
	if err != nil {
		return Bytecode{}, err
	}
	op := Opcode(b)
	instr := Bytecode{Opcode: op}
	switch op.operand() {
	case operandNone:
	case operandBranch:
		off, err := r.ReadU16()
		if err != nil {
			return instr, err
		}
		instr.Imm = BranchImm{Offset: off}
	case operandLocal:
		l, err := r.ReadByte()
		if err != nil {
			return instr, err
		}
		instr.Imm = LocalImm{Local: l}
	case operandU8:
		v, err := r.ReadByte()
		if err != nil {
			return instr, err
		}
		instr.Imm = U8Imm{Value: v}
	case operandU64:
		v, err := r.ReadU64LE()
		if err != nil {
			return instr, err
		}
		instr.Imm = U64Imm{Value: v}
	case operandU128:
		raw, err := r.ReadBytes(16)
		if err != nil {
			return instr, err
		}
		instr.Imm = U128Imm{Value: u128FromLE(raw)}
	case operandConst:
		idx, err := readIndex[ConstantPoolIndex](r)
		if err != nil {
			return instr, err
		}
		instr.Imm = ConstImm{Index: idx}
	case operandCall:
		idx, err := readIndex[FunctionHandleIndex](r)
		if err != nil {
			return instr, err
		}
		instr.Imm = CallImm{Function: idx}
	case operandCallGeneric:
		idx, err := readIndex[FunctionInstantiationIndex](r)
		if err != nil {
			return instr, err
		}
		instr.Imm = CallGenericImm{Instantiation: idx}
	case operandStruct:
		idx, err := readIndex[StructDefinitionIndex](r)
		if err != nil {
			return instr, err
		}
		instr.Imm = StructImm{Def: idx}
	case operandStructGeneric:
		idx, err := readIndex[StructDefInstantiationIndex](r)
		if err != nil {
			return instr, err
		}
		instr.Imm = StructGenericImm{Instantiation: idx}
	case operandField:
		idx, err := readIndex[FieldHandleIndex](r)
		if err != nil {
			return instr, err
		}
		instr.Imm = FieldImm{Field: idx}
	case operandFieldGeneric:
		idx, err := readIndex[FieldInstantiationIndex](r)
		if err != nil {
			return instr, err
		}
		instr.Imm = FieldGenericImm{Instantiation: idx}
	case operandVec, operandVecCount:
		sig, err := readIndex[SignatureIndex](r)
		if err != nil {
			return instr, err
		}
		imm := VecImm{Elem: sig}
		if op.operand() == operandVecCount {
			if imm.Count, err = r.ReadULEB(^uint64(0)); err != nil {
				return instr, err
			}
		}
		instr.Imm = imm
	default:
		return instr, errors.Malformed(errors.PhaseDeserialize, nil, "unknown opcode 0x%02x", b)
	}
	return instr, nil
}

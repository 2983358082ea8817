package format

import (
	"go.uber.org/zap"

	"github.com/wippyai/move-binary-format/errors"
	"github.com/wippyai/move-binary-format/format/internal/binary"
)

// Serialize encodes a module. Output is deterministic: equal modules yield
// identical bytes.
func Serialize(m *CompiledModule) ([]byte, error) {
	if err := checkVersion(m.version); err != nil {
		return nil, err
	}
	tables := make(map[TableKind][]byte, len(tableOrder))
	writeCommonTables(tables, &m.pools)

	tables[TableStructDefs] = encodeTable(m.structDefs.entries, func(w *binary.Writer, d StructDefinition) {
		w.WriteULEB(uint64(d.StructHandle))
		if d.FieldInformation.Native {
			w.Byte(fieldInfoNative)
			return
		}
		w.Byte(fieldInfoDeclared)
		w.WriteULEB(uint64(len(d.FieldInformation.Fields)))
		for i := range d.FieldInformation.Fields {
			f := &d.FieldInformation.Fields[i]
			w.WriteULEB(uint64(f.Name))
			writeToken(w, &f.Signature.Token)
		}
	})
	tables[TableStructDefInstantiations] = encodeTable(m.structDefInstantiations.entries, func(w *binary.Writer, si StructDefInstantiation) {
		w.WriteULEB(uint64(si.Def))
		w.WriteULEB(uint64(si.TypeParameters))
	})

	var fnErr error
	tables[TableFunctionDefs] = encodeTable(m.functionDefs.entries, func(w *binary.Writer, d FunctionDefinition) {
		if fnErr != nil {
			return
		}
		fnErr = writeFunctionDef(w, m.version, d)
	})
	if fnErr != nil {
		return nil, fnErr
	}

	tables[TableFieldHandles] = encodeTable(m.fieldHandles.entries, func(w *binary.Writer, fh FieldHandle) {
		w.WriteULEB(uint64(fh.Owner))
		w.WriteULEB(uint64(fh.Field))
	})
	tables[TableFieldInstantiations] = encodeTable(m.fieldInstantiations.entries, func(w *binary.Writer, fi FieldInstantiation) {
		w.WriteULEB(uint64(fi.Handle))
		w.WriteULEB(uint64(fi.TypeParameters))
	})
	tables[TableFriendDecls] = encodeTable(m.friendDecls, writeModuleHandle)

	trailer := binary.NewWriter()
	trailer.WriteULEB(uint64(m.selfHandle))

	out := assemble(m.version, tables, trailer.Bytes())
	Logger().Debug("serialized module",
		zap.Int("bytes", len(out)),
		zap.Uint32("version", m.version),
		zap.Int("functions", m.functionDefs.Len()),
		zap.Int("structs", m.structDefs.Len()))
	return out, nil
}

// SerializeScript encodes a script.
func SerializeScript(s *CompiledScript) ([]byte, error) {
	if err := checkVersion(s.version); err != nil {
		return nil, err
	}
	tables := make(map[TableKind][]byte, len(tableOrder))
	writeCommonTables(tables, &s.pools)

	trailer := binary.NewWriter()
	trailer.WriteULEB(uint64(len(s.typeParameters)))
	for _, a := range s.typeParameters {
		trailer.Byte(a.Byte())
	}
	trailer.WriteULEB(uint64(s.parameters))
	if err := writeCodeUnit(trailer, &s.code); err != nil {
		return nil, err
	}

	out := assemble(s.version, tables, trailer.Bytes())
	Logger().Debug("serialized script", zap.Int("bytes", len(out)))
	return out, nil
}

func checkVersion(v uint32) error {
	if v < VersionMin || v > VersionMax {
		return errors.New(errors.PhaseSerialize, errors.KindMalformedHeader).
			Detail("unsupported version %d", v).
			Value(v).
			Build()
	}
	return nil
}

func writeCommonTables(tables map[TableKind][]byte, p *pools) {
	tables[TableModuleHandles] = encodeTable(p.moduleHandles.entries, writeModuleHandle)
	tables[TableStructHandles] = encodeTable(p.structHandles.entries, func(w *binary.Writer, h StructHandle) {
		w.WriteULEB(uint64(h.Module))
		w.WriteULEB(uint64(h.Name))
		w.Byte(h.Abilities.Byte())
		w.WriteULEB(uint64(len(h.TypeParameters)))
		for _, tp := range h.TypeParameters {
			w.Byte(tp.Constraints.Byte())
			if tp.IsPhantom {
				w.Byte(1)
			} else {
				w.Byte(0)
			}
		}
	})
	tables[TableFunctionHandles] = encodeTable(p.functionHandles.entries, func(w *binary.Writer, h FunctionHandle) {
		w.WriteULEB(uint64(h.Module))
		w.WriteULEB(uint64(h.Name))
		w.WriteULEB(uint64(h.Parameters))
		w.WriteULEB(uint64(h.Return))
		w.WriteULEB(uint64(len(h.TypeParameters)))
		for _, a := range h.TypeParameters {
			w.Byte(a.Byte())
		}
	})
	tables[TableFunctionInstantiations] = encodeTable(p.functionInstantiations.entries, func(w *binary.Writer, fi FunctionInstantiation) {
		w.WriteULEB(uint64(fi.Handle))
		w.WriteULEB(uint64(fi.TypeParameters))
	})
	tables[TableSignatures] = encodeTable(p.signatures.entries, writeSignature)
	tables[TableConstantPool] = encodeTable(p.constantPool.entries, func(w *binary.Writer, c Constant) {
		writeToken(w, &c.Type)
		w.WriteULEB(uint64(len(c.Data)))
		w.WriteBytes(c.Data)
	})
	tables[TableIdentifiers] = encodeTable(p.identifiers.entries, func(w *binary.Writer, id Identifier) {
		w.WriteULEB(uint64(len(id)))
		w.WriteBytes([]byte(id))
	})
	tables[TableAddressIdentifiers] = encodeTable(p.addressIdentifiers.entries, func(w *binary.Writer, a AccountAddress) {
		w.WriteBytes(a[:])
	})
}

func encodeTable[T any](entries []T, write func(*binary.Writer, T)) []byte {
	if len(entries) == 0 {
		return nil
	}
	w := binary.NewWriter()
	for _, e := range entries {
		write(w, e)
	}
	return w.Bytes()
}

// assemble lays out header, directory, tables in tableOrder, then trailer.
// Empty tables are omitted.
func assemble(version uint32, tables map[TableKind][]byte, trailer []byte) []byte {
	dir := binary.NewWriter()
	var count uint64
	var offset uint64
	for _, kind := range tableOrder {
		data := tables[kind]
		if len(data) == 0 {
			continue
		}
		dir.Byte(byte(kind))
		dir.WriteULEB(offset)
		dir.WriteULEB(uint64(len(data)))
		offset += uint64(len(data))
		count++
	}

	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(version)
	w.WriteULEB(count)
	w.WriteBytes(dir.Bytes())
	for _, kind := range tableOrder {
		w.WriteBytes(tables[kind])
	}
	w.WriteBytes(trailer)
	return w.Bytes()
}

func writeModuleHandle(w *binary.Writer, h ModuleHandle) {
	w.WriteULEB(uint64(h.Address))
	w.WriteULEB(uint64(h.Name))
}

func writeSignature(w *binary.Writer, s Signature) {
	w.WriteULEB(uint64(len(s)))
	for i := range s {
		writeToken(w, &s[i])
	}
}

// writeToken emits the preorder encoding of t: each node's tag followed by
// its own operands, children after their parent.
func writeToken(w *binary.Writer, t *SignatureToken) {
	for n := range t.Preorder() {
		switch n.Kind {
		case TokenBool:
			w.Byte(tagBool)
		case TokenU8:
			w.Byte(tagU8)
		case TokenU64:
			w.Byte(tagU64)
		case TokenU128:
			w.Byte(tagU128)
		case TokenAddress:
			w.Byte(tagAddress)
		case TokenSigner:
			w.Byte(tagSigner)
		case TokenVector:
			w.Byte(tagVector)
		case TokenReference:
			w.Byte(tagReference)
		case TokenMutableReference:
			w.Byte(tagMutableReference)
		case TokenStruct:
			w.Byte(tagStruct)
			w.WriteULEB(uint64(n.Struct))
		case TokenStructInstantiation:
			w.Byte(tagStructInstantiation)
			w.WriteULEB(uint64(n.Struct))
			w.WriteULEB(uint64(len(n.TypeArgs)))
		case TokenTypeParameter:
			w.Byte(tagTypeParameter)
			w.WriteULEB(uint64(n.TypeParam))
		}
	}
}

func writeFunctionDef(w *binary.Writer, version uint32, d FunctionDefinition) error {
	if !d.Visibility.valid() {
		return errors.New(errors.PhaseSerialize, errors.KindMalformed).
			Path("function_defs").
			Detail("invalid visibility %d", d.Visibility).
			Build()
	}
	var flags byte
	if d.IsNative() {
		flags |= functionFlagNative
	}
	if d.IsEntry {
		if version < VersionEntryFunctions {
			return errors.New(errors.PhaseSerialize, errors.KindMalformed).
				Path("function_defs").
				Detail("entry functions require version %d, module is version %d", VersionEntryFunctions, version).
				Build()
		}
		flags |= functionFlagEntry
	}
	w.WriteULEB(uint64(d.Function))
	w.Byte(byte(d.Visibility))
	w.Byte(flags)
	w.WriteULEB(uint64(len(d.Acquires)))
	for _, a := range d.Acquires {
		w.WriteULEB(uint64(a))
	}
	if d.Code != nil {
		return writeCodeUnit(w, d.Code)
	}
	return nil
}

func writeCodeUnit(w *binary.Writer, c *CodeUnit) error {
	if len(c.Code) > BytecodeCountMax {
		return errors.New(errors.PhaseSerialize, errors.KindMalformed).
			Path("code").
			Detail("%d instructions exceed %d", len(c.Code), BytecodeCountMax).
			Build()
	}
	w.WriteULEB(uint64(c.Locals))
	w.WriteULEB(uint64(len(c.Code)))
	for i, instr := range c.Code {
		if !instr.Opcode.Valid() || !instr.immMatches() {
			return errors.New(errors.PhaseSerialize, errors.KindMalformed).
				Path("code", itoa(i)).
				Detail("operand %T does not fit opcode %s", instr.Imm, instr.Opcode).
				Build()
		}
		writeInstruction(w, instr)
	}
	return nil
}

// writeInstruction encodes one instruction whose operand already matches.
func writeInstruction(w *binary.Writer, instr Bytecode) {
	w.Byte(byte(instr.Opcode))
	switch imm := instr.Imm.(type) {
	case nil:
	case BranchImm:
		w.WriteULEB(uint64(imm.Offset))
	case LocalImm:
		w.Byte(imm.Local)
	case U8Imm:
		w.Byte(imm.Value)
	case U64Imm:
		w.WriteU64LE(imm.Value)
	case U128Imm:
		w.WriteBytes(u128ToLE(&imm.Value))
	case ConstImm:
		w.WriteULEB(uint64(imm.Index))
	case CallImm:
		w.WriteULEB(uint64(imm.Function))
	case CallGenericImm:
		w.WriteULEB(uint64(imm.Instantiation))
	case StructImm:
		w.WriteULEB(uint64(imm.Def))
	case StructGenericImm:
		w.WriteULEB(uint64(imm.Instantiation))
	case FieldImm:
		w.WriteULEB(uint64(imm.Field))
	case FieldGenericImm:
		w.WriteULEB(uint64(imm.Instantiation))
	case VecImm:
		w.WriteULEB(uint64(imm.Elem))
		if instr.Opcode.operand() == operandVecCount {
			w.WriteULEB(imm.Count)
		}
	}
}

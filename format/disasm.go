package format

import (
	"fmt"
	"io"
	"strings"
)

// FormatToken renders a token with struct names resolved against the pools.
func (p *pools) FormatToken(t *SignatureToken) string {
	s, _ := Fold(t, func(n *SignatureToken, kids []string) (string, error) {
		switch n.Kind {
		case TokenVector:
			return "vector<" + strings.Join(kids, "") + ">", nil
		case TokenReference:
			return "&" + strings.Join(kids, ""), nil
		case TokenMutableReference:
			return "&mut " + strings.Join(kids, ""), nil
		case TokenStruct:
			return p.qualifiedStruct(n.Struct), nil
		case TokenStructInstantiation:
			return p.qualifiedStruct(n.Struct) + "<" + strings.Join(kids, ", ") + ">", nil
		case TokenTypeParameter:
			return fmt.Sprintf("T%d", n.TypeParam), nil
		default:
			return n.Kind.String(), nil
		}
	})
	return s
}

// FormatSignature renders a signature as a parenthesised list.
func (p *pools) FormatSignature(sig Signature) string {
	parts := make([]string, len(sig))
	for i := range sig {
		parts[i] = p.FormatToken(&sig[i])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (p *pools) qualifiedStruct(i StructHandleIndex) string {
	if !p.structHandles.Has(i) {
		return fmt.Sprintf("S%d", i)
	}
	h := p.structHandles.entries[i]
	name, err := p.identifiers.Get(h.Name)
	if err != nil {
		return fmt.Sprintf("%sS%d", p.moduleName(h.Module), i)
	}
	return p.moduleName(h.Module) + string(name)
}

// moduleName returns "M::" for a module handle, empty for the script's own.
func (p *pools) moduleName(i ModuleHandleIndex) string {
	if !p.moduleHandles.Has(i) {
		return fmt.Sprintf("M%d::", i)
	}
	name := p.IdentifierAt(p.ModuleHandleAt(i).Name)
	if name == SelfIdentifier {
		return ""
	}
	return string(name) + "::"
}

func (p *pools) describe(instr Bytecode, m *CompiledModule) string {
	switch imm := instr.Imm.(type) {
	case CallImm:
		h := p.FunctionHandleAt(imm.Function)
		return instr.Opcode.String() + " " + p.moduleName(h.Module) + string(p.IdentifierAt(h.Name))
	case CallGenericImm:
		fi := p.FunctionInstantiationAt(imm.Instantiation)
		h := p.FunctionHandleAt(fi.Handle)
		return instr.Opcode.String() + " " + p.moduleName(h.Module) + string(p.IdentifierAt(h.Name)) +
			"<" + strings.Trim(p.FormatSignature(p.SignatureAt(fi.TypeParameters)), "()") + ">"
	case ConstImm:
		c := p.ConstantAt(imm.Index)
		if v, err := c.Value(); err == nil {
			return fmt.Sprintf("%s[%d](%v: %s)", instr.Opcode, imm.Index, v, p.FormatToken(&c.Type))
		}
	case StructImm:
		if m != nil {
			return instr.Opcode.String() + " " + string(m.StructName(m.StructDefAt(imm.Def).StructHandle))
		}
	case FieldImm:
		if m != nil {
			fh := m.FieldHandleAt(imm.Field)
			def := m.StructDefAt(fh.Owner)
			if f, ok := def.Field(fh.Field); ok {
				return instr.Opcode.String() + " " + string(m.StructName(def.StructHandle)) + "." + string(m.IdentifierAt(f.Name))
			}
		}
	case VecImm:
		sig := p.SignatureAt(imm.Elem)
		elem := strings.Trim(p.FormatSignature(sig), "()")
		if instr.Opcode.operand() == operandVecCount {
			return fmt.Sprintf("%s<%s>(%d)", instr.Opcode, elem, imm.Count)
		}
		return fmt.Sprintf("%s<%s>", instr.Opcode, elem)
	}
	return instr.String()
}

func (p *pools) writeCode(b *strings.Builder, code *CodeUnit, m *CompiledModule) {
	targets := code.BranchTargets()
	for i, instr := range code.Code {
		if targets.Test(uint(i)) {
			fmt.Fprintf(b, "  L%d:\n", i)
		}
		fmt.Fprintf(b, "    %d: %s\n", i, p.describe(instr, m))
	}
}

func typeParamList(constraints []AbilitySet, phantom []bool) string {
	if len(constraints) == 0 {
		return ""
	}
	parts := make([]string, len(constraints))
	for i, c := range constraints {
		s := fmt.Sprintf("T%d", i)
		if phantom != nil && phantom[i] {
			s = "phantom " + s
		}
		if !c.IsEmpty() {
			s += ": " + c.String()
		}
		parts[i] = s
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// Disassemble writes a readable listing of a checked module to w.
func Disassemble(w io.Writer, m *CompiledModule) error {
	var b strings.Builder
	fmt.Fprintf(&b, "// version %d\n", m.version)
	fmt.Fprintf(&b, "module %s {\n", m.SelfID())
	for _, dep := range m.ImmediateDependencies() {
		fmt.Fprintf(&b, "  use %s;\n", dep)
	}
	for _, f := range m.Friends() {
		fmt.Fprintf(&b, "  friend %s;\n", f)
	}

	for _, def := range m.structDefs.each() {
		b.WriteByte('\n')
		m.writeStruct(&b, def)
	}
	for _, def := range m.functionDefs.each() {
		b.WriteByte('\n')
		m.writeFunction(&b, def)
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// DisassembleStruct writes the declaration of one struct definition to w.
func DisassembleStruct(w io.Writer, m *CompiledModule, idx StructDefinitionIndex) error {
	def, err := m.structDefs.Get(idx)
	if err != nil {
		return err
	}
	var b strings.Builder
	m.writeStruct(&b, def)
	_, err = io.WriteString(w, b.String())
	return err
}

// DisassembleFunction writes the listing of one function definition to w.
func DisassembleFunction(w io.Writer, m *CompiledModule, idx FunctionDefinitionIndex) error {
	def, err := m.functionDefs.Get(idx)
	if err != nil {
		return err
	}
	var b strings.Builder
	m.writeFunction(&b, def)
	_, err = io.WriteString(w, b.String())
	return err
}

func (m *CompiledModule) writeStruct(b *strings.Builder, def StructDefinition) {
	h := m.StructHandleAt(def.StructHandle)
	if def.IsNative() {
		b.WriteString("  native ")
	} else {
		b.WriteString("  ")
	}
	fmt.Fprintf(b, "struct %s%s", m.IdentifierAt(h.Name), typeParamList(h.TypeParameterConstraints(), h.PhantomParameters()))
	if !h.Abilities.IsEmpty() {
		fmt.Fprintf(b, " has %s", strings.Join(h.Abilities.Names(), ", "))
	}
	if def.IsNative() {
		b.WriteString("\n")
		return
	}
	b.WriteString(" {\n")
	for _, f := range def.FieldInformation.Fields {
		fmt.Fprintf(b, "    %s: %s\n", m.IdentifierAt(f.Name), m.FormatToken(&f.Signature.Token))
	}
	b.WriteString("  }\n")
}

func (m *CompiledModule) writeFunction(b *strings.Builder, def FunctionDefinition) {
	h := m.FunctionHandleAt(def.Function)
	b.WriteString("  ")
	if def.IsEntry {
		b.WriteString("entry ")
	}
	if def.Visibility != VisibilityPrivate {
		b.WriteString(def.Visibility.String() + " ")
	}
	if def.IsNative() {
		b.WriteString("native ")
	}
	fmt.Fprintf(b, "fun %s%s%s", m.IdentifierAt(h.Name), typeParamList(h.TypeParameters, nil), m.FormatSignature(m.SignatureAt(h.Parameters)))
	if ret := m.SignatureAt(h.Return); len(ret) > 0 {
		fmt.Fprintf(b, ": %s", m.FormatSignature(ret))
	}
	if len(def.Acquires) > 0 {
		names := make([]string, len(def.Acquires))
		for i, a := range def.Acquires {
			names[i] = string(m.StructName(m.StructDefAt(a).StructHandle))
		}
		fmt.Fprintf(b, " acquires %s", strings.Join(names, ", "))
	}
	if def.Code == nil {
		b.WriteString(";\n")
		return
	}
	b.WriteString(" {\n")
	if locals := m.SignatureAt(def.Code.Locals); len(locals) > 0 {
		fmt.Fprintf(b, "    locals: %s\n", m.FormatSignature(locals))
	}
	m.writeCode(b, def.Code, m)
	b.WriteString("  }\n")
}

// DisassembleScript writes a readable listing of a checked script to w.
func DisassembleScript(w io.Writer, s *CompiledScript) error {
	var b strings.Builder
	fmt.Fprintf(&b, "// version %d\n", s.version)
	b.WriteString("script {\n")
	for _, dep := range s.ImmediateDependencies() {
		fmt.Fprintf(&b, "  use %s;\n", dep)
	}
	fmt.Fprintf(&b, "\n  fun main%s%s {\n", typeParamList(s.typeParameters, nil), s.FormatSignature(s.SignatureAt(s.parameters)))
	if locals := s.SignatureAt(s.code.Locals); len(locals) > 0 {
		fmt.Fprintf(&b, "    locals: %s\n", s.FormatSignature(locals))
	}
	s.writeCode(&b, &s.code, nil)
	b.WriteString("  }\n}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

package format

import (
	"strconv"

	"github.com/bits-and-blooms/bitset"
	"github.com/holiman/uint256"
)

// Opcode identifies a bytecode instruction. Values are the wire encoding.
type Opcode byte

const (
	OpPop                    Opcode = 0x01
	OpRet                    Opcode = 0x02
	OpBrTrue                 Opcode = 0x03
	OpBrFalse                Opcode = 0x04
	OpBranch                 Opcode = 0x05
	OpLdU64                  Opcode = 0x06
	OpLdConst                Opcode = 0x07
	OpLdTrue                 Opcode = 0x08
	OpLdFalse                Opcode = 0x09
	OpCopyLoc                Opcode = 0x0A
	OpMoveLoc                Opcode = 0x0B
	OpStLoc                  Opcode = 0x0C
	OpMutBorrowLoc           Opcode = 0x0D
	OpImmBorrowLoc           Opcode = 0x0E
	OpMutBorrowField         Opcode = 0x0F
	OpImmBorrowField         Opcode = 0x10
	OpCall                   Opcode = 0x11
	OpPack                   Opcode = 0x12
	OpUnpack                 Opcode = 0x13
	OpReadRef                Opcode = 0x14
	OpWriteRef               Opcode = 0x15
	OpAdd                    Opcode = 0x16
	OpSub                    Opcode = 0x17
	OpMul                    Opcode = 0x18
	OpMod                    Opcode = 0x19
	OpDiv                    Opcode = 0x1A
	OpBitOr                  Opcode = 0x1B
	OpBitAnd                 Opcode = 0x1C
	OpXor                    Opcode = 0x1D
	OpOr                     Opcode = 0x1E
	OpAnd                    Opcode = 0x1F
	OpNot                    Opcode = 0x20
	OpEq                     Opcode = 0x21
	OpNeq                    Opcode = 0x22
	OpLt                     Opcode = 0x23
	OpGt                     Opcode = 0x24
	OpLe                     Opcode = 0x25
	OpGe                     Opcode = 0x26
	OpAbort                  Opcode = 0x27
	OpNop                    Opcode = 0x28
	OpExists                 Opcode = 0x29
	OpMutBorrowGlobal        Opcode = 0x2A
	OpImmBorrowGlobal        Opcode = 0x2B
	OpMoveFrom               Opcode = 0x2C
	OpMoveTo                 Opcode = 0x2D
	OpFreezeRef              Opcode = 0x2E
	OpShl                    Opcode = 0x2F
	OpShr                    Opcode = 0x30
	OpLdU8                   Opcode = 0x31
	OpLdU128                 Opcode = 0x32
	OpCastU8                 Opcode = 0x33
	OpCastU64                Opcode = 0x34
	OpCastU128               Opcode = 0x35
	OpMutBorrowFieldGeneric  Opcode = 0x36
	OpImmBorrowFieldGeneric  Opcode = 0x37
	OpCallGeneric            Opcode = 0x38
	OpPackGeneric            Opcode = 0x39
	OpUnpackGeneric          Opcode = 0x3A
	OpExistsGeneric          Opcode = 0x3B
	OpMutBorrowGlobalGeneric Opcode = 0x3C
	OpImmBorrowGlobalGeneric Opcode = 0x3D
	OpMoveFromGeneric        Opcode = 0x3E
	OpMoveToGeneric          Opcode = 0x3F
	OpVecPack                Opcode = 0x40
	OpVecLen                 Opcode = 0x41
	OpVecImmBorrow           Opcode = 0x42
	OpVecMutBorrow           Opcode = 0x43
	OpVecPushBack            Opcode = 0x44
	OpVecPopBack             Opcode = 0x45
	OpVecUnpack              Opcode = 0x46
	OpVecSwap                Opcode = 0x47
)

var opcodeNames = map[Opcode]string{
	OpPop:                    "Pop",
	OpRet:                    "Ret",
	OpBrTrue:                 "BrTrue",
	OpBrFalse:                "BrFalse",
	OpBranch:                 "Branch",
	OpLdU64:                  "LdU64",
	OpLdConst:                "LdConst",
	OpLdTrue:                 "LdTrue",
	OpLdFalse:                "LdFalse",
	OpCopyLoc:                "CopyLoc",
	OpMoveLoc:                "MoveLoc",
	OpStLoc:                  "StLoc",
	OpMutBorrowLoc:           "MutBorrowLoc",
	OpImmBorrowLoc:           "ImmBorrowLoc",
	OpMutBorrowField:         "MutBorrowField",
	OpImmBorrowField:         "ImmBorrowField",
	OpCall:                   "Call",
	OpPack:                   "Pack",
	OpUnpack:                 "Unpack",
	OpReadRef:                "ReadRef",
	OpWriteRef:               "WriteRef",
	OpAdd:                    "Add",
	OpSub:                    "Sub",
	OpMul:                    "Mul",
	OpMod:                    "Mod",
	OpDiv:                    "Div",
	OpBitOr:                  "BitOr",
	OpBitAnd:                 "BitAnd",
	OpXor:                    "Xor",
	OpOr:                     "Or",
	OpAnd:                    "And",
	OpNot:                    "Not",
	OpEq:                     "Eq",
	OpNeq:                    "Neq",
	OpLt:                     "Lt",
	OpGt:                     "Gt",
	OpLe:                     "Le",
	OpGe:                     "Ge",
	OpAbort:                  "Abort",
	OpNop:                    "Nop",
	OpExists:                 "Exists",
	OpMutBorrowGlobal:        "MutBorrowGlobal",
	OpImmBorrowGlobal:        "ImmBorrowGlobal",
	OpMoveFrom:               "MoveFrom",
	OpMoveTo:                 "MoveTo",
	OpFreezeRef:              "FreezeRef",
	OpShl:                    "Shl",
	OpShr:                    "Shr",
	OpLdU8:                   "LdU8",
	OpLdU128:                 "LdU128",
	OpCastU8:                 "CastU8",
	OpCastU64:                "CastU64",
	OpCastU128:               "CastU128",
	OpMutBorrowFieldGeneric:  "MutBorrowFieldGeneric",
	OpImmBorrowFieldGeneric:  "ImmBorrowFieldGeneric",
	OpCallGeneric:            "CallGeneric",
	OpPackGeneric:            "PackGeneric",
	OpUnpackGeneric:          "UnpackGeneric",
	OpExistsGeneric:          "ExistsGeneric",
	OpMutBorrowGlobalGeneric: "MutBorrowGlobalGeneric",
	OpImmBorrowGlobalGeneric: "ImmBorrowGlobalGeneric",
	OpMoveFromGeneric:        "MoveFromGeneric",
	OpMoveToGeneric:          "MoveToGeneric",
	OpVecPack:                "VecPack",
	OpVecLen:                 "VecLen",
	OpVecImmBorrow:           "VecImmBorrow",
	OpVecMutBorrow:           "VecMutBorrow",
	OpVecPushBack:            "VecPushBack",
	OpVecPopBack:             "VecPopBack",
	OpVecUnpack:              "VecUnpack",
	OpVecSwap:                "VecSwap",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "Opcode(0x" + strconv.FormatUint(uint64(op), 16) + ")"
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeNames[op]
	return ok
}

// operandKind describes the immediate an opcode carries.
type operandKind uint8

const (
	operandNone operandKind = iota
	operandBranch
	operandLocal
	operandU8
	operandU64
	operandU128
	operandConst
	operandCall
	operandCallGeneric
	operandStruct
	operandStructGeneric
	operandField
	operandFieldGeneric
	operandVec
	operandVecCount
	operandUnknown
)

func (op Opcode) operand() operandKind {
	switch op {
	case OpPop, OpRet, OpLdTrue, OpLdFalse, OpReadRef, OpWriteRef, OpFreezeRef,
		OpAdd, OpSub, OpMul, OpMod, OpDiv, OpBitOr, OpBitAnd, OpXor, OpShl, OpShr,
		OpOr, OpAnd, OpNot, OpEq, OpNeq, OpLt, OpGt, OpLe, OpGe, OpAbort, OpNop,
		OpCastU8, OpCastU64, OpCastU128:
		return operandNone
	case OpBrTrue, OpBrFalse, OpBranch:
		return operandBranch
	case OpCopyLoc, OpMoveLoc, OpStLoc, OpMutBorrowLoc, OpImmBorrowLoc:
		return operandLocal
	case OpLdU8:
		return operandU8
	case OpLdU64:
		return operandU64
	case OpLdU128:
		return operandU128
	case OpLdConst:
		return operandConst
	case OpCall:
		return operandCall
	case OpCallGeneric:
		return operandCallGeneric
	case OpPack, OpUnpack, OpExists, OpMutBorrowGlobal, OpImmBorrowGlobal, OpMoveFrom, OpMoveTo:
		return operandStruct
	case OpPackGeneric, OpUnpackGeneric, OpExistsGeneric, OpMutBorrowGlobalGeneric,
		OpImmBorrowGlobalGeneric, OpMoveFromGeneric, OpMoveToGeneric:
		return operandStructGeneric
	case OpMutBorrowField, OpImmBorrowField:
		return operandField
	case OpMutBorrowFieldGeneric, OpImmBorrowFieldGeneric:
		return operandFieldGeneric
	case OpVecLen, OpVecImmBorrow, OpVecMutBorrow, OpVecPushBack, OpVecPopBack, OpVecSwap:
		return operandVec
	case OpVecPack, OpVecUnpack:
		return operandVecCount
	}
	return operandUnknown
}

// Bytecode is one instruction. Imm holds the operand whose type is fixed by
// the opcode, or nil for opcodes without one.
type Bytecode struct {
	Imm    any
	Opcode Opcode
}

// BranchImm is the absolute target of BrTrue, BrFalse and Branch.
type BranchImm struct {
	Offset CodeOffset
}

// LocalImm is the local operand of CopyLoc, MoveLoc, StLoc and the local borrows.
type LocalImm struct {
	Local LocalIndex
}

// U8Imm is the literal of LdU8.
type U8Imm struct {
	Value uint8
}

// U64Imm is the literal of LdU64.
type U64Imm struct {
	Value uint64
}

// U128Imm is the literal of LdU128. Only the low 128 bits are meaningful.
type U128Imm struct {
	Value uint256.Int
}

// ConstImm is the constant pool operand of LdConst.
type ConstImm struct {
	Index ConstantPoolIndex
}

// CallImm is the target of Call.
type CallImm struct {
	Function FunctionHandleIndex
}

// CallGenericImm is the target of CallGeneric.
type CallGenericImm struct {
	Instantiation FunctionInstantiationIndex
}

// StructImm is the struct operand of Pack, Unpack and the global storage ops.
type StructImm struct {
	Def StructDefinitionIndex
}

// StructGenericImm is the generic counterpart of StructImm.
type StructGenericImm struct {
	Instantiation StructDefInstantiationIndex
}

// FieldImm is the field operand of the field borrows.
type FieldImm struct {
	Field FieldHandleIndex
}

// FieldGenericImm is the generic counterpart of FieldImm.
type FieldGenericImm struct {
	Instantiation FieldInstantiationIndex
}

// VecImm is the element type operand of vector ops. Count is used by
// VecPack and VecUnpack only.
type VecImm struct {
	Count uint64
	Elem  SignatureIndex
}

// Op returns an instruction without an operand.
func Op(op Opcode) Bytecode { return Bytecode{Opcode: op} }

// BranchTo returns a branch instruction targeting offset.
func BranchTo(op Opcode, offset CodeOffset) Bytecode {
	return Bytecode{Opcode: op, Imm: BranchImm{Offset: offset}}
}

// Local returns a local instruction.
func Local(op Opcode, idx LocalIndex) Bytecode {
	return Bytecode{Opcode: op, Imm: LocalImm{Local: idx}}
}

// LdU8 returns a u8 literal load.
func LdU8(v uint8) Bytecode { return Bytecode{Opcode: OpLdU8, Imm: U8Imm{Value: v}} }

// LdU64 returns a u64 literal load.
func LdU64(v uint64) Bytecode { return Bytecode{Opcode: OpLdU64, Imm: U64Imm{Value: v}} }

// LdU128 returns a u128 literal load.
func LdU128(v *uint256.Int) Bytecode {
	return Bytecode{Opcode: OpLdU128, Imm: U128Imm{Value: *v}}
}

// LdConst returns a constant load.
func LdConst(idx ConstantPoolIndex) Bytecode {
	return Bytecode{Opcode: OpLdConst, Imm: ConstImm{Index: idx}}
}

// Call returns a call to a non-generic function.
func Call(h FunctionHandleIndex) Bytecode {
	return Bytecode{Opcode: OpCall, Imm: CallImm{Function: h}}
}

// CallGeneric returns a call through a function instantiation.
func CallGeneric(i FunctionInstantiationIndex) Bytecode {
	return Bytecode{Opcode: OpCallGeneric, Imm: CallGenericImm{Instantiation: i}}
}

// StructOp returns a struct instruction such as Pack or MoveTo.
func StructOp(op Opcode, def StructDefinitionIndex) Bytecode {
	return Bytecode{Opcode: op, Imm: StructImm{Def: def}}
}

// StructGenericOp returns a generic struct instruction such as PackGeneric.
func StructGenericOp(op Opcode, inst StructDefInstantiationIndex) Bytecode {
	return Bytecode{Opcode: op, Imm: StructGenericImm{Instantiation: inst}}
}

// FieldOp returns a field borrow.
func FieldOp(op Opcode, field FieldHandleIndex) Bytecode {
	return Bytecode{Opcode: op, Imm: FieldImm{Field: field}}
}

// FieldGenericOp returns a generic field borrow.
func FieldGenericOp(op Opcode, inst FieldInstantiationIndex) Bytecode {
	return Bytecode{Opcode: op, Imm: FieldGenericImm{Instantiation: inst}}
}

// VecOp returns a vector instruction. count is ignored except by VecPack and
// VecUnpack.
func VecOp(op Opcode, elem SignatureIndex, count uint64) Bytecode {
	if op.operand() != operandVecCount {
		count = 0
	}
	return Bytecode{Opcode: op, Imm: VecImm{Elem: elem, Count: count}}
}

// IsBranch reports whether the instruction transfers control to an offset.
func (b Bytecode) IsBranch() bool {
	return b.Opcode.operand() == operandBranch
}

// IsUnconditionalBranch reports whether control never falls through.
func (b Bytecode) IsUnconditionalBranch() bool {
	switch b.Opcode {
	case OpRet, OpAbort, OpBranch:
		return true
	}
	return false
}

// Offset returns the branch target of a branch instruction.
func (b Bytecode) Offset() (CodeOffset, bool) {
	if !b.IsBranch() {
		return 0, false
	}
	imm, ok := b.Imm.(BranchImm)
	if !ok {
		return 0, false
	}
	return imm.Offset, true
}

func (b Bytecode) String() string {
	name := b.Opcode.String()
	switch imm := b.Imm.(type) {
	case nil:
		return name
	case BranchImm:
		return name + "(" + strconv.Itoa(int(imm.Offset)) + ")"
	case LocalImm:
		return name + "(" + strconv.Itoa(int(imm.Local)) + ")"
	case U8Imm:
		return name + "(" + strconv.Itoa(int(imm.Value)) + ")"
	case U64Imm:
		return name + "(" + strconv.FormatUint(imm.Value, 10) + ")"
	case U128Imm:
		return name + "(" + imm.Value.Dec() + ")"
	case ConstImm:
		return name + "[" + strconv.Itoa(int(imm.Index)) + "]"
	case CallImm:
		return name + "(" + strconv.Itoa(int(imm.Function)) + ")"
	case CallGenericImm:
		return name + "(" + strconv.Itoa(int(imm.Instantiation)) + ")"
	case StructImm:
		return name + "(" + strconv.Itoa(int(imm.Def)) + ")"
	case StructGenericImm:
		return name + "(" + strconv.Itoa(int(imm.Instantiation)) + ")"
	case FieldImm:
		return name + "(" + strconv.Itoa(int(imm.Field)) + ")"
	case FieldGenericImm:
		return name + "(" + strconv.Itoa(int(imm.Instantiation)) + ")"
	case VecImm:
		if b.Opcode.operand() == operandVecCount {
			return name + "(" + strconv.Itoa(int(imm.Elem)) + ", " + strconv.FormatUint(imm.Count, 10) + ")"
		}
		return name + "(" + strconv.Itoa(int(imm.Elem)) + ")"
	default:
		return name + "(?)"
	}
}

// immMatches reports whether Imm has the type the opcode requires.
func (b Bytecode) immMatches() bool {
	switch b.Opcode.operand() {
	case operandNone:
		return b.Imm == nil
	case operandBranch:
		_, ok := b.Imm.(BranchImm)
		return ok
	case operandLocal:
		_, ok := b.Imm.(LocalImm)
		return ok
	case operandU8:
		_, ok := b.Imm.(U8Imm)
		return ok
	case operandU64:
		_, ok := b.Imm.(U64Imm)
		return ok
	case operandU128:
		_, ok := b.Imm.(U128Imm)
		return ok
	case operandConst:
		_, ok := b.Imm.(ConstImm)
		return ok
	case operandCall:
		_, ok := b.Imm.(CallImm)
		return ok
	case operandCallGeneric:
		_, ok := b.Imm.(CallGenericImm)
		return ok
	case operandStruct:
		_, ok := b.Imm.(StructImm)
		return ok
	case operandStructGeneric:
		_, ok := b.Imm.(StructGenericImm)
		return ok
	case operandField:
		_, ok := b.Imm.(FieldImm)
		return ok
	case operandFieldGeneric:
		_, ok := b.Imm.(FieldGenericImm)
		return ok
	case operandVec, operandVecCount:
		_, ok := b.Imm.(VecImm)
		return ok
	}
	return false
}

// CodeUnit is the body of a function: its locals and instruction stream.
// Locals holds the non-parameter locals; parameters come first in the local
// index space.
type CodeUnit struct {
	Code   []Bytecode
	Locals SignatureIndex
}

// Len returns the number of instructions.
func (c *CodeUnit) Len() int {
	return len(c.Code)
}

// BranchTargets returns the set of offsets some branch jumps to. Offsets
// outside the code are ignored.
func (c *CodeUnit) BranchTargets() *bitset.BitSet {
	targets := bitset.New(uint(len(c.Code)))
	for _, instr := range c.Code {
		if off, ok := instr.Offset(); ok && int(off) < len(c.Code) {
			targets.Set(uint(off))
		}
	}
	return targets
}

// BasicBlocks returns the start offsets of every basic block in order.
func (c *CodeUnit) BasicBlocks() []CodeOffset {
	if len(c.Code) == 0 {
		return nil
	}
	starts := c.BranchTargets()
	starts.Set(0)
	for i, instr := range c.Code {
		if (instr.IsBranch() || instr.IsUnconditionalBranch()) && i+1 < len(c.Code) {
			starts.Set(uint(i + 1))
		}
	}
	out := make([]CodeOffset, 0, starts.Count())
	for i, ok := starts.NextSet(0); ok; i, ok = starts.NextSet(i + 1) {
		out = append(out, CodeOffset(i))
	}
	return out
}

package format

// Binary format magic number and versions.
const (
	// Magic is the module/script magic number (bytes 0B EB 1C A1 on the wire).
	Magic uint32 = 0xA11CEB0B

	// VersionMin is the oldest version Deserialize accepts.
	VersionMin uint32 = 1
	// VersionMax is the newest version Deserialize accepts and the one Serialize writes.
	VersionMax uint32 = 4
	// VersionEntryFunctions is the first version carrying the function entry flag.
	VersionEntryFunctions uint32 = 4
)

// AddressLength is the width in bytes of an account address.
const AddressLength = 16

// Table kinds identify each table in the directory.
type TableKind byte

const (
	TableModuleHandles           TableKind = 0x1
	TableStructHandles           TableKind = 0x2
	TableFunctionHandles         TableKind = 0x3
	TableFunctionInstantiations  TableKind = 0x4
	TableSignatures              TableKind = 0x5
	TableConstantPool            TableKind = 0x6
	TableIdentifiers             TableKind = 0x7
	TableAddressIdentifiers      TableKind = 0x8
	TableStructDefs              TableKind = 0xA
	TableStructDefInstantiations TableKind = 0xB
	TableFunctionDefs            TableKind = 0xC
	TableFieldHandles            TableKind = 0xD
	TableFieldInstantiations     TableKind = 0xE
	TableFriendDecls             TableKind = 0xF
)

func (k TableKind) String() string {
	switch k {
	case TableModuleHandles:
		return "module_handles"
	case TableStructHandles:
		return "struct_handles"
	case TableFunctionHandles:
		return "function_handles"
	case TableFunctionInstantiations:
		return "function_instantiations"
	case TableSignatures:
		return "signatures"
	case TableConstantPool:
		return "constant_pool"
	case TableIdentifiers:
		return "identifiers"
	case TableAddressIdentifiers:
		return "address_identifiers"
	case TableStructDefs:
		return "struct_defs"
	case TableStructDefInstantiations:
		return "struct_def_instantiations"
	case TableFunctionDefs:
		return "function_defs"
	case TableFieldHandles:
		return "field_handles"
	case TableFieldInstantiations:
		return "field_instantiations"
	case TableFriendDecls:
		return "friend_decls"
	default:
		return "unknown_table"
	}
}

func (k TableKind) known() bool {
	return k >= TableModuleHandles && k <= TableFriendDecls && k != 0x9
}

// moduleOnly reports whether a table kind may only appear in module blobs.
func (k TableKind) moduleOnly() bool {
	switch k {
	case TableStructDefs, TableStructDefInstantiations, TableFunctionDefs,
		TableFieldHandles, TableFieldInstantiations, TableFriendDecls:
		return true
	}
	return false
}

// tableOrder is the order Serialize writes tables in.
var tableOrder = [...]TableKind{
	TableModuleHandles,
	TableStructHandles,
	TableFunctionHandles,
	TableFunctionInstantiations,
	TableSignatures,
	TableConstantPool,
	TableIdentifiers,
	TableAddressIdentifiers,
	TableStructDefs,
	TableStructDefInstantiations,
	TableFunctionDefs,
	TableFieldHandles,
	TableFieldInstantiations,
	TableFriendDecls,
}

// Serialized signature token tags.
const (
	tagBool                byte = 0x1
	tagU8                  byte = 0x2
	tagU64                 byte = 0x3
	tagU128                byte = 0x4
	tagAddress             byte = 0x5
	tagReference           byte = 0x6
	tagMutableReference    byte = 0x7
	tagStruct              byte = 0x8
	tagTypeParameter       byte = 0x9
	tagVector              byte = 0xA
	tagStructInstantiation byte = 0xB
	tagSigner              byte = 0xC
)

// Struct field information tags.
const (
	fieldInfoNative   byte = 0x1
	fieldInfoDeclared byte = 0x2
)

// Function definition flag bits.
const (
	functionFlagNative byte = 0x2
	functionFlagEntry  byte = 0x4
)

// Limits applied by the decoder independent of configuration.
const (
	IdentifierSizeMax     = 65535
	ConstantSizeMax       = 65535
	SignatureSizeMax      = 255
	TypeParameterCountMax = 255
	FieldCountMax         = 255
	AcquiresCountMax      = 255
	LocalIndexMax         = 255
	BytecodeCountMax      = 65535
	TableCountMax         = 255
	TypeArgumentCountMax  = 255
)

package format

// Canonical fixtures. They are built fresh on every call, so callers own the
// result.

func mustBuild(b *ModuleBuilder, err error) *CompiledModule {
	if err != nil {
		panic(err)
	}
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

// EmptyModule returns the smallest valid module: 0x0::<SELF> with only its
// self handle and the empty type argument list.
func EmptyModule() *CompiledModule {
	return mustBuild(NewModuleBuilder(AccountAddress{}, SelfIdentifier))
}

// BasicTestModule returns EmptyModule plus a private function foo that
// returns immediately and a struct Bar with one u64 field x.
func BasicTestModule() *CompiledModule {
	b, err := NewModuleBuilder(AccountAddress{}, SelfIdentifier)
	if err != nil {
		panic(err)
	}
	if _, _, err := b.DefineFunction(FunctionDecl{
		Name:       "foo",
		Visibility: VisibilityPrivate,
		Code:       []Bytecode{Op(OpRet)},
	}); err != nil {
		panic(err)
	}
	if _, _, err := b.DefineStruct("Bar", EmptyAbilities, nil, false, FieldDecl{Name: "x", Type: U64Type()}); err != nil {
		panic(err)
	}
	return mustBuild(b, nil)
}

func mustBuildScript(b *ScriptBuilder) *CompiledScript {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// EmptyScript returns a script whose entry point only returns.
func EmptyScript() *CompiledScript {
	b := NewScriptBuilder()
	if err := b.SetEntry(nil, nil, nil, []Bytecode{Op(OpRet)}); err != nil {
		panic(err)
	}
	return mustBuildScript(b)
}

// BasicTestScript returns a script taking a u64 and passing it to the
// external function 0x1::Coin::mint.
func BasicTestScript() *CompiledScript {
	b := NewScriptBuilder()
	coin, err := b.ModuleHandle(MustParseAddress("0x1"), "Coin")
	if err != nil {
		panic(err)
	}
	mint, err := b.ExternalFunction(coin, "mint", nil, Signature{U64Type()}, nil)
	if err != nil {
		panic(err)
	}
	code := []Bytecode{
		Local(OpCopyLoc, 0),
		Call(mint),
		Op(OpRet),
	}
	if err := b.SetEntry(nil, Signature{U64Type()}, nil, code); err != nil {
		panic(err)
	}
	return mustBuildScript(b)
}

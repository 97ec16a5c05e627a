// Package target models the module that code lowering produces: global
// storage, functions made of typed instructions, and external declarations.
// Backends render it as text.
package target

type Op int

const (
	OpLoad Op = iota
	OpStore
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpCall
	OpRet
)

var opNames = [...]string{
	OpLoad:  "load",
	OpStore: "store",
	OpAdd:   "add",
	OpSub:   "sub",
	OpMul:   "mul",
	OpDiv:   "div",
	OpCall:  "call",
	OpRet:   "ret",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "unknown_op"
}

type Type int

const (
	TypeNone Type = iota
	TypeB         // byte (8-bit)
	TypeW         // word (32-bit integer)
	TypeD         // double float (64-bit)
)

func (t Type) String() string {
	switch t {
	case TypeB:
		return "b"
	case TypeW:
		return "w"
	case TypeD:
		return "d"
	}
	return ""
}

// Names the lowered module defines or calls.
const (
	EntryName      = "main"
	PrintIntName   = "_print_int"
	PrintFloatName = "_print_float"
	PrintByteName  = "_print_byte"
)

// ReservedNames may not be used for globals.
var ReservedNames = []string{EntryName, PrintIntName, PrintFloatName, PrintByteName}

type Value interface {
	isValue()
	String() string
}

type Const struct {
	Value int64
	Typ   Type
}
type FloatConst struct{ Value float64 }
type Global struct{ Name string }
type Temporary struct{ Name string }

func (c *Const) isValue()      {}
func (f *FloatConst) isValue() {}
func (g *Global) isValue()     {}
func (t *Temporary) isValue()  {}

func (c *Const) String() string      { return "const" }
func (f *FloatConst) String() string { return "fconst" }
func (g *Global) String() string     { return g.Name }
func (t *Temporary) String() string  { return t.Name }

type Instruction struct {
	Op       Op
	Typ      Type // type of the result, or of the stored value for OpStore
	Result   Value
	Args     []Value
	ArgTypes []Type // parameter types, OpCall only
}

type Block struct {
	Label        string
	Instructions []*Instruction
}

type Func struct {
	Name       string
	Export     bool
	ReturnType Type
	Blocks     []*Block
}

// Data is a global variable with its zero initializer.
type Data struct {
	Name string
	Typ  Type
}

// Extern is a function the module calls but does not define.
type Extern struct {
	Name       string
	Params     []Type
	ReturnType Type
}

type Module struct {
	Globals []*Data
	Funcs   []*Func
	Externs []*Extern
}

func (m *Module) FindGlobal(name string) *Data {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func (m *Module) FindFunc(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (m *Module) FindExtern(name string) *Extern {
	for _, e := range m.Externs {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// SizeOfType returns the storage size in bytes.
func SizeOfType(t Type) int64 {
	switch t {
	case TypeB:
		return 1
	case TypeW:
		return 4
	case TypeD:
		return 8
	}
	return 0
}

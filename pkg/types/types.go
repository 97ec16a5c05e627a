// Package types holds the primitive types of the language and the operators
// each of them supports.
package types

// Op is the surface spelling of an operator.
type Op string

const (
	Add Op = "+"
	Sub Op = "-"
	Mul Op = "*"
	Div Op = "/"
)

// Type is a primitive type. There is exactly one *Type per primitive in a
// Registry, so types compare with ==.
type Type struct {
	Name   string
	binary map[binaryKey]*Type
	unary  map[Op]*Type
}

type binaryKey struct {
	op    Op
	other string
}

func (t *Type) String() string {
	if t == nil {
		return "<none>"
	}
	return t.Name
}

// BinaryOp returns the result of "t op other", or nil if the pairing is not
// supported.
func (t *Type) BinaryOp(op Op, other *Type) *Type {
	if t == nil || other == nil {
		return nil
	}
	return t.binary[binaryKey{op, other.Name}]
}

// UnaryOp returns the result of "op t", or nil.
func (t *Type) UnaryOp(op Op) *Type {
	if t == nil {
		return nil
	}
	return t.unary[op]
}

func newType(name string) *Type {
	return &Type{Name: name, binary: map[binaryKey]*Type{}, unary: map[Op]*Type{}}
}

// arithmetic makes t closed over the four arithmetic operators and unary
// plus and minus.
func (t *Type) arithmetic() *Type {
	for _, op := range []Op{Add, Sub, Mul, Div} {
		t.binary[binaryKey{op, t.Name}] = t
	}
	t.unary[Add] = t
	t.unary[Sub] = t
	return t
}

// Registry maps type names to types.
type Registry struct {
	types map[string]*Type
	Int   *Type
	Float *Type
	Char  *Type
	Byte  *Type // nil unless the registry was built with byte
}

// NewRegistry builds the primitives int, float and char, and byte when
// withByte is set. char and byte support no operators.
func NewRegistry(withByte bool) *Registry {
	r := &Registry{
		types: map[string]*Type{},
		Int:   newType("int").arithmetic(),
		Float: newType("float").arithmetic(),
		Char:  newType("char"),
	}
	r.add(r.Int)
	r.add(r.Float)
	r.add(r.Char)
	if withByte {
		r.Byte = newType("byte")
		r.add(r.Byte)
	}
	return r
}

func (r *Registry) add(t *Type) { r.types[t.Name] = t }

// Resolve looks a primitive up by name; nil means there is none.
func (r *Registry) Resolve(name string) *Type { return r.types[name] }

func (r *Registry) IsTypeName(name string) bool { return r.types[name] != nil }

func (r *Registry) BinaryResult(t *Type, op Op, other *Type) *Type { return t.BinaryOp(op, other) }

func (r *Registry) UnaryResult(t *Type, op Op) *Type { return t.UnaryOp(op) }

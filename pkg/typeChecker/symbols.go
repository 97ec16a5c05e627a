package typeChecker

import "github.com/paivett/gone/pkg/ast"

// Symbol is a name bound by a var or const declaration.
type Symbol struct {
	Name  string
	Node  *ast.Node // VarDecl or ConstDecl
	Reads int
	Next  *Symbol
}

func (s *Symbol) IsConst() bool { return s.Node.Type == ast.ConstDecl }

func (s *Symbol) Line() int { return s.Node.Line() }

// SymbolTable is the single global scope. Symbols are chained newest first
// and indexed by name; a name is bound at most once.
type SymbolTable struct {
	Symbols *Symbol
	byName  map[string]*Symbol
	count   int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{byName: make(map[string]*Symbol)}
}

// Insert binds name to node. If name is already bound the table is left
// unchanged and the existing symbol is returned with ok set to false.
func (st *SymbolTable) Insert(name string, node *ast.Node) (sym *Symbol, ok bool) {
	if existing := st.byName[name]; existing != nil {
		return existing, false
	}
	sym = &Symbol{Name: name, Node: node, Next: st.Symbols}
	st.Symbols = sym
	st.byName[name] = sym
	st.count++
	return sym, true
}

func (st *SymbolTable) Lookup(name string) *Symbol { return st.byName[name] }

func (st *SymbolTable) Len() int { return st.count }

// Ordered returns the symbols in declaration order.
func (st *SymbolTable) Ordered() []*Symbol {
	out := make([]*Symbol, st.count)
	i := st.count - 1
	for sym := st.Symbols; sym != nil; sym = sym.Next {
		out[i] = sym
		i--
	}
	return out
}

func (st *SymbolTable) Names() []string {
	var names []string
	for _, sym := range st.Ordered() {
		names = append(names, sym.Name)
	}
	return names
}

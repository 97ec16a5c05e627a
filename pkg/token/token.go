package token

type Type int

const (
	EOF Type = iota
	Ident
	Integer
	Float
	Char
	Const
	Var
	Print
	Plus
	Minus
	Star
	Slash
	Assign
	LParen
	RParen
	Semi
)

var KeywordMap = map[string]Type{
	"const": Const,
	"var":   Var,
	"print": Print,
}

var punct = map[Type]string{
	Plus:   "+",
	Minus:  "-",
	Star:   "*",
	Slash:  "/",
	Assign: "=",
	LParen: "(",
	RParen: ")",
	Semi:   ";",
}

// Reverse mapping from Type to the keyword string
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range punct {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	switch t {
	case EOF:
		return "EOF"
	case Ident:
		return "ID"
	case Integer:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case Char:
		return "CHAR"
	}
	return "?"
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}

// Text is the source spelling of the token, as shown in syntax errors.
func (t Token) Text() string {
	if t.Value != "" {
		return t.Value
	}
	return t.Type.String()
}

package script

// Expr is a node in the restricted expression grammar.
type Expr interface {
	exprNode()
}

// StringLit is a quoted string literal.
type StringLit struct {
	Value string
}

// NumberLit is a numeric literal. Int is valid when IsInt is true,
// otherwise Float carries the value.
type NumberLit struct {
	IsInt bool
	Int   int64
	Float float64
}

// BoolLit is true/false (True/False accepted as well).
type BoolLit struct {
	Value bool
}

// NullLit is None/null.
type NullLit struct{}

// ListLit is a bracketed list of expressions.
type ListLit struct {
	Items []Expr
}

// MapEntry is one key/value pair of a MapLit.
type MapEntry struct {
	Key   Expr
	Value Expr
}

// MapLit is a braced map literal.
type MapLit struct {
	Entries []MapEntry
}

// Arg is a call argument, optionally named.
type Arg struct {
	Name  string // empty for positional arguments
	Value Expr
}

// Call is a capability call expression. It doubles as the only
// statement form of the dialect.
type Call struct {
	Name string
	Args []Arg
	Pos  int // byte offset of the call name in the source
}

func (*StringLit) exprNode() {}
func (*NumberLit) exprNode() {}
func (*BoolLit) exprNode()   {}
func (*NullLit) exprNode()   {}
func (*ListLit) exprNode()   {}
func (*MapLit) exprNode()    {}
func (*Call) exprNode()      {}

// Program is a parsed Action Script.
type Program struct {
	// Statements are the top-level calls in source order.
	Statements []*Call

	// Calls records every call target seen during parsing, including
	// nested calls and calls whose argument list is still incomplete.
	// The incremental validator checks these against the allow-list as
	// soon as the name and opening parenthesis have been consumed.
	Calls []*Call
}

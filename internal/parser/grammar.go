package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var irLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `(;|//)[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Label", Pattern: `[A-Za-z_][A-Za-z0-9_]*:`},
	{Name: "Value", Pattern: `%[0-9]+`},
	{Name: "Float", Pattern: `-?[0-9]+\.[0-9]+`},
	{Name: "Int", Pattern: `-?[0-9]+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.]*`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Punct", Pattern: `[(){},=!@]`},
})

type File struct {
	Functions []*FuncDecl `@@*`
}

type FuncDecl struct {
	Pos    lexer.Position
	Name   string       `"func" @Ident`
	Params []string     `"(" ( @Ident ( "," @Ident )* )? ")" "{"`
	Blocks []*BlockDecl `@@* "}"`
}

type BlockDecl struct {
	Pos   lexer.Position
	Label string  `@Label`
	Lines []*Line `@@*`
}

// Line is one instruction, or a goto that only sets a successor
type Line struct {
	Pos     lexer.Position
	Result  string   `( @Value "=" )?`
	Op      string   `@Ident`
	Args    []*Arg   `( "(" ( @@ ( "," @@ )* )? ")" )?`
	Targets []string `( "->" @Ident ( "," @Ident )? )?`
}

type Arg struct {
	Pos  lexer.Position
	Not  bool  `@"!"?`
	Atom *Atom `@@`
}

// Atom is a value reference or a constant
type Atom struct {
	Value  string   `  @Value`
	Func   *FuncRef `| @@`
	Float  *float64 `| @Float`
	Int    *int     `| @Int`
	String *string  `| @String`
	True   bool     `| @"true"`
	False  bool     `| @"false"`
	Null   bool     `| @"null"`
	Symbol string   `| @Ident`
}

// FuncRef is a function constant such as @builtin(length)
type FuncRef struct {
	Kind string `"@" @Ident`
	Name string `"(" @Ident ")"`
}

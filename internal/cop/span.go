// Package cop implements the compiler-operator tree: the uniform tagged-node
// intermediate representation shared by the parser, resolver, and folder.
package cop

import "fmt"

// Pos is a single point in source text.
type Pos struct {
	Line   int
	Column int
	File   string
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Span is a range in source text, used as COP node position info.
type Span struct {
	Start Pos
	End   Pos
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%d:%d", s.Start, s.End.Line, s.End.Column)
}

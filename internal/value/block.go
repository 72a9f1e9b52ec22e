package value

// ShapeRef is the minimal view of a shape that the value package needs.
// It exists to break the natural import cycle between internal/value
// (whose Block carries a shape) and internal/shape (whose FieldDef
// carries a default Value): shape.Shape implements this interface, and
// internal/morph (which imports both) recovers the concrete *shape.Shape
// via a type assertion.
type ShapeRef interface {
	ShapeName() string
}

// DefiningScope is the minimal view of an execution frame that a Block
// needs to capture its defining environment (§3: "captured body +
// defining frame"). internal/engine's Frame type implements it; value
// never imports internal/engine.
type DefiningScope interface {
	Lookup(name string) (Value, bool)
}

// CompiledBody is the minimal view of a block's compiled instruction
// list that the value package needs (§3: Block's "compiled form ...
// body_instructions"). internal/codegen.Context implements it; value
// never imports internal/codegen, breaking what would otherwise be a
// value -> codegen -> value cycle.
type CompiledBody interface {
	BodyKind() string
}

// Block is a function value: raw when defined (no input shape assigned
// yet), typed once morphed against a block-shape (§3, §4.4 step 2).
// Params holds the signature's ordered parameter names: an invocation
// binds a piped value to Params[0] (if one is piped), then fills the
// rest by name from the arg struct's named entries or, failing that, by
// position from its positional entries (§4.1 sig destructuring).
type Block struct {
	Qualified  string // "" for an anonymous block literal
	Params     []string
	InputShape ShapeRef
	ArgShape   ShapeRef
	Body       CompiledBody // captured body instructions (internal/codegen.Context)
	Defining   DefiningScope
	Pure       bool // carried the "pure" decorator at its definition site (§4.8)
}

func (b *Block) Kind() Kind { return KindBlock }

func (b *Block) String() string {
	if b.Qualified != "" {
		return "<block " + b.Qualified + ">"
	}
	return "<block>"
}

// IsTyped reports whether b has been specialized against a block-shape
// (§4.4 step 2): typed blocks carry a non-nil InputShape.
func (b *Block) IsTyped() bool { return b.InputShape != nil }

// WithInputShape returns a copy of b specialized to shape s, leaving b
// itself untouched (values are immutable, §3 invariant i).
func (b *Block) WithInputShape(s ShapeRef) *Block {
	c := *b
	c.InputShape = s
	return &c
}

// Package module implements the module-preparation pipeline of §4.7
// (C12): scan, parse, extract definitions with auto-suffixing while
// recursively preparing imports, build a namespace, resolve, fold (with
// cross-definition cycle detection), and pure-evaluate. There is no
// finalize step: a prepared Module's definition and namespace maps are
// not frozen.
package module

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/PeterShinners/comp-sub000/internal/codegen"
	"github.com/PeterShinners/comp-sub000/internal/comperr"
	"github.com/PeterShinners/comp-sub000/internal/cop"
	"github.com/PeterShinners/comp-sub000/internal/engine"
	"github.com/PeterShinners/comp-sub000/internal/fold"
	"github.com/PeterShinners/comp-sub000/internal/morph"
	"github.com/PeterShinners/comp-sub000/internal/namespace"
	"github.com/PeterShinners/comp-sub000/internal/parser"
	"github.com/PeterShinners/comp-sub000/internal/pure"
	"github.com/PeterShinners/comp-sub000/internal/resolve"
	"github.com/PeterShinners/comp-sub000/internal/shape"
	"github.com/PeterShinners/comp-sub000/internal/source"
	"github.com/PeterShinners/comp-sub000/internal/value"
)

// Definition is one module-level `name = expr` binding (or, once
// assigned a shape/tag kind, a `shape.define`/`tag.define`), carried
// through every pipeline phase (§3 "Definition").
type Definition struct {
	Qualified   string
	ModuleID    string
	OriginalCOP *cop.Node
	ResolvedCOP *cop.Node
	FoldedCOP   *cop.Node   // ResolvedCOP after constant folding (§4.3); also the pure evaluator's input/output
	FoldedValue value.Value // nil until folded; still nil after folding if not fully constant
	Kind        namespace.Kind
	AutoSuffix  string // "" unless this name collided with an earlier one in the same module

	diagnostics []fold.Diagnostic
	folding     bool // cycle-detection marker, set while FoldReference is resolving this definition
}

// Diagnostics returns every non-fatal folding diagnostic recorded while
// folding this definition (e.g. division by zero, §4.3).
func (d *Definition) Diagnostics() []fold.Diagnostic { return d.diagnostics }

// Module is one prepared `!import`-able unit: its own definitions plus
// the namespace built from them and every transitively imported module.
type Module struct {
	Token       string // stable per-module identifier, used as resolve's module_id and Definition.ModuleID
	SourcePath  string
	Definitions []*Definition
	byName      map[string]*Definition
	Imports     map[string]*Module // import name -> prepared module
	Namespace   *namespace.Namespace
	PendingDocs []string // doc comments recovered by the forgiving scanner pass, not yet attached to a definition

	Errors []*comperr.Error
}

// Loader drives Prepare across a tree of `!import`s, memoizing already
// prepared modules by resolved source path so a diamond-shaped import
// graph is only ever read and built once (§4.7, §5's "Host-level
// blocking... during import" carve-out).
type Loader struct {
	cfg     source.Config
	cache   map[string]*Module
	nextTok int
}

// NewLoader builds a Loader bound to cfg's source roots.
func NewLoader(cfg source.Config) *Loader {
	return &Loader{cfg: cfg, cache: make(map[string]*Module)}
}

// Prepare runs the preparation pipeline over the file at path,
// returning the built Module even when it carries build-time Errors (a
// caller may still want partial results, e.g. a CLI printing every error
// found rather than stopping at the first).
func (l *Loader) Prepare(ctx context.Context, path string) (*Module, error) {
	return l.prepare(ctx, path, filepath.Dir(path))
}

func (l *Loader) prepare(ctx context.Context, path, baseDir string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if m, ok := l.cache[abs]; ok {
		return m, nil
	}

	src := source.FileSource{Path: abs}
	content, _, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}

	l.nextTok++
	m := &Module{
		Token:      fmt.Sprintf("mod%d", l.nextTok),
		SourcePath: abs,
		byName:     make(map[string]*Definition),
		Imports:    make(map[string]*Module),
		Namespace:  namespace.New(),
	}
	// Placeholder inserted before recursing into imports so an import
	// cycle resolves to an (incomplete but non-nil) module instead of an
	// infinite Prepare loop.
	l.cache[abs] = m

	scanResult := parser.Scan(string(content))
	m.PendingDocs = scanResult.Docs

	p := parser.New(string(content))
	root, err := p.ParseModule()
	if err != nil {
		return nil, err
	}

	if err := l.extract(ctx, m, root, filepath.Dir(abs)); err != nil {
		return nil, err
	}

	m.buildNamespace()
	m.resolveAll()
	m.foldAll()
	m.pureEvalAll()

	return m, nil
}

// extract walks the module's top-level statements, recursively preparing
// each `!import` and registering each `mod.namefield` as a Definition,
// auto-suffixing repeated names ("name.i2", "name.i3", ...) per §4.7 step
// 4 rather than rejecting the redefinition outright.
func (l *Loader) extract(ctx context.Context, m *Module, root *cop.Node, baseDir string) error {
	counts := map[string]int{}
	for _, stmt := range root.Positional {
		switch stmt.Tag {
		case cop.TagModImport:
			nameAttr, _ := stmt.Attr("name")
			name, _ := nameAttr.(string)
			ref := name
			if len(stmt.Positional) > 0 {
				if lit, ok := firstTextArg(stmt.Positional[0]); ok {
					ref = lit
				}
			}
			src, err := source.Resolve(l.cfg, ref, baseDir)
			if err != nil {
				m.Errors = append(m.Errors, comperr.Newf(comperr.MOD001InvalidPkgAssignment, stmt.Span.String(),
					"cannot resolve import %q: %v", name, err))
				continue
			}
			fs, _ := src.(source.FileSource)
			imported, err := l.prepare(ctx, fs.Path, baseDir)
			if err != nil {
				m.Errors = append(m.Errors, comperr.Newf(comperr.MOD001InvalidPkgAssignment, stmt.Span.String(),
					"cannot prepare import %q: %v", name, err))
				continue
			}
			m.Imports[name] = imported

		case cop.TagModNamefield:
			nameAttr, _ := stmt.Attr("name")
			name, _ := nameAttr.(string)
			qualified := name
			suffix := ""
			counts[name]++
			if counts[name] > 1 {
				suffix = "i" + strconv.Itoa(counts[name])
				qualified = name + "." + suffix
			}
			var body *cop.Node
			if len(stmt.Positional) > 0 {
				body = stmt.Positional[0]
			}
			def := &Definition{
				Qualified:   qualified,
				ModuleID:    m.Token,
				OriginalCOP: body,
				Kind:        classifyKind(body),
				AutoSuffix:  suffix,
			}
			m.Definitions = append(m.Definitions, def)
			m.byName[qualified] = def

		default:
			// A bare expression statement at module scope: resolved and
			// folded like any definition, but contributes no name and is
			// not run during preparation.
			def := &Definition{
				Qualified:   "",
				ModuleID:    m.Token,
				OriginalCOP: stmt,
				Kind:        namespace.KindValue,
			}
			m.Definitions = append(m.Definitions, def)
		}
	}
	return nil
}

// firstTextArg recovers a plain string literal from an import argument
// struct's first positional field, if any (e.g. `!import io (path)`).
func firstTextArg(args *cop.Node) (string, bool) {
	if args == nil || len(args.Positional) == 0 {
		return "", false
	}
	field := args.Positional[0]
	if field.Tag != cop.TagStructField || len(field.Positional) == 0 {
		return "", false
	}
	val := field.Positional[0]
	if val.Tag != cop.TagValueText {
		return "", false
	}
	lit, _ := val.Attr("literal")
	s, ok := lit.(string)
	return s, ok
}

// classifyKind determines a definition's namespace Kind from its
// original (pre-resolve) COP shape: a bare block literal is overload
// eligible, a shape definition is overload eligible, everything else is
// a plain value. A block wrapped in decorator sugar (desugared by the
// parser into a `wrap(...)` invocation around the block literal, §4.1)
// is still classified as a value here rather than a block, since its
// static shape is an invocation, not a block literal; decorated
// definitions are a documented simplification (see DESIGN.md).
func classifyKind(n *cop.Node) namespace.Kind {
	if n == nil {
		return namespace.KindValue
	}
	switch n.Tag {
	case cop.TagValueBlock:
		return namespace.KindBlock
	case cop.TagShapeDefine:
		return namespace.KindShape
	default:
		return namespace.KindValue
	}
}

// buildNamespace registers every import's definitions at
// namespace.PriorityImported (reachable both under their own suffix
// permutations and under an "importName.qualified" alias) and every
// local definition at namespace.PriorityLocal (§4.7 step 5).
func (m *Module) buildNamespace() {
	for importName, imported := range m.Imports {
		for _, def := range imported.Definitions {
			if def.Qualified == "" {
				continue
			}
			c := namespace.Candidate{Qualified: def.Qualified, Kind: def.Kind, Value: def}
			m.Namespace.Add(c, namespace.PriorityImported, namespace.PrefixedPermutations(importName, def.Qualified)...)
		}
	}
	for _, def := range m.Definitions {
		if def.Qualified == "" {
			continue
		}
		c := namespace.Candidate{Qualified: def.Qualified, Kind: def.Kind, Value: def}
		m.Namespace.Add(c, namespace.PriorityLocal)
	}
}

// resolveAll runs internal/resolve over every definition's original COP,
// collecting RSV-coded errors onto m.Errors (§7 pathway 1: a build
// error, not a runtime failure).
func (m *Module) resolveAll() {
	r := resolve.New(m.Namespace, m.Token)
	for _, def := range m.Definitions {
		if def.OriginalCOP == nil {
			continue
		}
		def.ResolvedCOP = r.Resolve(def.OriginalCOP)
	}
	m.Errors = append(m.Errors, r.Errors()...)
}

// foldAll runs internal/fold over every definition's resolved COP,
// implementing fold.Env itself so a value.reference to a sibling
// definition folds to that definition's own folded constant (computed
// on demand and memoized), with cycle detection via each Definition's
// folding flag.
func (m *Module) foldAll() {
	for _, def := range m.Definitions {
		m.foldDefinition(def)
	}
}

func (m *Module) foldDefinition(def *Definition) value.Value {
	if def.FoldedValue != nil {
		return def.FoldedValue
	}
	if def.ResolvedCOP == nil {
		return nil
	}
	if def.folding {
		m.Errors = append(m.Errors, comperr.Newf(comperr.MOD002InvalidStartupValue, "",
			"cycle detected while folding %q", def.Qualified))
		return nil
	}
	def.folding = true
	defer func() { def.folding = false }()

	f := fold.New(m)
	folded := f.Fold(def.ResolvedCOP)
	def.FoldedCOP = folded
	def.diagnostics = f.Diagnostics()
	if v, ok := fold.Const(folded); ok {
		def.FoldedValue = v
		return v
	}

	// A pure block compiles down to a concrete *value.Block right away
	// (§4.8): every other definition's pure evaluation, and any ordinary
	// runtime reference, then sees the same compiled callable a regular
	// folded constant would provide, regardless of declaration order
	// (resolved on demand through this same cycle-guarded path).
	if def.Kind == namespace.KindBlock && isPureBlock(folded) {
		if blk, ok := m.compileBlock(folded); ok {
			def.FoldedValue = blk
			return blk
		}
	}
	return nil
}

// isPureBlock reports whether a value.block node carried the "pure"
// decorator at its definition site.
func isPureBlock(n *cop.Node) bool {
	if n == nil || n.Tag != cop.TagValueBlock {
		return false
	}
	pureAttr, ok := n.Attr("pure")
	if !ok {
		return false
	}
	b, _ := pureAttr.(bool)
	return b
}

// compileBlock lowers a value.block node through codegen and immediately
// runs the single BuildBlock instruction it produces, materializing a
// *value.Block with no enclosing Frame (a module-level pure block has no
// lexical parent to close over beyond other module globals, reached
// through LoadGlobal).
func (m *Module) compileBlock(n *cop.Node) (*value.Block, bool) {
	ctx, _, err := codegen.Generate(n)
	if err != nil {
		return nil, false
	}
	eng := engine.New(m)
	result, err := eng.Run(ctx, nil, nil, false)
	if err != nil || value.IsFailure(result) {
		return nil, false
	}
	blk, ok := result.(*value.Block)
	return blk, ok
}

// pureEvalAll runs internal/pure over every definition's folded tree,
// rewriting call sites whose callee is a pure block and whose arguments
// are already constant with the computed result (§4.8 step 8). A
// definition that is already a fully-folded value.constant, or that
// compiled to a pure *value.Block itself, has nothing left to rewrite.
func (m *Module) pureEvalAll() {
	eng := engine.New(m)
	p := pure.New(m, eng)
	for _, def := range m.Definitions {
		if def.FoldedValue != nil || def.FoldedCOP == nil {
			continue
		}
		def.FoldedCOP = p.Eval(def.FoldedCOP)
	}
}

// PureBlock implements pure.Env: a qualified name resolves to its
// compiled *value.Block only when that definition actually carried the
// "pure" decorator, so the evaluator never treats an ordinary block as
// safe to call at compile time.
func (m *Module) PureBlock(qualified string) (*value.Block, bool) {
	v, ok := m.FoldReference(qualified)
	if !ok {
		return nil, false
	}
	blk, ok := v.(*value.Block)
	if !ok || !blk.Pure {
		return nil, false
	}
	return blk, true
}

// FoldReference implements fold.Env: a reference is resolved to its
// module-local Definition (by qualified name stashed on the
// value.reference node during resolve) and that definition is folded
// on demand, memoized, and cycle-checked.
func (m *Module) FoldReference(qualified string) (value.Value, bool) {
	def, ok := m.byName[qualified]
	if !ok {
		// Might be an imported definition registered under its own
		// module's byName table; the namespace already resolved the
		// reference's qualified name against that module, so a local miss
		// here means it belongs to an import.
		for _, imported := range m.Imports {
			if v, ok := imported.FoldReference(qualified); ok {
				return v, true
			}
		}
		return nil, false
	}
	v := m.foldDefinition(def)
	return v, v != nil
}

// LoadGlobal implements engine.Env: at runtime, a LoadVar naming a
// qualified module definition resolves to its folded constant if one
// was computed, or nil otherwise (a block or never-folded value is
// reached through the resolved COP's own evaluation path instead, not
// through LoadGlobal).
func (m *Module) LoadGlobal(qualified string) (value.Value, bool) {
	return m.FoldReference(qualified)
}

// Invoke implements engine.Env for the builtin catalogue. This repo
// ships no builtin functions (§1 Non-goals: no populated stdlib), so
// every call is either a *value.Block (handled directly by the engine)
// or unresolved here.
func (m *Module) Invoke(callee value.Value, args *value.Struct) (value.Value, bool) {
	return nil, false
}

// Morph implements engine.MorphEnv: the engine hands back the shape
// operand exactly as internal/fold's static shape resolution left it, a
// shape.ValueRef wrapping the concrete *shape.Shape it resolved at
// compile time (§4.4's fold.foldMorph). From here this is just
// internal/morph's three public entry points, dispatched by mode.
func (m *Module) Morph(mode string, v value.Value, shapeVal value.Value) (value.Value, bool) {
	ref, ok := shapeVal.(shape.ValueRef)
	if !ok {
		return nil, false
	}
	switch mode {
	case "strong":
		res, ok := morph.StrongMorph(v, ref.Shape)
		return res.Value, ok
	case "weak":
		res, ok := morph.WeakMorph(v, ref.Shape)
		return res.Value, ok
	default:
		res, ok := morph.Morph(v, ref.Shape)
		return res.Value, ok
	}
}

// Command comp is a thin development driver for the language this
// module implements: prepare one file through internal/module's full
// pipeline and report either its definitions' values or the
// diagnostics that kept them from evaluating.
//
// Trimmed from the teacher's cmd/ailang/main.go, which dispatches to a
// REPL, a test runner, a file watcher, an LSP server, and a training
// data exporter alongside its "run" command: this repo's Non-goals
// exclude all of those outer surfaces, so only the single-file prepare
// path survives here (see DESIGN.md's "Dropped teacher dependencies").
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/PeterShinners/comp-sub000/internal/diag"
	"github.com/PeterShinners/comp-sub000/internal/module"
	"github.com/PeterShinners/comp-sub000/internal/source"
)

var (
	Version = "dev"

	bold = color.New(color.Bold).SprintFunc()
	cyan = color.New(color.FgCyan).SprintFunc()
)

type rootList []string

func (r *rootList) String() string { return strings.Join(*r, ",") }

func (r *rootList) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	var roots rootList
	versionFlag := flag.Bool("version", false, "print version information")
	configFlag := flag.String("config", "comp.yaml", "comp.yaml manifest to load import roots from, if present")
	flag.Var(&roots, "root", "directory a dotted-name !import resolves against (repeatable)")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("comp %s\n", bold(Version))
		return
	}

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(1)
	}

	path := flag.Arg(0)
	cfg := loadConfig(*configFlag)
	cfg.Roots = append(cfg.Roots, roots...)
	loader := module.NewLoader(cfg)

	m, err := loader.Prepare(context.Background(), path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot prepare %q: %v\n", color.New(color.FgRed).SprintFunc()("Error"), path, err)
		os.Exit(1)
	}

	exitCode := 0
	for _, e := range m.Errors {
		fmt.Fprint(os.Stderr, diag.Format(e))
		exitCode = 1
	}

	for _, def := range m.Definitions {
		for _, d := range def.Diagnostics() {
			fmt.Fprint(os.Stderr, diag.FormatDiagnostic(d.Span, d.Message))
		}
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}

	printResults(m)
}

func printResults(m *module.Module) {
	any := false
	for _, def := range m.Definitions {
		if def.Qualified == "" {
			continue
		}
		any = true
		if def.FoldedValue != nil {
			fmt.Print(diag.FormatSuccess(fmt.Sprintf("%s = %s", def.Qualified, def.FoldedValue.String())))
			continue
		}
		fmt.Printf("  %s %s (not constant)\n", cyan("~"), def.Qualified)
	}
	if !any {
		fmt.Print(diag.FormatSuccess("prepared with no top-level definitions"))
	}
}

// loadConfig reads an optional comp.yaml manifest, returning a zero
// Config (no roots beyond whatever -root flags the caller adds) when
// the manifest doesn't exist or fails to parse, so its absence is never
// a hard error for a caller that only relies on -root.
func loadConfig(path string) source.Config {
	cfg, err := source.LoadConfig(path)
	if err != nil {
		return source.Config{}
	}
	return cfg
}

func printHelp() {
	fmt.Println(bold("comp - a dev driver for preparing and inspecting a module"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  comp [flags] <file>")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -root <dir>     directory a dotted-name !import resolves against (repeatable)")
	fmt.Println("  -config <path>  comp.yaml manifest to load import roots from (default comp.yaml)")
	fmt.Println("  -version        print version information")
}

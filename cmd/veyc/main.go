// Command veyc drives the pipeline end to end: lex -> parse -> register ->
// verify -> solve -> monomorphise -> hand off to the back end.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/veylang/veyc/internal/diagnostics"
	"github.com/veylang/veyc/internal/ir"
	"github.com/veylang/veyc/internal/lexer"
	"github.com/veylang/veyc/internal/mono"
	"github.com/veylang/veyc/internal/optable"
	"github.com/veylang/veyc/internal/parser"
	"github.com/veylang/veyc/internal/resolver"
	"github.com/veylang/veyc/internal/verifier"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: veyc [-config veyc.yaml] [-ops file.yaml] <file.vey> [<file.vey> ...]")
		os.Exit(2)
	}

	configPath := "veyc.yaml"
	var opsPath string
	var files []string
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
			continue
		case "-ops":
			if i+1 < len(args) {
				opsPath = args[i+1]
				i++
			}
			continue
		}
		files = append(files, args[i])
	}

	cfg, err := loadDriverConfig(configPath)
	if err != nil {
		fatal(err)
	}
	if opsPath == "" {
		opsPath = cfg.Ops
	}

	ops := optable.Default()
	if opsPath != "" {
		data, err := os.ReadFile(opsPath)
		if err != nil {
			fatal(err)
		}
		if err := ops.LoadYAML(data); err != nil {
			fatal(err)
		}
	}

	var units []*verifier.Unit
	for _, path := range files {
		resolved, err := resolveSourcePath(cfg, path)
		if err != nil {
			fatal(err)
		}
		src, err := os.ReadFile(resolved)
		if err != nil {
			fatal(err)
		}
		res := resolver.New(resolved, ops)
		p := parser.New(resolved, lexer.New(string(src)), res)
		prog, err := p.ParseProgram()
		if err != nil {
			fatal(err)
		}
		units = append(units, &verifier.Unit{File: resolved, Program: prog, Res: res})
	}

	ctx := context.Background()
	result, err := verifier.Verify(ctx, units)
	if err != nil {
		fatal(err)
	}

	if errs := result.Registry.Errors(); len(errs) > 0 {
		printErrors(errs)
		os.Exit(1)
	}

	m := mono.New(result.Registry)
	if _, err := m.Specialize(ctx, cfg.Root, nil); err != nil {
		fatal(fmt.Errorf("monomorphising root function %q: %w", cfg.Root, err))
	}

	handoff, err := ir.Collect(result.Registry, cfg.Root)
	if err != nil {
		fatal(err)
	}
	wire := ir.Encode(handoff)
	if _, err := os.Stdout.Write(wire); err != nil {
		fatal(err)
	}
}

func printErrors(errs []*diagnostics.ParsingError) {
	colored := isatty.IsTerminal(os.Stderr.Fd())
	for _, e := range errs {
		if colored {
			fmt.Fprintf(os.Stderr, "\x1b[31merror:\x1b[0m %s\n", e.Error())
		} else {
			fmt.Fprintf(os.Stderr, "error: %s\n", e.Error())
		}
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "veyc:", err)
	os.Exit(1)
}

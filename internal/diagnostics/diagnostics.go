// Package diagnostics is the error taxonomy shared across every phase (C9):
// a closed set of stable codes, each with a printf-style message template,
// so callers can assert on a code instead of a message substring.
package diagnostics

import (
	"fmt"

	"github.com/veylang/veyc/internal/token"
)

// Phase names the pipeline stage an error originated in.
type Phase string

const (
	PhaseParser     Phase = "parser"
	PhaseResolver   Phase = "resolver"
	PhaseVerifier   Phase = "verifier"
	PhaseSolver     Phase = "solver"
	PhaseMono       Phase = "monomorphiser"
	PhaseRegistry   Phase = "registry"
)

type ErrorCode string

const (
	// Parser errors.
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // effect slot already filled
	ErrP003 ErrorCode = "P003" // malformed operator template
	ErrP004 ErrorCode = "P004" // unterminated block / missing closer

	// Resolver errors.
	ErrR001 ErrorCode = "R001" // name not found
	ErrR002 ErrorCode = "R002" // ambiguous name

	// Verifier errors.
	ErrV001 ErrorCode = "V001" // type mismatch
	ErrV002 ErrorCode = "V002" // arity mismatch
	ErrV003 ErrorCode = "V003" // field assigned more than once / missing field
	ErrV004 ErrorCode = "V004" // not every path returns
	ErrV005 ErrorCode = "V005" // jump to unknown label
	ErrV006 ErrorCode = "V006" // duplicate top-level definition
	ErrV007 ErrorCode = "V007" // infinite-size struct (cycle without a reference)

	// Solver errors.
	ErrS001 ErrorCode = "S001" // bounds failure: type does not implement trait
	ErrS002 ErrorCode = "S002" // solver exhaustion (depth/work cap)
	ErrS003 ErrorCode = "S003" // malformed operator attribute

	// Monomorphiser errors.
	ErrM001 ErrorCode = "M001" // unresolved generic escaped to output
)

var templates = map[ErrorCode]string{
	ErrP001: "unexpected token: expected %s, got %s",
	ErrP002: "expression already has an effect bound in this position",
	ErrP003: "malformed operator template %q: must contain %s or be a prefix form",
	ErrP004: "unterminated block starting at %s",

	ErrR001: "name not found: %s",
	ErrR002: "ambiguous name %s: matches %s",

	ErrV001: "type mismatch: expected %s, got %s",
	ErrV002: "arity mismatch: %s expects %d argument(s), got %d",
	ErrV003: "struct literal for %s: %s",
	ErrV004: "not all code paths return a value",
	ErrV005: "jump to unknown label %q",
	ErrV006: "duplicate definition of %q",
	ErrV007: "struct %s has infinite size (cyclic value field, add a reference)",

	ErrS001: "%s does not implement %s",
	ErrS002: "trait solver exhausted its search budget resolving %s",
	ErrS003: "operator attribute %q on trait %s is malformed",

	ErrM001: "unresolved generic %s escaped to monomorphised output",
}

// ParsingError is the diagnostic surface every phase reports through.
type ParsingError struct {
	File    string
	Code    ErrorCode
	Phase   Phase
	Args    []interface{}
	Start   token.Token
	End     token.Token
	Message string // pre-rendered override, used when Code is empty
}

func New(file string, phase Phase, code ErrorCode, start, end token.Token, args ...interface{}) *ParsingError {
	return &ParsingError{File: file, Code: code, Phase: phase, Args: args, Start: start, End: end}
}

func (e *ParsingError) Error() string {
	msg := e.Message
	if msg == "" {
		tmpl, ok := templates[e.Code]
		if !ok {
			msg = fmt.Sprintf("unknown error code: %s", e.Code)
		} else {
			msg = fmt.Sprintf(tmpl, e.Args...)
		}
	}
	prefix := ""
	if e.File != "" {
		prefix = e.File + ": "
	}
	if e.Start.Line > 0 {
		return fmt.Sprintf("%s[%s] %d:%d: %s (%s)", prefix, e.Phase, e.Start.Line, e.Start.Start, msg, e.Code)
	}
	return fmt.Sprintf("%s[%s] %s (%s)", prefix, e.Phase, msg, e.Code)
}

// Key is the deduplication key: (file, span, message).
type Key struct {
	File    string
	Start   int
	End     int
	Message string
}

func (e *ParsingError) Key() Key {
	return Key{File: e.File, Start: e.Start.Start, End: e.End.End, Message: e.Error()}
}

// Vector is the process-wide, append-only error list.
// Callers must hold their own lock across appends from multiple goroutines;
// Vector itself does not synchronize (Registry guards its Vector with its
// own errMu).
type Vector struct {
	errs []*ParsingError
}

func (v *Vector) Append(e *ParsingError) { v.errs = append(v.errs, e) }

func (v *Vector) Errs() []*ParsingError { return v.errs }

// Deduplicated returns the error list deduplicated by Key, preserving first
// occurrence order.
func (v *Vector) Deduplicated() []*ParsingError {
	seen := make(map[Key]bool, len(v.errs))
	out := make([]*ParsingError, 0, len(v.errs))
	for _, e := range v.errs {
		k := e.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

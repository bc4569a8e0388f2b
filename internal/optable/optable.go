// Package optable implements the operator template table. A trait becomes
// an operator iff it carries a string attribute named "operation" whose
// value is a template such as "{}+{}"; this package normalises, indexes,
// and (optionally) bulk-loads such templates from a YAML document.
package optable

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Hole is the "{}" placeholder; "{+}" is accepted as a synonym and
// normalised to "{}" on insertion; the two are treated as synonyms.
const Hole = "{}"

const holeAlt = "{+}"

// Spec is one operator template entry: a template plus the priority and
// associativity attached to the owning trait.
type Spec struct {
	Template   string `yaml:"template"`
	Priority   int    `yaml:"priority"`
	ParseLeft  bool   `yaml:"parse_left"`
	Function   string `yaml:"function"` // "Trait.method", looked up in the registry
	Unary      bool   // derived: template has no leading hole
	Literal    string // derived: the non-hole surface text used as the lookup key
}

// Normalize replaces every "{+}" hole with "{}".
func Normalize(template string) string {
	return strings.ReplaceAll(template, holeAlt, Hole)
}

// Parse derives Unary/Literal from a (possibly un-normalised) template and
// validates it has at least one hole.
func Parse(template string) (Spec, error) {
	norm := Normalize(template)
	if !strings.Contains(norm, Hole) {
		return Spec{}, fmt.Errorf("operator template %q has no %s hole", template, Hole)
	}
	unary := !strings.HasPrefix(norm, Hole)
	literal := strings.ReplaceAll(norm, Hole, "")
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return Spec{}, fmt.Errorf("operator template %q has no literal surface text", template)
	}
	return Spec{Template: norm, Unary: unary, Literal: literal}, nil
}

// Table is the in-memory operator table the parser and verifier consult.
// It is filled only through Default, Register and LoadYAML: an
// operator("...") attribute parsed onto a declaration is kept on its
// FunctionData and is not installed here. Reads and registrations take the
// same mutex, so they are safe to run concurrently.
type Table struct {
	mu      sync.Mutex
	entries map[string]*Spec
}

func New() *Table {
	return &Table{entries: make(map[string]*Spec)}
}

// Register installs one operator template, keyed by its normalised literal
// surface text; registration normalises {+} -> {} on insertion.
func (t *Table) Register(template string, priority int, parseLeft bool, function string) error {
	spec, err := Parse(template)
	if err != nil {
		return err
	}
	spec.Priority = priority
	spec.ParseLeft = parseLeft
	spec.Function = function

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key(spec.Literal, spec.Unary)] = &spec
	return nil
}

func key(literal string, unary bool) string {
	if unary {
		return "prefix:" + literal
	}
	return "infix:" + literal
}

// Lookup finds the operator spec for a literal as either an infix or
// prefix operator (the parser knows which it's in from context: whether it
// already has a left operand).
func (t *Table) Lookup(literal string, unary bool) (*Spec, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.entries[key(literal, unary)]
	return s, ok
}

// yamlDoc is the top-level shape of an operator-table YAML document.
type yamlDoc struct {
	Operators []Spec `yaml:"operators"`
}

// LoadYAML parses a YAML document of operator specs and registers each one.
// Malformed templates are collected and returned as a single joined error
// rather than aborting after the first, so a config with several typos
// reports all of them at once.
func (t *Table) LoadYAML(data []byte) error {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("operator table: %w", err)
	}
	var errs []string
	for _, s := range doc.Operators {
		if err := t.Register(s.Template, s.Priority, s.ParseLeft, s.Function); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("operator table: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Default returns a table pre-populated with the arithmetic operators used
// run "1+2*3" without needing a YAML file.
func Default() *Table {
	t := New()
	_ = t.Register("{}+{}", 10, true, "Add.add")
	_ = t.Register("{}-{}", 10, true, "Sub.sub")
	_ = t.Register("{}*{}", 20, true, "Mul.mul")
	_ = t.Register("{}/{}", 20, true, "Div.div")
	_ = t.Register("-{}", 100, true, "Neg.neg")
	return t
}

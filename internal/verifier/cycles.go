package verifier

import (
	"github.com/veylang/veyc/internal/ast"
	"github.com/veylang/veyc/internal/diagnostics"
	"github.com/veylang/veyc/internal/registry"
	"github.com/veylang/veyc/internal/token"
	"github.com/veylang/veyc/internal/types"
)

// directStructEdges returns the struct(s) t embeds by value. A Reference or
// Array field is heap-indirect and breaks a size cycle, so neither
// contributes an edge here.
func directStructEdges(t types.FinalizedType) []*ast.StructData {
	switch v := t.(type) {
	case types.Struct:
		return []*ast.StructData{v.Data}
	case types.GenericType:
		return directStructEdges(v.Inner)
	default:
		return nil
	}
}

const (
	white = iota
	gray
	black
)

// detectStructCycles walks every finalized struct's value fields looking
// for a cycle with no Reference/Array to break it, i.e. a type with no
// finite size. Only the struct at which the back edge to an in-progress
// struct is found is poisoned, once per such edge; the other members of
// the cycle are not.
func detectStructCycles(reg *registry.Registry) []*diagnostics.ParsingError {
	byData := make(map[*ast.StructData]*types.FinalizedStruct)
	for _, name := range reg.StructFinals.Sorted() {
		fs, ok := reg.StructFinals.Get(name)
		if ok {
			byData[fs.Data] = fs
		}
	}

	color := make(map[*ast.StructData]int, len(byData))
	var errs []*diagnostics.ParsingError

	var visit func(data *ast.StructData) bool
	visit = func(data *ast.StructData) bool {
		switch color[data] {
		case black:
			return false
		case gray:
			return true
		}
		color[data] = gray
		if fs, ok := byData[data]; ok {
			for _, f := range fs.Fields {
				for _, edge := range directStructEdges(f.Type) {
					if visit(edge) && color[data] != black {
						err := diagnostics.New("", diagnostics.PhaseVerifier, diagnostics.ErrV007, token.Token{}, token.Token{}, data.Name)
						data.Poison(err)
						errs = append(errs, err)
					}
				}
			}
		}
		color[data] = black
		return false
	}

	for data := range byData {
		visit(data)
	}
	return errs
}

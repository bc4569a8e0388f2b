package verifier

import "github.com/veylang/veyc/internal/types"

// SimpleVariableManager is a lexically scoped symbol table: a stack of
// frames, each a flat name -> type map. Lookup walks the stack from the
// innermost frame outward, so an inner "let x" shadows an outer one without
// disturbing it.
type SimpleVariableManager struct {
	frames []map[string]types.FinalizedType
}

func NewVariableManager() *SimpleVariableManager {
	return &SimpleVariableManager{frames: []map[string]types.FinalizedType{{}}}
}

func (m *SimpleVariableManager) Push() {
	m.frames = append(m.frames, map[string]types.FinalizedType{})
}

func (m *SimpleVariableManager) Pop() {
	m.frames = m.frames[:len(m.frames)-1]
}

func (m *SimpleVariableManager) Declare(name string, t types.FinalizedType) {
	m.frames[len(m.frames)-1][name] = t
}

func (m *SimpleVariableManager) Lookup(name string) (types.FinalizedType, bool) {
	for i := len(m.frames) - 1; i >= 0; i-- {
		if t, ok := m.frames[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}

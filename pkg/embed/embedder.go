// Package embed implements the base symbolic embedder (spec.md §4.2): a
// stack-machine visitor over IL statements/expressions that maintains an
// operand stack and a current scope pointer into a pkg/scope.Graph.
//
// The embedder is fully generic over architecture except for Jmp, which
// needs to know the name of the PC register (spec.md §4.4); that, plus
// the architectural state vector, is supplied by an Arch implementation.
package embed

import (
	"github.com/oisee/x86-symbolic-embedder/pkg/emerr"
	"github.com/oisee/x86-symbolic-embedder/pkg/il"
	"github.com/oisee/x86-symbolic-embedder/pkg/scope"
	"github.com/oisee/x86-symbolic-embedder/pkg/term"
)

// CPUEXNName is the synthetic one-bit flag CpuExn binds, shared across
// architectures (spec.md §3).
const CPUEXNName = "CPUEXN"

// StateEntry is one (name, sort) pair of an architectural state vector.
type StateEntry struct {
	Name string
	Sort term.Sort
}

// Arch supplies the architecture-specific facts the base embedder needs:
// the ordered architectural state vector and the name of the PC
// register that Jmp binds.
type Arch interface {
	StateVector() []StateEntry
	PCRegister() string
}

// Embedder is a single-fragment, single-threaded symbolic embedder. Its
// scope graph, node counter and unknown counter are owned exclusively by
// this instance; embedding independent fragments in parallel requires
// one Embedder per goroutine (spec.md §5; see pkg/batch).
type Embedder struct {
	arch        Arch
	graph       *scope.Graph
	root        int
	cur         int
	stack       []term.Term
	numUnknowns int
}

// New constructs an embedder whose scope graph root binds every entry of
// arch's state vector to a fresh ".initial" constant.
func New(arch Arch) *Embedder {
	g := scope.NewGraph()
	defs := make(map[string]term.Term, len(arch.StateVector()))
	for _, e := range arch.StateVector() {
		defs[e.Name] = term.NewConst(e.Name+".initial", e.Sort)
	}
	root := g.NewRoot(defs)
	return &Embedder{arch: arch, graph: g, root: root.ID, cur: root.ID}
}

// Graph returns the embedder's scope graph, for use by pkg/extract.
func (e *Embedder) Graph() *scope.Graph { return e.graph }

// Root returns the root node id.
func (e *Embedder) Root() int { return e.root }

// CurrentScope returns the current scope node id.
func (e *Embedder) CurrentScope() int { return e.cur }

// Arch returns the architecture this embedder was constructed for.
func (e *Embedder) Arch() Arch { return e.arch }

func (e *Embedder) pushTerm(t term.Term) { e.stack = append(e.stack, t) }

func (e *Embedder) popTerm() (term.Term, error) {
	if len(e.stack) == 0 {
		return nil, emerr.StackImbalancef("operand stack underflow")
	}
	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return top, nil
}

// Embed visits stmts in order, threading the current scope through each
// statement. It returns a *emerr.Error (via errors.As) on any structural
// failure. After a successful call the operand stack is guaranteed
// empty (spec.md §8, "stack balance").
func (e *Embedder) Embed(stmts []il.Stmt) error {
	for _, s := range stmts {
		if err := e.evalStmt(s); err != nil {
			return err
		}
	}
	if len(e.stack) != 0 {
		return emerr.StackImbalancef("%d item(s) left on the operand stack after embedding", len(e.stack))
	}
	return nil
}

// Run constructs a fresh Embedder for arch and embeds stmts, returning
// the embedder (positioned at its final scope) for extraction.
func Run(arch Arch, stmts []il.Stmt) (*Embedder, error) {
	e := New(arch)
	if err := e.Embed(stmts); err != nil {
		return nil, err
	}
	return e, nil
}

func sortOfType(t il.Type) (term.Sort, error) {
	switch v := t.(type) {
	case il.Imm:
		return term.BV{Width: v.Size}, nil
	case il.Mem:
		return term.Array{Index: term.BV{Width: v.AddrSize}, Elem: term.BV{Width: v.ValSize}}, nil
	default:
		return nil, emerr.Unsupported("unhandled IL type %T", t)
	}
}

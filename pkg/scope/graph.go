// Package scope implements the branching scope graph described in
// spec.md §3–4.1: a DAG of Def/Branch/Join nodes that records the
// evolving SSA environment during symbolic embedding, resolves variable
// names to their defining node (constructing phi definitions lazily at
// Join nodes), and computes SSA names and path conditions.
//
// Modeled as an arena (Graph.nodes) indexed by node id, per the design
// note in spec.md §9: "model as arena + indices rather than owning
// pointers."
package scope

import (
	"fmt"
	"strconv"

	"github.com/oisee/x86-symbolic-embedder/pkg/emerr"
	"github.com/oisee/x86-symbolic-embedder/pkg/term"
)

// Definition is what a node binds a name to: either a concrete term, or
// (if the name resolves differently across a Join's two parents) a phi —
// the set of contributing defining nodes, lazily recorded the first time
// the name is looked up past that Join.
type Definition struct {
	Term term.Term // non-nil unless this is a phi
	Phi  []int     // non-nil node ids unless this is a plain def
	Sort term.Sort
}

// IsPhi reports whether this definition is a lazily-constructed phi.
func (d *Definition) IsPhi() bool { return d.Phi != nil }

// Node is one scope-graph vertex. Its kind is implied by Parents/Cond:
// 0 parents = root Def, 1 parent + nil Cond = Def, 1 parent + non-nil
// Cond = Branch, 2 parents = Join.
type Node struct {
	ID       int
	Parents  []int
	Defs     map[string]*Definition
	Cond     term.Bool // non-nil only for Branch nodes
	Prefix   string    // ".if_true" / ".if_false" for Branch nodes, "" otherwise
	SplitSrc int       // Join's split source node id; -1 otherwise
}

// Graph owns every node created during one embedding. It must not be
// shared across embedders (spec.md §5).
type Graph struct {
	nodes []*Node
}

// NewGraph returns an empty graph.
func NewGraph() *Graph { return &Graph{} }

func (g *Graph) alloc(parents []int) *Node {
	n := &Node{
		ID:       len(g.nodes),
		Parents:  parents,
		Defs:     map[string]*Definition{},
		SplitSrc: -1,
	}
	g.nodes = append(g.nodes, n)
	return n
}

// Node returns the node with the given id.
func (g *Graph) Node(id int) *Node { return g.nodes[id] }

// Len returns the number of nodes allocated so far.
func (g *Graph) Len() int { return len(g.nodes) }

// NewRoot allocates the root Def node, binding each architectural state
// name to its given initial term. defs must be non-empty.
func (g *Graph) NewRoot(defs map[string]term.Term) *Node {
	n := g.alloc(nil)
	for name, t := range defs {
		n.Defs[name] = &Definition{Term: t, Sort: t.Sort()}
	}
	return n
}

// NewDef allocates a sequential Def node (a Move or the body of a Let),
// parented at parent, binding defs. defs must be non-empty.
func (g *Graph) NewDef(parent int, defs map[string]term.Term) *Node {
	n := g.alloc([]int{parent})
	for name, t := range defs {
		n.Defs[name] = &Definition{Term: t, Sort: t.Sort()}
	}
	return n
}

// NewBranch allocates one side of an If: a Branch node parented at
// splitSrc, guarded by cond, tagged with the given SSA-disambiguation
// prefix (".if_true" or ".if_false").
func (g *Graph) NewBranch(splitSrc int, cond term.Bool, prefix string) *Node {
	n := g.alloc([]int{splitSrc})
	n.Cond = cond
	n.Prefix = prefix
	return n
}

// NewJoin allocates a Join node merging the two arms (true-side and
// false-side tail nodes), recording splitSrc for dominator/path-condition
// purposes.
func (g *Graph) NewJoin(trueTail, falseTail, splitSrc int) *Node {
	n := g.alloc([]int{trueTail, falseTail})
	n.SplitSrc = splitSrc
	return n
}

// RecordSelfDef mutates node `at` in place, binding name to t without
// allocating a new node. Used only for Unknown(tag, sort): spec.md §4.2
// requires the fresh unknown to be "recorded in the current scope as a
// self-definition", not pushed as a fresh Def node.
func (g *Graph) RecordSelfDef(at int, name string, t term.Term) {
	g.nodes[at].Defs[name] = &Definition{Term: t, Sort: t.Sort()}
}

// LookupDef resolves name starting from node id, per spec.md §4.1. It
// returns the id of the node that defines name (possibly via a newly
// recorded phi) and that definition's sort. found is false if name has
// no definition reachable from id (the scope-graph root carries no
// binding for it).
func (g *Graph) LookupDef(id int, name string) (defNode int, sort term.Sort, found bool, err error) {
	n := g.nodes[id]
	if d, ok := n.Defs[name]; ok {
		return id, d.Sort, true, nil
	}
	switch len(n.Parents) {
	case 0:
		return -1, nil, false, nil
	case 1:
		return g.LookupDef(n.Parents[0], name)
	default:
		leftID, leftSort, leftFound, err := g.LookupDef(n.Parents[0], name)
		if err != nil {
			return -1, nil, false, err
		}
		rightID, rightSort, rightFound, err := g.LookupDef(n.Parents[1], name)
		if err != nil {
			return -1, nil, false, err
		}
		if !leftFound && !rightFound {
			return -1, nil, false, nil
		}
		if leftFound != rightFound {
			return -1, nil, false, emerr.UndefinedVar(name)
		}
		if leftID == rightID {
			// Unchanged on both branches: no phi needed.
			return leftID, leftSort, true, nil
		}
		if !term.SortsEqual(leftSort, rightSort) {
			return -1, nil, false, emerr.SortMismatchf(
				"join of %q: %s on one branch, %s on the other", name, leftSort, rightSort)
		}
		if d, ok := n.Defs[name]; ok {
			// Already materialized a phi here for this name.
			return id, d.Sort, true, nil
		}
		n.Defs[name] = &Definition{Phi: []int{leftID, rightID}, Sort: leftSort}
		return id, leftSort, true, nil
	}
}

// Prefix returns the concatenated branch-prefix chain from the root down
// to node id, crossing Joins through their split source rather than
// either parent (spec.md §4.1).
func (g *Graph) Prefix(id int) string {
	n := g.nodes[id]
	switch len(n.Parents) {
	case 0:
		return n.Prefix
	case 1:
		return g.Prefix(n.Parents[0]) + n.Prefix
	default:
		return g.Prefix(n.SplitSrc) + n.Prefix
	}
}

// SSA returns the globally-unique SSA identifier for name as defined at
// node id: name + prefix-chain + "." + node-id.
func (g *Graph) SSA(id int, name string) string {
	return name + g.Prefix(id) + "." + strconv.Itoa(id)
}

// CondTo returns the conjuncts of the path condition from ancestor down
// to id (spec.md §4.1), traversing Joins via their split source. An
// empty, nil-error result means id is unconditionally reachable from
// ancestor.
func (g *Graph) CondTo(id, ancestor int) ([]term.Bool, error) {
	if id == ancestor {
		return nil, nil
	}
	n := g.nodes[id]
	switch len(n.Parents) {
	case 0:
		return nil, fmt.Errorf("scope: node %d does not dominate node %d", ancestor, id)
	case 1:
		conds, err := g.CondTo(n.Parents[0], ancestor)
		if err != nil {
			return nil, err
		}
		if n.Cond != nil {
			conds = append(conds, n.Cond)
		}
		return conds, nil
	default:
		return g.CondTo(n.SplitSrc, ancestor)
	}
}

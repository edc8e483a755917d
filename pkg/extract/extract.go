// Package extract implements the demand-driven extractor (spec.md §4.3):
// from an embedder's final scope, it reaches back through the scope
// graph to emit one equality assertion per live SSA definition, building
// phi expressions at join nodes and topologically ordering dependencies
// before dependents.
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oisee/x86-symbolic-embedder/pkg/embed"
	"github.com/oisee/x86-symbolic-embedder/pkg/emerr"
	"github.com/oisee/x86-symbolic-embedder/pkg/scope"
	"github.com/oisee/x86-symbolic-embedder/pkg/term"
)

// Assertion is one emitted equality: Const(Name, Sort) == Value.
type Assertion struct {
	Name  string
	Sort  term.Sort
	Value term.Term
}

type extractor struct {
	graph   *scope.Graph
	root    int
	emitted map[int]map[string]bool
	asserts []Assertion
}

// Extract runs the extractor against e's final scope, emitting one
// assertion per architectural state entry plus every definition it
// transitively depends on. Output order is topological: every name a
// right-hand side refers to is emitted earlier in the list.
func Extract(e *embed.Embedder) ([]Assertion, error) {
	ex := &extractor{
		graph:   e.Graph(),
		root:    e.Root(),
		emitted: map[int]map[string]bool{},
	}
	for _, se := range e.Arch().StateVector() {
		defNode, sort, found, err := ex.graph.LookupDef(e.CurrentScope(), se.Name)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, emerr.UndefinedVar(se.Name)
		}
		if !term.SortsEqual(sort, se.Sort) {
			return nil, emerr.SortMismatchf("architectural state %q: declared %s, bound to %s", se.Name, se.Sort, sort)
		}
		if err := ex.extractOne(defNode, se.Name, sort); err != nil {
			return nil, err
		}
	}
	return ex.asserts, nil
}

func (ex *extractor) isEmitted(node int, name string) bool {
	return ex.emitted[node] != nil && ex.emitted[node][name]
}

func (ex *extractor) markEmitted(node int, name string) {
	if ex.emitted[node] == nil {
		ex.emitted[node] = map[string]bool{}
	}
	ex.emitted[node][name] = true
}

func (ex *extractor) extractOne(node int, name string, sort term.Sort) error {
	if ex.isEmitted(node, name) {
		return nil
	}
	d := ex.graph.Node(node).Defs[name]

	var rhs term.Term
	if d.IsPhi() {
		v, err := ex.extractPhi(node, name, sort, d.Phi)
		if err != nil {
			return err
		}
		rhs = v
	} else {
		for idName, idSort := range term.FreeConsts(d.Term) {
			if isInitial(idName) || isUnknown(idName) {
				continue
			}
			baseName, depNode, err := unssa(idName)
			if err != nil {
				return err
			}
			if err := ex.extractOne(depNode, baseName, idSort); err != nil {
				return err
			}
		}
		rhs = d.Term
	}

	ex.asserts = append(ex.asserts, Assertion{
		Name:  ex.graph.SSA(node, name),
		Sort:  sort,
		Value: rhs,
	})
	ex.markEmitted(node, name)
	return nil
}

// extractPhi extracts every contributor, locates the unique base
// (unconditionally-reached) contributor, and folds the others into a
// chain of if-then-else expressions guarded by their path condition from
// the root (spec.md §4.3).
func (ex *extractor) extractPhi(node int, name string, sort term.Sort, contributors []int) (term.Term, error) {
	for _, c := range contributors {
		if err := ex.extractOne(c, name, sort); err != nil {
			return nil, err
		}
	}

	baseID := -1
	var others []int
	for _, c := range contributors {
		conds, err := ex.graph.CondTo(c, ex.root)
		if err != nil {
			return nil, err
		}
		if len(conds) == 0 {
			if baseID != -1 {
				return nil, emerr.MissingBasef("phi for %q at node %d has more than one base (unconditional) contributor", name, node)
			}
			baseID = c
		} else {
			others = append(others, c)
		}
	}
	if baseID == -1 {
		return nil, emerr.MissingBasef("phi for %q at node %d has no base (unconditional) contributor", name, node)
	}

	phi := term.Term(term.NewConst(ex.graph.SSA(baseID, name), sort))
	for _, c := range others {
		conds, err := ex.graph.CondTo(c, ex.root)
		if err != nil {
			return nil, err
		}
		guard := term.NewAnd(conds...)
		phi = term.NewIte(guard, term.NewConst(ex.graph.SSA(c, name), sort), phi)
	}
	return phi, nil
}

func isInitial(name string) bool { return strings.HasSuffix(name, ".initial") }
func isUnknown(name string) bool { return strings.HasPrefix(name, "unknown_") }

// unssa inverts the SSA name grammar of spec.md §6:
//
//	basename ("." branch_prefix)* "." node_id
//
// returning the original base name and the defining node's id. Unlike a
// naive split on the final "." alone, this strips every trailing
// if_true/if_false prefix segment too, so that the returned name matches
// the key the defining node actually stores in its definition map.
func unssa(name string) (base string, nodeID int, err error) {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return "", 0, fmt.Errorf("extract: malformed ssa name %q", name)
	}
	id, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return "", 0, fmt.Errorf("extract: malformed ssa name %q: %w", name, err)
	}
	end := len(parts) - 1
	for end > 0 && (parts[end-1] == "if_true" || parts[end-1] == "if_false") {
		end--
	}
	return strings.Join(parts[:end], "."), id, nil
}

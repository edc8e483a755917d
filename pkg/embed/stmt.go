package embed

import (
	"github.com/oisee/x86-symbolic-embedder/pkg/emerr"
	"github.com/oisee/x86-symbolic-embedder/pkg/il"
	"github.com/oisee/x86-symbolic-embedder/pkg/term"
)

// evalStmt evaluates one IL statement, advancing the embedder's current
// scope (spec.md §4.2).
func (e *Embedder) evalStmt(stmt il.Stmt) error {
	switch s := stmt.(type) {
	case *il.Move:
		return e.evalMove(s)
	case *il.Jmp:
		return e.evalJmp(s)
	case *il.Special:
		return emerr.Unsupported("Special(%q) is not implemented by this embedder", s.Tag)
	case *il.While:
		return emerr.Unsupported("While loops are not implemented: this embedder only performs intra-fragment branching")
	case *il.If:
		return e.evalIf(s)
	case *il.CpuExn:
		return e.evalCpuExn(s)
	default:
		return emerr.Unsupported("unhandled statement node %T", stmt)
	}
}

func (e *Embedder) evalMove(s *il.Move) error {
	if err := e.evalExpr(s.Expr); err != nil {
		return err
	}
	val, err := e.popTerm()
	if err != nil {
		return err
	}
	_, oldSort, found, err := e.graph.LookupDef(e.cur, s.Var.Name)
	if err != nil {
		return err
	}
	if found && !term.SortsEqual(oldSort, val.Sort()) {
		return emerr.SortMismatchf("move to %q: redefining %s as %s", s.Var.Name, oldSort, val.Sort())
	}
	e.cur = e.graph.NewDef(e.cur, map[string]term.Term{s.Var.Name: val}).ID
	return nil
}

func (e *Embedder) evalJmp(s *il.Jmp) error {
	if err := e.evalExpr(s.Target); err != nil {
		return err
	}
	target, err := e.popTerm()
	if err != nil {
		return err
	}
	e.cur = e.graph.NewDef(e.cur, map[string]term.Term{e.arch.PCRegister(): target}).ID
	return nil
}

func (e *Embedder) evalIf(s *il.If) error {
	if err := e.evalExpr(s.Cond); err != nil {
		return err
	}
	cond, err := e.popTerm()
	if err != nil {
		return err
	}
	if w, ok := cond.Sort().(term.BV); !ok || w.Width != 1 {
		return emerr.SortMismatchf("if condition must be a 1-bit bit-vector, got %s", cond.Sort())
	}
	trueCond := term.BV1ToBool(cond)
	beforeIf := e.cur

	trueBranch := e.graph.NewBranch(beforeIf, trueCond, ".if_true")
	e.cur = trueBranch.ID
	if err := e.embedBlock(s.Then); err != nil {
		return err
	}
	trueTail := e.cur

	falseCond := term.NewNot(trueCond)
	falseBranch := e.graph.NewBranch(beforeIf, falseCond, ".if_false")
	e.cur = falseBranch.ID
	if err := e.embedBlock(s.Else); err != nil {
		return err
	}
	falseTail := e.cur

	join := e.graph.NewJoin(trueTail, falseTail, beforeIf)
	e.cur = join.ID
	return nil
}

func (e *Embedder) embedBlock(stmts []il.Stmt) error {
	for _, s := range stmts {
		if err := e.evalStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *Embedder) evalCpuExn(s *il.CpuExn) error {
	e.cur = e.graph.NewDef(e.cur, map[string]term.Term{CPUEXNName: term.NewBVValU64(1, 1)}).ID
	return nil
}

package extract

import (
	"math/big"
	"testing"

	"github.com/oisee/x86-symbolic-embedder/pkg/embed"
	"github.com/oisee/x86-symbolic-embedder/pkg/il"
	"github.com/oisee/x86-symbolic-embedder/pkg/term"
)

var bv8 = term.BV{Width: 8}

// fakeArch is a tiny two-name architecture, just enough to exercise
// extraction without pulling in the full x86-64 state vector.
type fakeArch struct{}

func (fakeArch) StateVector() []embed.StateEntry {
	return []embed.StateEntry{
		{Name: "A", Sort: bv8},
		{Name: "B", Sort: bv8},
	}
}
func (fakeArch) PCRegister() string { return "PC" }

func TestExtractPlainAssignmentChain(t *testing.T) {
	stmts := []il.Stmt{
		&il.Move{Var: il.Var{Name: "A", Type: il.Imm{Size: 8}}, Expr: &il.Int{Value: big.NewInt(1), Size: 8}},
		&il.Move{
			Var: il.Var{Name: "B", Type: il.Imm{Size: 8}},
			Expr: &il.BinExpr{Op: il.PLUS,
				LHS: &il.Var{Name: "A", Type: il.Imm{Size: 8}},
				RHS: &il.Int{Value: big.NewInt(1), Size: 8}},
		},
	}
	e, err := embed.Run(fakeArch{}, stmts)
	if err != nil {
		t.Fatal(err)
	}
	asserts, err := Extract(e)
	if err != nil {
		t.Fatal(err)
	}

	aName := e.Graph().SSA(findDefNode(t, e, "A"), "A")
	bName := e.Graph().SSA(e.CurrentScope(), "B")
	aIdx, bIdx := indexOf(asserts, aName), indexOf(asserts, bName)
	if aIdx == -1 || bIdx == -1 {
		t.Fatalf("missing expected assertions: A=%d B=%d (%d total)", aIdx, bIdx, len(asserts))
	}
	if aIdx >= bIdx {
		t.Fatalf("A (dependency) must be extracted before B (dependent): A@%d B@%d", aIdx, bIdx)
	}
}

func TestExtractIsIdempotentPerNode(t *testing.T) {
	stmts := []il.Stmt{
		&il.Move{
			Var: il.Var{Name: "B", Type: il.Imm{Size: 8}},
			Expr: &il.BinExpr{Op: il.PLUS,
				LHS: &il.Var{Name: "A", Type: il.Imm{Size: 8}},
				RHS: &il.Var{Name: "A", Type: il.Imm{Size: 8}}},
		},
	}
	e, err := embed.Run(fakeArch{}, stmts)
	if err != nil {
		t.Fatal(err)
	}
	asserts, err := Extract(e)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]int{}
	for _, a := range asserts {
		seen[a.Name]++
	}
	for name, n := range seen {
		if n != 1 {
			t.Fatalf("assertion %q emitted %d times, want exactly once", name, n)
		}
	}
}

func TestUnssaStripsPrefixChain(t *testing.T) {
	base, id, err := unssa("RSI.if_true.5")
	if err != nil {
		t.Fatal(err)
	}
	if base != "RSI" || id != 5 {
		t.Fatalf("unssa(RSI.if_true.5) = (%q, %d), want (RSI, 5)", base, id)
	}

	base, id, err = unssa("RAX.if_true.if_false.12")
	if err != nil {
		t.Fatal(err)
	}
	if base != "RAX" || id != 12 {
		t.Fatalf("unssa(RAX.if_true.if_false.12) = (%q, %d), want (RAX, 12)", base, id)
	}

	base, id, err = unssa("CF.3")
	if err != nil {
		t.Fatal(err)
	}
	if base != "CF" || id != 3 {
		t.Fatalf("unssa(CF.3) = (%q, %d), want (CF, 3)", base, id)
	}
}

func TestIsInitialAndIsUnknown(t *testing.T) {
	if !isInitial("RAX.initial") || isInitial("RAX.5") {
		t.Fatalf("isInitial misclassified")
	}
	if !isUnknown("unknown_3") || isUnknown("RAX.5") {
		t.Fatalf("isUnknown misclassified")
	}
}

func indexOf(asserts []Assertion, name string) int {
	for i, a := range asserts {
		if a.Name == name {
			return i
		}
	}
	return -1
}

func findDefNode(t *testing.T, e *embed.Embedder, name string) int {
	t.Helper()
	id, _, found, err := e.Graph().LookupDef(e.CurrentScope(), name)
	if err != nil || !found {
		t.Fatalf("lookup %q failed: found=%v err=%v", name, found, err)
	}
	return id
}

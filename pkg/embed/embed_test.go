package embed_test

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/oisee/x86-symbolic-embedder/pkg/arch/x86_64"
	"github.com/oisee/x86-symbolic-embedder/pkg/embed"
	"github.com/oisee/x86-symbolic-embedder/pkg/emerr"
	"github.com/oisee/x86-symbolic-embedder/pkg/extract"
	"github.com/oisee/x86-symbolic-embedder/pkg/il"
	"github.com/oisee/x86-symbolic-embedder/pkg/term"
)

func reg(name string) il.Var { return il.Var{Name: name, Type: il.Imm{Size: 64}} }

// "add rsp, 8": RSP := RSP + 8.
func TestEmbedAddRspEight(t *testing.T) {
	stmts := []il.Stmt{
		&il.Move{
			Var:  reg("RSP"),
			Expr: &il.BinExpr{Op: il.PLUS, LHS: &il.Var{Name: "RSP", Type: il.Imm{Size: 64}}, RHS: &il.Int{Value: big.NewInt(8), Size: 64}},
		},
	}
	e, err := embed.Run(x86_64.Arch{}, stmts)
	if err != nil {
		t.Fatal(err)
	}
	asserts, err := extract.Extract(e)
	if err != nil {
		t.Fatal(err)
	}
	final := findAssertion(t, asserts, e.Graph().SSA(e.CurrentScope(), "RSP"))
	bin, ok := final.Value.(*term.BinaryTerm)
	if !ok || bin.Which != term.OpAdd {
		t.Fatalf("RSP assertion value = %s, want a bvadd", term.Render(final.Value))
	}
}

// "mov r13, rsi": R13 := RSI, a straight register copy.
func TestEmbedMovR13Rsi(t *testing.T) {
	stmts := []il.Stmt{
		&il.Move{Var: reg("R13"), Expr: &il.Var{Name: "RSI", Type: il.Imm{Size: 64}}},
	}
	e, err := embed.Run(x86_64.Arch{}, stmts)
	if err != nil {
		t.Fatal(err)
	}
	asserts, err := extract.Extract(e)
	if err != nil {
		t.Fatal(err)
	}
	final := findAssertion(t, asserts, e.Graph().SSA(e.CurrentScope(), "R13"))
	c, ok := final.Value.(*term.Const)
	if !ok || !strings.HasPrefix(c.Name, "RSI") {
		t.Fatalf("R13 assertion value = %s, want a reference to RSI's initial const", term.Render(final.Value))
	}
}

// Well-formed statements always leave the operand stack balanced: every
// Move/Jmp consumes exactly what its expression pushed, so Embed never
// returns emerr.StackImbalance for input produced by evalStmt's own
// statement set. An empty fragment is the trivial case.
func TestEmbedEmptyFragmentLeavesScopeUnchanged(t *testing.T) {
	e, err := embed.Run(x86_64.Arch{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.CurrentScope() != e.Root() {
		t.Fatalf("embedding no statements should not move the scope pointer")
	}
}

// An If whose condition is a runtime-unknown 1-bit value produces a phi
// at the join; extraction must emit an ite guarded by the true-branch
// condition, falling back to the (unconditional) pre-branch value.
func TestEmbedIfBuildsPhi(t *testing.T) {
	cond := &il.CmpExpr{
		Op:  il.EQ,
		LHS: &il.Var{Name: "RAX", Type: il.Imm{Size: 64}},
		RHS: &il.Int{Value: big.NewInt(0), Size: 64},
	}
	stmts := []il.Stmt{
		&il.If{
			Cond: cond,
			Then: []il.Stmt{
				&il.Move{Var: reg("RBX"), Expr: &il.Int{Value: big.NewInt(1), Size: 64}},
			},
			Else: nil,
		},
	}
	e, err := embed.Run(x86_64.Arch{}, stmts)
	if err != nil {
		t.Fatal(err)
	}
	asserts, err := extract.Extract(e)
	if err != nil {
		t.Fatal(err)
	}
	final := findAssertion(t, asserts, e.Graph().SSA(e.CurrentScope(), "RBX"))
	ite, ok := final.Value.(*term.IteTerm)
	if !ok {
		t.Fatalf("RBX assertion value = %s, want an ite (phi)", term.Render(final.Value))
	}
	arm, ok := ite.Then.(*term.Const)
	if !ok || !strings.HasPrefix(arm.Name, "RBX.if_true.") {
		t.Fatalf("ite.Then = %s, want the true-arm SSA name RBX.if_true.<id>", term.Render(ite.Then))
	}
	armDef := findAssertion(t, asserts, arm.Name)
	if lit, ok := armDef.Value.(*term.BVVal); !ok || lit.Val.Int64() != 1 {
		t.Fatalf("%s = %s, want the literal 1", arm.Name, term.Render(armDef.Value))
	}
}

// A little-endian 16-bit load expands into two byte selects concatenated
// with the low byte in the least-significant position. The load is
// zero-extended to 64 bits so the Move keeps R8's sort.
func TestEmbedLoadLittleEndianExpansion(t *testing.T) {
	stmts := []il.Stmt{
		&il.Move{
			Var: il.Var{Name: "R8", Type: il.Imm{Size: 64}},
			Expr: &il.Unsigned{Size: 64, Arg: &il.Load{
				Mem:      &il.Var{Name: "mem64", Type: il.Mem{AddrSize: 64, ValSize: 8}},
				Off:      &il.Var{Name: "RSI", Type: il.Imm{Size: 64}},
				Endian:   il.LittleEndian,
				SizeBits: 16,
			}},
		},
	}
	e, err := embed.Run(x86_64.Arch{}, stmts)
	if err != nil {
		t.Fatal(err)
	}
	asserts, err := extract.Extract(e)
	if err != nil {
		t.Fatal(err)
	}
	final := findAssertion(t, asserts, e.Graph().SSA(e.CurrentScope(), "R8"))
	ext, ok := final.Value.(*term.ExtendTerm)
	if !ok || ext.Signed {
		t.Fatalf("R8 assertion value = %s, want a zero-extended load", term.Render(final.Value))
	}
	concat, ok := ext.Arg.(*term.ConcatTerm)
	if !ok {
		t.Fatalf("R8 assertion value = %s, want a zero-extended concat", term.Render(final.Value))
	}
	if concat.Hi.Sort().(term.BV).Width != 8 || concat.Lo.Sort().(term.BV).Width != 8 {
		t.Fatalf("expected two 8-bit halves, got %s/%s", concat.Hi.Sort(), concat.Lo.Sort())
	}
}

// BigEndian is recognized and rejected, not silently reinterpreted.
func TestEmbedLoadBigEndianRejected(t *testing.T) {
	stmts := []il.Stmt{
		&il.Move{
			Var: il.Var{Name: "R8", Type: il.Imm{Size: 64}},
			Expr: &il.Load{
				Mem:      &il.Var{Name: "mem64", Type: il.Mem{AddrSize: 64, ValSize: 8}},
				Off:      &il.Var{Name: "RSI", Type: il.Imm{Size: 64}},
				Endian:   il.BigEndian,
				SizeBits: 16,
			},
		},
	}
	_, err := embed.Run(x86_64.Arch{}, stmts)
	var e *emerr.Error
	if !errors.As(err, &e) || e.Kind != emerr.EndiannessUnsupported {
		t.Fatalf("expected EndiannessUnsupported, got %v", err)
	}
}

// Storing a byte and then loading it back from the same offset must
// round-trip under concrete evaluation, cross-checking the emitted
// memory-array term against the reference interpreter (SPEC_FULL.md §8).
// The loaded byte is zero-extended to 64 bits so the Move keeps R8's sort.
func TestEmbedStoreThenLoadRoundTrip(t *testing.T) {
	stmts := []il.Stmt{
		&il.Move{
			Var: il.Var{Name: "mem64", Type: il.Mem{AddrSize: 64, ValSize: 8}},
			Expr: &il.Store{
				Mem:      &il.Var{Name: "mem64", Type: il.Mem{AddrSize: 64, ValSize: 8}},
				Off:      &il.Var{Name: "RSI", Type: il.Imm{Size: 64}},
				Value:    &il.Int{Value: big.NewInt(0xAB), Size: 8},
				Endian:   il.LittleEndian,
				SizeBits: 8,
			},
		},
		&il.Move{
			Var: il.Var{Name: "R8", Type: il.Imm{Size: 64}},
			Expr: &il.Unsigned{Size: 64, Arg: &il.Load{
				Mem:      &il.Var{Name: "mem64", Type: il.Mem{AddrSize: 64, ValSize: 8}},
				Off:      &il.Var{Name: "RSI", Type: il.Imm{Size: 64}},
				Endian:   il.LittleEndian,
				SizeBits: 8,
			}},
		},
	}
	e, err := embed.Run(x86_64.Arch{}, stmts)
	if err != nil {
		t.Fatal(err)
	}
	asserts, err := extract.Extract(e)
	if err != nil {
		t.Fatal(err)
	}

	env := term.Env{}
	arch := x86_64.Arch{}
	for _, se := range arch.StateVector() {
		switch s := se.Sort.(type) {
		case term.BV:
			env[se.Name+".initial"] = term.NewBVValue(big.NewInt(0), s.Width)
		case term.Array:
			env[se.Name+".initial"] = term.ArrayValue{
				IndexSort: s.Index, ElemWidth: s.Elem.(term.BV).Width,
				Default: big.NewInt(0), Cells: map[string]*big.Int{},
			}
		}
	}

	var r8Name string
	for _, a := range asserts {
		v, err := term.EvalTerm(a.Value, env)
		if err != nil {
			t.Fatalf("eval %s := %s: %v", a.Name, term.Render(a.Value), err)
		}
		env[a.Name] = v
		if strings.HasPrefix(a.Name, "R8.") {
			r8Name = a.Name
		}
	}
	if r8Name == "" {
		t.Fatalf("no R8 assertion emitted")
	}
	got := env[r8Name].(term.BVValue)
	if got.Val.Cmp(big.NewInt(0xAB)) != 0 {
		t.Fatalf("loaded-back byte = %s, want 0xAB", got.Val)
	}
}

// A Jmp binds the architecture's PC register (RIP on x86-64) to the
// evaluated target expression, the way every one of spec.md §8's worked
// scenarios requires (RIP_final == RIP.initial + N).
func TestEmbedJmpBindsRip(t *testing.T) {
	stmts := []il.Stmt{
		&il.Jmp{
			Target: &il.BinExpr{Op: il.PLUS,
				LHS: &il.Var{Name: "RIP", Type: il.Imm{Size: 64}},
				RHS: &il.Int{Value: big.NewInt(5), Size: 64}},
		},
	}
	e, err := embed.Run(x86_64.Arch{}, stmts)
	if err != nil {
		t.Fatal(err)
	}
	asserts, err := extract.Extract(e)
	if err != nil {
		t.Fatal(err)
	}
	final := findAssertion(t, asserts, e.Graph().SSA(e.CurrentScope(), "RIP"))
	bin, ok := final.Value.(*term.BinaryTerm)
	if !ok || bin.Which != term.OpAdd {
		t.Fatalf("RIP assertion value = %s, want a bvadd", term.Render(final.Value))
	}
}

func findAssertion(t *testing.T, asserts []extract.Assertion, name string) extract.Assertion {
	t.Helper()
	for _, a := range asserts {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("no assertion named %q among %d assertions", name, len(asserts))
	return extract.Assertion{}
}

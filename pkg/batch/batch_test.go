package batch_test

import (
	"math/big"
	"strings"
	"testing"

	"github.com/oisee/x86-symbolic-embedder/pkg/arch/x86_64"
	"github.com/oisee/x86-symbolic-embedder/pkg/batch"
	"github.com/oisee/x86-symbolic-embedder/pkg/il"
)

func reg(name string) il.Var { return il.Var{Name: name, Type: il.Imm{Size: 64}} }

func TestPoolRunPreservesOrderAndReportsFailures(t *testing.T) {
	good := batch.Fragment{
		Name: "ok",
		Stmts: []il.Stmt{
			&il.Move{Var: reg("RAX"), Expr: &il.Int{Value: big.NewInt(1), Size: 64}},
		},
	}
	bad := batch.Fragment{
		Name: "bad",
		Stmts: []il.Stmt{
			&il.Special{Tag: "unmodeled"},
		},
	}

	pool := batch.NewPool(x86_64.Arch{}, 2)
	results := pool.Run([]batch.Fragment{good, bad, good}, false)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Name != "ok" || results[1].Name != "bad" || results[2].Name != "ok" {
		t.Fatalf("results out of order: %+v", results)
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("good fragments failed: %v / %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil || !strings.Contains(results[1].Err.Error(), "bad") {
		t.Fatalf("bad fragment should fail with a wrapped fragment name, got %v", results[1].Err)
	}

	succeeded, failed := pool.Stats()
	if succeeded != 2 || failed != 1 {
		t.Fatalf("Stats() = (%d, %d), want (2, 1)", succeeded, failed)
	}
}

func TestPoolRunEmpty(t *testing.T) {
	pool := batch.NewPool(x86_64.Arch{}, 0)
	results := pool.Run(nil, false)
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

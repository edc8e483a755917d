package il

import "testing"

func TestDecodeProgramMoveAndBin(t *testing.T) {
	data := []byte(`{
		"stmts": [
			{"op":"move","var":{"name":"RSP","type":{"kind":"imm","size":64}},
			 "expr":{"kind":"bin","op":"PLUS",
			         "lhs":{"kind":"var","name":"RSP","type":{"kind":"imm","size":64}},
			         "rhs":{"kind":"int","value":"8","size":64}}}
		]
	}`)
	stmts, err := DecodeProgram(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(stmts))
	}
	mv, ok := stmts[0].(*Move)
	if !ok {
		t.Fatalf("stmt = %T, want *Move", stmts[0])
	}
	if mv.Var.Name != "RSP" {
		t.Fatalf("move target = %q, want RSP", mv.Var.Name)
	}
	bin, ok := mv.Expr.(*BinExpr)
	if !ok || bin.Op != PLUS {
		t.Fatalf("move expr = %#v, want a PLUS BinExpr", mv.Expr)
	}
	lit, ok := bin.RHS.(*Int)
	if !ok || lit.Value.Int64() != 8 {
		t.Fatalf("rhs = %#v, want literal 8", bin.RHS)
	}
}

func TestDecodeProgramIfAndLoad(t *testing.T) {
	data := []byte(`{
		"stmts": [
			{"op":"if",
			 "cond":{"kind":"cmp","op":"EQ",
			         "lhs":{"kind":"var","name":"RAX","type":{"kind":"imm","size":64}},
			         "rhs":{"kind":"int","value":"0","size":64}},
			 "then":[{"op":"move","var":{"name":"RBX","type":{"kind":"imm","size":64}},
			          "expr":{"kind":"load",
			                  "mem":{"kind":"var","name":"mem64","type":{"kind":"mem","addrSize":64,"valSize":8}},
			                  "off":{"kind":"var","name":"RSI","type":{"kind":"imm","size":64}},
			                  "endian":"little","size":16}}],
			 "else":[]}
		]
	}`)
	stmts, err := DecodeProgram(data)
	if err != nil {
		t.Fatal(err)
	}
	ifs, ok := stmts[0].(*If)
	if !ok {
		t.Fatalf("stmt = %T, want *If", stmts[0])
	}
	if len(ifs.Then) != 1 || len(ifs.Else) != 0 {
		t.Fatalf("then/else = %d/%d, want 1/0", len(ifs.Then), len(ifs.Else))
	}
	mv := ifs.Then[0].(*Move)
	ld, ok := mv.Expr.(*Load)
	if !ok || ld.Endian != LittleEndian || ld.SizeBits != 16 {
		t.Fatalf("load = %#v", mv.Expr)
	}
}

func TestDecodeProgramRejectsUnknownKind(t *testing.T) {
	_, err := DecodeProgram([]byte(`{"stmts":[{"op":"frobnicate"}]}`))
	if err == nil {
		t.Fatalf("expected an error for an unknown statement op")
	}
}

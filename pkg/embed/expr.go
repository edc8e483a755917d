package embed

import (
	"fmt"

	"github.com/oisee/x86-symbolic-embedder/pkg/emerr"
	"github.com/oisee/x86-symbolic-embedder/pkg/il"
	"github.com/oisee/x86-symbolic-embedder/pkg/term"
)

// evalExpr evaluates expr, pushing its resulting Term onto the operand
// stack (spec.md §4.2). Sub-expressions are always evaluated before the
// operator that combines them (postorder), matching the "leave_*"
// dispatch of the source embedder.
func (e *Embedder) evalExpr(expr il.Expr) error {
	switch x := expr.(type) {
	case *il.Int:
		e.pushTerm(term.NewBVVal(x.Value, x.Size))
		return nil
	case *il.Var:
		return e.evalVar(x)
	case *il.Let:
		return e.evalLet(x)
	case *il.Ite:
		return e.evalIte(x)
	case *il.BinExpr:
		return e.evalBin(x)
	case *il.ShiftExpr:
		return e.evalShift(x)
	case *il.CmpExpr:
		return e.evalCmp(x)
	case *il.Concat:
		return e.evalConcat(x)
	case *il.Extract:
		return e.evalExtract(x)
	case *il.High:
		return e.evalHigh(x)
	case *il.Low:
		return e.evalLow(x)
	case *il.UnExpr:
		return e.evalUnary(x)
	case *il.Unsigned:
		return e.evalUnsigned(x)
	case *il.Signed:
		return e.evalSigned(x)
	case *il.Load:
		return e.evalLoad(x)
	case *il.Store:
		return e.evalStore(x)
	case *il.Unknown:
		return e.evalUnknown(x)
	default:
		return emerr.Unsupported("unhandled expression node %T", expr)
	}
}

func (e *Embedder) evalVar(v *il.Var) error {
	expected, err := sortOfType(v.Type)
	if err != nil {
		return err
	}
	defNode, sort, found, err := e.graph.LookupDef(e.cur, v.Name)
	if err != nil {
		return err
	}
	if !found {
		return emerr.UndefinedVar(v.Name)
	}
	if !term.SortsEqual(sort, expected) {
		return emerr.SortMismatchf("var %q: declared %s, bound to %s", v.Name, expected, sort)
	}
	e.pushTerm(term.NewConst(e.graph.SSA(defNode, v.Name), sort))
	return nil
}

func (e *Embedder) evalLet(x *il.Let) error {
	if err := e.evalExpr(x.Val); err != nil {
		return err
	}
	val, err := e.popTerm()
	if err != nil {
		return err
	}
	n := e.graph.NewDef(e.cur, map[string]term.Term{x.Var.Name: val})
	parent := e.cur
	e.cur = n.ID
	if err := e.evalExpr(x.Body); err != nil {
		return err
	}
	body, err := e.popTerm()
	if err != nil {
		return err
	}
	e.cur = parent // pop the Let scope; only Let scopes are ever popped
	e.pushTerm(body)
	return nil
}

func (e *Embedder) evalIte(x *il.Ite) error {
	if err := e.evalExpr(x.Cond); err != nil {
		return err
	}
	if err := e.evalExpr(x.Then); err != nil {
		return err
	}
	if err := e.evalExpr(x.Else); err != nil {
		return err
	}
	elseT, err := e.popTerm()
	if err != nil {
		return err
	}
	thenT, err := e.popTerm()
	if err != nil {
		return err
	}
	condT, err := e.popTerm()
	if err != nil {
		return err
	}
	if w, ok := condT.Sort().(term.BV); !ok || w.Width != 1 {
		return emerr.SortMismatchf("ite condition must be a 1-bit bit-vector, got %s", condT.Sort())
	}
	if !term.SortsEqual(thenT.Sort(), elseT.Sort()) {
		return emerr.SortMismatchf("ite branches disagree: %s vs %s", thenT.Sort(), elseT.Sort())
	}
	e.pushTerm(term.NewIte(term.BV1ToBool(condT), thenT, elseT))
	return nil
}

func binOp(op il.BinOp) (term.BinOp, error) {
	switch op {
	case il.PLUS:
		return term.OpAdd, nil
	case il.MINUS:
		return term.OpSub, nil
	case il.TIMES:
		return term.OpMul, nil
	case il.DIVIDE:
		return term.OpUDiv, nil
	case il.SDIVIDE:
		return term.OpSDiv, nil
	case il.MOD:
		return term.OpURem, nil
	case il.SMOD:
		return term.OpSRem, nil
	case il.AND:
		return term.OpAnd, nil
	case il.OR:
		return term.OpOr, nil
	case il.XOR:
		return term.OpXor, nil
	default:
		return 0, emerr.Unsupported("unhandled binary operator %d", op)
	}
}

func (e *Embedder) evalBin(x *il.BinExpr) error {
	if err := e.evalExpr(x.LHS); err != nil {
		return err
	}
	if err := e.evalExpr(x.RHS); err != nil {
		return err
	}
	rhs, err := e.popTerm()
	if err != nil {
		return err
	}
	lhs, err := e.popTerm()
	if err != nil {
		return err
	}
	if !term.SortsEqual(lhs.Sort(), rhs.Sort()) {
		return emerr.SortMismatchf("binary op operands disagree: %s vs %s", lhs.Sort(), rhs.Sort())
	}
	op, err := binOp(x.Op)
	if err != nil {
		return err
	}
	e.pushTerm(term.NewBinary(op, lhs, rhs))
	return nil
}

// equalizeShift zero-extends rhs to lhs's width when narrower, per
// spec.md §4.2. A wider shift amount is a fatal implementation gap.
func equalizeShift(lhs, rhs term.Term) (term.Term, error) {
	lw := lhs.Sort().(term.BV).Width
	rw := rhs.Sort().(term.BV).Width
	switch {
	case rw < lw:
		return term.NewZeroExt(lw, rhs), nil
	case rw > lw:
		return nil, emerr.Unsupported("shift amount (%d bits) wider than operand (%d bits)", rw, lw)
	default:
		return rhs, nil
	}
}

func (e *Embedder) evalShift(x *il.ShiftExpr) error {
	if err := e.evalExpr(x.LHS); err != nil {
		return err
	}
	if err := e.evalExpr(x.RHS); err != nil {
		return err
	}
	rhs, err := e.popTerm()
	if err != nil {
		return err
	}
	lhs, err := e.popTerm()
	if err != nil {
		return err
	}
	rhs, err = equalizeShift(lhs, rhs)
	if err != nil {
		return err
	}
	var op term.BinOp
	switch x.Op {
	case il.LSHIFT:
		op = term.OpShl
	case il.RSHIFT:
		op = term.OpLShr
	case il.ARSHIFT:
		op = term.OpAShr
	default:
		return emerr.Unsupported("unhandled shift operator %d", x.Op)
	}
	e.pushTerm(term.NewBinary(op, lhs, rhs))
	return nil
}

func cmpOp(op il.CmpOp) (term.CmpOp, error) {
	switch op {
	case il.EQ:
		return term.CmpEq, nil
	case il.NEQ:
		return term.CmpNe, nil
	case il.LT:
		return term.CmpULT, nil
	case il.LE:
		return term.CmpULE, nil
	case il.SLT:
		return term.CmpSLT, nil
	case il.SLE:
		return term.CmpSLE, nil
	default:
		return 0, emerr.Unsupported("unhandled comparison operator %d", op)
	}
}

func (e *Embedder) evalCmp(x *il.CmpExpr) error {
	if err := e.evalExpr(x.LHS); err != nil {
		return err
	}
	if err := e.evalExpr(x.RHS); err != nil {
		return err
	}
	rhs, err := e.popTerm()
	if err != nil {
		return err
	}
	lhs, err := e.popTerm()
	if err != nil {
		return err
	}
	if !term.SortsEqual(lhs.Sort(), rhs.Sort()) {
		return emerr.SortMismatchf("comparison operands disagree: %s vs %s", lhs.Sort(), rhs.Sort())
	}
	op, err := cmpOp(x.Op)
	if err != nil {
		return err
	}
	e.pushTerm(term.BoolToBV1(term.NewCmp(op, lhs, rhs)))
	return nil
}

func (e *Embedder) evalConcat(x *il.Concat) error {
	if err := e.evalExpr(x.LHS); err != nil {
		return err
	}
	if err := e.evalExpr(x.RHS); err != nil {
		return err
	}
	rhs, err := e.popTerm()
	if err != nil {
		return err
	}
	lhs, err := e.popTerm()
	if err != nil {
		return err
	}
	e.pushTerm(term.NewConcat(lhs, rhs))
	return nil
}

func (e *Embedder) evalExtract(x *il.Extract) error {
	if err := e.evalExpr(x.Arg); err != nil {
		return err
	}
	arg, err := e.popTerm()
	if err != nil {
		return err
	}
	e.pushTerm(term.NewExtract(x.Hi, x.Lo, arg))
	return nil
}

func (e *Embedder) evalHigh(x *il.High) error {
	if err := e.evalExpr(x.Arg); err != nil {
		return err
	}
	arg, err := e.popTerm()
	if err != nil {
		return err
	}
	width := arg.Sort().(term.BV).Width
	e.pushTerm(term.NewExtract(width-1, width-x.N, arg))
	return nil
}

func (e *Embedder) evalLow(x *il.Low) error {
	if err := e.evalExpr(x.Arg); err != nil {
		return err
	}
	arg, err := e.popTerm()
	if err != nil {
		return err
	}
	e.pushTerm(term.NewExtract(x.N-1, 0, arg))
	return nil
}

func (e *Embedder) evalUnary(x *il.UnExpr) error {
	if err := e.evalExpr(x.Arg); err != nil {
		return err
	}
	arg, err := e.popTerm()
	if err != nil {
		return err
	}
	var op term.UnOp
	switch x.Op {
	case il.NEG:
		op = term.OpNeg
	case il.NOT:
		op = term.OpNot
	default:
		return emerr.Unsupported("unhandled unary operator %d", x.Op)
	}
	e.pushTerm(term.NewUnary(op, arg))
	return nil
}

func (e *Embedder) evalUnsigned(x *il.Unsigned) error {
	if err := e.evalExpr(x.Arg); err != nil {
		return err
	}
	arg, err := e.popTerm()
	if err != nil {
		return err
	}
	src := arg.Sort().(term.BV).Width
	if x.Size < src {
		return emerr.Unsupported("UNSIGNED(%d, .): source is %d bits wide", x.Size, src)
	}
	e.pushTerm(term.NewZeroExt(x.Size, arg))
	return nil
}

func (e *Embedder) evalSigned(x *il.Signed) error {
	if err := e.evalExpr(x.Arg); err != nil {
		return err
	}
	arg, err := e.popTerm()
	if err != nil {
		return err
	}
	src := arg.Sort().(term.BV).Width
	if x.Size < src {
		return emerr.Unsupported("SIGNED(%d, .): source is %d bits wide", x.Size, src)
	}
	e.pushTerm(term.NewSignExt(x.Size, arg))
	return nil
}

func (e *Embedder) evalLoad(x *il.Load) error {
	if x.Endian == il.BigEndian {
		return emerr.Endianness("Load: BigEndian is not supported")
	}
	if err := e.evalExpr(x.Mem); err != nil {
		return err
	}
	if err := e.evalExpr(x.Off); err != nil {
		return err
	}
	off, err := e.popTerm()
	if err != nil {
		return err
	}
	mem, err := e.popTerm()
	if err != nil {
		return err
	}
	arr, ok := mem.Sort().(term.Array)
	if !ok {
		return emerr.SortMismatchf("Load: expected an array, got %s", mem.Sort())
	}
	elemW := arr.Elem.(term.BV).Width
	if elemW != 8 {
		return emerr.SortMismatchf("Load: memory element width must be 8, got %d", elemW)
	}
	if x.SizeBits%8 != 0 {
		return emerr.SortMismatchf("Load: size %d is not a multiple of 8", x.SizeBits)
	}
	if !term.SortsEqual(off.Sort(), arr.Index) {
		return emerr.SortMismatchf("Load: offset sort %s disagrees with memory index sort %s", off.Sort(), arr.Index)
	}
	n := x.SizeBits / 8
	addrWidth := arr.Index.(term.BV).Width
	bytes := make([]term.Term, n)
	for i := 0; i < n; i++ {
		idx := term.NewBinary(term.OpAdd, off, term.NewBVValU64(uint64(i), addrWidth))
		bytes[i] = term.NewSelect(mem, idx)
	}
	acc := bytes[0]
	for i := 1; i < n; i++ {
		acc = term.NewConcat(bytes[i], acc)
	}
	e.pushTerm(acc)
	return nil
}

func (e *Embedder) evalStore(x *il.Store) error {
	if x.Endian == il.BigEndian {
		return emerr.Endianness("Store: BigEndian is not supported")
	}
	if err := e.evalExpr(x.Mem); err != nil {
		return err
	}
	if err := e.evalExpr(x.Off); err != nil {
		return err
	}
	if err := e.evalExpr(x.Value); err != nil {
		return err
	}
	value, err := e.popTerm()
	if err != nil {
		return err
	}
	off, err := e.popTerm()
	if err != nil {
		return err
	}
	mem, err := e.popTerm()
	if err != nil {
		return err
	}
	arr, ok := mem.Sort().(term.Array)
	if !ok {
		return emerr.SortMismatchf("Store: expected an array, got %s", mem.Sort())
	}
	elemW := arr.Elem.(term.BV).Width
	if elemW != 8 {
		return emerr.SortMismatchf("Store: memory element width must be 8, got %d", elemW)
	}
	if x.SizeBits%8 != 0 {
		return emerr.SortMismatchf("Store: size %d is not a multiple of 8", x.SizeBits)
	}
	if value.Sort().(term.BV).Width != x.SizeBits {
		return emerr.SortMismatchf("Store: value is %d bits, size says %d", value.Sort().(term.BV).Width, x.SizeBits)
	}
	if !term.SortsEqual(off.Sort(), arr.Index) {
		return emerr.SortMismatchf("Store: offset sort %s disagrees with memory index sort %s", off.Sort(), arr.Index)
	}
	n := x.SizeBits / 8
	addrWidth := arr.Index.(term.BV).Width
	cur := mem
	for i := 0; i < n; i++ {
		b := term.NewExtract((i+1)*8-1, i*8, value)
		idx := term.NewBinary(term.OpAdd, off, term.NewBVValU64(uint64(i), addrWidth))
		cur = term.NewStore(cur, idx, b)
	}
	e.pushTerm(cur)
	return nil
}

func (e *Embedder) evalUnknown(x *il.Unknown) error {
	sort, err := sortOfType(x.Typ)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("unknown_%d", e.numUnknowns)
	e.numUnknowns++
	c := term.NewConst(name, sort)
	e.graph.RecordSelfDef(e.cur, name, c)
	e.pushTerm(c)
	return nil
}

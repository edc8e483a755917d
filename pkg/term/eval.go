package term

import (
	"fmt"
	"math/big"
)

// Value is the concrete result of evaluating a Term: either a bit-vector
// value or an array snapshot. It exists purely to support the test-only
// reference-evaluation harness described in SPEC_FULL.md §8; production
// code never calls Eval.
type Value interface {
	isValue()
}

// BVValue is a concrete bit-vector of the given width.
type BVValue struct {
	Width int
	Val   *big.Int // always in [0, 2^Width)
}

func (BVValue) isValue() {}

// NewBVValue builds a BVValue, reducing v modulo 2^width.
func NewBVValue(v *big.Int, width int) BVValue {
	return BVValue{Width: width, Val: mask(v, width)}
}

// Signed returns the two's-complement signed interpretation of v.
func (v BVValue) Signed() *big.Int {
	if v.Val.Bit(v.Width-1) == 0 {
		return new(big.Int).Set(v.Val)
	}
	full := new(big.Int).Lsh(big.NewInt(1), uint(v.Width))
	return new(big.Int).Sub(v.Val, full)
}

// ArrayValue is a concrete snapshot of an array term: a default element
// (all indices not explicitly written) plus a sparse overlay.
type ArrayValue struct {
	IndexSort Sort
	ElemWidth int
	Default   *big.Int
	Cells     map[string]*big.Int // key: index.String()
}

func (ArrayValue) isValue() {}

func (a ArrayValue) at(idx *big.Int) *big.Int {
	if v, ok := a.Cells[idx.String()]; ok {
		return v
	}
	return a.Default
}

func (a ArrayValue) with(idx *big.Int, val *big.Int) ArrayValue {
	cells := make(map[string]*big.Int, len(a.Cells)+1)
	for k, v := range a.Cells {
		cells[k] = v
	}
	cells[idx.String()] = val
	return ArrayValue{IndexSort: a.IndexSort, ElemWidth: a.ElemWidth, Default: a.Default, Cells: cells}
}

// Env maps free constant names to concrete values.
type Env map[string]Value

// EvalTerm concretely evaluates t under env.
func EvalTerm(t Term, env Env) (Value, error) {
	switch n := t.(type) {
	case *Const:
		v, ok := env[n.Name]
		if !ok {
			return nil, fmt.Errorf("term.Eval: no binding for %q", n.Name)
		}
		return v, nil
	case *BVVal:
		return NewBVValue(n.Val, n.Width), nil
	case *UnaryTerm:
		a, err := evalBV(n.Arg, env)
		if err != nil {
			return nil, err
		}
		switch n.Which {
		case OpNeg:
			return NewBVValue(new(big.Int).Neg(a.Val), a.Width), nil
		case OpNot:
			full := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(a.Width)), big.NewInt(1))
			return NewBVValue(new(big.Int).Xor(a.Val, full), a.Width), nil
		}
	case *BinaryTerm:
		return evalBinary(n, env)
	case *ExtractTerm:
		a, err := evalBV(n.Arg, env)
		if err != nil {
			return nil, err
		}
		width := n.Hi - n.Lo + 1
		shifted := new(big.Int).Rsh(a.Val, uint(n.Lo))
		return NewBVValue(shifted, width), nil
	case *ConcatTerm:
		hi, err := evalBV(n.Hi, env)
		if err != nil {
			return nil, err
		}
		lo, err := evalBV(n.Lo, env)
		if err != nil {
			return nil, err
		}
		combined := new(big.Int).Lsh(hi.Val, uint(lo.Width))
		combined.Or(combined, lo.Val)
		return NewBVValue(combined, hi.Width+lo.Width), nil
	case *ExtendTerm:
		a, err := evalBV(n.Arg, env)
		if err != nil {
			return nil, err
		}
		if n.Signed {
			return NewBVValue(a.Signed(), n.NewWidth), nil
		}
		return NewBVValue(a.Val, n.NewWidth), nil
	case *IteTerm:
		c, err := EvalBool(n.Cond, env)
		if err != nil {
			return nil, err
		}
		if c {
			return EvalTerm(n.Then, env)
		}
		return EvalTerm(n.Else, env)
	case *SelectTerm:
		arr, err := evalArray(n.Arr, env)
		if err != nil {
			return nil, err
		}
		idx, err := evalBV(n.Idx, env)
		if err != nil {
			return nil, err
		}
		return NewBVValue(arr.at(idx.Val), arr.ElemWidth), nil
	case *StoreTerm:
		arr, err := evalArray(n.Arr, env)
		if err != nil {
			return nil, err
		}
		idx, err := evalBV(n.Idx, env)
		if err != nil {
			return nil, err
		}
		val, err := evalBV(n.Val, env)
		if err != nil {
			return nil, err
		}
		return arr.with(idx.Val, val.Val), nil
	}
	return nil, fmt.Errorf("term.Eval: unhandled term node %T", t)
}

func evalBinary(n *BinaryTerm, env Env) (Value, error) {
	l, err := evalBV(n.LHS, env)
	if err != nil {
		return nil, err
	}
	r, err := evalBV(n.RHS, env)
	if err != nil {
		return nil, err
	}
	w := l.Width
	switch n.Which {
	case OpAdd:
		return NewBVValue(new(big.Int).Add(l.Val, r.Val), w), nil
	case OpSub:
		return NewBVValue(new(big.Int).Sub(l.Val, r.Val), w), nil
	case OpMul:
		return NewBVValue(new(big.Int).Mul(l.Val, r.Val), w), nil
	case OpUDiv:
		if r.Val.Sign() == 0 {
			return nil, fmt.Errorf("term.Eval: division by zero")
		}
		return NewBVValue(new(big.Int).Div(l.Val, r.Val), w), nil
	case OpURem:
		if r.Val.Sign() == 0 {
			return nil, fmt.Errorf("term.Eval: division by zero")
		}
		return NewBVValue(new(big.Int).Mod(l.Val, r.Val), w), nil
	case OpSDiv:
		if r.Val.Sign() == 0 {
			return nil, fmt.Errorf("term.Eval: division by zero")
		}
		ls, rs := l.Signed(), r.Signed()
		q := new(big.Int).Quo(ls, rs)
		return NewBVValue(q, w), nil
	case OpSRem:
		if r.Val.Sign() == 0 {
			return nil, fmt.Errorf("term.Eval: division by zero")
		}
		ls, rs := l.Signed(), r.Signed()
		rem := new(big.Int).Rem(ls, rs)
		return NewBVValue(rem, w), nil
	case OpAnd:
		return NewBVValue(new(big.Int).And(l.Val, r.Val), w), nil
	case OpOr:
		return NewBVValue(new(big.Int).Or(l.Val, r.Val), w), nil
	case OpXor:
		return NewBVValue(new(big.Int).Xor(l.Val, r.Val), w), nil
	case OpShl:
		return NewBVValue(new(big.Int).Lsh(l.Val, uint(r.Val.Uint64())), w), nil
	case OpLShr:
		return NewBVValue(new(big.Int).Rsh(l.Val, uint(r.Val.Uint64())), w), nil
	case OpAShr:
		shiftAmt := uint(r.Val.Uint64())
		signed := l.Signed()
		shifted := new(big.Int).Rsh(signed, shiftAmt)
		return NewBVValue(shifted, w), nil
	}
	return nil, fmt.Errorf("term.Eval: unhandled binary op %v", n.Which)
}

// EvalBool concretely evaluates a Bool predicate under env.
func EvalBool(b Bool, env Env) (bool, error) {
	switch n := b.(type) {
	case *CmpBool:
		l, err := evalBV(n.LHS, env)
		if err != nil {
			return false, err
		}
		r, err := evalBV(n.RHS, env)
		if err != nil {
			return false, err
		}
		switch n.Which {
		case CmpEq:
			return l.Val.Cmp(r.Val) == 0, nil
		case CmpNe:
			return l.Val.Cmp(r.Val) != 0, nil
		case CmpULT:
			return l.Val.Cmp(r.Val) < 0, nil
		case CmpULE:
			return l.Val.Cmp(r.Val) <= 0, nil
		case CmpSLT:
			return l.Signed().Cmp(r.Signed()) < 0, nil
		case CmpSLE:
			return l.Signed().Cmp(r.Signed()) <= 0, nil
		}
	case *AndBool:
		for _, a := range n.Args {
			v, err := EvalBool(a, env)
			if err != nil {
				return false, err
			}
			if !v {
				return false, nil
			}
		}
		return true, nil
	case *NotBool:
		v, err := EvalBool(n.Arg, env)
		if err != nil {
			return false, err
		}
		return !v, nil
	}
	return false, fmt.Errorf("term.Eval: unhandled bool node %T", b)
}

func evalBV(t Term, env Env) (BVValue, error) {
	v, err := EvalTerm(t, env)
	if err != nil {
		return BVValue{}, err
	}
	bv, ok := v.(BVValue)
	if !ok {
		return BVValue{}, fmt.Errorf("term.Eval: expected bit-vector, got %T", v)
	}
	return bv, nil
}

func evalArray(t Term, env Env) (ArrayValue, error) {
	v, err := EvalTerm(t, env)
	if err != nil {
		return ArrayValue{}, err
	}
	arr, ok := v.(ArrayValue)
	if !ok {
		return ArrayValue{}, fmt.Errorf("term.Eval: expected array, got %T", v)
	}
	return arr, nil
}

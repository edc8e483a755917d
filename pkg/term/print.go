package term

import "fmt"

// Render renders a term or bool node as an s-expression, for CLI and
// test output. It is not meant to round-trip through a parser.
func Render(n Node) string {
	switch t := n.(type) {
	case *Const:
		return t.Name
	case *BVVal:
		return fmt.Sprintf("#x%s:%d", t.Val.Text(16), t.Width)
	case *UnaryTerm:
		return fmt.Sprintf("(%s %s)", unOpName(t.Which), Render(t.Arg))
	case *BinaryTerm:
		return fmt.Sprintf("(%s %s %s)", binOpName(t.Which), Render(t.LHS), Render(t.RHS))
	case *ExtractTerm:
		return fmt.Sprintf("(extract %d %d %s)", t.Hi, t.Lo, Render(t.Arg))
	case *ConcatTerm:
		return fmt.Sprintf("(concat %s %s)", Render(t.Hi), Render(t.Lo))
	case *ExtendTerm:
		if t.Signed {
			return fmt.Sprintf("(sign_extend %d %s)", t.NewWidth, Render(t.Arg))
		}
		return fmt.Sprintf("(zero_extend %d %s)", t.NewWidth, Render(t.Arg))
	case *IteTerm:
		return fmt.Sprintf("(ite %s %s %s)", Render(t.Cond), Render(t.Then), Render(t.Else))
	case *SelectTerm:
		return fmt.Sprintf("(select %s %s)", Render(t.Arr), Render(t.Idx))
	case *StoreTerm:
		return fmt.Sprintf("(store %s %s %s)", Render(t.Arr), Render(t.Idx), Render(t.Val))
	case *CmpBool:
		return fmt.Sprintf("(%s %s %s)", cmpOpName(t.Which), Render(t.LHS), Render(t.RHS))
	case *AndBool:
		if len(t.Args) == 0 {
			return "true"
		}
		s := "(and"
		for _, a := range t.Args {
			s += " " + Render(a)
		}
		return s + ")"
	case *NotBool:
		return fmt.Sprintf("(not %s)", Render(t.Arg))
	default:
		return fmt.Sprintf("<%T>", n)
	}
}

func unOpName(op UnOp) string {
	switch op {
	case OpNeg:
		return "neg"
	case OpNot:
		return "not"
	default:
		return "?unop"
	}
}

func binOpName(op BinOp) string {
	switch op {
	case OpAdd:
		return "bvadd"
	case OpSub:
		return "bvsub"
	case OpMul:
		return "bvmul"
	case OpUDiv:
		return "bvudiv"
	case OpSDiv:
		return "bvsdiv"
	case OpURem:
		return "bvurem"
	case OpSRem:
		return "bvsrem"
	case OpAnd:
		return "bvand"
	case OpOr:
		return "bvor"
	case OpXor:
		return "bvxor"
	case OpShl:
		return "bvshl"
	case OpLShr:
		return "bvlshr"
	case OpAShr:
		return "bvashr"
	default:
		return "?binop"
	}
}

func cmpOpName(op CmpOp) string {
	switch op {
	case CmpEq:
		return "="
	case CmpNe:
		return "distinct"
	case CmpULT:
		return "bvult"
	case CmpULE:
		return "bvule"
	case CmpSLT:
		return "bvslt"
	case CmpSLE:
		return "bvsle"
	default:
		return "?cmp"
	}
}

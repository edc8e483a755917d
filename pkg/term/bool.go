package term

// CmpOp is a comparison predicate between two equally-sorted bit-vectors.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpULT
	CmpULE
	CmpSLT
	CmpSLE
)

type CmpBool struct {
	Which    CmpOp
	LHS, RHS Term
}

func NewCmp(op CmpOp, lhs, rhs Term) *CmpBool { return &CmpBool{Which: op, LHS: lhs, RHS: rhs} }
func (*CmpBool) isBool()                      {}
func (c *CmpBool) Kids() []Node               { return []Node{c.LHS, c.RHS} }

// AndBool is the conjunction of zero or more Bools (empty = true).
type AndBool struct {
	Args []Bool
}

func NewAnd(args ...Bool) *AndBool { return &AndBool{Args: args} }
func (*AndBool) isBool()           {}
func (a *AndBool) Kids() []Node {
	ks := make([]Node, len(a.Args))
	for i, b := range a.Args {
		ks[i] = b
	}
	return ks
}

// NotBool negates a Bool.
type NotBool struct{ Arg Bool }

func NewNot(b Bool) *NotBool { return &NotBool{Arg: b} }
func (*NotBool) isBool()     {}
func (n *NotBool) Kids() []Node { return []Node{n.Arg} }

// BoolToBV1 wraps a Bool predicate as a one-bit bit-vector term (1 = true,
// 0 = false), per spec §4.2's comparison semantics.
func BoolToBV1(b Bool) Term {
	return NewIte(b, NewBVValU64(1, 1), NewBVValU64(0, 1))
}

// BV1ToBool converts a one-bit bit-vector term (expected to be 0 or 1)
// back into a Bool predicate, for use as a branch guard: bvExp == 1.
func BV1ToBool(t Term) Bool {
	return NewCmp(CmpEq, t, NewBVValU64(1, 1))
}

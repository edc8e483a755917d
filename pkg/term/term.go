package term

import "math/big"

// Node is the common supertype of Term and Bool nodes, used only to walk
// a term tree for free-identifier extraction (see FreeConsts).
type Node interface {
	Kids() []Node
}

// Term is a sorted value: a bit-vector or an array.
type Term interface {
	Node
	Sort() Sort
}

// Bool is an unsorted logical predicate, used only as an if-then-else
// condition or branch guard. It never appears as the sort of an emitted
// assertion; comparisons wrap it back into a one-bit bit-vector (BoolToBV1).
type Bool interface {
	Node
	isBool()
}

// ---- leaves ----

// Const is a free, named constant of a given sort: an architectural
// initial value, an SSA-renamed definition, or a fresh unknown.
type Const struct {
	Name string
	S    Sort
}

func NewConst(name string, s Sort) *Const { return &Const{Name: name, S: s} }
func (c *Const) Sort() Sort               { return c.S }
func (c *Const) Kids() []Node             { return nil }

// BVVal is a bit-vector literal. Val is stored already reduced mod 2^Width.
type BVVal struct {
	Val   *big.Int
	Width int
}

func NewBVVal(v *big.Int, width int) *BVVal {
	return &BVVal{Val: mask(v, width), Width: width}
}

// NewBVValU64 is a convenience constructor for small literals.
func NewBVValU64(v uint64, width int) *BVVal {
	return NewBVVal(new(big.Int).SetUint64(v), width)
}

func (v *BVVal) Sort() Sort   { return BV{Width: v.Width} }
func (v *BVVal) Kids() []Node { return nil }

// ---- unary/binary bit-vector ops ----

type UnOp int

const (
	OpNeg UnOp = iota
	OpNot
)

type UnaryTerm struct {
	Which UnOp
	Arg   Term
}

func NewUnary(op UnOp, arg Term) *UnaryTerm { return &UnaryTerm{Which: op, Arg: arg} }
func (u *UnaryTerm) Sort() Sort             { return u.Arg.Sort() }
func (u *UnaryTerm) Kids() []Node           { return []Node{u.Arg} }

type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr
)

type BinaryTerm struct {
	Which    BinOp
	LHS, RHS Term
}

func NewBinary(op BinOp, lhs, rhs Term) *BinaryTerm {
	return &BinaryTerm{Which: op, LHS: lhs, RHS: rhs}
}
func (b *BinaryTerm) Sort() Sort   { return b.LHS.Sort() }
func (b *BinaryTerm) Kids() []Node { return []Node{b.LHS, b.RHS} }

// ---- extract / concat / extend ----

type ExtractTerm struct {
	Hi, Lo int
	Arg    Term
}

func NewExtract(hi, lo int, arg Term) *ExtractTerm { return &ExtractTerm{Hi: hi, Lo: lo, Arg: arg} }
func (e *ExtractTerm) Sort() Sort                  { return BV{Width: e.Hi - e.Lo + 1} }
func (e *ExtractTerm) Kids() []Node                { return []Node{e.Arg} }

type ConcatTerm struct {
	Hi, Lo Term // Hi occupies the most significant bits
}

func NewConcat(hi, lo Term) *ConcatTerm { return &ConcatTerm{Hi: hi, Lo: lo} }
func (c *ConcatTerm) Sort() Sort {
	return BV{Width: c.Hi.Sort().(BV).Width + c.Lo.Sort().(BV).Width}
}
func (c *ConcatTerm) Kids() []Node { return []Node{c.Hi, c.Lo} }

type ExtendTerm struct {
	Signed    bool
	NewWidth  int
	Arg       Term
}

func NewZeroExt(newWidth int, arg Term) *ExtendTerm {
	return &ExtendTerm{Signed: false, NewWidth: newWidth, Arg: arg}
}
func NewSignExt(newWidth int, arg Term) *ExtendTerm {
	return &ExtendTerm{Signed: true, NewWidth: newWidth, Arg: arg}
}
func (e *ExtendTerm) Sort() Sort   { return BV{Width: e.NewWidth} }
func (e *ExtendTerm) Kids() []Node { return []Node{e.Arg} }

// ---- if-then-else ----

type IteTerm struct {
	Cond       Bool
	Then, Else Term
}

func NewIte(cond Bool, then, els Term) *IteTerm { return &IteTerm{Cond: cond, Then: then, Else: els} }
func (i *IteTerm) Sort() Sort                   { return i.Then.Sort() }
func (i *IteTerm) Kids() []Node                 { return []Node{i.Cond, i.Then, i.Else} }

// ---- array select/store ----

type SelectTerm struct {
	Arr Term
	Idx Term
}

func NewSelect(arr, idx Term) *SelectTerm { return &SelectTerm{Arr: arr, Idx: idx} }
func (s *SelectTerm) Sort() Sort          { return s.Arr.Sort().(Array).Elem }
func (s *SelectTerm) Kids() []Node        { return []Node{s.Arr, s.Idx} }

type StoreTerm struct {
	Arr Term
	Idx Term
	Val Term
}

func NewStore(arr, idx, val Term) *StoreTerm { return &StoreTerm{Arr: arr, Idx: idx, Val: val} }
func (s *StoreTerm) Sort() Sort              { return s.Arr.Sort() }
func (s *StoreTerm) Kids() []Node            { return []Node{s.Arr, s.Idx, s.Val} }

// ---- free-identifier extraction ----

// FreeConsts walks n and returns the set of free named constants it
// references, keyed by name (a term may reference the same name more
// than once; callers only care about the set).
func FreeConsts(n Node) map[string]Sort {
	out := map[string]Sort{}
	var walk func(Node)
	walk = func(n Node) {
		if c, ok := n.(*Const); ok {
			out[c.Name] = c.S
			return
		}
		for _, k := range n.Kids() {
			walk(k)
		}
	}
	walk(n)
	return out
}

func mask(v *big.Int, width int) *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(width))
	r := new(big.Int).Mod(v, m)
	if r.Sign() < 0 {
		r.Add(r, m)
	}
	return r
}

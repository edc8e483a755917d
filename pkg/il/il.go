// Package il defines the intermediate-language AST the embedder consumes:
// an ordered list of statements describing the semantics of one or more
// decoded instructions (see spec.md §6, External Interfaces). Producing
// this tree — the byte-to-IL disassembler — is out of scope here; this
// package only declares the shape a disassembler would emit.
package il

import "math/big"

// Type is the declared type of a Var: either a bit-vector width or a
// memory array shape.
type Type interface{ typ() }

// Imm is the type of an n-bit immediate/register value.
type Imm struct{ Size int }

func (Imm) typ() {}

// Mem is the type of a byte-addressable memory array.
type Mem struct{ AddrSize, ValSize int }

func (Mem) typ() {}

// Endian selects byte order for Load/Store. Only LittleEndian is
// supported by this embedder; BigEndian is recognized and rejected
// (emerr.EndiannessUnsupported).
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

// Expr is an IL expression node.
type Expr interface{ expr() }

// Int is a bit-vector literal.
type Int struct {
	Value *big.Int
	Size  int
}

func (*Int) expr() {}

// Var is a named reference of a declared type.
type Var struct {
	Name string
	Type Type
}

func (*Var) expr() {}

// Let evaluates Val in the current scope, binds Var to it, evaluates
// Body in the extended scope, and yields Body's value.
type Let struct {
	Var  Var
	Val  Expr
	Body Expr
}

func (*Let) expr() {}

// Ite is the expression-level ternary (as opposed to the If statement).
type Ite struct {
	Cond, Then, Else Expr
}

func (*Ite) expr() {}

// BinOp identifies an arithmetic or bitwise binary operator.
type BinOp int

const (
	PLUS BinOp = iota
	MINUS
	TIMES
	DIVIDE
	SDIVIDE
	MOD
	SMOD
	AND
	OR
	XOR
)

type BinExpr struct {
	Op       BinOp
	LHS, RHS Expr
}

func (*BinExpr) expr() {}

// ShiftOp identifies a shift operator. Shifts are modeled separately from
// BinExpr because the shift amount may need zero-extension to match the
// operand width (spec §4.2).
type ShiftOp int

const (
	LSHIFT ShiftOp = iota
	RSHIFT
	ARSHIFT
)

type ShiftExpr struct {
	Op       ShiftOp
	LHS, RHS Expr
}

func (*ShiftExpr) expr() {}

// CmpOp identifies a comparison operator. Every comparison yields a
// one-bit bit-vector (spec §4.2).
type CmpOp int

const (
	EQ CmpOp = iota
	NEQ
	LT
	LE
	SLT
	SLE
)

type CmpExpr struct {
	Op       CmpOp
	LHS, RHS Expr
}

func (*CmpExpr) expr() {}

// Concat concatenates LHS (high) with RHS (low).
type Concat struct {
	LHS, RHS Expr
}

func (*Concat) expr() {}

// Extract extracts the inclusive bit range [Lo, Hi] of Arg.
type Extract struct {
	Hi, Lo int
	Arg    Expr
}

func (*Extract) expr() {}

// High extracts the top N bits of Arg.
type High struct {
	N   int
	Arg Expr
}

func (*High) expr() {}

// Low extracts the bottom N bits of Arg.
type Low struct {
	N   int
	Arg Expr
}

func (*Low) expr() {}

// UnOp identifies a unary operator.
type UnOp int

const (
	NEG UnOp = iota
	NOT
)

type UnExpr struct {
	Op  UnOp
	Arg Expr
}

func (*UnExpr) expr() {}

// Unsigned zero-extends Arg to Size bits.
type Unsigned struct {
	Size int
	Arg  Expr
}

func (*Unsigned) expr() {}

// Signed sign-extends Arg to Size bits.
type Signed struct {
	Size int
	Arg  Expr
}

func (*Signed) expr() {}

// Load reads SizeBits from Mem starting at Off, with the given
// endianness.
type Load struct {
	Mem      Expr
	Off      Expr
	Endian   Endian
	SizeBits int
}

func (*Load) expr() {}

// Store writes Value (SizeBits wide) into Mem at Off, yielding the
// updated memory array.
type Store struct {
	Mem      Expr
	Off      Expr
	Value    Expr
	Endian   Endian
	SizeBits int
}

func (*Store) expr() {}

// Unknown materializes a fresh, uniquely-named constant of the given
// type; Tag is a human-readable hint (not used for naming).
type Unknown struct {
	Tag string
	Typ Type
}

func (*Unknown) expr() {}

// Stmt is an IL statement node.
type Stmt interface{ stmt() }

// Move assigns the value of Expr to Var's name in the current scope.
type Move struct {
	Var  Var
	Expr Expr
}

func (*Move) stmt() {}

// Jmp transfers control to Target; architecture-specific (binds the PC).
type Jmp struct {
	Target Expr
}

func (*Jmp) stmt() {}

// Special is an architecture- or disassembler-specific side effect this
// embedder does not model (always emerr.UnsupportedConstruct).
type Special struct {
	Tag string
}

func (*Special) stmt() {}

// While is a loop; unsupported (always emerr.UnsupportedConstruct) since
// this embedder only performs intra-fragment branching, not iteration.
type While struct {
	Cond Expr
	Body []Stmt
}

func (*While) stmt() {}

// If evaluates Cond and embeds Then or Else, joining the two scopes.
type If struct {
	Cond       Expr
	Then, Else []Stmt
}

func (*If) stmt() {}

// CpuExn marks a CPU exception; binds the synthetic CPUEXN flag to 1.
type CpuExn struct {
	N int
}

func (*CpuExn) stmt() {}

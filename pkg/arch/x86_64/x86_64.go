// Package x86_64 supplies the x86-64+AVX architectural state vector and
// PC register that pkg/embed needs to embed a fragment (spec.md §4.4).
// The state table is ordered and fixed, the way the z80 optimizer's
// pkg/inst opcode tables are: one entry per architectural name, declared
// once at package init.
package x86_64

import (
	"github.com/oisee/x86-symbolic-embedder/pkg/embed"
	"github.com/oisee/x86-symbolic-embedder/pkg/term"
)

// PC is the name of the program-counter register Jmp binds.
const PC = "RIP"

var (
	bv1   = term.BV{Width: 1}
	bv64  = term.BV{Width: 64}
	bv256 = term.BV{Width: 256}
	mem   = term.Array{Index: bv64, Elem: term.BV{Width: 8}}
)

// generalRegisters are the sixteen 64-bit integer registers plus the
// 64-bit PC: RAX, RBX, RCX, RDX, RSP, RBP, RSI, RDI, then PC, then R8-R15.
var generalRegisters = []string{
	"RAX", "RBX", "RCX", "RDX", "RSP", "RBP", "RSI", "RDI", PC,
	"R8", "R9", "R10", "R11", "R12", "R13", "R14", "R15",
}

// segmentBases are the four segment-base registers exposed as flat
// 64-bit values rather than selector + descriptor pairs.
var segmentBases = []string{"FS_BASE", "GS_BASE", "SS_BASE", "DS_BASE"}

// flags are the seven single-bit EFLAGS bits the embedder tracks.
var flags = []string{"CF", "AF", "ZF", "SF", "OF", "PF", "DF"}

// ymm are the sixteen 256-bit AVX vector registers; XMM0-15 and the
// legacy MMX/x87 aliases are views onto their low bits and are not
// modeled as independent state.
var ymm = [16]string{
	"YMM0", "YMM1", "YMM2", "YMM3", "YMM4", "YMM5", "YMM6", "YMM7",
	"YMM8", "YMM9", "YMM10", "YMM11", "YMM12", "YMM13", "YMM14", "YMM15",
}

// stateVector is built once at init time and returned (by value-copy of
// the slice header over a shared, read-only backing array) by
// StateVector.
var stateVector []embed.StateEntry

func init() {
	add := func(name string, s term.Sort) {
		stateVector = append(stateVector, embed.StateEntry{Name: name, Sort: s})
	}

	add("mem64", mem)
	for _, f := range flags {
		add(f, bv1)
	}
	for _, r := range generalRegisters {
		add(r, bv64)
	}
	for _, s := range segmentBases {
		add(s, bv64)
	}
	for _, r := range ymm {
		add(r, bv256)
	}
	add(embed.CPUEXNName, bv1)
}

// Arch is the x86-64+AVX embed.Arch implementation. It is stateless and
// safe to share across concurrently-running embedders (pkg/batch starts
// one embedder per goroutine, all against the same Arch value).
type Arch struct{}

// StateVector returns the ordered (name, sort) list of architectural
// state: memory, flags, general-purpose registers (with the PC between
// RDI and R8), segment-base registers, AVX vector registers, and the
// synthetic CPUEXN flag.
func (Arch) StateVector() []embed.StateEntry { return stateVector }

// PCRegister returns "RIP".
func (Arch) PCRegister() string { return PC }

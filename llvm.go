package fndiff

import (
	"fmt"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/pkg/errors"
)

const (
	irGap        = 2
	irEquivalent = 4
)

// loadIR parses an LLVM IR module in its textual form. There is no bitcode
// reader in the Go ecosystem, so the binary form fails cleanly with a hint.
func loadIR(path string, textual bool) (*Program, error) {
	if !textual {
		return nil, errors.New("LLVM bitcode is not supported; disassemble to textual IR with llvm-dis first")
	}
	mod, err := asm.ParseFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrContainer, "parsing LLVM IR: %v", err)
	}
	p := newProgram(irGap, irEquivalent)
	for _, f := range mod.Funcs {
		fn := &Function{Name: f.Name()}
		for _, b := range f.Blocks {
			name := b.LocalName
			if name == "" {
				name = fmt.Sprintf("%%%d", b.LocalID)
			}
			body := make([]Inst, len(b.Insts))
			for i, inst := range b.Insts {
				body[i] = irInst{inst: inst}
			}
			fn.Blocks = append(fn.Blocks, &Block{Name: name, Body: body, Term: irTerm{term: b.Term}})
		}
		p.add(fn.Name, fn)
	}
	return p.seal(), nil
}

// irInst wraps a non-terminator IR instruction.
type irInst struct {
	inst ir.Instruction
}

func (l irInst) Score(other Inst) int {
	r, ok := other.(irInst)
	if !ok {
		return 0
	}
	return scoreIRInst(l.inst, r.inst)
}

func (l irInst) Render() string {
	return l.inst.LLString()
}

// irTerm wraps an IR terminator. Terminators score on kind identity only.
type irTerm struct {
	term ir.Terminator
}

func (l irTerm) Score(other Inst) int {
	r, ok := other.(irTerm)
	if !ok {
		return 0
	}
	if sameTermKind(l.term, r.term) {
		return irEquivalent
	}
	return 0
}

func (l irTerm) Render() string {
	return l.term.LLString()
}

// The instruction families. Within a family, the same member scores 4 and
// different members score 3; everything outside scores through the
// per-opcode rules below.

func intArithOp(i ir.Instruction) (int, bool) {
	switch i.(type) {
	case *ir.InstAdd:
		return 0, true
	case *ir.InstSub:
		return 1, true
	case *ir.InstMul:
		return 2, true
	case *ir.InstUDiv:
		return 3, true
	case *ir.InstSDiv:
		return 4, true
	case *ir.InstURem:
		return 5, true
	case *ir.InstSRem:
		return 6, true
	}
	return 0, false
}

func bitwiseOp(i ir.Instruction) (int, bool) {
	switch i.(type) {
	case *ir.InstAnd:
		return 0, true
	case *ir.InstOr:
		return 1, true
	case *ir.InstXor:
		return 2, true
	case *ir.InstShl:
		return 3, true
	case *ir.InstLShr:
		return 4, true
	case *ir.InstAShr:
		return 5, true
	}
	return 0, false
}

func floatArithOp(i ir.Instruction) (int, bool) {
	switch i.(type) {
	case *ir.InstFAdd:
		return 0, true
	case *ir.InstFSub:
		return 1, true
	case *ir.InstFMul:
		return 2, true
	case *ir.InstFDiv:
		return 3, true
	case *ir.InstFRem:
		return 4, true
	case *ir.InstFNeg:
		return 5, true
	}
	return 0, false
}

// toTypeScore refines a matched conversion pair by its destination type.
func toTypeScore(a, b types.Type, same, diff int) int {
	if types.Equal(a, b) {
		return same
	}
	return diff
}

// scoreIRInst is the hand-tuned similarity table for IR instructions: 4 for
// the same opcode with matching salient operands, 3 for the same opcode
// diverging on a minor field, 2 for related opcodes, 0 for unrelated ones.
func scoreIRInst(a, b ir.Instruction) int {
	if la, ok := intArithOp(a); ok {
		if ra, ok := intArithOp(b); ok {
			if la == ra {
				return 4
			}
			return 3
		}
		return 0
	}
	if la, ok := bitwiseOp(a); ok {
		if ra, ok := bitwiseOp(b); ok {
			if la == ra {
				return 4
			}
			return 3
		}
		return 0
	}
	if la, ok := floatArithOp(a); ok {
		if ra, ok := floatArithOp(b); ok {
			if la == ra {
				return 4
			}
			return 3
		}
		return 0
	}

	switch x := a.(type) {
	case *ir.InstExtractElement:
		if _, ok := b.(*ir.InstExtractElement); ok {
			return 4
		}
	case *ir.InstInsertElement:
		if _, ok := b.(*ir.InstInsertElement); ok {
			return 4
		}
	case *ir.InstShuffleVector:
		if _, ok := b.(*ir.InstShuffleVector); ok {
			return 4
		}
	case *ir.InstAlloca:
		if y, ok := b.(*ir.InstAlloca); ok {
			return toTypeScore(x.ElemType, y.ElemType, 4, 3)
		}
	case *ir.InstLoad:
		if _, ok := b.(*ir.InstLoad); ok {
			return 4
		}
	case *ir.InstStore:
		if _, ok := b.(*ir.InstStore); ok {
			return 4
		}
	case *ir.InstFence:
		if y, ok := b.(*ir.InstFence); ok {
			if x.Ordering == y.Ordering {
				return 4
			}
			return 3
		}
	case *ir.InstCmpXchg:
		if y, ok := b.(*ir.InstCmpXchg); ok {
			if x.SuccessOrdering == y.SuccessOrdering && x.FailureOrdering == y.FailureOrdering {
				return 4
			}
			return 3
		}
	case *ir.InstAtomicRMW:
		if y, ok := b.(*ir.InstAtomicRMW); ok {
			score := 3
			if x.Op == y.Op {
				score = 4
			}
			if x.Ordering == y.Ordering {
				return score + 2
			}
			return score + 1
		}
	case *ir.InstGetElementPtr:
		if _, ok := b.(*ir.InstGetElementPtr); ok {
			return 4
		}
	case *ir.InstTrunc:
		if y, ok := b.(*ir.InstTrunc); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
	case *ir.InstZExt:
		if y, ok := b.(*ir.InstZExt); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
		if y, ok := b.(*ir.InstSExt); ok {
			return toTypeScore(x.To, y.To, 3, 2)
		}
	case *ir.InstSExt:
		if y, ok := b.(*ir.InstSExt); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
		if y, ok := b.(*ir.InstZExt); ok {
			return toTypeScore(x.To, y.To, 3, 2)
		}
	case *ir.InstFPTrunc:
		if y, ok := b.(*ir.InstFPTrunc); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
		if y, ok := b.(*ir.InstFPExt); ok {
			return toTypeScore(x.To, y.To, 3, 2)
		}
	case *ir.InstFPExt:
		if y, ok := b.(*ir.InstFPExt); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
		if y, ok := b.(*ir.InstFPTrunc); ok {
			return toTypeScore(x.To, y.To, 3, 2)
		}
	case *ir.InstFPToUI:
		if y, ok := b.(*ir.InstFPToUI); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
		if y, ok := b.(*ir.InstFPToSI); ok {
			return toTypeScore(x.To, y.To, 3, 2)
		}
	case *ir.InstFPToSI:
		if y, ok := b.(*ir.InstFPToSI); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
		if y, ok := b.(*ir.InstFPToUI); ok {
			return toTypeScore(x.To, y.To, 3, 2)
		}
	case *ir.InstUIToFP:
		if y, ok := b.(*ir.InstUIToFP); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
		if y, ok := b.(*ir.InstSIToFP); ok {
			return toTypeScore(x.To, y.To, 3, 2)
		}
	case *ir.InstSIToFP:
		if y, ok := b.(*ir.InstSIToFP); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
		if y, ok := b.(*ir.InstUIToFP); ok {
			return toTypeScore(x.To, y.To, 3, 2)
		}
	case *ir.InstPtrToInt:
		if y, ok := b.(*ir.InstPtrToInt); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
	case *ir.InstIntToPtr:
		if y, ok := b.(*ir.InstIntToPtr); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
	case *ir.InstBitCast:
		if y, ok := b.(*ir.InstBitCast); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
	case *ir.InstAddrSpaceCast:
		if y, ok := b.(*ir.InstAddrSpaceCast); ok {
			return toTypeScore(x.To, y.To, 4, 3)
		}
	case *ir.InstICmp:
		if y, ok := b.(*ir.InstICmp); ok {
			if x.Pred == y.Pred {
				return 4
			}
			return 3
		}
	case *ir.InstFCmp:
		if y, ok := b.(*ir.InstFCmp); ok {
			if x.Pred == y.Pred {
				return 4
			}
			return 3
		}
	case *ir.InstPhi:
		if y, ok := b.(*ir.InstPhi); ok {
			return toTypeScore(x.Typ, y.Typ, 4, 3)
		}
	case *ir.InstSelect:
		if _, ok := b.(*ir.InstSelect); ok {
			return 4
		}
	case *ir.InstFreeze:
		if _, ok := b.(*ir.InstFreeze); ok {
			return 4
		}
	case *ir.InstCall:
		if y, ok := b.(*ir.InstCall); ok {
			if len(x.Args) == len(y.Args) {
				return 4
			}
			return 3
		}
	case *ir.InstVAArg:
		if y, ok := b.(*ir.InstVAArg); ok {
			return toTypeScore(x.ArgType, y.ArgType, 4, 3)
		}
	case *ir.InstLandingPad:
		if _, ok := b.(*ir.InstLandingPad); ok {
			return 4
		}
	case *ir.InstCatchPad:
		if _, ok := b.(*ir.InstCatchPad); ok {
			return 4
		}
	case *ir.InstCleanupPad:
		if _, ok := b.(*ir.InstCleanupPad); ok {
			return 4
		}
	}
	return 0
}

func sameTermKind(a, b ir.Terminator) bool {
	switch a.(type) {
	case *ir.TermRet:
		_, ok := b.(*ir.TermRet)
		return ok
	case *ir.TermBr:
		_, ok := b.(*ir.TermBr)
		return ok
	case *ir.TermCondBr:
		_, ok := b.(*ir.TermCondBr)
		return ok
	case *ir.TermSwitch:
		_, ok := b.(*ir.TermSwitch)
		return ok
	case *ir.TermIndirectBr:
		_, ok := b.(*ir.TermIndirectBr)
		return ok
	case *ir.TermInvoke:
		_, ok := b.(*ir.TermInvoke)
		return ok
	case *ir.TermResume:
		_, ok := b.(*ir.TermResume)
		return ok
	case *ir.TermUnreachable:
		_, ok := b.(*ir.TermUnreachable)
		return ok
	case *ir.TermCleanupRet:
		_, ok := b.(*ir.TermCleanupRet)
		return ok
	case *ir.TermCatchRet:
		_, ok := b.(*ir.TermCatchRet)
		return ok
	case *ir.TermCatchSwitch:
		_, ok := b.(*ir.TermCatchSwitch)
		return ok
	case *ir.TermCallBr:
		_, ok := b.(*ir.TermCallBr)
		return ok
	}
	return false
}

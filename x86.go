package fndiff

import "golang.org/x/arch/x86/x86asm"

// x86Arch decodes IA-32 (mode 32) or x86-64 (mode 64) machine code.
type x86Arch struct {
	mode int
}

func (a x86Arch) cpuType() (uint32, bool) {
	if a.mode == 64 {
		return cpuTypeX8664, true
	}
	return cpuTypeX86, true
}

func (a x86Arch) decode(code []byte) (machineInst, int, error) {
	inst, err := x86asm.Decode(code, a.mode)
	if err != nil {
		return nil, 0, err
	}
	return x86Inst{inst: inst}, inst.Len, nil
}

type x86Inst struct {
	inst x86asm.Inst
}

func (i x86Inst) Score(other Inst) int {
	o, ok := other.(x86Inst)
	if !ok || i.inst.Op != o.inst.Op {
		return 0
	}
	return machineEquivalent
}

func (i x86Inst) Render() string {
	return x86asm.GNUSyntax(i.inst, 0, nil)
}

func (i x86Inst) flowControl() bool {
	switch i.inst.Op {
	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ,
		x86asm.JE, x86asm.JECXZ, x86asm.JG, x86asm.JGE, x86asm.JL,
		x86asm.JLE, x86asm.JMP, x86asm.JNE, x86asm.JNO, x86asm.JNP,
		x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JRCXZ, x86asm.JS,
		x86asm.LJMP, x86asm.LRET, x86asm.RET:
		return true
	}
	return false
}

package fndiff

import "golang.org/x/arch/arm64/arm64asm"

// ARM64 instructions are fixed 32-bit little-endian words.

type arm64Arch struct{}

func (arm64Arch) cpuType() (uint32, bool) {
	return cpuTypeARM64, true
}

func (arm64Arch) decode(code []byte) (machineInst, int, error) {
	inst, err := arm64asm.Decode(code)
	if err != nil {
		return nil, 0, err
	}
	return arm64Inst{inst: inst}, 4, nil
}

type arm64Inst struct {
	inst arm64asm.Inst
}

func (i arm64Inst) Score(other Inst) int {
	o, ok := other.(arm64Inst)
	if !ok || i.inst.Op != o.inst.Op {
		return 0
	}
	return machineEquivalent
}

func (i arm64Inst) Render() string {
	return arm64asm.GNUSyntax(i.inst)
}

func (i arm64Inst) flowControl() bool {
	switch i.inst.Op {
	case arm64asm.B, arm64asm.BL, arm64asm.BLR, arm64asm.BR,
		arm64asm.CBNZ, arm64asm.CBZ, arm64asm.ERET, arm64asm.RET,
		arm64asm.TBNZ, arm64asm.TBZ:
		return true
	}
	return false
}

package fndiff

import (
	"strings"

	"golang.org/x/arch/arm/armasm"
)

// 32-bit ARM in A32 mode. armasm encodes the condition into the opcode
// value (B.EQ and B are distinct Op values), so scoring on opcode equality
// also distinguishes conditions, and the flow-control test strips the
// condition suffix first.

type armArch struct{}

func (armArch) cpuType() (uint32, bool) {
	return cpuTypeARM, true
}

func (armArch) decode(code []byte) (machineInst, int, error) {
	inst, err := armasm.Decode(code, armasm.ModeARM)
	if err != nil {
		return nil, 0, err
	}
	return armInst{inst: inst}, inst.Len, nil
}

type armInst struct {
	inst armasm.Inst
}

func (i armInst) Score(other Inst) int {
	o, ok := other.(armInst)
	if !ok || i.inst.Op != o.inst.Op {
		return 0
	}
	return machineEquivalent
}

func (i armInst) Render() string {
	return armasm.GNUSyntax(i.inst)
}

func (i armInst) flowControl() bool {
	op := i.inst.Op.String()
	if dot := strings.IndexByte(op, '.'); dot >= 0 {
		op = op[:dot]
	}
	switch op {
	case "B", "BL", "BLX", "BX", "BXJ":
		return true
	}
	return false
}

package fndiff

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// AVR instruction decoding. There is no AVR decoder in golang.org/x/arch,
// so the classic 8-bit instruction set is decoded here, table-style: 16-bit
// little-endian words, with JMP, CALL, LDS and STS taking a second word.

type avrOp int

const (
	avrADC avrOp = iota
	avrADD
	avrADIW
	avrAND
	avrANDI
	avrASR
	avrBCLR
	avrBLD
	avrBRBC
	avrBRBS
	avrBREAK
	avrBSET
	avrBST
	avrCALL
	avrCBI
	avrCOM
	avrCP
	avrCPC
	avrCPI
	avrCPSE
	avrDEC
	avrEICALL
	avrEIJMP
	avrELPM
	avrEOR
	avrFMUL
	avrFMULS
	avrFMULSU
	avrICALL
	avrIJMP
	avrIN
	avrINC
	avrJMP
	avrLD
	avrLDD
	avrLDI
	avrLDS
	avrLPM
	avrLSR
	avrMOV
	avrMOVW
	avrMUL
	avrMULS
	avrMULSU
	avrNEG
	avrNOP
	avrOR
	avrORI
	avrOUT
	avrPOP
	avrPUSH
	avrRCALL
	avrRET
	avrRETI
	avrRJMP
	avrROR
	avrSBC
	avrSBCI
	avrSBI
	avrSBIC
	avrSBIS
	avrSBIW
	avrSBRC
	avrSBRS
	avrSLEEP
	avrSPM
	avrST
	avrSTD
	avrSTS
	avrSUB
	avrSUBI
	avrSWAP
	avrWDR
)

var avrOpNames = [...]string{
	avrADC: "adc", avrADD: "add", avrADIW: "adiw", avrAND: "and",
	avrANDI: "andi", avrASR: "asr", avrBCLR: "bclr", avrBLD: "bld",
	avrBRBC: "brbc", avrBRBS: "brbs", avrBREAK: "break", avrBSET: "bset",
	avrBST: "bst", avrCALL: "call", avrCBI: "cbi", avrCOM: "com",
	avrCP: "cp", avrCPC: "cpc", avrCPI: "cpi", avrCPSE: "cpse",
	avrDEC: "dec", avrEICALL: "eicall", avrEIJMP: "eijmp", avrELPM: "elpm",
	avrEOR: "eor", avrFMUL: "fmul", avrFMULS: "fmuls", avrFMULSU: "fmulsu",
	avrICALL: "icall", avrIJMP: "ijmp", avrIN: "in", avrINC: "inc",
	avrJMP: "jmp", avrLD: "ld", avrLDD: "ldd", avrLDI: "ldi",
	avrLDS: "lds", avrLPM: "lpm", avrLSR: "lsr", avrMOV: "mov",
	avrMOVW: "movw", avrMUL: "mul", avrMULS: "muls", avrMULSU: "mulsu",
	avrNEG: "neg", avrNOP: "nop", avrOR: "or", avrORI: "ori",
	avrOUT: "out", avrPOP: "pop", avrPUSH: "push", avrRCALL: "rcall",
	avrRET: "ret", avrRETI: "reti", avrRJMP: "rjmp", avrROR: "ror",
	avrSBC: "sbc", avrSBCI: "sbci", avrSBI: "sbi", avrSBIC: "sbic",
	avrSBIS: "sbis", avrSBIW: "sbiw", avrSBRC: "sbrc", avrSBRS: "sbrs",
	avrSLEEP: "sleep", avrSPM: "spm", avrST: "st", avrSTD: "std",
	avrSTS: "sts", avrSUB: "sub", avrSUBI: "subi", avrSWAP: "swap",
	avrWDR: "wdr",
}

func (op avrOp) String() string {
	if int(op) < len(avrOpNames) {
		return avrOpNames[op]
	}
	return "?"
}

// avrInst is one decoded AVR instruction: the opcode plus pre-rendered
// operand text. Scoring compares opcodes only.
type avrInst struct {
	op   avrOp
	args string
}

func (i avrInst) Score(other Inst) int {
	o, ok := other.(avrInst)
	if !ok || i.op != o.op {
		return 0
	}
	return machineEquivalent
}

func (i avrInst) Render() string {
	if i.args == "" {
		return i.op.String()
	}
	return i.op.String() + " " + i.args
}

func (i avrInst) flowControl() bool {
	switch i.op {
	case avrEIJMP, avrIJMP, avrJMP, avrRET, avrRETI, avrRJMP:
		return true
	}
	return false
}

type avrArch struct{}

func (avrArch) cpuType() (uint32, bool) {
	return 0, false
}

func (avrArch) decode(code []byte) (machineInst, int, error) {
	if len(code) < 2 {
		return nil, 0, errors.New("truncated AVR instruction")
	}
	w := binary.LittleEndian.Uint16(code)

	// Common field extractions.
	d5 := int(w>>4) & 0x1f                      // destination register, 5 bits
	r5 := int(w&0xf) | int(w>>5)&0x10           // source register, split field
	d4 := 16 + int(w>>4)&0xf                    // destination register, r16..r31
	k8 := int(w&0xf) | int(w>>4)&0xf0           // 8-bit immediate, split field
	two := func(op avrOp, args string) (machineInst, int, error) {
		return avrInst{op: op, args: args}, 2, nil
	}
	twoReg := func(op avrOp) (machineInst, int, error) {
		return two(op, fmt.Sprintf("r%d, r%d", d5, r5))
	}
	regImm := func(op avrOp) (machineInst, int, error) {
		return two(op, fmt.Sprintf("r%d, 0x%02X", d4, k8))
	}

	switch {
	case w == 0x0000:
		return two(avrNOP, "")
	case w&0xff00 == 0x0100:
		return two(avrMOVW, fmt.Sprintf("r%d, r%d", 2*(int(w>>4)&0xf), 2*(int(w)&0xf)))
	case w&0xff00 == 0x0200:
		return two(avrMULS, fmt.Sprintf("r%d, r%d", 16+int(w>>4)&0xf, 16+int(w)&0xf))
	case w&0xff88 == 0x0300:
		return two(avrMULSU, fmt.Sprintf("r%d, r%d", 16+int(w>>4)&0x7, 16+int(w)&0x7))
	case w&0xff88 == 0x0308:
		return two(avrFMUL, fmt.Sprintf("r%d, r%d", 16+int(w>>4)&0x7, 16+int(w)&0x7))
	case w&0xff88 == 0x0380:
		return two(avrFMULS, fmt.Sprintf("r%d, r%d", 16+int(w>>4)&0x7, 16+int(w)&0x7))
	case w&0xff88 == 0x0388:
		return two(avrFMULSU, fmt.Sprintf("r%d, r%d", 16+int(w>>4)&0x7, 16+int(w)&0x7))
	case w&0xfc00 == 0x0400:
		return twoReg(avrCPC)
	case w&0xfc00 == 0x0800:
		return twoReg(avrSBC)
	case w&0xfc00 == 0x0c00:
		return twoReg(avrADD)
	case w&0xfc00 == 0x1000:
		return twoReg(avrCPSE)
	case w&0xfc00 == 0x1400:
		return twoReg(avrCP)
	case w&0xfc00 == 0x1800:
		return twoReg(avrSUB)
	case w&0xfc00 == 0x1c00:
		return twoReg(avrADC)
	case w&0xfc00 == 0x2000:
		return twoReg(avrAND)
	case w&0xfc00 == 0x2400:
		return twoReg(avrEOR)
	case w&0xfc00 == 0x2800:
		return twoReg(avrOR)
	case w&0xfc00 == 0x2c00:
		return twoReg(avrMOV)
	case w&0xf000 == 0x3000:
		return regImm(avrCPI)
	case w&0xf000 == 0x4000:
		return regImm(avrSBCI)
	case w&0xf000 == 0x5000:
		return regImm(avrSUBI)
	case w&0xf000 == 0x6000:
		return regImm(avrORI)
	case w&0xf000 == 0x7000:
		return regImm(avrANDI)
	case w&0xd000 == 0x8000:
		return decodeAVRDisplaced(w, d5)
	case w&0xf000 == 0x9000:
		return decodeAVR9xxx(code, w, d5)
	case w&0xf000 == 0xb000:
		port := int(w>>5)&0x30 | int(w)&0xf
		if w&0x0800 != 0 {
			return two(avrOUT, fmt.Sprintf("0x%02X, r%d", port, d5))
		}
		return two(avrIN, fmt.Sprintf("r%d, 0x%02X", d5, port))
	case w&0xf000 == 0xc000:
		return two(avrRJMP, fmt.Sprintf(".%+d", 2*signed12(w)))
	case w&0xf000 == 0xd000:
		return two(avrRCALL, fmt.Sprintf(".%+d", 2*signed12(w)))
	case w&0xf000 == 0xe000:
		return regImm(avrLDI)
	case w&0xfc00 == 0xf000:
		return two(avrBRBS, fmt.Sprintf("%d, .%+d", int(w)&7, 2*signed7(w)))
	case w&0xfc00 == 0xf400:
		return two(avrBRBC, fmt.Sprintf("%d, .%+d", int(w)&7, 2*signed7(w)))
	case w&0xfe08 == 0xf800:
		return two(avrBLD, fmt.Sprintf("r%d, %d", d5, int(w)&7))
	case w&0xfe08 == 0xfa00:
		return two(avrBST, fmt.Sprintf("r%d, %d", d5, int(w)&7))
	case w&0xfe08 == 0xfc00:
		return two(avrSBRC, fmt.Sprintf("r%d, %d", d5, int(w)&7))
	case w&0xfe08 == 0xfe00:
		return two(avrSBRS, fmt.Sprintf("r%d, %d", d5, int(w)&7))
	}
	return nil, 0, errors.Errorf("unknown AVR opcode %#04x", w)
}

// decodeAVRDisplaced handles the 10q0 qqsd dddd yqqq block: LD/ST through
// Y or Z with a 6-bit displacement; q == 0 is the plain indirect form.
func decodeAVRDisplaced(w uint16, d5 int) (machineInst, int, error) {
	q := (int(w>>13)&1)<<5 | (int(w>>10)&3)<<3 | int(w)&7
	ptr := "Z"
	if w&0x0008 != 0 {
		ptr = "Y"
	}
	store := w&0x0200 != 0
	switch {
	case store && q == 0:
		return avrInst{op: avrST, args: fmt.Sprintf("%s, r%d", ptr, d5)}, 2, nil
	case store:
		return avrInst{op: avrSTD, args: fmt.Sprintf("%s+%d, r%d", ptr, q, d5)}, 2, nil
	case q == 0:
		return avrInst{op: avrLD, args: fmt.Sprintf("r%d, %s", d5, ptr)}, 2, nil
	default:
		return avrInst{op: avrLDD, args: fmt.Sprintf("r%d, %s+%d", d5, ptr, q)}, 2, nil
	}
}

// decodeAVR9xxx handles the dense 1001 xxxx block: direct and indirect
// load/store, one-operand ALU, flag ops, the two-word jumps and calls, word
// arithmetic and I/O bit ops.
func decodeAVR9xxx(code []byte, w uint16, d5 int) (machineInst, int, error) {
	two := func(op avrOp, args string) (machineInst, int, error) {
		return avrInst{op: op, args: args}, 2, nil
	}
	reg := func(op avrOp) (machineInst, int, error) {
		return two(op, fmt.Sprintf("r%d", d5))
	}
	regPtr := func(op avrOp, ptr string) (machineInst, int, error) {
		return two(op, fmt.Sprintf("r%d, %s", d5, ptr))
	}
	ptrReg := func(op avrOp, ptr string) (machineInst, int, error) {
		return two(op, fmt.Sprintf("%s, r%d", ptr, d5))
	}

	// Fixed encodings first.
	switch w {
	case 0x9409:
		return two(avrIJMP, "")
	case 0x9419:
		return two(avrEIJMP, "")
	case 0x9508:
		return two(avrRET, "")
	case 0x9509:
		return two(avrICALL, "")
	case 0x9518:
		return two(avrRETI, "")
	case 0x9519:
		return two(avrEICALL, "")
	case 0x9588:
		return two(avrSLEEP, "")
	case 0x9598:
		return two(avrBREAK, "")
	case 0x95a8:
		return two(avrWDR, "")
	case 0x95c8:
		return two(avrLPM, "")
	case 0x95d8:
		return two(avrELPM, "")
	case 0x95e8:
		return two(avrSPM, "")
	}

	switch w & 0xfe0f {
	case 0x9000:
		if len(code) < 4 {
			return nil, 0, errors.New("truncated AVR instruction")
		}
		addr := binary.LittleEndian.Uint16(code[2:])
		return avrInst{op: avrLDS, args: fmt.Sprintf("r%d, 0x%04X", d5, addr)}, 4, nil
	case 0x9001:
		return regPtr(avrLD, "Z+")
	case 0x9002:
		return regPtr(avrLD, "-Z")
	case 0x9004:
		return regPtr(avrLPM, "Z")
	case 0x9005:
		return regPtr(avrLPM, "Z+")
	case 0x9006:
		return regPtr(avrELPM, "Z")
	case 0x9007:
		return regPtr(avrELPM, "Z+")
	case 0x9009:
		return regPtr(avrLD, "Y+")
	case 0x900a:
		return regPtr(avrLD, "-Y")
	case 0x900c:
		return regPtr(avrLD, "X")
	case 0x900d:
		return regPtr(avrLD, "X+")
	case 0x900e:
		return regPtr(avrLD, "-X")
	case 0x900f:
		return reg(avrPOP)
	case 0x9200:
		if len(code) < 4 {
			return nil, 0, errors.New("truncated AVR instruction")
		}
		addr := binary.LittleEndian.Uint16(code[2:])
		return avrInst{op: avrSTS, args: fmt.Sprintf("0x%04X, r%d", addr, d5)}, 4, nil
	case 0x9201:
		return ptrReg(avrST, "Z+")
	case 0x9202:
		return ptrReg(avrST, "-Z")
	case 0x9209:
		return ptrReg(avrST, "Y+")
	case 0x920a:
		return ptrReg(avrST, "-Y")
	case 0x920c:
		return ptrReg(avrST, "X")
	case 0x920d:
		return ptrReg(avrST, "X+")
	case 0x920e:
		return ptrReg(avrST, "-X")
	case 0x920f:
		return reg(avrPUSH)
	case 0x9400:
		return reg(avrCOM)
	case 0x9401:
		return reg(avrNEG)
	case 0x9402:
		return reg(avrSWAP)
	case 0x9403:
		return reg(avrINC)
	case 0x9405:
		return reg(avrASR)
	case 0x9406:
		return reg(avrLSR)
	case 0x9407:
		return reg(avrROR)
	case 0x940a:
		return reg(avrDEC)
	}

	switch w & 0xff8f {
	case 0x9408:
		return two(avrBSET, fmt.Sprintf("%d", int(w>>4)&7))
	case 0x9488:
		return two(avrBCLR, fmt.Sprintf("%d", int(w>>4)&7))
	}

	switch w & 0xfe0e {
	case 0x940c, 0x940e:
		if len(code) < 4 {
			return nil, 0, errors.New("truncated AVR instruction")
		}
		hi := uint32(w>>3)&0x3e | uint32(w)&1
		addr := hi<<16 | uint32(binary.LittleEndian.Uint16(code[2:]))
		op := avrJMP
		if w&0xfe0e == 0x940e {
			op = avrCALL
		}
		return avrInst{op: op, args: fmt.Sprintf("0x%X", 2*addr)}, 4, nil
	}

	switch w & 0xff00 {
	case 0x9600, 0x9700:
		d := 24 + 2*(int(w>>4)&3)
		k := int(w)&0xf | int(w>>2)&0x30
		op := avrADIW
		if w&0xff00 == 0x9700 {
			op = avrSBIW
		}
		return two(op, fmt.Sprintf("r%d, 0x%02X", d, k))
	case 0x9800:
		return two(avrCBI, fmt.Sprintf("0x%02X, %d", int(w>>3)&0x1f, int(w)&7))
	case 0x9900:
		return two(avrSBIC, fmt.Sprintf("0x%02X, %d", int(w>>3)&0x1f, int(w)&7))
	case 0x9a00:
		return two(avrSBI, fmt.Sprintf("0x%02X, %d", int(w>>3)&0x1f, int(w)&7))
	case 0x9b00:
		return two(avrSBIS, fmt.Sprintf("0x%02X, %d", int(w>>3)&0x1f, int(w)&7))
	}

	if w&0xfc00 == 0x9c00 {
		r := int(w&0xf) | int(w>>5)&0x10
		return two(avrMUL, fmt.Sprintf("r%d, r%d", d5, r))
	}

	return nil, 0, errors.Errorf("unknown AVR opcode %#04x", w)
}

func signed12(w uint16) int {
	k := int(w & 0xfff)
	if k >= 0x800 {
		k -= 0x1000
	}
	return k
}

func signed7(w uint16) int {
	k := int(w>>3) & 0x7f
	if k >= 0x40 {
		k -= 0x80
	}
	return k
}

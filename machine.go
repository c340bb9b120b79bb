package fndiff

import (
	"bytes"
	"log"
	"os"
	"strconv"

	"github.com/mewkiz/pkg/term"
	"github.com/pkg/errors"
)

// warn logs per-symbol diagnostics (size heuristics, skipped exports) with a
// "warning:" prefix to standard error.
var warn = log.New(os.Stderr, term.RedBold("warning:")+" ", 0)

const (
	machineGap        = 1
	machineEquivalent = 4
)

// machineInst is a decoded machine instruction. Flow-control instructions
// close basic blocks during linear decoding.
type machineInst interface {
	Inst
	flowControl() bool
}

// arch couples an instruction decoder with the per-ISA metadata the machine
// ingester needs.
type arch interface {
	// decode decodes the instruction at the start of code and reports its
	// byte length.
	decode(code []byte) (machineInst, int, error)
	// cpuType reports the architecture's Mach-O CPU type, when it has one.
	cpuType() (uint32, bool)
}

// loadMachine reads a machine-code artifact and builds its program model.
func loadMachine(path string, a arch) (*Program, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrIO, "%v", err)
	}
	p := newProgram(machineGap, machineEquivalent)
	if err := extractInto(p, buf, a); err != nil {
		return nil, err
	}
	return p.seal(), nil
}

// extractInto dispatches on the container magic and merges the discovered
// functions into p.
func extractInto(p *Program, buf []byte, a arch) error {
	switch {
	case bytes.HasPrefix(buf, []byte("\x7fELF")):
		return elfFunctions(p, buf, a)
	case bytes.HasPrefix(buf, []byte("MZ")):
		return peFunctions(p, buf, a)
	case isMachO(buf):
		return machoFunctions(p, buf, a)
	case isFatMachO(buf):
		return fatFunctions(p, buf, a)
	case bytes.HasPrefix(buf, []byte("!<arch>\n")):
		return archiveFunctions(p, buf, a)
	default:
		return ErrUnrecognized
	}
}

// symbolRange is a function-like symbol with a resolved file byte range.
type symbolRange struct {
	name  string
	start int
	end   int
}

// convert decodes each symbol's byte range and adds the resulting function
// to p under its demangled name.
func convert(p *Program, buf []byte, a arch, syms []symbolRange) error {
	for _, sym := range syms {
		if sym.start < 0 || sym.start >= len(buf) || sym.end <= sym.start {
			continue
		}
		name := demangleName(sym.name)
		f, err := splitFunction(name, buf, sym.start, sym.end, a)
		if err != nil {
			return err
		}
		p.add(name, f)
	}
	return nil
}

// splitFunction linearly decodes the byte range and splits it on
// flow-control instructions into basic blocks. Blocks are named by their
// running index. Leftover body instructions past the last branch form a
// final block with no terminator.
func splitFunction(name string, buf []byte, start, end int, a arch) (*Function, error) {
	if end > len(buf) {
		end = len(buf)
	}
	f := &Function{Name: name}
	var body []Inst
	addr := start
	for addr < end {
		inst, length, err := a.decode(buf[addr:end])
		if err != nil {
			return nil, errors.Wrapf(ErrDecode, "decoding %s: %v", name, err)
		}
		addr += length
		if inst.flowControl() {
			f.Blocks = append(f.Blocks, &Block{
				Name: strconv.Itoa(len(f.Blocks)),
				Body: body,
				Term: inst,
			})
			body = nil
		} else {
			body = append(body, inst)
		}
	}
	if len(body) > 0 {
		// A trailing chunk of code with no flow-control instruction.
		f.Blocks = append(f.Blocks, &Block{
			Name: strconv.Itoa(len(f.Blocks)),
			Body: body,
			Term: noInst{equiv: machineEquivalent},
		})
	}
	return f, nil
}

package fndiff

import (
	"bytes"
	"debug/macho"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Mach-O constants
const (
	// Section attribute flags marking instruction sections
	sAttrPureInstructions = 0x80000000
	sAttrSomeInstructions = 0x00000400

	// CPU types
	cpuTypeX86   = 0x00000007
	cpuTypeX8664 = 0x01000007
	cpuTypeARM   = 0x0000000c
	cpuTypeARM64 = 0x0100000c

	// Magic numbers: thin ones as read in little-endian order, fat ones as
	// read in big-endian order
	mhMagic   = 0xfeedface
	mhMagic64 = 0xfeedfacf
	mhCigam   = 0xcefaedfe
	mhCigam64 = 0xcffaedfe
	fatMagic  = 0xcafebabe
	fatCigam  = 0xbebafeca
)

func isMachO(buf []byte) bool {
	if len(buf) < 4 {
		return false
	}
	switch binary.LittleEndian.Uint32(buf) {
	case mhMagic, mhMagic64, mhCigam, mhCigam64:
		return true
	}
	return false
}

func isFatMachO(buf []byte) bool {
	if len(buf) < 4 {
		return false
	}
	switch binary.BigEndian.Uint32(buf) {
	case fatMagic, fatCigam:
		return true
	}
	return false
}

func machoFunctions(p *Program, buf []byte, a arch) error {
	f, err := macho.NewFile(bytes.NewReader(buf))
	if err != nil {
		return errors.Wrapf(ErrContainer, "parsing Mach-O: %v", err)
	}
	return machoInto(p, buf, f, a)
}

// fatFunctions picks the slice matching the architecture's CPU type and
// ingests it as a thin image. Architectures without a Mach-O CPU type, and
// fat files without the requested slice, fail the same way.
func fatFunctions(p *Program, buf []byte, a arch) error {
	want, ok := a.cpuType()
	if !ok {
		return ErrFatArch
	}
	ff, err := macho.NewFatFile(bytes.NewReader(buf))
	if err != nil {
		return errors.Wrapf(ErrContainer, "parsing fat Mach-O: %v", err)
	}
	for _, fa := range ff.Arches {
		if uint32(fa.Cpu) != want {
			continue
		}
		start, size := int(fa.Offset), int(fa.Size)
		if start < 0 || size < 0 || start+size > len(buf) {
			return errors.Wrap(ErrUnrecognized, "fat slice out of range")
		}
		return machoInto(p, buf[start:start+size], fa.File, a)
	}
	return ErrFatArch
}

// machoInto harvests function symbols from a thin Mach-O image. Symbols
// without a section (NO_SECT) are skipped, as are symbols whose section is
// not flagged as holding instructions. Mach-O carries no symbol sizes, so
// the length heuristic is the next symbol in the same section; symbols
// without one are dropped with a warning.
func machoInto(p *Program, buf []byte, f *macho.File, a arch) error {
	if f.Symtab == nil {
		return ErrNoSymbol
	}
	var ranges []symbolRange
	for _, sym := range f.Symtab.Syms {
		if sym.Sect == 0 {
			continue
		}
		secIdx := int(sym.Sect) - 1
		if secIdx >= len(f.Sections) {
			continue
		}
		if f.Sections[secIdx].Flags&(sAttrPureInstructions|sAttrSomeInstructions) == 0 {
			continue
		}
		fileoff := machoSegmentOffset(f, secIdx)
		var next uint64
		for _, other := range f.Symtab.Syms {
			if other.Sect == sym.Sect && other.Value > sym.Value && (next == 0 || other.Value < next) {
				next = other.Value
			}
		}
		if next == 0 {
			warn.Printf("can't determine the size of %s", sym.Name)
			continue
		}
		ranges = append(ranges, symbolRange{
			name:  sym.Name,
			start: int(fileoff + sym.Value),
			end:   int(fileoff + next),
		})
	}
	return convert(p, buf, a, ranges)
}

// machoSegmentOffset finds the file offset of the segment containing the
// given global section index by walking the segment load commands in order.
func machoSegmentOffset(f *macho.File, secIdx int) uint64 {
	remaining := secIdx
	for _, load := range f.Loads {
		seg, ok := load.(*macho.Segment)
		if !ok {
			continue
		}
		if remaining < int(seg.Nsect) {
			return seg.Offset
		}
		remaining -= int(seg.Nsect)
	}
	return 0
}

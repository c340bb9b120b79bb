package fndiff

import (
	"bytes"
	"debug/pe"
	"encoding/binary"

	"github.com/pkg/errors"
)

// PE carries no symbol sizes, so a function's length is the distance to the
// next export with a greater file offset. Exports without such a neighbour
// are dropped with a warning rather than guessed at.

// imageDirectoryEntryExport indexes the export table in the optional
// header's data directory.
const imageDirectoryEntryExport = 0

func peFunctions(p *Program, buf []byte, a arch) error {
	f, err := pe.NewFile(bytes.NewReader(buf))
	if err != nil {
		return errors.Wrapf(ErrContainer, "parsing PE: %v", err)
	}
	exports, err := peExports(f, buf)
	if err != nil {
		return err
	}
	var ranges []symbolRange
	for _, exp := range exports {
		end := 0
		for _, other := range exports {
			if other.start > exp.start && (end == 0 || other.start < end) {
				end = other.start
			}
		}
		if end == 0 {
			warn.Printf("can't determine the size of %s", exp.name)
			continue
		}
		ranges = append(ranges, symbolRange{name: exp.name, start: exp.start, end: end})
	}
	return convert(p, buf, a, ranges)
}

// peExports walks the export directory and resolves each named export to a
// file offset. Forwarded exports (whose address lands inside the directory
// itself) are skipped.
func peExports(f *pe.File, buf []byte) ([]symbolRange, error) {
	var dirs [16]pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dirs = oh.DataDirectory
	case *pe.OptionalHeader64:
		dirs = oh.DataDirectory
	default:
		return nil, nil
	}
	dir := dirs[imageDirectoryEntryExport]
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil, nil
	}
	off, ok := rvaToOffset(f, dir.VirtualAddress)
	if !ok || off+40 > len(buf) {
		return nil, errors.Wrap(ErrNoSymbol, "export directory out of range")
	}
	u32 := func(at int) (uint32, bool) {
		if at < 0 || at+4 > len(buf) {
			return 0, false
		}
		return binary.LittleEndian.Uint32(buf[at:]), true
	}
	u16 := func(at int) (uint16, bool) {
		if at < 0 || at+2 > len(buf) {
			return 0, false
		}
		return binary.LittleEndian.Uint16(buf[at:]), true
	}
	numFuncs, _ := u32(off + 20)
	numNames, _ := u32(off + 24)
	funcsRVA, _ := u32(off + 28)
	namesRVA, _ := u32(off + 32)
	ordsRVA, _ := u32(off + 36)
	funcsOff, fok := rvaToOffset(f, funcsRVA)
	namesOff, nok := rvaToOffset(f, namesRVA)
	ordsOff, ook := rvaToOffset(f, ordsRVA)
	if !fok || !nok || !ook {
		return nil, errors.Wrap(ErrNoSymbol, "export tables out of range")
	}
	var exports []symbolRange
	for i := 0; i < int(numNames); i++ {
		nameRVA, ok := u32(namesOff + 4*i)
		if !ok {
			return nil, errors.Wrap(ErrNoSymbol, "export name table truncated")
		}
		nameOff, ok := rvaToOffset(f, nameRVA)
		if !ok {
			continue
		}
		name := readCString(buf, nameOff)
		ord, ok := u16(ordsOff + 2*i)
		if !ok || uint32(ord) >= numFuncs {
			continue
		}
		funcRVA, ok := u32(funcsOff + 4*int(ord))
		if !ok || funcRVA == 0 {
			continue
		}
		if funcRVA >= dir.VirtualAddress && funcRVA < dir.VirtualAddress+dir.Size {
			// Forwarder, not code in this image.
			continue
		}
		start, ok := rvaToOffset(f, funcRVA)
		if !ok {
			continue
		}
		exports = append(exports, symbolRange{name: name, start: start})
	}
	return exports, nil
}

// rvaToOffset maps a relative virtual address to a file offset via the
// section table.
func rvaToOffset(f *pe.File, rva uint32) (int, bool) {
	for _, sec := range f.Sections {
		size := sec.VirtualSize
		if sec.Size > size {
			size = sec.Size
		}
		if rva >= sec.VirtualAddress && rva < sec.VirtualAddress+size {
			return int(rva - sec.VirtualAddress + sec.Offset), true
		}
	}
	return 0, false
}

func readCString(buf []byte, off int) string {
	if off < 0 || off >= len(buf) {
		return ""
	}
	end := bytes.IndexByte(buf[off:], 0)
	if end < 0 {
		return string(buf[off:])
	}
	return string(buf[off : off+end])
}

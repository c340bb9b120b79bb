package fndiff

import (
	"bytes"
	"debug/elf"

	"github.com/pkg/errors"
)

// elfFunctions harvests function symbols from an ELF image. Both the
// dynamic and the regular symbol tables contribute; entries must be typed
// STT_FUNC, have a positive size and point into a real section. The file
// offset is sh_offset + st_value - sh_addr.
func elfFunctions(p *Program, buf []byte, a arch) error {
	f, err := elf.NewFile(bytes.NewReader(buf))
	if err != nil {
		return errors.Wrapf(ErrContainer, "parsing ELF: %v", err)
	}
	dyn, err := f.DynamicSymbols()
	if err != nil && err != elf.ErrNoSymbols {
		return errors.Wrapf(ErrNoSymbol, "%v", err)
	}
	regular, err := f.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return errors.Wrapf(ErrNoSymbol, "%v", err)
	}
	var ranges []symbolRange
	for _, sym := range append(dyn, regular...) {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Size == 0 {
			continue
		}
		idx := int(sym.Section)
		if idx <= 0 || idx >= len(f.Sections) {
			continue
		}
		sec := f.Sections[idx]
		start := int(sec.Offset + sym.Value - sec.Addr)
		ranges = append(ranges, symbolRange{
			name:  sym.Name,
			start: start,
			end:   start + int(sym.Size),
		})
	}
	return convert(p, buf, a, ranges)
}

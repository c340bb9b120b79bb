package fndiff

import (
	"bytes"
	"io"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/pkg/errors"
)

// archiveFunctions recurses into each ar member as an independent artifact
// and merges the per-member function maps. Members later in the archive
// override earlier ones on name collisions. Linker index members are not
// object files and are skipped.
func archiveFunctions(p *Program, buf []byte, a arch) error {
	rdr := ar.NewReader(bytes.NewReader(buf))
	for {
		hdr, err := rdr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(ErrContainer, "reading archive: %v", err)
		}
		name := strings.TrimSpace(hdr.Name)
		if name == "/" || name == "//" || strings.HasPrefix(name, "__.SYMDEF") {
			continue
		}
		member, err := io.ReadAll(rdr)
		if err != nil {
			return errors.Wrapf(ErrContainer, "reading archive member %s: %v", name, err)
		}
		if err := extractInto(p, member, a); err != nil {
			return errors.Wrapf(err, "archive member %s", name)
		}
	}
}

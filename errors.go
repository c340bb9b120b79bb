package fndiff

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrBadFormat reports a format tag LookupFormat does not recognize.
	ErrBadFormat = errors.New("unknown file format")
	// ErrIO reports an input file that could not be read.
	ErrIO = errors.New("cannot read file")
	// ErrContainer reports an object-file or IR container whose structure
	// failed to parse.
	ErrContainer = errors.New("invalid container")
	// ErrUnrecognized reports a container type the machine ingester cannot
	// parse.
	ErrUnrecognized = errors.New("cannot parse file")
	// ErrNoSymbol reports a missing or corrupt symbol table.
	ErrNoSymbol = errors.New("symbol table is corrupt")
	// ErrDecode reports a byte sequence the architecture decoder rejected.
	ErrDecode = errors.New("cannot decode instruction")
	// ErrFatArch reports a fat Mach-O that lacks a slice for the requested
	// architecture.
	ErrFatArch = errors.New("architecture is not present in fat binary")
	// ErrBadSelector reports a selector with a right-hand name but no
	// left-hand name.
	ErrBadSelector = errors.New("right-hand function name supplied without a left-hand name")
)

// Side names the side of a diff an error refers to.
type Side int

const (
	SideLeft Side = iota
	SideRight
	SideBoth
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left-hand"
	case SideRight:
		return "right-hand"
	default:
		return "either"
	}
}

// NoMatchError reports that the function selector resolved no function on
// one or both sides.
type NoMatchError struct {
	Side Side
}

func (e *NoMatchError) Error() string {
	if e.Side == SideBoth {
		return "no functions in common"
	}
	return fmt.Sprintf("cannot find function in %s file", e.Side)
}

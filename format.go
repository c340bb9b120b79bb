package fndiff

import "github.com/pkg/errors"

// Format couples a textual format tag with the loader that builds the
// program model for it.
type Format struct {
	Tag  string
	Load func(path string) (*Program, error)
}

// LookupFormat resolves a format tag to its ingester. Tags are
// case-sensitive.
func LookupFormat(tag string) (Format, error) {
	switch tag {
	case "ll", "ll-ir", "llir":
		return Format{Tag: tag, Load: func(path string) (*Program, error) {
			return loadIR(path, true)
		}}, nil
	case "ll-bc", "llbc":
		return Format{Tag: tag, Load: func(path string) (*Program, error) {
			return loadIR(path, false)
		}}, nil
	case "arm64", "aarch64", "armv8":
		return machineFormat(tag, arm64Arch{}), nil
	case "arm32", "aarch32", "armv7":
		return machineFormat(tag, armArch{}), nil
	case "avr":
		return machineFormat(tag, avrArch{}), nil
	case "x86", "x86-32", "x86_32", "i386", "i686":
		return machineFormat(tag, x86Arch{mode: 32}), nil
	case "x64", "x86-64", "x86_64":
		return machineFormat(tag, x86Arch{mode: 64}), nil
	}
	return Format{}, errors.Wrapf(ErrBadFormat, "%q", tag)
}

func machineFormat(tag string, a arch) Format {
	return Format{Tag: tag, Load: func(path string) (*Program, error) {
		return loadMachine(path, a)
	}}
}

// DiffFiles loads both sides with the format's loader and streams the
// selected function diffs into sink. It reports whether any difference was
// found.
func DiffFiles(format Format, leftPath, rightPath string, sel Selector, sink ResultSink) (bool, error) {
	left, err := format.Load(leftPath)
	if err != nil {
		return false, errors.Wrap(err, "left-hand file")
	}
	right, err := format.Load(rightPath)
	if err != nil {
		return false, errors.Wrap(err, "right-hand file")
	}
	return Compare(left, right, sel, sink)
}

package fndiff

import "github.com/ianlancetaylor/demangle"

// demangleName recovers a readable name from a compiler-mangled symbol.
// Rust and Itanium C++ manglings are both handled; anything the demangler
// rejects passes through unchanged. The demangled name is what keys the
// function map.
func demangleName(symbol string) string {
	return demangle.Filter(symbol)
}

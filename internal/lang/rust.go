package lang

import (
	"github.com/smacker/go-tree-sitter/rust"
)

// Rust is the only source language the translator reads.
const Rust = "rust"

func init() {
	Languages[Rust] = &Language{
		Name:       Rust,
		Extensions: []string{".rs"},
		Target:     ".zig",
		lang:       rust.GetLanguage(),
	}
}

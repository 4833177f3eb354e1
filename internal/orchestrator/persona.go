// Copyright Contributors to the SeaClaw Platform project

package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode"
)

// resolvePersona reads the persona document <dir>/<id>.md. A missing or
// unreadable file falls back to a minimal generic document so that a typo in
// the persona name never blocks instance creation.
func resolvePersona(dir, id string) string {
	content, err := os.ReadFile(filepath.Join(dir, id+".md"))
	if err != nil {
		return fmt.Sprintf("# %s\nYou are a helpful AI assistant.", titleCase(id))
	}
	return string(content)
}

// titleCase upper-cases the first rune only. Persona ids are lowercase by
// the username character rules.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

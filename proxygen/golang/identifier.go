package golang

import (
	"go/token"
	"strings"
	"unicode"
)

// escapeReservedWord escapes a Go keyword by appending an underscore.
func escapeReservedWord(name string) string {
	if token.IsKeyword(name) {
		return name + "_"
	}
	return name
}

// uniqueName returns base, or base followed by underscores until it does not
// collide with any name in taken.
func uniqueName(base string, taken map[string]bool) string {
	name := base
	for taken[name] {
		name += "_"
	}
	return name
}

// SanitizeIdentifier makes name a valid Go identifier. Every rune that cannot
// appear in an identifier becomes an underscore and a leading digit gets an
// underscore prefix.
func SanitizeIdentifier(name string) string {
	if name == "" {
		return "_"
	}

	var result strings.Builder

	// Handle leading digit
	if unicode.IsDigit(rune(name[0])) {
		result.WriteRune('_')
	}

	// Replace invalid characters with underscores
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}

	return escapeReservedWord(result.String())
}

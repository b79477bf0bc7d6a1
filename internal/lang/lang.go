// Package lang maps language names and file extensions to the languages
// eo knows how to build.
package lang

import "strings"

// Language identifies a toolchain family.
type Language int

const (
	Unknown Language = iota
	Assembly
	C
	Cpp
)

func (l Language) String() string {
	switch l {
	case Assembly:
		return "assembly"
	case C:
		return "c"
	case Cpp:
		return "c++"
	}
	return "unknown"
}

// synonyms lists every accepted spelling per language, lower case.
var synonyms = map[Language][]string{
	Assembly: {"s", "asm", "assembly", "x86", "x86_64"},
	C:        {"c"},
	Cpp:      {"cpp", "c++"},
}

var byName = func() map[string]Language {
	m := make(map[string]Language)
	for l, names := range synonyms {
		for _, n := range names {
			m[n] = l
		}
	}
	return m
}()

// Known returns the buildable languages in a stable order.
func Known() []Language {
	return []Language{Assembly, C, Cpp}
}

// Synonyms returns the names accepted for l.
func Synonyms(l Language) []string {
	return append([]string(nil), synonyms[l]...)
}

// Lookup maps a name such as "asm" or "C++" to its Language.
func Lookup(name string) Language {
	return byName[strings.ToLower(name)]
}

// Resolve picks the language for a run. A non-empty explicit name wins;
// otherwise the extension of file decides. Unknown means neither gave
// a known language.
func Resolve(explicit, file string) Language {
	if explicit != "" {
		return Lookup(explicit)
	}
	ext := Ext(file)
	if ext == "" {
		return Unknown
	}
	return Lookup(ext)
}

// Ext returns the text after the last dot of file. It is empty when
// there is no dot or when the only dot starts the name.
func Ext(file string) string {
	i := strings.LastIndexByte(file, '.')
	if i <= 0 {
		return ""
	}
	return file[i+1:]
}

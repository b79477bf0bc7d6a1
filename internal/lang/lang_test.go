package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_Explicit(t *testing.T) {
	tests := []struct {
		name string
		want Language
	}{
		{"s", Assembly},
		{"asm", Assembly},
		{"Assembly", Assembly},
		{"x86", Assembly},
		{"X86_64", Assembly},
		{"c", C},
		{"C", C},
		{"cpp", Cpp},
		{"C++", Cpp},
		{"go", Unknown},
		{"cc", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The explicit name wins over the extension.
			assert.Equal(t, tt.want, Resolve(tt.name, "file.c"))
		})
	}
}

func TestResolve_Extension(t *testing.T) {
	tests := []struct {
		file string
		want Language
	}{
		{"hello.c", C},
		{"hello.cpp", Cpp},
		{"boot.s", Assembly},
		{"boot.asm", Assembly},
		{"HELLO.C", C},
		{"dir.d/hello", Unknown},
		{"archive.tar.c", C},
		{"unknown.xyz", Unknown},
		{"noext", Unknown},
		{".c", Unknown},
		{"trailing.", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve("", tt.file))
		})
	}
}

func TestExt(t *testing.T) {
	assert.Equal(t, "c", Ext("a.c"))
	assert.Equal(t, "gz", Ext("a.tar.gz"))
	assert.Equal(t, "", Ext(".bashrc"))
	assert.Equal(t, "", Ext("Makefile"))
	assert.Equal(t, "", Ext("a."))
}

func TestString(t *testing.T) {
	assert.Equal(t, "assembly", Assembly.String())
	assert.Equal(t, "c", C.String())
	assert.Equal(t, "c++", Cpp.String())
	assert.Equal(t, "unknown", Unknown.String())
}

func TestKnownAndSynonyms(t *testing.T) {
	assert.Equal(t, []Language{Assembly, C, Cpp}, Known())
	assert.Equal(t, []string{"cpp", "c++"}, Synonyms(Cpp))
	assert.Empty(t, Synonyms(Unknown))
}

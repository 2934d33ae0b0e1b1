package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		title string
		max   int
		want  string
	}{
		{"punctuation and spaces", "Clean Code!", DefaultMaxLength, "clean_code"},
		{"removed set", `a*b+c~d.e(f)g'h"i!j:k@l`, 0, "abcdefghijkl"},
		{"whitespace runs", "  Go \t is\n\nfun  ", 0, "go_is_fun"},
		{"keeps dashes", "Pre-release notes", 0, "pre-release_notes"},
		{"trims replacement", "__hello world__", 0, "hello_world"},
		{"drops other symbols", "50% off & more?", 0, "50_off_more"},
		{"underscores join whitespace runs", "a _ b", 0, "a_b"},
		{"keeps inner underscores", "snake_case title", 0, "snake_case_title"},
		{"strips accents", "Café au lait", 0, "cafe_au_lait"},
		{"unicode letters", "Ünïcode Títle", 0, "unicode_title"},
		{"non-latin letters", "Привет мир", 0, "привет_мир"},
		{"empty", "", DefaultMaxLength, ""},
		{"only punctuation", "!!!", DefaultMaxLength, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.title, tt.max))
		})
	}
}

func TestMakeTruncatesBeforeSlugifying(t *testing.T) {
	title := "The quick brown fox jumps over the lazy dog again and again"

	got := Make(title, DefaultMaxLength)

	assert.Equal(t, "the_quick_brown_fox_jumps_over_the_lazy_do", got)
	assert.Equal(t, Make(title[:DefaultMaxLength], 0), got)
}

func TestMakeIsDeterministic(t *testing.T) {
	assert.Equal(t, Make("Same Title", 10), Make("Same Title", 10))
}

package behavior

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Hello World", "Hello World"},
		{"extra spaces", "Hello   World", "Hello World"},
		{"tabs and newlines", "Hello\t\nWorld", "Hello World"},
		{"leading and trailing", "  Hello World  ", "Hello World"},
		{"empty", "", ""},
		{"only whitespace", "   \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no markup", "Hello World", "Hello World"},
		{"ssml", "<speak>Hello <break time='1s'/> World</speak>", "Hello  World"},
		{"nested", "<p><b>bold</b></p>", "bold"},
		{"unclosed angle", "1 < 2", "1 < 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripTags(tt.input))
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hello World", PlainText("<speak>Hello   World</speak>"))
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt; &quot;d&quot; &apos;e&apos;", EscapeXML(`a & b <c> "d" 'e'`))
}

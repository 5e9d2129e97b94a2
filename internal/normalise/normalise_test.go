package normalise

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText_DispatchesOnContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		input       string
		want        string
	}{
		{
			name:        "plain text passes through",
			contentType: "text/plain",
			input:       "hello world",
			want:        "hello world",
		},
		{
			name:        "content type parameters are ignored",
			contentType: "text/html; charset=utf-8",
			input:       "<p>hello</p>",
			want:        "hello",
		},
		{
			name:        "markdown heading stripped",
			contentType: "text/markdown",
			input:       "# Title\n\nbody text",
			want:        "Title\n\nbody text",
		},
		{
			name:        "unknown type treated as plain",
			contentType: "application/octet-stream",
			input:       "raw **stuff**",
			want:        "raw **stuff**",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.contentType, tt.input))
		})
	}
}

func TestMarkdown(t *testing.T) {
	input := "# Guide\n\nSee [the docs](https://example.com) for **bold** claims.\n\n```go\ncode here\n```\n\n> quoted\n"
	got := Markdown(input)

	assert.Contains(t, got, "See the docs for bold claims.")
	assert.Contains(t, got, "quoted")
	assert.NotContains(t, got, "code here")
	assert.NotContains(t, got, "https://example.com")
	assert.NotContains(t, got, "#")
}

func TestHTML(t *testing.T) {
	input := `<html><head><title>Page</title></head><body>
<script>alert(1)</script>
<p>First &amp; second</p>
<div>third</div>
<!-- hidden -->
</body></html>`
	got := HTML(input)

	assert.Contains(t, got, "First & second")
	assert.Contains(t, got, "third")
	assert.NotContains(t, got, "alert")
	assert.NotContains(t, got, "hidden")
	assert.NotContains(t, got, "<")
}

func TestPlain_NormalisesWhitespace(t *testing.T) {
	got := Plain("a\r\nb\n\n\n\n\nc\n")
	assert.Equal(t, "a\nb\n\nc", got)
}

func TestTitleFromMarkdown(t *testing.T) {
	assert.Equal(t, "My Title", TitleFromMarkdown("intro\n# My Title\nbody"))
	assert.Empty(t, TitleFromMarkdown("no heading here"))
}

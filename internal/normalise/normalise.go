// Package normalise converts ingested content into plain text before
// chunking. Markup is stripped by content type; unknown types pass
// through with whitespace cleanup only.
package normalise

import (
	"html"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for markup stripping.
var (
	codeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode   = regexp.MustCompile("`[^`]+`")
	mdImages     = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLinks      = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeadings   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquote = regexp.MustCompile(`(?m)^>\s*`)
	mdHRule      = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)

	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	closeBlockTags    = regexp.MustCompile(`(?i)</(p|div|br|hr|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)

	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Text converts content of the given MIME type to plain text. The
// content type may carry parameters ("text/html; charset=utf-8").
func Text(contentType, content string) string {
	switch baseType(contentType) {
	case "text/markdown", "text/x-markdown":
		return Markdown(content)
	case "text/html", "application/xhtml+xml":
		return HTML(content)
	default:
		return Plain(content)
	}
}

// Plain cleans up whitespace without touching the content.
func Plain(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// Markdown strips common markdown formatting, keeping the readable text.
func Markdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "")
	content = mdImages.ReplaceAllString(content, "")

	// Links keep their text, lose their URL.
	content = mdLinks.ReplaceAllString(content, "$1")

	content = mdHeadings.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdHRule.ReplaceAllString(content, "")

	return Plain(content)
}

// HTML strips tags and extracts readable text content.
func HTML(content string) string {
	// Non-content subtrees go first.
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	// Block boundaries become newlines for readability.
	content = openBlockElements.ReplaceAllString(content, "\n")
	content = closeBlockTags.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")

	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	content = multiSpaces.ReplaceAllString(content, " ")
	return Plain(content)
}

// TitleFromMarkdown extracts the first H1 heading as a title, or "".
func TitleFromMarkdown(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

// baseType strips parameters from a MIME type.
func baseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

package channels

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// renderMarkdown turns a bot reply into HTML. Raw HTML in the reply is
// dropped, and only links with a safe scheme are rendered as links.
func renderMarkdown(text string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.HardLineBreak)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML | html.Safelink |
			html.HrefTargetBlank | html.NoopenerLinks | html.NoreferrerLinks,
	})
	return string(markdown.ToHTML([]byte(text), p, r))
}

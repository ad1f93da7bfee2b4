package specdoc

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

// Pre-compiled to avoid recompiling per document.
var (
	scriptRe         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	excessiveLinesRe = regexp.MustCompile(`\n{4,}`)
)

// converter turns HTML specification documents into markdown so the
// declaration extractor only ever sees one format. Chrome elements that
// cannot carry declarations (navigation, scripts, styling) are dropped
// before conversion.
type converter struct {
	md *md.Converter
}

// newConverter creates an HTML to markdown converter.
func newConverter() *converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return &converter{md: c}
}

// Convert transforms HTML content to cleaned markdown. Reported line
// numbers for declarations found in converted documents refer to the
// markdown text, not the HTML source.
func (c *converter) Convert(content []byte) (string, error) {
	cleaned := extractDocumentBody(content)

	markdown, err := c.md.ConvertString(cleaned)
	if err != nil {
		return "", err
	}

	return cleanMarkdown(markdown), nil
}

// extractDocumentBody returns the content-bearing HTML, preferring a
// main or article element when one exists.
func extractDocumentBody(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		// Fall back to regex cleanup when parsing fails.
		return basicHTMLCleanup(string(content))
	}

	for _, tag := range []string{"main", "article"} {
		if node := findElement(doc, tag); node != nil {
			return renderNode(node)
		}
	}

	removeElements(doc, []string{
		"nav", "header", "footer", "aside", "script", "style", "noscript",
		"iframe", "form",
	})

	if body := findElement(doc, "body"); body != nil {
		return renderNode(body)
	}

	return string(content)
}

// findElement finds the first element with the given tag name.
func findElement(n *html.Node, tag string) *html.Node {
	var result *html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if result != nil {
			return
		}
		if node.Type == html.ElementNode && node.Data == tag {
			result = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return result
}

// removeElements removes all elements with the given tag names.
func removeElements(n *html.Node, tags []string) {
	tagSet := make(map[string]bool)
	for _, tag := range tags {
		tagSet[tag] = true
	}

	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && tagSet[node.Data] {
			toRemove = append(toRemove, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

// renderNode renders a node and its children back to an HTML string.
func renderNode(n *html.Node) string {
	var sb strings.Builder
	html.Render(&sb, n)
	return sb.String()
}

// basicHTMLCleanup strips script and style blocks when full parsing fails.
func basicHTMLCleanup(content string) string {
	content = scriptRe.ReplaceAllString(content, "")
	content = styleRe.ReplaceAllString(content, "")
	return content
}

// cleanMarkdown normalizes converted markdown: collapses excessive blank
// lines and trims trailing whitespace, which keeps heading detection
// stable across converter versions.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")

	return strings.TrimSpace(content)
}

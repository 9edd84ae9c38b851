package tui

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML converts merchant-supplied rich text (terms, headings, product
// descriptions) to plain text. Block elements become line breaks and link
// targets are kept after the link text.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	var result strings.Builder
	var hrefs []string
	tokenizer := html.NewTokenizer(strings.NewReader(s))

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			return cleanupWhitespace(result.String())

		case html.TextToken:
			result.Write(tokenizer.Text())

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "a" {
				href := ""
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = tokenizer.TagAttr()
					if string(key) == "href" {
						href = string(val)
					}
				}
				hrefs = append(hrefs, href)
				continue
			}
			if isBlock(tagName) || tagName == "br" {
				result.WriteString("\n")
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "a" && len(hrefs) > 0 {
				href := hrefs[len(hrefs)-1]
				hrefs = hrefs[:len(hrefs)-1]
				if href != "" && !strings.HasPrefix(href, "#") {
					result.WriteString(" (" + href + ")")
				}
				continue
			}
			if isBlock(tagName) {
				result.WriteString("\n")
			}
		}
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

// cleanupWhitespace collapses runs of spaces, including non-breaking ones,
// and drops blank lines.
func cleanupWhitespace(s string) string {
	var cleanLines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleanLines = append(cleanLines, line)
		}
	}
	return strings.Join(cleanLines, "\n")
}

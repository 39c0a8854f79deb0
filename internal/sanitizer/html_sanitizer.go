// Package sanitizer cleans HTML email bodies before they are returned by
// display surfaces, preventing script execution in whatever renders them.
package sanitizer

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	scriptRegex    = regexp.MustCompile(`(?i)<script[^>]*>[\s\S]*?</script>`)
	noscriptRegex  = regexp.MustCompile(`(?i)<noscript[^>]*>[\s\S]*?</noscript>`)
	eventAttrRegex = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
)

// HTMLSanitizer cleans untrusted HTML from message bodies.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

// New creates a sanitizer with a policy suited to email bodies: common
// formatting and table markup, links and inline (data URI) images.
func New() *HTMLSanitizer {
	policy := bluemonday.UGCPolicy()

	policy.AllowElements(
		"p", "br", "hr", "div", "span",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"strong", "b", "em", "i", "u", "s",
		"blockquote", "pre", "code",
		"ul", "ol", "li", "dl", "dt", "dd",
		"table", "thead", "tbody", "tfoot", "tr", "th", "td",
		"a", "img", "font", "center",
	)
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	policy.AllowAttrs("style", "class").Globally()
	policy.AllowAttrs("colspan", "rowspan", "border", "cellpadding", "cellspacing").OnElements("table", "td", "th")
	policy.AllowDataURIImages()

	return &HTMLSanitizer{policy: policy}
}

// Sanitize strips scripts and event handlers, then applies the bluemonday
// policy.
func (s *HTMLSanitizer) Sanitize(html string) string {
	if html == "" {
		return ""
	}

	result := RemoveScripts(html)
	result = RemoveEventHandlers(result)
	return s.policy.Sanitize(result)
}

// RemoveScripts removes script and noscript tags with their content.
func RemoveScripts(html string) string {
	result := scriptRegex.ReplaceAllString(html, "")
	return noscriptRegex.ReplaceAllString(result, "")
}

// RemoveEventHandlers removes inline on* event handler attributes.
func RemoveEventHandlers(html string) string {
	return eventAttrRegex.ReplaceAllString(html, "")
}

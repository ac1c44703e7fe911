package catalog

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockTitles are page titles served by bot protection instead of data.
var blockTitles = []string{
	"just a moment",
	"attention required",
	"access denied",
	"too many requests",
	"request blocked",
}

// blockSelectors match challenge widgets embedded in block pages.
const blockSelectors = "#challenge-form, #cf-wrapper, .g-recaptcha, .h-captcha, iframe[src*='captcha']"

// IsBlockPage reports whether a successful response is really a block or
// captcha page. JSON bodies are never block pages.
func IsBlockPage(contentType string, body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return false
	}
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
	if err != nil {
		return false
	}

	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	for _, t := range blockTitles {
		if strings.Contains(title, t) {
			return true
		}
	}
	return doc.Find(blockSelectors).Length() > 0
}

package markup

import (
	"bytes"
	"regexp"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var (
	// blankLinesRegex matches runs of blank lines, including lines holding
	// only spaces.
	blankLinesRegex = regexp.MustCompile(`([ \t]*\n){2,}`)

	// trailingSpaceRegex matches spaces before a line break.
	trailingSpaceRegex = regexp.MustCompile(`[ \t]+\n`)

	// controlEscapes are the JSON escapes of C1 control characters the
	// remote service leaves in descriptions and changelogs.
	controlEscapes = [][]byte{
		[]byte(`\u0092`), []byte(`\u0093`), []byte(`\u0094`),
		[]byte(`\u0095`), []byte(`\u0096`), []byte(`\u0097`),
	}

	mdConverter = sync.OnceValue(func() *converter.Converter {
		return converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
	})
)

// ToText converts an HTML fragment into normalised text.
// An empty or whitespace-only fragment yields "".
func ToText(html string) (string, error) {
	html = StripControlRunes(html)
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	text, err := mdConverter().ConvertString(html)
	if err != nil {
		return "", err
	}
	return Tidy(text), nil
}

// Tidy collapses blank line runs into a single empty line, drops trailing
// spaces and trims the result.
func Tidy(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = trailingSpaceRegex.ReplaceAllString(text, "\n")
	text = blankLinesRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// StripControlEscapes removes escaped C1 control characters from a raw JSON
// body before it is decoded.
func StripControlEscapes(body []byte) []byte {
	for _, esc := range controlEscapes {
		if bytes.Contains(body, esc) {
			body = bytes.ReplaceAll(body, esc, nil)
		}
	}
	return body
}

// StripControlRunes removes C1 control characters U+0092 to U+0097 from text.
func StripControlRunes(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x92 && r <= 0x97 {
			return -1
		}
		return r
	}, s)
}

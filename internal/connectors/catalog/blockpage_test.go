package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBlockPage(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        bool
	}{
		{"json object", "application/json", `{"id":1}`, false},
		{"json array served as html", "text/html", `[]`, false},
		{"empty", "text/html", ``, false},
		{"cloudflare title", "text/html", `<html><head><title>Just a moment...</title></head></html>`, true},
		{"access denied", "text/html", `<title>Access Denied</title>`, true},
		{"captcha widget", "text/html", `<html><body><div class="g-recaptcha"></div></body></html>`, true},
		{"challenge form", "", `<html><body><form id="challenge-form"></form></body></html>`, true},
		{"ordinary page", "text/html", `<html><head><title>Game</title></head><body><p>hi</p></body></html>`, false},
		{"plain text", "text/plain", `Access denied`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBlockPage(tt.contentType, []byte(tt.body)))
		})
	}
}

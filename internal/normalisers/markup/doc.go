// Package markup converts the HTML fragments embedded in catalog payloads
// (changelogs, descriptions) into stable text, so cosmetic markup changes on
// the remote side do not register as content changes.
package markup

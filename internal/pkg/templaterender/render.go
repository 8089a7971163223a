// Package templaterender interpolates {{variable.path}} placeholders in
// notification templates. Unresolved placeholders stay literal so a malformed
// payload degrades the message instead of blocking delivery.
package templaterender

import (
	"regexp"

	"github.com/servicedeskhq/notify/internal/domain"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*)\s*\}\}`)

// Interpolate replaces every {{path}} placeholder in src with the payload
// value at the dotted path. Placeholders with no matching payload field are
// left as literal text.
func Interpolate(src string, payload domain.Payload) string {
	if src == "" {
		return ""
	}
	return placeholderRe.ReplaceAllStringFunc(src, func(match string) string {
		path := placeholderRe.FindStringSubmatch(match)[1]
		val, ok := payload.Lookup(path)
		if !ok {
			return match
		}
		return domain.FormatValue(val)
	})
}

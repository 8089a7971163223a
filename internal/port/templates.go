package port

import (
	"context"

	"github.com/servicedeskhq/notify/internal/domain"
)

// Template is the raw subject/body pair for one (kind, locale).
type Template struct {
	Subject string
	Body    string
}

// TemplateStore looks up notification templates. A (kind, locale) miss is
// reported via found=false, not an error; the resolver owns locale fallback.
type TemplateStore interface {
	GetTemplate(ctx context.Context, kind domain.Kind, locale string) (tpl Template, found bool, err error)
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/servicedeskhq/notify/internal/channel"
	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/pkg/templaterender"
	"github.com/servicedeskhq/notify/internal/port"
)

// TemplateNotFoundError means no template exists for the kind in the
// requested locale or the default locale. This is a configuration defect and
// fails the whole dispatch; it is never silently skipped.
type TemplateNotFoundError struct {
	Kind    domain.Kind
	Locales []string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("no template for kind %q in locales [%s]", e.Kind, strings.Join(e.Locales, ", "))
}

// TemplateResolver resolves (kind, locale) to rendered subject/body content.
// It is a pure function over the template store and holds no mutable state.
type TemplateResolver struct {
	store         port.TemplateStore
	defaultLocale string
}

// NewTemplateResolver builds a resolver with the process-wide default locale.
func NewTemplateResolver(store port.TemplateStore, defaultLocale string) *TemplateResolver {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	return &TemplateResolver{store: store, defaultLocale: defaultLocale}
}

// Resolve looks up the template for (kind, locale), falling back to the
// default locale, and interpolates the payload into subject and body.
func (r *TemplateResolver) Resolve(ctx context.Context, kind domain.Kind, locale string, payload domain.Payload) (channel.Content, error) {
	locales := []string{locale}
	if locale == "" {
		locales = []string{r.defaultLocale}
	} else if locale != r.defaultLocale {
		locales = append(locales, r.defaultLocale)
	}

	for _, loc := range locales {
		tpl, found, err := r.store.GetTemplate(ctx, kind, loc)
		if err != nil {
			return channel.Content{}, fmt.Errorf("template store lookup %s/%s: %w", kind, loc, err)
		}
		if !found {
			continue
		}
		return channel.Content{
			Subject: templaterender.Interpolate(tpl.Subject, payload),
			Body:    templaterender.Interpolate(tpl.Body, payload),
		}, nil
	}
	return channel.Content{}, &TemplateNotFoundError{Kind: kind, Locales: locales}
}

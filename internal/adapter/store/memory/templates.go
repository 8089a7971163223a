package memory

import (
	"context"
	"sync"

	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/port"
)

type templateKey struct {
	Kind   domain.Kind
	Locale string
}

// TemplateStore is an in-memory port.TemplateStore.
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[templateKey]port.Template
}

// NewTemplateStore builds an empty store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{templates: make(map[templateKey]port.Template)}
}

// Put registers a template for (kind, locale).
func (s *TemplateStore) Put(kind domain.Kind, locale string, tpl port.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[templateKey{Kind: kind, Locale: locale}] = tpl
}

func (s *TemplateStore) GetTemplate(ctx context.Context, kind domain.Kind, locale string) (port.Template, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[templateKey{Kind: kind, Locale: locale}]
	return tpl, ok, nil
}

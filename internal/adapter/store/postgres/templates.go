package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/port"
)

// TemplateStore is a port.TemplateStore over notification_templates, which
// the platform's admin UI maintains.
type TemplateStore struct {
	db *pgxpool.Pool
}

// NewTemplateStore builds the store.
func NewTemplateStore(db *pgxpool.Pool) *TemplateStore {
	return &TemplateStore{db: db}
}

func (s *TemplateStore) GetTemplate(ctx context.Context, kind domain.Kind, locale string) (port.Template, bool, error) {
	if s.db == nil {
		return port.Template{}, false, fmt.Errorf("db not configured")
	}
	row := s.db.QueryRow(ctx, `
		SELECT subject, body
		FROM notification_templates
		WHERE kind = $1 AND locale = $2
	`, kind, locale)

	var tpl port.Template
	if err := row.Scan(&tpl.Subject, &tpl.Body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return port.Template{}, false, nil
		}
		return port.Template{}, false, err
	}
	return tpl, true, nil
}

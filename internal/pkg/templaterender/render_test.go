package templaterender

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/servicedeskhq/notify/internal/domain"
)

func TestInterpolate(t *testing.T) {
	payload := domain.P(
		"service", domain.P("name", "Plumbing"),
		"user", domain.P("name", "Ana"),
		"count", 3,
	)

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "dotted path",
			src:  "New request for {{service.name}}",
			want: "New request for Plumbing",
		},
		{
			name: "multiple placeholders",
			src:  "{{user.name}}: {{count}} updates",
			want: "Ana: 3 updates",
		},
		{
			name: "whitespace inside braces",
			src:  "Hello {{ user.name }}",
			want: "Hello Ana",
		},
		{
			name: "unresolved placeholder stays literal",
			src:  "Status: {{request.status}}",
			want: "Status: {{request.status}}",
		},
		{
			name: "descending into scalar stays literal",
			src:  "{{count.more}}",
			want: "{{count.more}}",
		},
		{
			name: "empty source",
			src:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpolate(tt.src, payload))
		})
	}
}

func TestInterpolateTimeValue(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	payload := domain.P("request", domain.P("createdAt", at))

	got := Interpolate("Opened at {{request.createdAt}}", payload)
	assert.Equal(t, "Opened at 2026-03-14T09:30:00Z", got)
}

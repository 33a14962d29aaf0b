package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-event-platform/internal/model"
)

func TestDeletedByDisplay(t *testing.T) {
	t.Parallel()

	str := func(s string) *string { return &s }

	tests := []struct {
		name  string
		id    *string
		user  *string
		email *string
		want  *model.DeletedBy
	}{
		{"anonymous deletion", nil, nil, nil, nil},
		{"empty id", str(""), str("Ada"), nil, nil},
		{"resolved user", str("u1"), str("Ada Lovelace"), str("ada@example.com"),
			&model.DeletedBy{ID: "u1", Name: "Ada Lovelace", Email: "ada@example.com"}},
		{"user row gone", str("u1"), nil, nil, &model.DeletedBy{ID: "u1", Name: "u1", Email: "u1"}},
		{"blank name falls back", str("u1"), str(""), str("ada@example.com"),
			&model.DeletedBy{ID: "u1", Name: "u1", Email: "ada@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deletedByDisplay(tt.id, tt.user, tt.email))
		})
	}
}

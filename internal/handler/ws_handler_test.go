package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-event-platform/internal/model"
)

func TestSubscriptionRooms(t *testing.T) {
	t.Parallel()

	member := model.Actor{UserID: "u1", TenantID: "t1", Role: "viewer"}
	superadmin := model.Actor{UserID: "root", Role: model.RoleSuperAdmin}

	tests := []struct {
		name  string
		raw   string
		actor model.Actor
		want  []string
	}{
		{"defaults to tenant room", "", member, []string{"tenant:t1"}},
		{"keeps own rooms", "tenant:t1, tenant:t1:polls:42", member, []string{"tenant:t1", "tenant:t1:polls:42"}},
		{"drops foreign rooms", "tenant:t2,tenant:t2:polls:42,tenant:t1", member, []string{"tenant:t1"}},
		{"rejects prefix collisions", "tenant:t10", member, []string{}},
		{"dedups", "tenant:t1,tenant:t1", member, []string{"tenant:t1"}},
		{"superadmin joins anything", "tenant:t2,tenant:t3:quizzes:9", superadmin, []string{"tenant:t2", "tenant:t3:quizzes:9"}},
		{"superadmin has no default room", "", superadmin, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subscriptionRooms(tt.raw, tt.actor))
		})
	}
}

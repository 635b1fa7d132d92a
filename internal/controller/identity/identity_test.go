package identity

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/session_booking/internal/model"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		headers map[string]string
		want    model.Actor
		wantErr error
	}{
		{
			name:    "headers",
			target:  "/",
			headers: map[string]string{HeaderUserID: "7", HeaderUserRole: "trainer"},
			want:    model.Actor{ID: 7, Role: model.RoleTrainer},
		},
		{
			name:   "query fallback",
			target: "/ws?userId=9&role=trainee",
			want:   model.Actor{ID: 9, Role: model.RoleTrainee},
		},
		{
			name:    "headers win over query",
			target:  "/ws?userId=9&role=trainee",
			headers: map[string]string{HeaderUserID: "3", HeaderUserRole: "trainer"},
			want:    model.Actor{ID: 3, Role: model.RoleTrainer},
		},
		{
			name:    "missing",
			target:  "/",
			wantErr: ErrMissing,
		},
		{
			name:    "role without id",
			target:  "/",
			headers: map[string]string{HeaderUserRole: "trainer"},
			wantErr: ErrMissing,
		},
		{
			name:    "non numeric id",
			target:  "/",
			headers: map[string]string{HeaderUserID: "abc", HeaderUserRole: "trainer"},
			wantErr: ErrInvalidID,
		},
		{
			name:    "zero id",
			target:  "/",
			headers: map[string]string{HeaderUserID: "0", HeaderUserRole: "trainer"},
			wantErr: ErrInvalidID,
		},
		{
			name:    "unknown role",
			target:  "/",
			headers: map[string]string{HeaderUserID: "1", HeaderUserRole: "admin"},
			wantErr: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			got, err := FromRequest(r)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFrom(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), model.Actor{ID: 5, Role: model.RoleTrainee})
	actor, ok := ActorFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(5), actor.ID)
}

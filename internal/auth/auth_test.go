package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/mlms/internal/auth"
)

func newService(t *testing.T, ttl time.Duration) *auth.Service {
	t.Helper()

	users, err := auth.DemoUsers()
	require.NoError(t, err)

	return auth.NewService(users, "test-secret", ttl)
}

func TestService_Login(t *testing.T) {
	svc := newService(t, 30*time.Minute)

	type testCase struct {
		name     string
		username string
		password string
		wantRole auth.Role
		wantErr  error
	}

	tests := []testCase{
		{name: "admin", username: "admin", password: "admin123", wantRole: auth.RoleAdmin},
		{name: "officer", username: "officer", password: "officer123", wantRole: auth.RoleOfficer},
		{name: "wrong password", username: "admin", password: "officer123", wantErr: auth.ErrInvalidCredentials},
		{name: "unknown user", username: "root", password: "admin123", wantErr: auth.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, claims, err := svc.Login(tt.username, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, claims.Role)

			parsed, err := svc.Parse(token)
			require.NoError(t, err)
			assert.Equal(t, tt.username, parsed.Subject)
			assert.Equal(t, tt.wantRole, parsed.Role)
		})
	}
}

func TestService_Parse_Invalid(t *testing.T) {
	svc := newService(t, 30*time.Minute)

	t.Run("expired", func(t *testing.T) {
		expired := newService(t, -time.Minute)

		token, _, err := expired.Login("officer", "officer123")
		require.NoError(t, err)

		_, err = expired.Parse(token)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		users, err := auth.DemoUsers()
		require.NoError(t, err)

		token, _, err := auth.NewService(users, "another-secret", time.Minute).Login("admin", "admin123")
		require.NoError(t, err)

		_, err = svc.Parse(token)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "admin", "role": "Admin"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Parse(token)
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Parse("not-a-token")
		require.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	ctx := auth.WithClaims(context.Background(), &auth.Claims{Role: auth.RoleAdmin})
	c, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, auth.RoleAdmin, c.Role)
}

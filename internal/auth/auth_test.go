package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, clock clockwork.Clock) *Manager {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	m, err := NewManager(Config{
		Secret: "test-secret",
		Users:  []User{{Username: "admin", PasswordHash: hash, Role: "admin"}},
		Clock:  clock,
	})
	require.NoError(t, err)
	return m
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(Config{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestTokenRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC))
	m := newTestManager(t, clock)

	token, err := m.GenerateToken("admin", "admin")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC), claims.ExpiresAt.Time.UTC())
}

func TestTokenExpires(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC))
	m := newTestManager(t, clock)

	token, err := m.GenerateToken("admin", "admin")
	require.NoError(t, err)

	clock.Advance(DefaultTokenTTL + time.Minute)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsWrongSecretAndMethod(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC))
	m := newTestManager(t, clock)

	other, err := NewManager(Config{Secret: "other-secret", Clock: clock})
	require.NoError(t, err)
	forged, err := other.GenerateToken("admin", "admin")
	require.NoError(t, err)
	_, err = m.ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"username": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticate(t *testing.T) {
	m := newTestManager(t, clockwork.NewRealClock())

	role, err := m.Authenticate("admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "admin", role)

	_, err = m.Authenticate("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = m.Authenticate("nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

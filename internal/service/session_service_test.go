package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karimk94/edms-archive-gateway/internal/models"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
)

type fakeVerifier struct {
	user *models.SessionUser
	err  error
}

func (f *fakeVerifier) Session(context.Context) (*models.SessionUser, error) {
	return f.user, f.err
}

func signToken(t *testing.T, secret string, username string, level int) string {
	t.Helper()
	claims := models.SessionClaims{
		Username:      username,
		SecurityLevel: level,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestSessionServiceResolvesEditor(t *testing.T) {
	svc := NewSessionService(nil, "secret", 2, nil)
	token := signToken(t, "secret", "k.hassan", 3)

	sess, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "k.hassan", sess.Username)
	assert.Equal(t, 3, sess.SecurityLevel)
	assert.True(t, sess.CanEdit)
	assert.Equal(t, token, sess.Credential)
}

func TestSessionServiceViewerIsReadOnly(t *testing.T) {
	svc := NewSessionService(nil, "secret", 2, nil)
	token := signToken(t, "secret", "viewer", 1)

	sess, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, sess.CanEdit)
}

func TestSessionServiceRejectsBadSignature(t *testing.T) {
	svc := NewSessionService(nil, "secret", 2, nil)
	token := signToken(t, "other-secret", "x", 3)

	_, err := svc.Resolve(context.Background(), token)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestSessionServiceRejectsExpired(t *testing.T) {
	svc := NewSessionService(nil, "secret", 2, nil)
	claims := models.SessionClaims{
		Username: "x",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), token)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestSessionServiceRejectsEmptyToken(t *testing.T) {
	svc := NewSessionService(nil, "secret", 2, nil)
	_, err := svc.Resolve(context.Background(), "")
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestSessionServiceRemoteFallback(t *testing.T) {
	verifier := &fakeVerifier{user: &models.SessionUser{Username: "remote", SecurityLevel: 2}}
	svc := NewSessionService(verifier, "", 2, nil)

	sess, err := svc.Resolve(context.Background(), "opaque-token")
	require.NoError(t, err)
	assert.Equal(t, "remote", sess.Username)
	assert.True(t, sess.CanEdit)
	assert.Equal(t, "opaque-token", sess.Credential)
}

package service

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Karimk94/edms-archive-gateway/internal/models"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
)

// SessionVerifier confirms a session against the archive backend.
type SessionVerifier interface {
	Session(ctx context.Context) (*models.SessionUser, error)
}

// SessionService resolves the per-request session capability from the
// backend-issued token. The token is decoded locally for the fast path and
// can be confirmed upstream when the local secret is not configured.
type SessionService struct {
	verifier    SessionVerifier
	secret      []byte
	editorLevel int
	logger      *zap.Logger
}

// NewSessionService constructs a session service. An empty secret disables
// local decoding; every resolution then round-trips to the backend.
func NewSessionService(verifier SessionVerifier, secret string, editorLevel int, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if editorLevel <= 0 {
		editorLevel = 2
	}
	return &SessionService{
		verifier:    verifier,
		secret:      []byte(secret),
		editorLevel: editorLevel,
		logger:      logger,
	}
}

// Resolve turns a raw session token into the request's capability context.
// Users below the editor level get a read-only projection; this gates what
// the dashboard offers, while the backend stays the authority on writes.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.SessionContext, error) {
	if token == "" {
		return nil, appErrors.ErrUnauthorized
	}

	var user models.SessionUser
	if len(s.secret) > 0 {
		claims := &models.SessionClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !parsed.Valid {
			s.logger.Debug("session token rejected", zap.Error(err))
			return nil, appErrors.ErrUnauthorized
		}
		user = models.SessionUser{Username: claims.Username, SecurityLevel: claims.SecurityLevel}
	} else {
		remote, err := s.verifier.Session(ctx)
		if err != nil {
			return nil, err
		}
		user = *remote
	}

	return &models.SessionContext{
		Username:      user.Username,
		SecurityLevel: user.SecurityLevel,
		CanEdit:       user.SecurityLevel >= s.editorLevel,
		Credential:    token,
	}, nil
}

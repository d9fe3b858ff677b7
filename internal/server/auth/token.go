package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// SessionToken is what a verified token says: who it was issued to and
// which server-side session it belongs to. It carries no privileges.
type SessionToken struct {
	UserID    int64
	SessionID string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 token with only sub, jti, iat and exp.
func IssueToken(secret []byte, userID int64, sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        sessionID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	return token.SignedString(secret)
}

// ParseToken verifies signature and expiry. It returns common.ErrTokenExpired
// for an expired but otherwise valid token and common.ErrInvalidToken for
// everything else. Whether the session is still live is the caller's check.
func ParseToken(tokenString string, secret []byte) (*SessionToken, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}

	return &SessionToken{
		UserID:    userID,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

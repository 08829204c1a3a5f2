package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"timetrack/internal/domain"
)

const issuer = "timetrack"

// Claims carries a domain.Session inside a signed JWT.
type Claims struct {
	UserType  string `json:"user_type"`
	ProjectID string `json:"project_id,omitempty"`
	WorkerID  string `json:"worker_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer implements ports.TokenIssuer with HS256 tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (t *TokenIssuer) Issue(s domain.Session) (string, error) {
	if !s.Authenticated() {
		return "", fmt.Errorf("issue token: %w", domain.ErrInvalidCredentials)
	}
	now := t.now()
	subject := s.ProjectID
	if s.IsWorker() {
		subject = s.WorkerID
	}
	claims := &Claims{
		UserType:  string(s.UserType),
		ProjectID: s.ProjectID,
		WorkerID:  s.WorkerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse validates the token and returns the session it carries. Any
// failure is reported as domain.ErrInvalidCredentials.
func (t *TokenIssuer) Parse(token string) (domain.Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	s := domain.Session{
		UserType:  domain.UserType(claims.UserType),
		ProjectID: claims.ProjectID,
		WorkerID:  claims.WorkerID,
	}
	if !s.Authenticated() {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	return s, nil
}

package token

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrExpiredToken = errors.New("expired token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carried by an admin session token. Stateless: expiry is the only
// termination mechanism, there is no revocation list.
type Claims struct {
	Admin bool   `json:"admin"`
	IP    string `json:"ip"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 session tokens with a symmetric secret
// held only server-side.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// TTLSeconds is the advertised token lifetime for login responses.
func (s *Service) TTLSeconds() int {
	return int(s.ttl / time.Second)
}

// VerifyPassword compares candidate against the configured secret in
// constant time.
func (s *Service) VerifyPassword(candidate, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(secret)) == 1
}

// Issue signs a token binding the client identifier, expiring after the
// configured TTL.
func (s *Service) Issue(clientID string) (string, error) {
	now := s.now()
	claims := Claims{
		Admin: true,
		IP:    clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses the Authorization header value. It fails with
// ErrMissingToken when the header is absent or not "Bearer <token>",
// ErrExpiredToken when the signature is valid but expiry elapsed, and
// ErrInvalidToken for every other verification failure.
func (s *Service) Verify(authHeader string) (*Claims, error) {
	const prefix = "Bearer "
	if authHeader == "" || !strings.HasPrefix(authHeader, prefix) {
		return nil, ErrMissingToken
	}
	raw := authHeader[len(prefix):]

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

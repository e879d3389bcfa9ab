package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/atelierdevis/devis-gateway/internal/flag"
	"github.com/atelierdevis/devis-gateway/internal/logger"
	"github.com/atelierdevis/devis-gateway/internal/ratelimit"
	"github.com/atelierdevis/devis-gateway/internal/token"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limited")
)

// Gate orchestrates the admin surface: rate-limited password authentication,
// token issuance, and token-guarded flag toggling. There is exactly one
// authentication path; the toggle only ever accepts bearer tokens.
type Gate struct {
	limiter     *ratelimit.Limiter
	tokens      *token.Service
	flags       *flag.Service
	password    string
	maxAttempts int
}

func NewGate(limiter *ratelimit.Limiter, tokens *token.Service, flags *flag.Service, password string, maxAttempts int) *Gate {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Gate{
		limiter:     limiter,
		tokens:      tokens,
		flags:       flags,
		password:    password,
		maxAttempts: maxAttempts,
	}
}

// Authenticate checks the limiter before the password: a blocked client gets
// ErrRateLimited without any comparison, and being blocked does not touch
// the counter. A wrong password records a failure; a match resets it and
// issues a session token.
func (g *Gate) Authenticate(ctx context.Context, password, clientID string) (string, error) {
	attempts, err := g.limiter.Attempts(ctx, clientID)
	if err != nil {
		// limiter store unreachable: fail open rather than lock the admin out
		logger.Log.Warn("rate limiter unavailable", zap.String("client", clientID), zap.Error(err))
		attempts = 0
	}
	if attempts >= g.maxAttempts {
		return "", ErrRateLimited
	}

	if !g.tokens.VerifyPassword(password, g.password) {
		if err := g.limiter.RecordFailure(ctx, clientID); err != nil {
			logger.Log.Warn("record auth failure", zap.String("client", clientID), zap.Error(err))
		}
		return "", ErrInvalidCredentials
	}

	if err := g.limiter.Reset(ctx, clientID); err != nil {
		logger.Log.Warn("reset auth counter", zap.String("client", clientID), zap.Error(err))
	}
	return g.tokens.Issue(clientID)
}

// TokenTTLSeconds is the advertised lifetime for login responses.
func (g *Gate) TokenTTLSeconds() int {
	return g.tokens.TTLSeconds()
}

// Toggle verifies the bearer token and writes the desired flag value,
// returning it. Token errors propagate unchanged.
func (g *Gate) Toggle(ctx context.Context, authHeader string, desired bool) (bool, error) {
	if _, err := g.tokens.Verify(authHeader); err != nil {
		return false, err
	}
	if err := g.flags.SetOpen(ctx, desired); err != nil {
		return false, err
	}
	return desired, nil
}

// Status reads the flag; absent or malformed values read as closed.
func (g *Gate) Status(ctx context.Context) (bool, error) {
	return g.flags.Status(ctx)
}

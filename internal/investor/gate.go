package investor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/moraineventures/moraine-site/backend/internal/auth"
	"go.uber.org/zap"
)

// DefaultGroup scopes investor-page access checks unless the caller
// supplies another group.
const DefaultGroup = "investor-login"

var (
	// ErrNoCredential indicates the sign-in flow handed back neither an
	// authorization code nor an ID token.
	ErrNoCredential = errors.New("investor: sign-in returned no credential")
	// ErrSignInFailed indicates the credential could not be exchanged or
	// verified. The flow is single pass; callers surface the message and stop.
	ErrSignInFailed = errors.New("investor: sign-in could not be completed")

	errMissingResolver = errors.New("email resolver is required")
	errMissingChecker  = errors.New("permission checker is required")
)

// EmailResolver turns a federated sign-in credential into verified claims.
type EmailResolver interface {
	VerifyIDToken(ctx context.Context, rawToken string) (auth.GoogleClaims, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (auth.GoogleClaims, error)
}

// PermissionChecker answers whether an email may view gated content.
type PermissionChecker interface {
	Check(ctx context.Context, email, group string) (bool, error)
}

// GateConfig describes the dependencies of the investor gate.
type GateConfig struct {
	Resolver EmailResolver
	Checker  PermissionChecker
	Logger   *zap.Logger
}

// Gate resolves an end user's email from a federated sign-in callback and
// asks the permission store whether that email may view investor content.
type Gate struct {
	resolver EmailResolver
	checker  PermissionChecker
	logger   *zap.Logger
}

// NewGate constructs the investor gate.
func NewGate(cfg GateConfig) (*Gate, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("investor: %w", errMissingResolver)
	}
	if cfg.Checker == nil {
		return nil, fmt.Errorf("investor: %w", errMissingChecker)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{resolver: cfg.Resolver, checker: cfg.Checker, logger: logger}, nil
}

// ResolveRequest carries the federated callback payload: exactly one of
// IDToken or Code is expected. Group is optional.
type ResolveRequest struct {
	IDToken     string
	Code        string
	RedirectURI string
	Group       string
}

// Resolution is the final verdict cached client-side by the initiating page.
type Resolution struct {
	Email         string
	HasPermission bool
}

// Resolve walks the gate's single-pass flow: exchange the credential for a
// verified email, then check that email against the permission store. Any
// exchange failure ends the flow without retry and without persisting state.
func (g *Gate) Resolve(ctx context.Context, request ResolveRequest) (Resolution, error) {
	claims, err := g.resolveClaims(ctx, request)
	if err != nil {
		return Resolution{}, err
	}

	group := strings.TrimSpace(request.Group)
	if group == "" {
		group = DefaultGroup
	}

	allowed, err := g.checker.Check(ctx, claims.Email, group)
	if err != nil {
		g.logger.Error("investor permission check failed", zap.Error(err))
		return Resolution{}, err
	}

	return Resolution{Email: claims.Email, HasPermission: allowed}, nil
}

func (g *Gate) resolveClaims(ctx context.Context, request ResolveRequest) (auth.GoogleClaims, error) {
	switch {
	case strings.TrimSpace(request.IDToken) != "":
		claims, err := g.resolver.VerifyIDToken(ctx, strings.TrimSpace(request.IDToken))
		if err != nil {
			g.logger.Warn("investor id token rejected", zap.Error(err))
			return auth.GoogleClaims{}, fmt.Errorf("%w: %v", ErrSignInFailed, err)
		}
		return claims, nil
	case strings.TrimSpace(request.Code) != "":
		claims, err := g.resolver.ExchangeCode(ctx, strings.TrimSpace(request.Code), request.RedirectURI)
		if err != nil {
			g.logger.Warn("investor code exchange failed", zap.Error(err))
			return auth.GoogleClaims{}, fmt.Errorf("%w: %v", ErrSignInFailed, err)
		}
		return claims, nil
	default:
		return auth.GoogleClaims{}, ErrNoCredential
	}
}

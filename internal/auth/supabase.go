// Package auth verifies Supabase-issued JWTs and enforces per-tier usage
// quotas. Authentication is optional at the gateway: anonymous requests fall
// back to the free tier.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pdftablepro/pdftab/internal/common"
)

// expectedAudience is the audience Supabase stamps on end-user access tokens.
const expectedAudience = "authenticated"

// User is the authenticated identity carried through a request.
type User struct {
	ID    string
	Email string
	Role  string
}

// TierLimits is the daily and monthly page budget for a subscription tier.
type TierLimits struct {
	DailyPages   int
	MonthlyPages int
	Unlimited    bool
}

// tierLimits maps subscription tiers to their page budgets.
var tierLimits = map[string]TierLimits{
	"free":         {DailyPages: 5, MonthlyPages: 50},
	"starter":      {DailyPages: 50, MonthlyPages: 500},
	"professional": {DailyPages: 150, MonthlyPages: 1500},
	"business":     {DailyPages: 500, MonthlyPages: 5000},
	"enterprise":   {Unlimited: true},
}

// LimitsForTier returns the budget for a tier, defaulting unknown tiers to
// free.
func LimitsForTier(tier string) TierLimits {
	if limits, ok := tierLimits[strings.ToLower(tier)]; ok {
		return limits
	}
	return tierLimits["free"]
}

// Verifier validates Supabase access tokens signed with the project's shared
// secret.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a verifier from the Supabase JWT secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, common.NewAppError("AUTH_SECRET", "JWT secret is required", common.ErrInvalidInput)
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates a raw token, returning the user it identifies.
func (v *Verifier) Verify(tokenString string) (*User, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithAudience(expectedAudience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, common.NewAppError("AUTH_TOKEN", "Invalid or expired token",
			fmt.Errorf("%w: %w", common.ErrUnauthorized, err))
	}
	if !token.Valid {
		return nil, common.NewAppError("AUTH_TOKEN", "Invalid or expired token", common.ErrUnauthorized)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, common.NewAppError("AUTH_SUBJECT", "Token has no subject", common.ErrUnauthorized)
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return &User{ID: sub, Email: email, Role: role}, nil
}

// UserFromRequest extracts and verifies the bearer token if one is present.
// A missing Authorization header is not an error; it returns a nil user.
func (v *Verifier) UserFromRequest(r *http.Request) (*User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, common.NewAppError("AUTH_HEADER", "Malformed Authorization header", common.ErrUnauthorized)
	}
	return v.Verify(strings.TrimSpace(parts[1]))
}

// UsageReader reports a user's current page consumption.
type UsageReader interface {
	Usage(ctx context.Context, userID string) (tier string, usedToday, usedMonth int, err error)
}

// CheckQuota verifies the user has budget left for pages more pages. Anonymous
// users (nil) are held to the free tier with no persisted usage, so they pass
// the daily ceiling check only.
func CheckQuota(ctx context.Context, usage UsageReader, user *User, pages int) error {
	if user == nil {
		limits := LimitsForTier("free")
		if pages > limits.DailyPages {
			return quotaError("free", limits.DailyPages)
		}
		return nil
	}

	tier, usedToday, usedMonth, err := usage.Usage(ctx, user.ID)
	if err != nil {
		return common.WrapError(err, "read usage")
	}
	limits := LimitsForTier(tier)
	if limits.Unlimited {
		return nil
	}
	if usedToday+pages > limits.DailyPages {
		return quotaError(tier, limits.DailyPages)
	}
	if usedMonth+pages > limits.MonthlyPages {
		return common.NewAppError("QUOTA_MONTHLY",
			fmt.Sprintf("Monthly limit reached for the %s plan (%d pages). Upgrade to continue.", tier, limits.MonthlyPages),
			common.ErrRateLimited)
	}
	return nil
}

func quotaError(tier string, daily int) error {
	return common.NewAppError("QUOTA_DAILY",
		fmt.Sprintf("Daily limit reached for the %s plan (%d pages). Upgrade to continue.", tier, daily),
		common.ErrRateLimited)
}

// Package access implements the per-endpoint authorization gate. The gate is
// a pure decision function over a validated principal and a declared policy;
// it performs no I/O so it stays independently testable.
package access

import "server/internal/domain"

// Policy declares what an endpoint requires from a principal. The zero value
// requires nothing except a positive credit balance; read-only endpoints set
// SkipCredits.
type Policy struct {
	RequiredScope *domain.Scope
	RequiredTiers []domain.Tier
	SkipCredits   bool
}

// RequireScope is a convenience for building scoped policies.
func RequireScope(s domain.Scope) *domain.Scope { return &s }

// Authorize evaluates the policy against the principal in a fixed order:
// scope, then tier, then credits. The first failing check wins so error
// responses stay deterministic.
func Authorize(p domain.Principal, pol Policy) error {
	if pol.RequiredScope != nil && !p.Scope.Covers(*pol.RequiredScope) {
		return domain.ErrInsufficientScope
	}
	if len(pol.RequiredTiers) > 0 && !tierAllowed(p.Tier, pol.RequiredTiers) {
		return domain.ErrInsufficientTier
	}
	if !pol.SkipCredits && p.CreditsRemaining <= 0 {
		return domain.ErrCreditsExhausted
	}
	return nil
}

func tierAllowed(tier domain.Tier, allowed []domain.Tier) bool {
	for _, t := range allowed {
		if t == tier {
			return true
		}
	}
	return false
}

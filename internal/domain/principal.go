package domain

// Scope is the coarse-grained permission level attached to an API key.
type Scope string

const (
	ScopeRead Scope = "read"
	ScopeFull Scope = "full"
)

// Rank orders scopes so that a broader scope satisfies a narrower requirement.
func (s Scope) Rank() int {
	switch s {
	case ScopeRead:
		return 1
	case ScopeFull:
		return 2
	default:
		return 0
	}
}

// Covers reports whether the scope satisfies the required scope.
func (s Scope) Covers(required Scope) bool {
	return s.Rank() >= required.Rank()
}

// Tier is the subscription level attached to an API key.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierTeam       Tier = "team"
	TierEnterprise Tier = "enterprise"
)

// Principal is the validated authorization context derived from an API credential.
// It is built per request and never persisted; scope and tier do not change for
// the lifetime of one request evaluation.
type Principal struct {
	KeyID            string
	Label            string
	Scope            Scope
	Tier             Tier
	CreditsRemaining int
}

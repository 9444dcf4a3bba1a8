package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Gamification constants. Point values apply once per accepted action until the
// per-season counter for that kind reaches YearlyLimit.
const (
	PointsSubmission = 10
	PointsApproval   = 50
	YearlyLimit      = 10
	MedalValue       = 100
)

// ActionKind identifies a user action the gamification engine reacts to.
type ActionKind string

const (
	ActionSubmission ActionKind = "submission"
	ActionApproval   ActionKind = "approval"
	// ActionRejection is accepted but grants and subtracts nothing.
	ActionRejection ActionKind = "rejection"
)

// ParseActionKind validates a raw action kind.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(s); k {
	case ActionSubmission, ActionApproval, ActionRejection:
		return k, nil
	default:
		return "", fmt.Errorf("unknown action kind: %q", s)
	}
}

// Medal is a fixed-value historical award. Persisted as {name, value, date}.
type Medal struct {
	Name      string    `json:"name"`
	Value     int       `json:"value"`
	AwardedAt time.Time `json:"date"`
}

// SameAs reports whether two medals are the same award. Names repeat across
// seasons that share a calendar year, so identity is (name, awardedAt).
func (m Medal) SameAs(other Medal) bool {
	return m.Name == other.Name && m.AwardedAt.Equal(other.AwardedAt)
}

// MedalName builds the display name for the medal of the given kind and year.
func MedalName(kind ActionKind, year int) string {
	switch kind {
	case ActionSubmission:
		return fmt.Sprintf("🏅 Constancia %d", year)
	case ActionApproval:
		return fmt.Sprintf("🌟 Calidad %d", year)
	default:
		return fmt.Sprintf("%s %d", kind, year)
	}
}

// Account is the gamification state attached to a user.
type Account struct {
	ID              uuid.UUID `json:"id"`
	TotalScore      int       `json:"total_score"`
	SubmissionCount int       `json:"submission_count"`
	ApprovalCount   int       `json:"approval_count"`
	Medals          []Medal   `json:"medals"`
	Version         int64     `json:"-"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewAccount returns the zero account created at registration.
func NewAccount(id uuid.UUID) *Account {
	return &Account{ID: id, Medals: []Medal{}}
}

// RestoreAccount rebuilds an account loaded from storage, rejecting values that
// no accrual sequence could have produced.
func RestoreAccount(id uuid.UUID, score, submissions, approvals int, medals []Medal, version int64) (*Account, error) {
	if score < 0 {
		return nil, fmt.Errorf("account %s: negative score %d", id, score)
	}
	if submissions < 0 || submissions > YearlyLimit {
		return nil, fmt.Errorf("account %s: submission count %d out of range", id, submissions)
	}
	if approvals < 0 || approvals > YearlyLimit {
		return nil, fmt.Errorf("account %s: approval count %d out of range", id, approvals)
	}
	if medals == nil {
		medals = []Medal{}
	}
	return &Account{
		ID:              id,
		TotalScore:      score,
		SubmissionCount: submissions,
		ApprovalCount:   approvals,
		Medals:          medals,
		Version:         version,
	}, nil
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (a *Account) Clone() *Account {
	c := *a
	c.Medals = make([]Medal, len(a.Medals))
	copy(c.Medals, a.Medals)
	return &c
}

// MedalBaseline is the sum of all medal values, the score a season starts from.
func (a *Account) MedalBaseline() int {
	total := 0
	for _, m := range a.Medals {
		total += m.Value
	}
	return total
}

// Counter returns the per-season counter for kind.
func (a *Account) Counter(kind ActionKind) int {
	switch kind {
	case ActionSubmission:
		return a.SubmissionCount
	case ActionApproval:
		return a.ApprovalCount
	default:
		return 0
	}
}

// Accrue applies one action of the given kind at instant now. It returns the
// medal awarded, if any, and whether the account changed. Rejections and
// actions past the yearly limit leave the account untouched.
func (a *Account) Accrue(kind ActionKind, now time.Time) (medal *Medal, changed bool) {
	var points int
	var counter *int
	switch kind {
	case ActionSubmission:
		points, counter = PointsSubmission, &a.SubmissionCount
	case ActionApproval:
		points, counter = PointsApproval, &a.ApprovalCount
	default:
		return nil, false
	}

	if *counter >= YearlyLimit {
		return nil, false
	}

	a.TotalScore += points
	*counter++

	if *counter == YearlyLimit {
		m := Medal{Name: MedalName(kind, now.Year()), Value: MedalValue, AwardedAt: now}
		a.Medals = append(a.Medals, m)
		medal = &m
	}
	return medal, true
}

// NeedsReset reports whether a season reset would change the account.
func (a *Account) NeedsReset() bool {
	return a.SubmissionCount != 0 || a.ApprovalCount != 0 || a.TotalScore != a.MedalBaseline()
}

// ResetSeason recomputes the score from medals and clears the counters.
func (a *Account) ResetSeason() {
	a.TotalScore = a.MedalBaseline()
	a.SubmissionCount = 0
	a.ApprovalCount = 0
}

package domain

import "time"

// Role is a user's authorisation level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Viewer is the per-request session context. It is built from the bearer
// token on every request and passed explicitly to actions.
type Viewer struct {
	UserID string
	Email  string
}

// Guest reports whether the request carries no signed-in user.
func (v Viewer) Guest() bool { return v.UserID == "" }

// Profile is the application-side user record.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	BirthDate   string    `json:"birthDate,omitempty"`
	BirthTime   string    `json:"birthTime,omitempty"`
	BirthPlace  string    `json:"birthPlace,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasBirthData reports whether the profile carries saju context.
func (p Profile) HasBirthData() bool { return p.BirthDate != "" }

// NewsletterStatus is the state of a subscription.
type NewsletterStatus string

const (
	NewsletterSubscribed   NewsletterStatus = "subscribed"
	NewsletterUnsubscribed NewsletterStatus = "unsubscribed"
)

// Subscription is a newsletter subscription keyed by email.
type Subscription struct {
	Email     string           `json:"email"`
	Status    NewsletterStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

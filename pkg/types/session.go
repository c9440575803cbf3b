package types

type Role string

const (
	RoleIssuer   Role = "issuer"
	RoleAdmin    Role = "admin"
	RoleInvestor Role = "investor"
)

type User struct {
	ID       string
	Email    string
	Role     Role
	GroupIDs []string
}

// Group carries the display/policy settings the wizard branches on. A
// one-pager group accepts only an uploaded deck file; the rich-text body
// does not count as a presentation for it.
type Group struct {
	ID                  string `db:"id"`
	Name                string `db:"name"`
	RequiresSpecialNews bool   `db:"requires_special_news"`
	OnePager            bool   `db:"one_pager"`
	DefaultExpiryDays   int    `db:"default_expiry_days"`
}

// SessionContext is handed to the wizard controller at construction and
// refreshed through explicit calls, never read from ambient state.
type SessionContext struct {
	User       *User
	Group      *Group
	AuthReady  bool
	GroupReady bool
}

func (s *SessionContext) Ready() bool {
	return s != nil && s.AuthReady && s.GroupReady
}

func (s *SessionContext) IsAdmin() bool {
	return s != nil && s.User != nil && s.User.Role == RoleAdmin
}

func (s *SessionContext) IsIssuer() bool {
	return s != nil && s.User != nil && s.User.Role == RoleIssuer
}

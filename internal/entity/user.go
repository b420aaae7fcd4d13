package entity

// UserAccount is the user record persisted alongside the bearer token.
// Mirrors the backend's authentication response.
type UserAccount struct {
	ID          int64        `json:"id"`
	Email       string       `json:"email"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Role        Role         `json:"role"`
	Permissions []Permission `json:"permissions"`
}

// Session is the client-held record of the current authenticated actor.
// A session is either absent or carries a non-empty token plus a role;
// the direct permission set may be empty.
type Session struct {
	Token string
	User  UserAccount
}

func (s Session) Present() bool {
	return s.Token != ""
}

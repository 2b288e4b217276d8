package security

// User is an application user.
type User struct {
	ID    string
	Name  string
	Email string
}

// SecureUser is a User together with the strategy that authenticated it.
type SecureUser struct {
	User
	Strategy Strategy

	authorized bool
}

// NewSecureUser returns a SecureUser. authorized is the outcome of
// authentication and is fixed for the lifetime of the value.
func NewSecureUser(u User, s Strategy, authorized bool) SecureUser {
	return SecureUser{User: u, Strategy: s, authorized: authorized}
}

// Authorized reports whether the user may run mutating operations.
func (u SecureUser) Authorized() bool {
	return u.authorized
}

package security

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

// Session value keys.
const (
	keyAuthorized = "authorized"
	keyUserID     = "user_id"
	keyUserName   = "user_name"
	keyUserEmail  = "user_email"
	keyStrategy   = "strategy"
)

// DefaultSessionName is the session cookie name used when none is given.
const DefaultSessionName = "starkey_session"

// SessionAuthorizer reads and records the authenticated user in a gorilla
// session. Its Authorized result is the flag connectors are built with.
type SessionAuthorizer struct {
	store sessions.Store
	name  string
}

// NewSessionAuthorizer returns an authorizer over store using the named
// session.
func NewSessionAuthorizer(store sessions.Store, name string) *SessionAuthorizer {
	if name == "" {
		name = DefaultSessionName
	}
	return &SessionAuthorizer{store: store, name: name}
}

// Authorized reports whether the request's session belongs to an
// authorized user. Missing or unreadable sessions are unauthorized.
func (a *SessionAuthorizer) Authorized(r *http.Request) bool {
	session, err := a.store.Get(r, a.name)
	if err != nil {
		return false
	}
	ok, _ := session.Values[keyAuthorized].(bool)
	return ok
}

// User returns the user recorded in the request's session.
func (a *SessionAuthorizer) User(r *http.Request) (SecureUser, error) {
	session, err := a.store.Get(r, a.name)
	if err != nil {
		return SecureUser{}, fmt.Errorf("failed to read session: %w", err)
	}

	id, _ := session.Values[keyUserID].(string)
	if id == "" {
		return SecureUser{}, fmt.Errorf("no user in session")
	}
	name, _ := session.Values[keyUserName].(string)
	email, _ := session.Values[keyUserEmail].(string)
	strategyName, _ := session.Values[keyStrategy].(string)
	authorized, _ := session.Values[keyAuthorized].(bool)

	strategy, err := Select("", strategyName)
	if err != nil {
		return SecureUser{}, err
	}
	return NewSecureUser(User{ID: id, Name: name, Email: email}, strategy, authorized), nil
}

// Login records u in the session and writes it to the response.
func (a *SessionAuthorizer) Login(w http.ResponseWriter, r *http.Request, u SecureUser) error {
	session, err := a.store.Get(r, a.name)
	if err != nil && session == nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	session.Values[keyUserID] = u.ID
	session.Values[keyUserName] = u.Name
	session.Values[keyUserEmail] = u.Email
	session.Values[keyStrategy] = string(u.Strategy)
	session.Values[keyAuthorized] = u.Authorized()

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Logout clears the session.
func (a *SessionAuthorizer) Logout(w http.ResponseWriter, r *http.Request) error {
	session, err := a.store.Get(r, a.name)
	if err != nil && session == nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	for k := range session.Values {
		delete(session.Values, k)
	}
	if session.Options == nil {
		session.Options = &sessions.Options{Path: "/"}
	}
	session.Options.MaxAge = -1

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

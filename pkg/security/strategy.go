// Package security selects the user authentication strategy and derives
// the authorized flag connectors are constructed with. Authentication
// itself happens elsewhere; this package only names the strategy, supplies
// its OAuth endpoint, and reads the outcome from the session.
package security

import (
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Strategy names a user authentication strategy.
type Strategy string

// Known strategies.
const (
	Local    Strategy = "local"
	Facebook Strategy = "facebook"
	Google   Strategy = "google"
)

// DefaultStrategy is used when neither an explicit nor a configured
// strategy is given.
const DefaultStrategy = Local

// Strategies returns the known strategies.
func Strategies() []Strategy {
	return []Strategy{Local, Facebook, Google}
}

// UnknownStrategyError is returned for a strategy name that is not known.
type UnknownStrategyError struct {
	Name string
}

func (e *UnknownStrategyError) Error() string {
	names := make([]string, 0, 3)
	for _, s := range Strategies() {
		names = append(names, string(s))
	}
	return fmt.Sprintf("unknown security strategy %q (known strategies: %s)", e.Name, strings.Join(names, ", "))
}

// Parse returns the strategy named name, ignoring case and surrounding
// space.
func Parse(name string) (Strategy, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, s := range Strategies() {
		if string(s) == want {
			return s, nil
		}
	}
	return "", &UnknownStrategyError{Name: name}
}

// Select picks the explicit strategy when given, else the configured one
// (security.user.strategy), else DefaultStrategy.
func Select(explicit, configured string) (Strategy, error) {
	switch {
	case strings.TrimSpace(explicit) != "":
		return Parse(explicit)
	case strings.TrimSpace(configured) != "":
		return Parse(configured)
	default:
		return DefaultStrategy, nil
	}
}

// IsOAuth reports whether the strategy authenticates through an OAuth
// provider.
func (s Strategy) IsOAuth() bool {
	_, ok := s.Endpoint()
	return ok
}

// Endpoint returns the provider's OAuth endpoint. ok is false for
// strategies that do not use OAuth.
func (s Strategy) Endpoint() (endpoint oauth2.Endpoint, ok bool) {
	switch s {
	case Facebook:
		return endpoints.Facebook, true
	case Google:
		return endpoints.Google, true
	default:
		return oauth2.Endpoint{}, false
	}
}

// OAuthConfig returns the client configuration for an OAuth strategy.
func (s Strategy) OAuthConfig(clientID, clientSecret, redirectURL string, scopes ...string) (*oauth2.Config, error) {
	endpoint, ok := s.Endpoint()
	if !ok {
		return nil, fmt.Errorf("security strategy %q does not use OAuth", s)
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}, nil
}

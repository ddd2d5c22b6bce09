// Package session holds the signed-in identity of one browser: tokens
// and profile, persisted across page loads.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/s/lmsPortal/internal/models"
)

var ErrNoSession = errors.New("no active session")

// Store is the session of a single browser context. It is rebuilt from
// Storage on every navigation, so it never outlives a request.
type Store struct {
	storage Storage
	current *models.Session
	user    models.User
}

func New(storage Storage) *Store {
	return &Store{storage: storage}
}

// Hydrate loads the persisted session. A profile that does not parse is
// purged and the store stays anonymous; only storage failures are returned.
func (s *Store) Hydrate(ctx context.Context) error {
	s.current = nil
	s.user = models.User{}

	values, err := s.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	access := values[KeyAccessToken]
	raw := values[KeyUserData]
	if access == "" || raw == "" {
		return nil
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		log.Printf("Discarding corrupt stored profile: %v", err)
		if err := s.storage.Clear(ctx); err != nil {
			return fmt.Errorf("purge corrupt session: %w", err)
		}
		return nil
	}

	s.set(user, models.Tokens{Access: access, Refresh: values[KeyRefreshToken]})
	return nil
}

// Login persists tokens and profile and makes the session active.
func (s *Store) Login(ctx context.Context, user models.User, tokens models.Tokens) error {
	if tokens.Access == "" {
		return errors.New("login: empty access token")
	}

	profile, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("login: encode profile: %w", err)
	}

	err = s.storage.Save(ctx, map[string]string{
		KeyAccessToken:  tokens.Access,
		KeyRefreshToken: tokens.Refresh,
		KeyUserData:     string(profile),
	})
	if err != nil {
		return fmt.Errorf("login: persist session: %w", err)
	}

	s.set(user, tokens)
	return nil
}

// Logout clears every persisted field. The in-memory state is dropped even
// when storage fails so the current request is anonymous either way.
func (s *Store) Logout(ctx context.Context) error {
	s.current = nil
	s.user = models.User{}

	if err := s.storage.Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *Store) IsAuthenticated() bool {
	return s.current != nil
}

// Current returns a copy of the active session.
func (s *Store) Current() (models.Session, bool) {
	if s.current == nil {
		return models.Session{}, false
	}
	return *s.current, true
}

// Session is the active session for the route guard, nil when anonymous.
func (s *Store) Session() *models.Session {
	if s.current == nil {
		return nil
	}
	sess := *s.current
	return &sess
}

// Require is Current for callers that need an error.
func (s *Store) Require() (models.Session, error) {
	if s.current == nil {
		return models.Session{}, ErrNoSession
	}
	return *s.current, nil
}

func (s *Store) User() (models.User, bool) {
	return s.user, s.current != nil
}

// Token is the bearer credential, nil when anonymous. Expiry comes from
// the JWT exp claim; opaque tokens never expire client side.
func (s *Store) Token() *oauth2.Token {
	if s.current == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.current.AccessToken,
		RefreshToken: s.current.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       expiryOf(s.current.AccessToken),
	}
}

func (s *Store) set(user models.User, tokens models.Tokens) {
	s.user = user
	s.current = &models.Session{
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		AccessToken:  tokens.Access,
		RefreshToken: tokens.Refresh,
	}
}

// The backend signs the token; the portal only reads exp.
func expiryOf(access string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

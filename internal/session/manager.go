// Package session owns the authentication lifecycle: login, startup
// bootstrap, profile updates, logout, and forced invalidation on 401.
// The Manager is the only component that mutates the Session value.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"classfeed/internal/credstore"
	"classfeed/internal/gateway"
	"classfeed/pkg/domain"
)

// State is the manager's position in the auth lifecycle.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
)

var (
	// ErrLoginInProgress rejects a login while another one is in flight.
	ErrLoginInProgress = errors.New("login already in progress")
	// ErrNotAuthenticated guards operations that need a live session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Service is the slice of the gateway the manager needs.
type Service interface {
	SignIn(ctx context.Context, email, password string) (domain.Session, error)
	Profile(ctx context.Context) (domain.User, error)
	UpdateProfile(ctx context.Context, patch gateway.ProfilePatch) (domain.User, error)
}

// Manager drives Unauthenticated -> Authenticating -> Authenticated and back.
// It implements gateway.TokenSource and is registered as the gateway's
// unauthorized hook, so a 401 anywhere tears the session down.
type Manager struct {
	store credstore.Store
	api   Service

	mu            sync.Mutex
	state         State
	session       domain.Session
	loginInFlight bool
}

// New builds a manager over the given credential store and service client.
// Call Attach to wire it into the gateway before issuing requests.
func New(store credstore.Store, api Service) *Manager {
	return &Manager{
		store: store,
		api:   api,
		state: StateUnauthenticated,
	}
}

// Attach registers the manager as the client's token source and 401 hook.
func (m *Manager) Attach(client *gateway.Client) {
	client.SetTokenSource(m)
	client.SetUnauthorizedHook(m.Invalidate)
}

// Token implements gateway.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Token
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns the authenticated profile, if any.
func (m *Manager) CurrentUser() (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return domain.User{}, false
	}
	return m.session.User, true
}

// Bootstrap restores a persisted session at startup. A stored token is
// validated with a profile fetch before the manager trusts it. An auth-class
// rejection clears the stored pair; a transient network failure keeps it so
// the next start can retry, and is returned to the caller.
func (m *Manager) Bootstrap(ctx context.Context) error {
	stored, ok, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("load stored session: %w", err)
	}
	if !ok {
		return nil
	}

	if tokenExpired(stored.Token) {
		slog.Info("stored token already expired, discarding")
		if err := m.store.Clear(); err != nil {
			return err
		}
		return nil
	}

	// Hold the candidate session so the gateway attaches its token to the
	// validation call; the state stays pre-authenticated until it passes.
	m.mu.Lock()
	m.session = stored
	m.state = StateAuthenticating
	m.mu.Unlock()

	user, err := m.api.Profile(ctx)
	if err != nil {
		m.mu.Lock()
		m.session = domain.Session{}
		m.state = StateUnauthenticated
		m.mu.Unlock()
		if gateway.IsNetwork(err) {
			// Credentials stay on disk: fail open on retention, fail
			// closed on authorization.
			return fmt.Errorf("validate stored session: %w", err)
		}
		if clearErr := m.store.Clear(); clearErr != nil {
			return clearErr
		}
		slog.Info("stored session rejected by service", "err", err)
		return nil
	}

	refreshed := domain.Session{Token: stored.Token, User: user}
	if err := m.store.Save(refreshed); err != nil {
		slog.Warn("could not re-persist refreshed profile", "err", err)
	}
	m.mu.Lock()
	m.session = refreshed
	m.state = StateAuthenticated
	m.mu.Unlock()
	return nil
}

// Login exchanges credentials for a session. Exactly one login may be in
// flight; concurrent calls fail with ErrLoginInProgress. A failed login
// leaves both the stored and in-memory session exactly as they were.
func (m *Manager) Login(ctx context.Context, email, password string) (domain.User, error) {
	m.mu.Lock()
	if m.loginInFlight {
		m.mu.Unlock()
		return domain.User{}, ErrLoginInProgress
	}
	m.loginInFlight = true
	prev := m.state
	m.state = StateAuthenticating
	m.mu.Unlock()

	sess, err := m.api.SignIn(ctx, email, password)
	if err != nil {
		m.mu.Lock()
		m.state = prev
		m.loginInFlight = false
		m.mu.Unlock()
		return domain.User{}, classifyLoginError(err)
	}

	if err := m.store.Save(sess); err != nil {
		// Fail closed: a session we could not persist is not adopted.
		m.mu.Lock()
		m.state = prev
		m.loginInFlight = false
		m.mu.Unlock()
		return domain.User{}, fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.session = sess
	m.state = StateAuthenticated
	m.loginInFlight = false
	m.mu.Unlock()
	return sess.User, nil
}

// Logout clears the stored and in-memory session. Safe to call repeatedly.
func (m *Manager) Logout() error {
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.mu.Lock()
	m.session = domain.Session{}
	m.state = StateUnauthenticated
	m.mu.Unlock()
	return nil
}

// Invalidate is the gateway's unauthorized hook: the service rejected our
// token, so the session is torn down exactly like a logout.
func (m *Manager) Invalidate() {
	slog.Warn("session invalidated by service, logging out")
	if err := m.Logout(); err != nil {
		slog.Error("teardown after 401 failed", "err", err)
	}
}

// UpdateProfile sends a partial update and, on success, replaces the profile
// wholesale and re-persists the pair. On failure nothing changes.
func (m *Manager) UpdateProfile(ctx context.Context, patch gateway.ProfilePatch) (domain.User, error) {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return domain.User{}, ErrNotAuthenticated
	}
	token := m.session.Token
	m.mu.Unlock()

	user, err := m.api.UpdateProfile(ctx, patch)
	if err != nil {
		return domain.User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// The session may have been torn down while the request was in flight;
	// do not resurrect it by persisting a stale pair.
	if m.state != StateAuthenticated {
		return domain.User{}, ErrNotAuthenticated
	}
	updated := domain.Session{Token: token, User: user}
	if err := m.store.Save(updated); err != nil {
		return domain.User{}, fmt.Errorf("persist updated profile: %w", err)
	}
	m.session = updated
	return user, nil
}

// classifyLoginError maps gateway failures onto the human-readable reasons
// the login flow reports.
func classifyLoginError(err error) error {
	switch {
	case gateway.IsAuth(err):
		return fmt.Errorf("invalid credentials: %w", err)
	case gateway.IsForbidden(err):
		return fmt.Errorf("access denied: %w", err)
	case gateway.IsNetwork(err):
		return fmt.Errorf("network failure: %w", err)
	default:
		return err
	}
}

// tokenExpired reports whether a stored JWT's exp claim has already passed.
// The signature is not verified; the service remains the authority and a
// non-JWT token simply skips this shortcut.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

// Package session tracks who the household member is. The app is usable
// before sign-in: starting the manager with no credential mints an anonymous
// identity so every feature can begin syncing immediately.
package session

import (
	"context"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/hearthhq/hearth/internal/errors"
	"github.com/hearthhq/hearth/pkg/logger"
)

// State is the session lifecycle state.
type State string

const (
	StateUnknown        State = "unknown"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateAnonymous      State = "anonymous"
)

// Identity is the resolved household member.
type Identity struct {
	UID       string
	Email     string
	Anonymous bool
}

// Zero reports whether the identity is unset.
func (i Identity) Zero() bool { return i.UID == "" }

// Credentials is what the auth provider hands back on success.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Authenticator exchanges email/password for credentials.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (*Credentials, error)
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
}

type identityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Manager owns the session state machine:
// Unknown -> Authenticating -> Authenticated | Anonymous.
// Change callbacks fire on every identity transition so feeds can rewire.
type Manager struct {
	auth Authenticator
	log  *logger.Logger

	mu        sync.Mutex
	state     State
	identity  Identity
	creds     *Credentials
	listeners []func(Identity)
}

// NewManager creates a stopped manager in the Unknown state.
func NewManager(auth Authenticator, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDefault("session")
	}
	return &Manager{auth: auth, log: log, state: StateUnknown}
}

// Start resolves the initial identity. With no stored credential the manager
// settles on a fresh anonymous identity; readiness is only signaled after the
// transition so no caller ever observes an identity-less Authenticated state.
func (m *Manager) Start(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	m.mu.Lock()
	m.state = StateAuthenticating
	m.mu.Unlock()

	identity := Identity{UID: uuid.NewString(), Anonymous: true}
	m.transition(StateAnonymous, identity, nil)
	m.log.WithField("uid", identity.UID).Info("anonymous session started")
	return identity, nil
}

// SignUp registers a new account and signs it in.
func (m *Manager) SignUp(ctx context.Context, email, password string) (Identity, error) {
	return m.exchange(ctx, email, password, m.auth.SignUp)
}

// SignIn authenticates an existing account.
func (m *Manager) SignIn(ctx context.Context, email, password string) (Identity, error) {
	return m.exchange(ctx, email, password, m.auth.SignIn)
}

func (m *Manager) exchange(ctx context.Context, email, password string,
	call func(context.Context, string, string) (*Credentials, error)) (Identity, error) {

	if m.auth == nil {
		return Identity{}, apperrors.Configuration("no authenticator configured")
	}
	if email == "" || password == "" {
		return Identity{}, apperrors.Validation("email and password are required")
	}

	m.mu.Lock()
	prevState, prevIdentity := m.state, m.identity
	m.state = StateAuthenticating
	m.mu.Unlock()

	creds, err := call(ctx, email, password)
	if err != nil {
		// Failed attempts leave the previous session intact.
		m.mu.Lock()
		m.state, m.identity = prevState, prevIdentity
		m.mu.Unlock()
		return Identity{}, err
	}

	identity, err := identityFromToken(creds.AccessToken)
	if err != nil {
		m.mu.Lock()
		m.state, m.identity = prevState, prevIdentity
		m.mu.Unlock()
		return Identity{}, err
	}

	m.transition(StateAuthenticated, identity, creds)
	m.log.WithField("uid", identity.UID).Info("signed in")
	return identity, nil
}

// SignOut drops the session back to Unknown and notifies listeners with the
// zero identity so every feed unsubscribes and clears.
func (m *Manager) SignOut() {
	m.transition(StateUnknown, Identity{}, nil)
	m.log.Info("signed out")
}

// Current returns the active identity, zero while Unknown/Authenticating.
func (m *Manager) Current() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AccessToken returns the bearer token for the signed-in user, empty for
// anonymous sessions.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creds == nil {
		return ""
	}
	return m.creds.AccessToken
}

// OnChange registers fn to run on every identity transition. Registration
// before Start guarantees fn sees the initial identity too.
func (m *Manager) OnChange(fn func(Identity)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) transition(state State, identity Identity, creds *Credentials) {
	m.mu.Lock()
	m.state = state
	m.identity = identity
	m.creds = creds
	listeners := make([]func(Identity), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(identity)
	}
}

// identityFromToken extracts the subject and email claims. Signature
// verification is the provider's job; the token only names who signed in.
func identityFromToken(accessToken string) (Identity, error) {
	if accessToken == "" {
		return Identity{}, apperrors.Unauthorized("auth provider returned no access token")
	}

	var claims identityClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return Identity{}, apperrors.Unauthorized("malformed access token: %v", err)
	}
	if claims.Subject == "" {
		return Identity{}, apperrors.Unauthorized("access token has no subject")
	}
	return Identity{UID: claims.Subject, Email: claims.Email}, nil
}

package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/hearthhq/hearth/internal/errors"
)

func signToken(t *testing.T, uid, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, identityClaims{
		Email:            email,
		RegisteredClaims: jwt.RegisteredClaims{Subject: uid},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

type stubAuth struct {
	creds *Credentials
	err   error
	calls int
}

func (s *stubAuth) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	s.calls++
	return s.creds, s.err
}

func (s *stubAuth) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	s.calls++
	return s.creds, s.err
}

func TestManager_StartIsAnonymous(t *testing.T) {
	m := NewManager(&stubAuth{}, nil)

	var seen []Identity
	m.OnChange(func(id Identity) { seen = append(seen, id) })

	identity, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !identity.Anonymous || identity.UID == "" {
		t.Fatalf("expected fresh anonymous identity, got %+v", identity)
	}
	if m.State() != StateAnonymous {
		t.Fatalf("state = %v", m.State())
	}
	if len(seen) != 1 || seen[0] != identity {
		t.Fatalf("listener should see the initial identity, got %v", seen)
	}
}

func TestManager_SignInTransitionsToAuthenticated(t *testing.T) {
	token := signToken(t, "user-1", "fam@example.com")
	m := NewManager(&stubAuth{creds: &Credentials{AccessToken: token}}, nil)
	if _, err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	identity, err := m.SignIn(context.Background(), "fam@example.com", "hunter2")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if identity.UID != "user-1" || identity.Email != "fam@example.com" || identity.Anonymous {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %v", m.State())
	}
	if m.AccessToken() != token {
		t.Fatal("access token not retained")
	}
}

func TestManager_FailedSignInKeepsPreviousSession(t *testing.T) {
	auth := &stubAuth{err: apperrors.Unauthorized("bad credentials")}
	m := NewManager(auth, nil)
	anon, _ := m.Start(context.Background())

	changes := 0
	m.OnChange(func(Identity) { changes++ })

	_, err := m.SignIn(context.Background(), "fam@example.com", "wrong")
	if apperrors.KindOf(err) != apperrors.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if m.State() != StateAnonymous || m.Current() != anon {
		t.Fatalf("failed sign-in should keep anonymous session, state=%v current=%+v", m.State(), m.Current())
	}
	if changes != 0 {
		t.Fatalf("failed sign-in fired %d change callbacks", changes)
	}
}

func TestManager_SignInRejectsEmptyInput(t *testing.T) {
	auth := &stubAuth{}
	m := NewManager(auth, nil)

	if _, err := m.SignIn(context.Background(), "", "pw"); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if auth.calls != 0 {
		t.Fatal("validation failure should not reach the provider")
	}
}

func TestManager_SignOutNotifiesWithZeroIdentity(t *testing.T) {
	m := NewManager(&stubAuth{creds: &Credentials{AccessToken: signToken(t, "user-1", "")}}, nil)
	if _, err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.SignIn(context.Background(), "fam@example.com", "hunter2"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	var last Identity
	fired := false
	m.OnChange(func(id Identity) { last, fired = id, true })

	m.SignOut()
	if m.State() != StateUnknown {
		t.Fatalf("state = %v", m.State())
	}
	if !fired || !last.Zero() {
		t.Fatalf("listeners should see the zero identity, fired=%v last=%+v", fired, last)
	}
	if m.AccessToken() != "" {
		t.Fatal("token should be dropped on sign-out")
	}
}

func TestManager_TokenWithoutSubjectIsRejected(t *testing.T) {
	token := signToken(t, "", "fam@example.com")
	m := NewManager(&stubAuth{creds: &Credentials{AccessToken: token}}, nil)

	_, err := m.SignIn(context.Background(), "fam@example.com", "hunter2")
	if apperrors.KindOf(err) != apperrors.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestHTTPAuthenticator_SignIn(t *testing.T) {
	token := signToken(t, "user-1", "fam@example.com")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "fam@example.com" {
			t.Errorf("email = %q", body["email"])
		}
		_ = json.NewEncoder(w).Encode(Credentials{AccessToken: token, RefreshToken: "r1", ExpiresIn: 3600})
	}))
	defer srv.Close()

	auth, err := NewHTTPAuthenticator(srv.URL, "anon-key", nil)
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	creds, err := auth.SignIn(context.Background(), "fam@example.com", "hunter2")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if creds.AccessToken != token || creds.RefreshToken != "r1" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
}

func TestHTTPAuthenticator_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"Invalid login credentials"}`))
	}))
	defer srv.Close()

	auth, _ := NewHTTPAuthenticator(srv.URL, "", nil)
	_, err := auth.SignIn(context.Background(), "fam@example.com", "wrong")
	if apperrors.KindOf(err) != apperrors.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

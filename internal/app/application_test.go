package app

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	tasksdom "github.com/hearthhq/hearth/internal/app/domain/tasks"
	"github.com/hearthhq/hearth/internal/session"
	"github.com/hearthhq/hearth/internal/store"
)

type stubAuth struct{ token string }

func (s *stubAuth) SignUp(ctx context.Context, email, password string) (*session.Credentials, error) {
	return &session.Credentials{AccessToken: s.token}, nil
}

func (s *stubAuth) SignIn(ctx context.Context, email, password string) (*session.Credentials, error) {
	return &session.Credentials{AccessToken: s.token}, nil
}

func memberToken(t *testing.T, uid string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: uid}).
		SignedString([]byte("test"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestApplication_StartWiresFeedsForAnonymousIdentity(t *testing.T) {
	a := New(Options{})
	ctx := context.Background()

	if err := a.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop(ctx)

	identity := a.Sessions.Current()
	if identity.Zero() || !identity.Anonymous {
		t.Fatalf("expected anonymous identity, got %+v", identity)
	}

	// A write lands in the feed without any explicit refresh.
	if _, err := a.Tasks.Add(ctx, identity, tasksdom.ScopePrivate, "Buy milk", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	items := a.PrivateTasks.Items()
	if len(items) != 1 || items[0].Text != "Buy milk" {
		t.Fatalf("feed did not pick up the write: %+v", items)
	}
}

func TestApplication_SignInRewiresToNewIdentity(t *testing.T) {
	m := store.NewMemory()
	a := New(Options{Store: m, Auth: &stubAuth{token: memberToken(t, "user-1")}})
	ctx := context.Background()

	if err := a.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop(ctx)

	anon := a.Sessions.Current()
	if _, err := a.Tasks.Add(ctx, anon, tasksdom.ScopePrivate, "anonymous task", ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := a.Sessions.SignIn(ctx, "fam@example.com", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	member := a.Sessions.Current()
	if member.UID != "user-1" {
		t.Fatalf("identity = %+v", member)
	}

	// The private feed now mirrors the signed-in member's collection,
	// which is empty; the anonymous task is not visible.
	if items := a.PrivateTasks.Items(); len(items) != 0 {
		t.Fatalf("feed still shows the old identity: %+v", items)
	}

	if _, err := a.Tasks.Add(ctx, member, tasksdom.ScopePrivate, "member task", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	items := a.PrivateTasks.Items()
	if len(items) != 1 || items[0].Text != "member task" {
		t.Fatalf("feed not rewired: %+v", items)
	}
}

func TestApplication_StopClosesEveryHandle(t *testing.T) {
	a := New(Options{})
	ctx := context.Background()

	if err := a.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if a.OpenHandles() == 0 {
		t.Fatal("expected live subscriptions after start")
	}

	if err := a.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if n := a.OpenHandles(); n != 0 {
		t.Fatalf("%d subscription handles leaked", n)
	}
}

func TestApplication_SignOutClearsFeeds(t *testing.T) {
	a := New(Options{Auth: &stubAuth{}})
	ctx := context.Background()

	if err := a.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop(ctx)

	identity := a.Sessions.Current()
	if _, err := a.Messages.Send(ctx, identity, "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(a.Hub.Items()) != 1 {
		t.Fatal("hub feed empty before sign-out")
	}

	a.Sessions.SignOut()
	if len(a.Hub.Items()) != 0 {
		t.Fatal("sign-out must clear every feed")
	}
	if a.OpenHandles() != 0 {
		t.Fatal("sign-out must close every subscription")
	}
}

package feed

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/blogger-web/internal/model"
)

type userStub struct {
	mu    sync.Mutex
	users map[int]model.User
	err   error
	calls int
}

func (s *userStub) User(_ context.Context, id int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, errors.New("no such user")
	}
	return &u, nil
}

func TestResolve_FetchesOncePerUser(t *testing.T) {
	stub := &userStub{users: map[int]model.User{
		7: {ID: 7, AvatarURL: "face.png"},
	}}
	resolver := NewAvatarResolver(stub, NewAvatarCache(), "http://api.example.com")

	for i := 0; i < 3; i++ {
		got, err := resolver.Resolve(context.Background(), model.User{ID: 7})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if want := "http://api.example.com/uploads/face.png"; got != want {
			t.Errorf("Resolve() = %q, want %q", got, want)
		}
	}
	if stub.calls != 1 {
		t.Errorf("User() called %d times, want 1", stub.calls)
	}
}

func TestResolve_InlineURLWinsAndCaches(t *testing.T) {
	stub := &userStub{}
	cache := NewAvatarCache()
	resolver := NewAvatarResolver(stub, cache, "http://api.example.com")

	got, err := resolver.Resolve(context.Background(), model.User{ID: 7, AvatarURL: "/uploads/inline.png"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := "http://api.example.com/uploads/inline.png"; got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
	if stub.calls != 0 {
		t.Errorf("inline avatar still triggered %d fetches", stub.calls)
	}

	// The inline value seeded the cache; a later bare reference reuses it.
	got, err = resolver.Resolve(context.Background(), model.User{ID: 7})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := "http://api.example.com/uploads/inline.png"; got != want {
		t.Errorf("Resolve() after caching = %q, want %q", got, want)
	}
	if stub.calls != 0 {
		t.Errorf("cached avatar still triggered %d fetches", stub.calls)
	}
}

func TestResolve_EmptyAvatarIsCached(t *testing.T) {
	// A user with no avatar is a real answer, not a cache miss.
	stub := &userStub{users: map[int]model.User{9: {ID: 9}}}
	resolver := NewAvatarResolver(stub, NewAvatarCache(), "http://api.example.com")

	for i := 0; i < 2; i++ {
		got, err := resolver.Resolve(context.Background(), model.User{ID: 9})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got != "" {
			t.Errorf("Resolve() = %q, want empty for a user without an avatar", got)
		}
	}
	if stub.calls != 1 {
		t.Errorf("User() called %d times, empty answers must be cached too", stub.calls)
	}
}

func TestResolve_FetchErrorNotCached(t *testing.T) {
	stub := &userStub{err: errors.New("backend down")}
	cache := NewAvatarCache()
	resolver := NewAvatarResolver(stub, cache, "http://api.example.com")

	if _, err := resolver.Resolve(context.Background(), model.User{ID: 7}); err == nil {
		t.Fatal("Resolve() should surface the fetch failure")
	}
	if cache.Len() != 0 {
		t.Error("a failed fetch must not poison the cache")
	}

	// Backend recovers; the next resolution retries and succeeds.
	stub.mu.Lock()
	stub.err = nil
	stub.users = map[int]model.User{7: {ID: 7, AvatarURL: "face.png"}}
	stub.mu.Unlock()

	got, err := resolver.Resolve(context.Background(), model.User{ID: 7})
	if err != nil {
		t.Fatalf("Resolve() after recovery error = %v", err)
	}
	if want := "http://api.example.com/uploads/face.png"; got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolve_ZeroIDSkipsCacheAndFetch(t *testing.T) {
	stub := &userStub{}
	resolver := NewAvatarResolver(stub, NewAvatarCache(), "http://api.example.com")

	got, err := resolver.Resolve(context.Background(), model.User{AvatarURL: "anon.png"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := "http://api.example.com/uploads/anon.png"; got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
	if stub.calls != 0 {
		t.Errorf("zero-ID user triggered %d fetches", stub.calls)
	}
}

func TestDisplayURL(t *testing.T) {
	resolver := NewAvatarResolver(nil, NewAvatarCache(), "http://api.example.com/")

	cases := []struct {
		raw, want string
	}{
		{"", ""},
		{"http://cdn.example.com/a.png", "http://cdn.example.com/a.png"},
		{"https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"/uploads/a.png", "http://api.example.com/uploads/a.png"},
		{"a.png", "http://api.example.com/uploads/a.png"},
	}
	for _, tc := range cases {
		if got := resolver.DisplayURL(tc.raw); got != tc.want {
			t.Errorf("DisplayURL(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

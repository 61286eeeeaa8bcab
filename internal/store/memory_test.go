package store

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

var backends = map[string]func(*testing.T, *clock) Backend{
	"memory": func(_ *testing.T, c *clock) Backend {
		s := NewMemoryStore()
		s.now = c.now
		return s
	},
	"sqlite": func(t *testing.T, c *clock) Backend {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		s.now = c.now
		t.Cleanup(func() { s.Close() })
		return s
	},
}

func TestBackendGetSet(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := open(t, &clock{t: time.Unix(1000, 0)})

			if err := b.Create(ctx, "s1"); err != nil {
				t.Fatalf("create: %v", err)
			}
			if _, ok, err := b.Get(ctx, "s1", "k"); err != nil || ok {
				t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
			}

			if err := b.Set(ctx, "s1", "k", []byte("v1")); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := b.Set(ctx, "s1", "k", []byte("v2")); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			v, ok, err := b.Get(ctx, "s1", "k")
			if err != nil || !ok || string(v) != "v2" {
				t.Fatalf("expected v2, got %q ok=%v err=%v", v, ok, err)
			}

			// Creating again must not wipe values.
			if err := b.Create(ctx, "s1"); err != nil {
				t.Fatalf("recreate: %v", err)
			}
			if _, ok, _ := b.Get(ctx, "s1", "k"); !ok {
				t.Fatalf("recreate dropped stored value")
			}
		})
	}
}

func TestBackendUnknownSession(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := open(t, &clock{t: time.Unix(1000, 0)})

			if _, _, err := b.Get(ctx, "nope", "k"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on get, got %v", err)
			}
			if err := b.Set(ctx, "nope", "k", []byte("v")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on set, got %v", err)
			}
			if ok, err := b.Touch(ctx, "nope"); err != nil || ok {
				t.Fatalf("expected touch to report missing session, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestBackendSessionsAreIsolated(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := open(t, &clock{t: time.Unix(1000, 0)})

			_ = b.Create(ctx, "a")
			_ = b.Create(ctx, "b")
			_ = b.Set(ctx, "a", "k", []byte("a-value"))

			if _, ok, _ := b.Get(ctx, "b", "k"); ok {
				t.Fatalf("value leaked across sessions")
			}

			if err := b.DeleteSession(ctx, "a"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, _, err := b.Get(ctx, "a", "k"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected deleted session to be gone, got %v", err)
			}
			if ok, _ := b.Touch(ctx, "b"); !ok {
				t.Fatalf("deleting a removed b")
			}
		})
	}
}

func TestBackendExpire(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := &clock{t: time.Unix(1000, 0)}
			b := open(t, c)

			_ = b.Create(ctx, "old")
			_ = b.Create(ctx, "touched")
			_ = b.Set(ctx, "old", "k", []byte("v"))

			c.t = c.t.Add(10 * time.Minute)
			_, _ = b.Touch(ctx, "touched")
			_ = b.Create(ctx, "new")

			expired, err := b.Expire(ctx, c.t.Add(-5*time.Minute))
			if err != nil {
				t.Fatalf("expire: %v", err)
			}
			sort.Strings(expired)
			if len(expired) != 1 || expired[0] != "old" {
				t.Fatalf("expected only old to expire, got %v", expired)
			}

			if _, _, err := b.Get(ctx, "old", "k"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expired session still readable: %v", err)
			}
			for _, id := range []string{"touched", "new"} {
				if ok, _ := b.Touch(ctx, id); !ok {
					t.Fatalf("session %s expired too early", id)
				}
			}
		})
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Create(ctx, "s")
	_ = s.Set(ctx, "s", "k", []byte("abc"))

	v, _, _ := s.Get(ctx, "s", "k")
	v[0] = 'x'

	again, _, _ := s.Get(ctx, "s", "k")
	if string(again) != "abc" {
		t.Fatalf("stored value was mutated through Get: %q", again)
	}
}

func TestScope(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Create(ctx, "s")

	scoped := Scope(s, "s")
	if err := scoped.Set(ctx, "user-coordinates", []byte(`{"lat":1,"lon":2}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := s.Get(ctx, "s", "user-coordinates")
	if err != nil || !ok || string(v) != `{"lat":1,"lon":2}` {
		t.Fatalf("scoped write not visible: %q ok=%v err=%v", v, ok, err)
	}
}

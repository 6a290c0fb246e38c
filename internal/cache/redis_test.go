package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client), srv
}

func TestRedisSetGetDelete(t *testing.T) {
	ctx := context.Background()
	r, srv := newTestRedis(t)

	if _, err := r.Get(ctx, "todos:all"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	if err := r.Set(ctx, "todos:all", []byte(`[]`), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := srv.TTL("todos:all"); ttl != time.Hour {
		t.Fatalf("unexpected ttl: %s", ttl)
	}

	got, err := r.Get(ctx, "todos:all")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[]` {
		t.Fatalf("unexpected value: %q", got)
	}

	if err := r.Delete(ctx, "todos:all"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.Delete(ctx, "todos:all"); err != nil {
		t.Fatalf("deleting an absent key should succeed: %v", err)
	}
	if srv.Exists("todos:all") {
		t.Fatal("key should be gone")
	}
}

func TestRedisExpiry(t *testing.T) {
	ctx := context.Background()
	r, srv := newTestRedis(t)

	if err := r.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	srv.FastForward(2 * time.Minute)

	if _, err := r.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestRedisServerDown(t *testing.T) {
	ctx := context.Background()
	r, srv := newTestRedis(t)
	srv.Close()

	_, err := r.Get(ctx, "k")
	if err == nil || errors.Is(err, ErrMiss) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestOpenRedis(t *testing.T) {
	srv := miniredis.RunT(t)

	r, err := OpenRedis(context.Background(), "redis://"+srv.Addr()+"/0")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if _, err := OpenRedis(context.Background(), "://bad"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRedisIncr(t *testing.T) {
	ctx := context.Background()
	r, srv := newTestRedis(t)

	for want := int64(1); want <= 2; want++ {
		n, err := r.Incr(ctx, "todos:gen")
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if n != want {
			t.Fatalf("unexpected counter: got %d want %d", n, want)
		}
	}
	if got, err := srv.Get("todos:gen"); err != nil || got != "2" {
		t.Fatalf("unexpected stored counter: %q %v", got, err)
	}
	raw, err := r.Get(ctx, "todos:gen")
	if err != nil || string(raw) != "2" {
		t.Fatalf("counter should be readable through Get: %q %v", raw, err)
	}
}

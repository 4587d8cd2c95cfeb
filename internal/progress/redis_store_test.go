package progress

import (
	"context"
	"errors"
	"reflect"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/emesedutech/cbt-akm/internal/model"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, zerolog.Nop()), mr
}

func TestKeyFormat(t *testing.T) {
	if got := Key(7, "EXAM01"); got != "cbt-progress-7-EXAM01" {
		t.Fatalf("Key() = %q", got)
	}
	if Key(7, "EXAM01") == Key(70, "EXAM1") {
		t.Fatal("keys for different participants must not collide")
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := Key(1, "EXAM01")

	answers := model.Answers{
		"Q1": model.OptionAnswer("Q1A2"),
		"Q2": model.OptionSetAnswer([]string{"Q2A1", "Q2A3"}),
		"Q3": model.MatchSetAnswer(map[string]string{"P1": "M3"}),
	}

	if err := store.Save(ctx, key, answers); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(answers, loaded) {
		t.Errorf("loaded answers differ: got %#v, want %#v", loaded, answers)
	}
}

func TestRedisStoreLoadAbsent(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Load(context.Background(), Key(1, "EXAM01"))
	if !errors.Is(err, ErrNoProgress) {
		t.Fatalf("expected ErrNoProgress, got %v", err)
	}
}

func TestRedisStoreDeletesCorruptEntry(t *testing.T) {
	store, mr := newTestStore(t)
	key := Key(1, "EXAM01")
	mr.Set(key, "{not json")

	_, err := store.Load(context.Background(), key)
	if !errors.Is(err, ErrNoProgress) {
		t.Fatalf("expected ErrNoProgress for corrupt entry, got %v", err)
	}
	if mr.Exists(key) {
		t.Fatal("corrupt entry should have been deleted")
	}
}

func TestRedisStoreClear(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	key := Key(1, "EXAM01")

	if err := store.Save(ctx, key, model.Answers{"Q1": model.OptionAnswer("a")}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Clear(ctx, key); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists(key) {
		t.Fatal("expected slot to be removed")
	}
}

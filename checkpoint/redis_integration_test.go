//go:build integration

package checkpoint

import (
	"context"
	"testing"

	"github.com/gurre/smpager/driver"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		_ = client.Close()
		_ = redisContainer.Terminate(ctx)
	}
	return client, cleanup
}

func TestRedisStore_Integration(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRedisStore(client, "smpager/list-models")

	state, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on empty key error = %v", err)
	}
	if state != (State{}) {
		t.Errorf("expected zero state, got %+v", state)
	}

	tr := NewTracker(store, State{}, "")
	tr.Observe(ctx, pageEvent("ListModels", 1, "", "tok1"))
	tr.Observe(ctx, pageEvent("ListModels", 2, "tok1", "tok2"))
	if err := tr.Err(); err != nil {
		t.Fatalf("tracker save error = %v", err)
	}

	resumed, ok, err := Resume(ctx, store, "ListModels", "")
	if err != nil || !ok {
		t.Fatalf("Resume() = %v, %v", ok, err)
	}
	if resumed.Cursor != "tok2" || resumed.Pages != 2 {
		t.Errorf("unexpected resumed state %+v", resumed)
	}
}

func pageEvent(op string, page int, cursor, next string) driver.PageEvent {
	return driver.PageEvent{Operation: op, Page: page, Cursor: cursor, NextCursor: next, Last: next == ""}
}

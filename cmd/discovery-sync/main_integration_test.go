//go:build integration

package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/Sternrassler/course-discovery-client/internal/testutil"
	"github.com/Sternrassler/course-discovery-client/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cleanup := func() {
		redisC.Terminate(ctx)
	}

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port()), cleanup
}

func TestRun_WithSharedThrottle(t *testing.T) {
	redisURL, cleanup := setupTestRedis(t)
	defer cleanup()

	mock := testutil.NewMockDiscovery()
	defer mock.Close()
	setupEnv(t, mock)
	t.Setenv("REDIS_URL", redisURL)

	mock.SetOffsetPages(client.CoursesEndpoint, client.OffsetSize,
		[]any{map[string]any{"key": "edX+DemoX"}},
	)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-env-file", "", "courses"}, &out)
	require.NoError(t, err)

	assert.Len(t, decodeOutput(t, &out), 1)
}

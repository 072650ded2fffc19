package minio

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mkpace/file-provider/backend"
	"github.com/mkpace/file-provider/backend/backendtest"
	"github.com/mkpace/file-provider/errors"
)

const testBucket = "test-bucket"

// setupTestMinIO starts a MinIO container and returns a client with an
// empty test bucket.
func setupTestMinIO(t *testing.T) *minio.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start MinIO container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)
	require.NoError(t, client.MakeBucket(ctx, testBucket, minio.MakeBucketOptions{}))
	return client
}

func TestIntegration_Conformance(t *testing.T) {
	client := setupTestMinIO(t)

	backendtest.TestSuiteWithConfig(t, func() backend.Backend {
		b, err := New(Config{Client: client})
		require.NoError(t, err)
		return b
	}, backendtest.Config{Bucket: testBucket})
}

func TestIntegration_MissingBucket(t *testing.T) {
	client := setupTestMinIO(t)
	b, err := New(Config{Client: client})
	require.NoError(t, err)

	_, err = b.Read(context.Background(), backend.Location{Bucket: "no-such-bucket", Key: "a.csv"})
	require.True(t, errors.IsNotFound(err), "got %v", err)
}

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/apigate/pkg/schema"
)

const sampleCatalog = `
projects:
  - id: proj_1
    key: pk_test
    slug: demo
    workspace_slug: acme
    clients:
      - id: petstore
        schema_id: petstore-v1
        cache:
          enabled: true
          ttl: 30
schemas:
  - id: petstore-v1
    servers:
      - url: https://petstore.example.com/v1
    security_schemes:
      - id: bearerAuth
        type: HTTP
        http_scheme: bearer
    operations:
      - id: getPet
        method: get
        path: /pets/{id}
        parameters:
          - name: id
            in: PATH
            required: true
        security:
          - scheme_id: bearerAuth
authentications:
  - client_id: petstore
    security_scheme_id: bearerAuth
    password: secret-token
`

func writeCatalog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndLookup(t *testing.T) {
	c, err := Load(writeCatalog(t, t.TempDir(), sampleCatalog))
	require.NoError(t, err)
	ctx := context.Background()

	project, ok, err := c.GetProjectByKey(ctx, "pk_test", "petstore")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "proj_1", project.ID)
	assert.Equal(t, "acme", project.WorkspaceSlug)

	project, ok, _ = c.GetProjectByKey(ctx, "pk_test", "other-client")
	require.True(t, ok, "key alone resolves the project")
	_, ok = project.Client("other-client")
	assert.False(t, ok)
	_, ok, _ = c.GetProjectByKey(ctx, "pk_wrong", "petstore")
	assert.False(t, ok)

	data, ok, err := c.FindOperationData(ctx, "petstore", "getPet")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/pets/{id}", data.Operation.Path)
	assert.Equal(t, "https://petstore.example.com/v1", data.Schema.Servers[0].URL)

	_, ok, _ = c.FindOperationData(ctx, "petstore", "missing")
	assert.False(t, ok)

	client, ok := c.Client(ctx, "petstore")
	require.True(t, ok)
	assert.Equal(t, schema.CacheConfig{Enabled: true, TTL: 30}, client.CacheConfig)

	auths, err := c.ListAuthentications(ctx, "petstore")
	require.NoError(t, err)
	require.Len(t, auths, 1)
	assert.Equal(t, "secret-token", auths[0].Password)

	auths, err = c.ListAuthentications(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, auths)
}

func TestIndexReportsEveryProblem(t *testing.T) {
	_, err := New(&File{
		Projects: []schema.Project{
			{ID: "a", Key: "k", Clients: []schema.HTTPClient{{ID: "c", SchemaID: "missing"}}},
			{ID: "b", Key: "k"},
		},
		Authentications: []schema.ClientAuthentication{{ClientID: "ghost"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown schema "missing"`)
	assert.Contains(t, err.Error(), "key is shared")
	assert.Contains(t, err.Error(), `unknown client "ghost"`)
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)
	c, err := Load(path)
	require.NoError(t, err)

	writeCatalog(t, dir, "projects: [")
	assert.Error(t, c.Reload())

	_, ok, _ := c.GetProjectByKey(context.Background(), "pk_test", "petstore")
	assert.True(t, ok)

	assert.Error(t, (&Catalog{}).Reload())
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)
	c, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(c, 20*time.Millisecond)
	require.NoError(t, err)

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = w.Watch(ctx, func(err error) {
			if err == nil {
				reloads.Add(1)
			}
		})
	}()

	// Give the watcher time to register.
	time.Sleep(50 * time.Millisecond)
	updated := sampleCatalog + "\n  - client_id: petstore\n    security_scheme_id: bearerAuth\n    password: second\n"
	writeCatalog(t, dir, updated)

	require.Eventually(t, func() bool { return reloads.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	auths, err := c.ListAuthentications(context.Background(), "petstore")
	require.NoError(t, err)
	assert.Len(t, auths, 2)

	require.NoError(t, w.Stop())
}

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

// Package catalog loads the projects, API schemas and stored client
// authentications the gateway resolves inbound calls against.
//
// The catalog is a single YAML file:
//
//	projects:
//	  - id: proj_1
//	    key: pk_live_abc
//	    slug: my-project
//	    workspace_slug: acme
//	    clients:
//	      - id: github
//	        schema_id: github-v3
//	        cache: {enabled: true, ttl: 60}
//	schemas:
//	  - id: github-v3
//	    servers: [{url: "https://api.github.com"}]
//	    operations: [...]
//	authentications:
//	  - client_id: github
//	    security_scheme_id: bearerAuth
//	    password: ghp_xxx
//
// A Catalog is safe for concurrent use and can be reloaded in place.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"mercator-hq/apigate/pkg/schema"
)

// File is the on-disk catalog document.
type File struct {
	Projects        []schema.Project              `yaml:"projects"`
	Schemas         []schema.Schema               `yaml:"schemas"`
	Authentications []schema.ClientAuthentication `yaml:"authentications"`
}

type clientEntry struct {
	project *schema.Project
	client  *schema.HTTPClient
}

// snapshot is an immutable index over one File.
type snapshot struct {
	projectsByKey map[string]*schema.Project
	clients       map[string]clientEntry
	schemas       map[string]*schema.Schema
	auths         map[string][]schema.ClientAuthentication
}

// Catalog serves lookups from the most recently loaded File.
type Catalog struct {
	path   string
	logger *slog.Logger

	mu   sync.RWMutex
	snap *snapshot
}

// New builds a catalog from an in-memory File.
func New(f *File) (*Catalog, error) {
	snap, err := index(f)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		snap:   snap,
		logger: slog.Default().With("component", "catalog"),
	}, nil
}

// Load reads and indexes the catalog file at path.
func Load(path string) (*Catalog, error) {
	f, err := readFile(path)
	if err != nil {
		return nil, err
	}
	c, err := New(f)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %q: %w", path, err)
	}
	c.path = path
	return c, nil
}

// Path returns the file the catalog was loaded from, if any.
func (c *Catalog) Path() string {
	return c.path
}

// Reload re-reads the catalog file. On error the previous contents stay
// in effect.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return errors.New("catalog was not loaded from a file")
	}

	f, err := readFile(c.path)
	if err != nil {
		return err
	}
	snap, err := index(f)
	if err != nil {
		return fmt.Errorf("invalid catalog %q: %w", c.path, err)
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.logger.Info("catalog reloaded",
		"path", c.path,
		"projects", len(f.Projects),
		"schemas", len(f.Schemas),
	)
	return nil
}

func (c *Catalog) current() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// GetProjectByKey returns the project owning key. The catalog holds every
// client of the project in memory, so clientID does not narrow the result;
// callers check membership with Project.Client.
func (c *Catalog) GetProjectByKey(_ context.Context, key, _ string) (*schema.Project, bool, error) {
	project, ok := c.current().projectsByKey[key]
	if !ok {
		return nil, false, nil
	}
	return project, true, nil
}

// Client returns the HTTP client configuration for clientID.
func (c *Catalog) Client(_ context.Context, clientID string) (*schema.HTTPClient, bool) {
	entry, ok := c.current().clients[clientID]
	if !ok {
		return nil, false
	}
	return entry.client, true
}

// FindOperationData returns the schema bound to clientID and its operation
// operationID.
func (c *Catalog) FindOperationData(_ context.Context, clientID, operationID string) (*schema.OperationData, bool, error) {
	snap := c.current()

	entry, ok := snap.clients[clientID]
	if !ok {
		return nil, false, nil
	}
	s, ok := snap.schemas[entry.client.SchemaID]
	if !ok {
		return nil, false, nil
	}
	op, ok := s.Operation(operationID)
	if !ok {
		return nil, false, nil
	}
	return &schema.OperationData{Schema: s, Operation: op}, true, nil
}

// ListAuthentications implements credentials.Store.
func (c *Catalog) ListAuthentications(_ context.Context, clientID string) ([]schema.ClientAuthentication, error) {
	auths := c.current().auths[clientID]
	out := make([]schema.ClientAuthentication, len(auths))
	copy(out, auths)
	return out, nil
}

// ProjectIDs returns the IDs of every project in the catalog.
func (c *Catalog) ProjectIDs() []string {
	snap := c.current()
	ids := make([]string, 0, len(snap.projectsByKey))
	for _, p := range snap.projectsByKey {
		ids = append(ids, p.ID)
	}
	return ids
}

func readFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %q: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %q: %w", path, err)
	}
	return &f, nil
}

// index validates f and builds lookup maps. Every problem is reported.
func index(f *File) (*snapshot, error) {
	snap := &snapshot{
		projectsByKey: make(map[string]*schema.Project),
		clients:       make(map[string]clientEntry),
		schemas:       make(map[string]*schema.Schema),
		auths:         make(map[string][]schema.ClientAuthentication),
	}
	var errs []error

	for i := range f.Schemas {
		s := &f.Schemas[i]
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("schemas[%d]: id is required", i))
			continue
		}
		if _, dup := snap.schemas[s.ID]; dup {
			errs = append(errs, fmt.Errorf("schemas[%d]: duplicate id %q", i, s.ID))
			continue
		}
		for j, op := range s.Operations {
			if op.ID == "" || op.Path == "" {
				errs = append(errs, fmt.Errorf("schemas[%d].operations[%d]: id and path are required", i, j))
			}
		}
		snap.schemas[s.ID] = s
	}

	projectIDs := make(map[string]bool)
	for i := range f.Projects {
		p := &f.Projects[i]
		switch {
		case p.ID == "" || p.Key == "":
			errs = append(errs, fmt.Errorf("projects[%d]: id and key are required", i))
			continue
		case projectIDs[p.ID]:
			errs = append(errs, fmt.Errorf("projects[%d]: duplicate id %q", i, p.ID))
			continue
		}
		if _, dup := snap.projectsByKey[p.Key]; dup {
			errs = append(errs, fmt.Errorf("projects[%d]: key is shared with another project", i))
			continue
		}
		projectIDs[p.ID] = true
		snap.projectsByKey[p.Key] = p

		for j := range p.Clients {
			cl := &p.Clients[j]
			if _, dup := snap.clients[cl.ID]; dup {
				errs = append(errs, fmt.Errorf("projects[%d].clients[%d]: duplicate client id %q", i, j, cl.ID))
				continue
			}
			if _, ok := snap.schemas[cl.SchemaID]; !ok {
				errs = append(errs, fmt.Errorf("projects[%d].clients[%d]: unknown schema %q", i, j, cl.SchemaID))
			}
			snap.clients[cl.ID] = clientEntry{project: p, client: cl}
		}
	}

	for i, a := range f.Authentications {
		if _, ok := snap.clients[a.ClientID]; !ok {
			errs = append(errs, fmt.Errorf("authentications[%d]: unknown client %q", i, a.ClientID))
			continue
		}
		snap.auths[a.ClientID] = append(snap.auths[a.ClientID], a)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return snap, nil
}

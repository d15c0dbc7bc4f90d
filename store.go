// Package tryenv implements an encrypted per-project variable store.
// Projects group secret key/value variables into three fixed instances
// (preview, development, production); values are encrypted at rest and
// the whole collection is persisted as a single pretty-printed JSON file
// suitable for version-controlled backup.
package tryenv

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/tryEnv-xyz/tryEnv/pkg/codec"
)

var (
	// ErrNotFound is returned when an operation targets a missing project,
	// instance, or variable key.
	ErrNotFound = errors.New("tryenv: not found")
	// ErrFormat is returned when the persisted collection (or a remote
	// copy of it) is not a valid project array.
	ErrFormat = errors.New("tryenv: malformed store")
)

// Store owns the project collection and its backing file. It is not safe
// for concurrent use; callers treat load/mutate/persist as one unit of
// work with a single writer. Every mutating operation flushes the whole
// collection back to disk before returning.
type Store struct {
	path     string
	logger   *slog.Logger
	projects []*Project
}

// NewStore returns a store backed by the file at path. Call Load before
// using it.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{path: path, logger: logger}
}

// Path returns the location of the persisted collection.
func (s *Store) Path() string { return s.path }

// Load reads the collection from disk. A missing file is an empty
// collection, not an error.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("no store file found, starting empty", "path", s.path)
			s.projects = nil
			return nil
		}
		return fmt.Errorf("reading store %q: %w", s.path, err)
	}

	var projects []*Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	for _, p := range projects {
		p.Instances.normalize()
	}
	s.projects = projects
	s.logger.Debug("loaded store", "path", s.path, "projects", len(projects))
	return nil
}

// Persist writes the complete collection back to disk and syncs it before
// returning.
func (s *Store) Persist() error {
	data, err := s.Serialize()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("writing store %q: %w", s.path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing store %q: %w", s.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing store %q: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing store %q: %w", s.path, err)
	}
	return nil
}

// Serialize renders the collection in the persisted format: a JSON array
// of projects, 2-space indented, with sorted variable keys. The output is
// byte-stable across load/serialize round trips.
func (s *Store) Serialize() ([]byte, error) {
	projects := s.projects
	if projects == nil {
		projects = []*Project{}
	}
	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding store: %w", err)
	}
	return append(data, '\n'), nil
}

// ValidateCollection checks that data parses as a project array without
// interpreting the records. Used both on load and when vetting a fetched
// remote copy before it replaces the local file.
func ValidateCollection(data []byte) error {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return nil
}

// Projects returns the live project list in collection order.
func (s *Store) Projects() []*Project { return s.projects }

// Project looks up a project by id.
func (s *Store) Project(id string) (*Project, bool) {
	for _, p := range s.projects {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// CreateProject appends a new project with empty variable maps for all
// three instances and flushes the collection.
func (s *Store) CreateProject(name string) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}
	p := &Project{
		ID:        uuid.NewString(),
		Name:      name,
		Instances: newInstanceSet(),
	}
	s.projects = append(s.projects, p)
	if err := s.Persist(); err != nil {
		return nil, err
	}
	s.logger.Info("created project", "project", name, "id", p.ID)
	return p, nil
}

// RenameProject replaces a project's display name. Renaming a missing
// project is a no-op.
func (s *Store) RenameProject(id, newName string) error {
	p, ok := s.Project(id)
	if !ok || p.Name == newName {
		return nil
	}
	p.Name = newName
	return s.Persist()
}

// DeleteProject removes a project and all its ciphertext. Irreversible.
func (s *Store) DeleteProject(id string) error {
	for i, p := range s.projects {
		if p.ID == id {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			if err := s.Persist(); err != nil {
				return err
			}
			s.logger.Info("deleted project", "project", p.Name, "id", id)
			return nil
		}
	}
	return nil
}

// SetVariable encrypts plaintext under the project's id and inserts or
// overwrites the variable in the given instance.
func (s *Store) SetVariable(projectID string, kind InstanceKind, key, plaintext string) error {
	vars, pid, err := s.vars(projectID, kind)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: variable key must not be empty", ErrNotFound)
	}
	value, err := codec.Encrypt(plaintext, pid)
	if err != nil {
		return err
	}
	vars[key] = value
	return s.Persist()
}

// GetVariable decrypts and returns one variable's plaintext.
func (s *Store) GetVariable(projectID string, kind InstanceKind, key string) (string, error) {
	vars, pid, err := s.vars(projectID, kind)
	if err != nil {
		return "", err
	}
	value, ok := vars[key]
	if !ok {
		return "", fmt.Errorf("%w: no variable %q in %s", ErrNotFound, key, kind)
	}
	return codec.Decrypt(value, pid)
}

// DeleteVariable removes a variable if present; deleting a missing
// variable is a no-op.
func (s *Store) DeleteVariable(projectID string, kind InstanceKind, key string) error {
	vars, _, err := s.vars(projectID, kind)
	if err != nil {
		return err
	}
	if _, ok := vars[key]; !ok {
		return nil
	}
	delete(vars, key)
	return s.Persist()
}

// BulkSetVariables applies entries best-effort: a failing entry is
// skipped and reported, the remaining entries still apply, and the
// collection is flushed once at the end. Each applied entry is fully
// encrypted before insertion. It returns the number of applied entries
// alongside any per-entry errors (joined).
func (s *Store) BulkSetVariables(projectID string, kind InstanceKind, entries []BulkEntry) (int, error) {
	vars, pid, err := s.vars(projectID, kind)
	if err != nil {
		return 0, err
	}

	var applied int
	var errs []error
	for _, e := range entries {
		if e.Key == "" {
			errs = append(errs, fmt.Errorf("%w: variable key must not be empty", ErrNotFound))
			continue
		}
		value, err := codec.Encrypt(e.Value, pid)
		if err != nil {
			errs = append(errs, fmt.Errorf("encrypting %q: %w", e.Key, err))
			continue
		}
		vars[e.Key] = value
		applied++
	}

	if applied > 0 {
		if err := s.Persist(); err != nil {
			return applied, err
		}
	}
	s.logger.Info("bulk import", "instance", kind, "applied", applied, "failed", len(errs))
	return applied, errors.Join(errs...)
}

func (s *Store) vars(projectID string, kind InstanceKind) (VariableMap, string, error) {
	p, ok := s.Project(projectID)
	if !ok {
		return nil, "", fmt.Errorf("%w: no project with id %q", ErrNotFound, projectID)
	}
	vars, ok := p.Instances.Vars(kind)
	if !ok {
		return nil, "", fmt.Errorf("%w: unknown instance %q", ErrNotFound, kind)
	}
	return vars, p.ID, nil
}

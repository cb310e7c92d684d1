// Package store persists the user-configured instance list as JSON,
// writing atomically (temp file + rename) under an exclusive file lock so
// concurrent daemon instances (or a CLI and a daemon) never interleave
// writes.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/saba-chan/saba-core/internal/domain"
)

// Store is the persisted collection of user-configured server instances.
type Store struct {
	path     string
	lockPath string

	mu        sync.RWMutex
	instances []domain.Instance
}

// New creates a Store backed by instances.json in dir, loading any existing
// file. dir is created if missing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s := &Store{
		path:     filepath.Join(dir, "instances.json"),
		lockPath: filepath.Join(dir, "instances.json.lock"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read instance store: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var instances []domain.Instance
	if err := json.Unmarshal(data, &instances); err != nil {
		return fmt.Errorf("parse instance store: %w", err)
	}
	s.instances = instances
	return nil
}

// flush writes the full instance list atomically under an exclusive lock.
// Caller must hold s.mu for writing.
func (s *Store) flush() error {
	lock := flock.New(s.lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire instance store lock: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(s.instances, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal instance store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write instance store temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename instance store: %w", err)
	}
	return nil
}

// Add appends a new instance, assigning it a UUID if it doesn't have one.
// Returns ErrInstanceExists if the name is already taken.
func (s *Store) Add(inst domain.Instance) (domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.instances {
		if existing.Name == inst.Name {
			return domain.Instance{}, domain.ErrInstanceExists
		}
	}

	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	now := time.Now().Unix()
	inst.CreatedAt = now
	inst.UpdatedAt = now
	if inst.ProtocolMode == "" {
		inst.ProtocolMode = domain.ProtocolRCON
	}

	s.instances = append(s.instances, inst)
	if err := s.flush(); err != nil {
		s.instances = s.instances[:len(s.instances)-1]
		return domain.Instance{}, err
	}
	return inst.Clone(), nil
}

// Remove deletes the instance with the given id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, inst := range s.instances {
		if inst.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.ErrInstanceNotFound
	}

	removed := s.instances[idx]
	s.instances = append(s.instances[:idx], s.instances[idx+1:]...)
	if err := s.flush(); err != nil {
		s.instances = append(s.instances[:idx], append([]domain.Instance{removed}, s.instances[idx:]...)...)
		return err
	}
	return nil
}

// Get returns a cloned snapshot of the instance with the given id.
func (s *Store) Get(id string) (domain.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inst := range s.instances {
		if inst.ID == id {
			return inst.Clone(), nil
		}
	}
	return domain.Instance{}, domain.ErrInstanceNotFound
}

// GetByName returns a cloned snapshot of the instance with the given name.
func (s *Store) GetByName(name string) (domain.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inst := range s.instances {
		if inst.Name == name {
			return inst.Clone(), nil
		}
	}
	return domain.Instance{}, domain.ErrInstanceNotFound
}

// List returns cloned snapshots of every instance, in stored order.
func (s *Store) List() []domain.Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Instance, len(s.instances))
	for i, inst := range s.instances {
		out[i] = inst.Clone()
	}
	return out
}

// Update replaces the instance matching updated.ID's mutable fields,
// rejecting a rename collision with another instance.
func (s *Store) Update(updated domain.Instance) (domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, inst := range s.instances {
		if inst.ID == updated.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.Instance{}, domain.ErrInstanceNotFound
	}

	for i, inst := range s.instances {
		if i != idx && inst.Name == updated.Name {
			return domain.Instance{}, domain.ErrInstanceExists
		}
	}

	prior := s.instances[idx]
	updated.CreatedAt = prior.CreatedAt
	updated.UpdatedAt = time.Now().Unix()
	s.instances[idx] = updated

	if err := s.flush(); err != nil {
		s.instances[idx] = prior
		return domain.Instance{}, err
	}
	return updated.Clone(), nil
}

// Reorder replaces the stored order to match the given id sequence. Every
// existing ID must appear exactly once; unknown IDs are rejected.
func (s *Store) Reorder(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]domain.Instance, len(s.instances))
	for _, inst := range s.instances {
		byID[inst.ID] = inst
	}
	if len(ids) != len(byID) {
		return fmt.Errorf("%w: reorder list length mismatch", domain.ErrValidation)
	}

	reordered := make([]domain.Instance, 0, len(ids))
	for _, id := range ids {
		inst, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown instance id %s", domain.ErrValidation, id)
		}
		reordered = append(reordered, inst)
	}

	prior := s.instances
	s.instances = reordered
	if err := s.flush(); err != nil {
		s.instances = prior
		return err
	}
	return nil
}

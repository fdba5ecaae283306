// Package store persists classified calls to a CSV file keyed by
// conversation_id.
//
// The whole file is rewritten after every append through a temp file and a
// rename in the same directory, so readers see either the previous or the
// next complete file. A single process may write a given path at a time.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// ErrDuplicateID is returned by Append when the id is already stored.
var ErrDuplicateID = errors.New("conversation_id already stored")

// Store is the in-memory view of a result file plus its on-disk writer.
type Store struct {
	path string

	mu      sync.RWMutex
	columns []string
	rows    []Row
	ids     map[string]struct{}
}

// Open loads the result file at path, or creates it with a header-only body
// when absent. inputColumns are merged into the header after the existing
// columns so rows can carry every input field.
func Open(ctx context.Context, path string, inputColumns []string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	s := &Store{path: path, ids: make(map[string]struct{})}

	t, err := ReadFile(path)
	switch {
	case err == nil:
		s.columns = unionColumns(t.Columns, inputColumns)
		s.rows = t.Rows
		for _, r := range t.Rows {
			s.ids[r.ConversationID] = struct{}{}
		}
		if !slices.Equal(s.columns, t.Columns) {
			if err := s.persist(ctx, s.rows); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, os.ErrNotExist):
		s.columns = unionColumns(inputColumns)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		if err := s.persist(ctx, nil); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("load store: %w", err)
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Has reports whether id is already stored.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Columns returns a copy of the header.
func (s *Store) Columns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.columns)
}

// Rows returns a copy of the stored rows in insertion order.
func (s *Store) Rows() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rows)
}

// Append adds row and persists the file before returning. On a write
// failure the row is not kept in memory either.
func (s *Store) Append(ctx context.Context, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[row.ConversationID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, row.ConversationID)
	}
	next := append(slices.Clip(s.rows), row)
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.rows = next
	s.ids[row.ConversationID] = struct{}{}
	return nil
}

func (s *Store) persist(ctx context.Context, rows []Row) error {
	var buf bytes.Buffer
	if err := Write(&buf, s.columns, rows); err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	data := buf.Bytes()
	err := withRetry(ctx, func(context.Context) error {
		return writeAtomic(s.path, data)
	})
	if err != nil {
		return fmt.Errorf("write store %s: %w", s.path, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}

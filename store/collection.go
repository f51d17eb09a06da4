package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"github.com/turnon/taskdb/task"
)

const mod = "store"

// ErrNotFound reports that no record carries the requested id.
var ErrNotFound = errors.New("record not found")

// Collection is the full record set of one entity type, backed by a
// single JSON file holding a flat array. Every mutation reads the
// whole file, changes the set in memory and writes the whole file
// back. A mutex serializes those cycles in-process, a file lock
// serializes them against other processes sharing the file.
type Collection struct {
	path string
	mu   sync.Mutex
	flk  *flock.Flock
}

// Open resolves a collection to <dir>/<name>.json, creating the
// directory if needed.
func Open(dir, name string) (*Collection, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}

	// the lock lives in a sidecar file: the data file itself is
	// replaced by rename on every write, which would orphan a lock
	// taken on its inode
	path := filepath.Join(dir, name+".json")
	return &Collection{path: path, flk: flock.New(path + ".lock")}, nil
}

// FindAll returns the record set as currently persisted. A missing or
// corrupt file yields an empty set, never an error.
func (c *Collection) FindAll() []task.Task {
	defer c.lock()()
	return c.read()
}

// FindByID scans for the first record with the given id.
func (c *Collection) FindByID(id string) (task.Task, error) {
	if id == "" {
		return task.Task{}, ErrNotFound
	}

	defer c.lock()()
	for _, t := range c.read() {
		if t.ID == id {
			return t, nil
		}
	}
	return task.Task{}, ErrNotFound
}

// Create appends a record and rewrites the file.
func (c *Collection) Create(t task.Task) error {
	defer c.lock()()
	return c.write(append(c.read(), t))
}

// Update replaces the record carrying t.ID, keeping its position.
func (c *Collection) Update(t task.Task) (task.Task, error) {
	defer c.lock()()

	records := c.read()
	for i := range records {
		if records[i].ID == t.ID {
			records[i] = t
			if err := c.write(records); err != nil {
				return task.Task{}, err
			}
			return t, nil
		}
	}
	return task.Task{}, ErrNotFound
}

// Delete removes the record with the given id.
func (c *Collection) Delete(id string) error {
	defer c.lock()()

	records := c.read()
	for i := range records {
		if records[i].ID == id {
			return c.write(append(records[:i], records[i+1:]...))
		}
	}
	return ErrNotFound
}

// BulkInsert appends a batch of records in a single rewrite. An
// unreadable current set counts as empty, so the batch then becomes
// the entire file content.
func (c *Collection) BulkInsert(records []task.Task) error {
	defer c.lock()()
	return c.write(append(c.read(), records...))
}

// lock takes the in-process mutex and the cross-process file lock,
// returning the matching unlock. A failing file lock is logged and
// skipped rather than blocking the collection.
func (c *Collection) lock() func() {
	c.mu.Lock()
	if err := c.flk.Lock(); err != nil {
		log.Warn().Str("mod", mod).Str("file", c.path).Err(err).Msg("file lock failed")
	}
	return func() {
		_ = c.flk.Unlock()
		c.mu.Unlock()
	}
}

// read loads the full record set. Unreadable or unparseable content
// degrades to an empty set, logged so corruption stays observable.
func (c *Collection) read() []task.Task {
	bytesArr, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("mod", mod).Str("file", c.path).Err(err).Msg("unreadable, treating as empty")
		}
		return []task.Task{}
	}

	// a zero-length file is a valid empty set, not corruption
	if len(bytesArr) == 0 {
		return []task.Task{}
	}

	var records []task.Task
	if err := json.Unmarshal(bytesArr, &records); err != nil {
		log.Warn().Str("mod", mod).Str("file", c.path).Err(err).Msg("corrupt, treating as empty")
		return []task.Task{}
	}
	if records == nil {
		records = []task.Task{}
	}
	return records
}

// write replaces the whole file through a temp file and rename, so a
// crash mid-write cannot leave a half-written collection behind.
func (c *Collection) write(records []task.Task) error {
	bytesArr, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.path, err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, bytesArr, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", c.path, err)
	}
	return nil
}

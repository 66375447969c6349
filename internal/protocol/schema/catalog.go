package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrDuplicateSchema = errors.New("schema: duplicate bank")
	ErrSchemaNotFound  = errors.New("schema: bank not found")
)

// Catalog indexes schemas by bank name and, when declared, by bank id.
// It is safe for concurrent lookups after loading.
type Catalog struct {
	mu     sync.RWMutex
	byName map[string]*Schema
	byID   map[int32]*Schema
}

func NewCatalog() *Catalog {
	return &Catalog{
		byName: make(map[string]*Schema),
		byID:   make(map[int32]*Schema),
	}
}

func (c *Catalog) Register(s *Schema) error {
	if s == nil {
		return errors.New("schema: nil schema")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byName[s.Name]; ok {
		return fmt.Errorf("%w: name %s", ErrDuplicateSchema, s.Name)
	}
	if s.BankID != 0 {
		if prev, ok := c.byID[s.BankID]; ok {
			return fmt.Errorf("%w: id %d used by %s and %s", ErrDuplicateSchema, s.BankID, prev.Name, s.Name)
		}
		c.byID[s.BankID] = s
	}
	c.byName[s.Name] = s
	return nil
}

func (c *Catalog) Lookup(name string) (*Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byName[name]
	return s, ok
}

func (c *Catalog) LookupID(id int32) (*Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	return s, ok
}

// List returns schemas sorted by bank name.
func (c *Catalog) List() []*Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Schema, 0, len(c.byName))
	for _, s := range c.byName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byName)
}

// LoadDir registers every .yaml, .yml and .toml definition in dir. Loading
// stops at the first invalid definition; see LoadDirAll to collect them all.
func (c *Catalog) LoadDir(dir string) error {
	paths, err := definitionFiles(dir)
	if err != nil {
		return err
	}
	for _, path := range paths {
		s, err := LoadFile(path)
		if err != nil {
			return err
		}
		if err := c.Register(s); err != nil {
			return err
		}
	}
	log.Debug().Str("dir", dir).Int("schemas", c.Len()).Msg("schema catalog loaded")
	return nil
}

// LoadDirAll loads every valid definition in dir and returns one error per
// rejected file, in path order.
func (c *Catalog) LoadDirAll(dir string) ([]error, error) {
	paths, err := definitionFiles(dir)
	if err != nil {
		return nil, err
	}
	var failures []error
	for _, path := range paths {
		s, err := LoadFile(path)
		if err == nil {
			err = c.Register(s)
		}
		if err != nil {
			failures = append(failures, err)
		}
	}
	return failures, nil
}

func definitionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("schema: read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := FormatOf(e.Name()); err != nil {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

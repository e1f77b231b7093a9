// Package templates remembers previously entered camera name/url pairs on the client.
// The cache is advisory and never checked against the live registry.
package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Template is a remembered camera entry.
type Template struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Cache is a url-deduplicated list of templates persisted to a JSON file.
type Cache struct {
	path      string
	mu        sync.Mutex
	templates []Template
}

// Load reads the cache at path. A missing file yields an empty cache.
func Load(path string) (*Cache, error) {
	c := &Cache{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template cache: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.templates); err != nil {
		return nil, fmt.Errorf("failed to parse template cache %s: %w", path, err)
	}
	return c, nil
}

// Path returns the backing file.
func (c *Cache) Path() string {
	return c.path
}

// Remember appends {name, url} unless the url is already known, and flushes on change.
func (c *Cache) Remember(name, url string) (bool, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if url == "" {
		return false, errors.New("template url is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.templates {
		if t.URL == url {
			return false, nil
		}
	}

	c.templates = append(c.templates, Template{Name: name, URL: url})
	if err := c.flushLocked(); err != nil {
		c.templates = c.templates[:len(c.templates)-1]
		return false, err
	}
	return true, nil
}

// List returns a copy of the templates in insertion order.
func (c *Cache) List() []Template {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// flushLocked writes to a temp file in the same directory and renames it over the target.
func (c *Cache) flushLocked() error {
	data, err := json.MarshalIndent(c.templates, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode template cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create template cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".templates-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write template cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write template cache: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace template cache: %w", err)
	}
	return nil
}

// Package library talks to the team token service: a catalog manifest
// decides which shared libraries are enabled, and a REST client
// activates published variables by key. A disabled library makes
// activation fail, which the classifier then reports as a missing or
// inactive binding rather than an error.
package library

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Entry is one shared library in the catalog.
type Entry struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
}

// Catalog is the enabled-libraries manifest. A nil catalog means no
// gating: every library is treated as enabled.
type Catalog struct {
	Libraries []Entry `yaml:"libraries"`
}

// LoadCatalog reads a manifest file.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var c Catalog
	if err := yaml.NewDecoder(f).Decode(&c); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

// SaveCatalog writes the manifest back out.
func SaveCatalog(path string, c *Catalog) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Enabled reports whether a library may be imported from.
func (c *Catalog) Enabled(name string) bool {
	if c == nil {
		return true
	}
	for _, e := range c.Libraries {
		if e.Name == name {
			return e.Enabled
		}
	}
	return false
}

// Names lists the cataloged libraries, sorted.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Libraries))
	for _, e := range c.Libraries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Package batch loads YAML documents describing batches of entries to add
// to a container, and provides the sample fixtures used by `blobpack app
// init`.
package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Application describes one application to add to an applications catalog.
type Application struct {
	Key          string   `yaml:"key"`
	Name         string   `yaml:"name,omitempty"`
	Path         string   `yaml:"path"`
	Version      string   `yaml:"version,omitempty"`
	Description  string   `yaml:"description,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty"`
}

// Binary describes one binary package to add to a binaries catalog.
type Binary struct {
	Key          string            `yaml:"key"`
	Source       string            `yaml:"source"`
	Provides     []string          `yaml:"provides,omitempty"`
	Version      string            `yaml:"version,omitempty"`
	Description  string            `yaml:"description,omitempty"`
	Env          map[string]string `yaml:"env,omitempty"`
	Dependencies []string          `yaml:"dependencies,omitempty"`
	Architecture string            `yaml:"architecture,omitempty"`
	OS           string            `yaml:"os,omitempty"`
}

// Document is a batch-configuration file. A document may carry
// applications, binaries, or both; builders read the section they care
// about.
type Document struct {
	Applications []Application `yaml:"applications,omitempty"`
	Binaries     []Binary      `yaml:"binaries,omitempty"`
}

// Load reads and parses a batch-configuration document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}

// Write serializes the document to path.
func (d *Document) Write(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Scaffold creates the source directories the document's applications
// point at, seeding each with a small placeholder file, so a freshly
// generated sample config builds out of the box. Existing directories are
// left alone.
func (d *Document) Scaffold(baseDir string) error {
	for _, app := range d.Applications {
		dir := filepath.Join(baseDir, filepath.FromSlash(app.Path))
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		readme := fmt.Sprintf("%s %s\n", app.Key, app.Version)
		if err := os.WriteFile(filepath.Join(dir, "README"), []byte(readme), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Sample returns a starter document with a few example applications,
// including one dependency edge, for users to edit.
func Sample() *Document {
	return &Document{
		Applications: []Application{
			{
				Key:     "webserver",
				Name:    "Web Server",
				Path:    "./apps/webserver",
				Version: "2.1.0",
			},
			{
				Key:          "api-gateway",
				Name:         "API Gateway",
				Path:         "./apps/api-gateway",
				Version:      "1.5.0",
				Dependencies: []string{"shared-lib"},
			},
			{
				Key:     "shared-lib",
				Name:    "Shared Library",
				Path:    "./apps/shared-lib",
				Version: "1.0.0",
			},
		},
	}
}

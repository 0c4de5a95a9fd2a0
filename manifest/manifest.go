// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package manifest reads and validates test-suite package manifests:
// the package identity, the dependency table, and the feature table
// that switches optional capabilities on declared dependencies.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/viper"
)

// Manifest is a parsed package manifest.
type Manifest struct {
	Package         Package
	Dependencies    map[string]Dependency
	DevDependencies map[string]Dependency
	Features        map[string][]string
}

// Package is the manifest's identity block.
type Package struct {
	Name        string
	Version     string
	Edition     string
	Authors     []string
	Description string
	Repository  string
	Homepage    string
	License     string
	// Publish defaults to true; test-suite manifests set it false to
	// keep the package out of any registry.
	Publish bool
}

// Dependency binds a logical package name to exactly one source:
// a registry version constraint, a git location pinned to a revision or
// branch, or a local path. The capability list enables optional
// features on the dependency unconditionally.
type Dependency struct {
	Version string
	// Registry names an alternate registry for the version constraint.
	Registry string

	Git    string
	Rev    string
	Branch string

	Path string

	Features []string
}

// FromRegistry reports whether the dependency resolves from a registry.
func (d Dependency) FromRegistry() bool { return d.Version != "" }

// FromGit reports whether the dependency resolves from a git source.
func (d Dependency) FromGit() bool { return d.Git != "" }

// FromPath reports whether the dependency resolves from a local path.
func (d Dependency) FromPath() bool { return d.Path != "" }

// ParseFile reads and parses the manifest at [path].
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read manifest: %w", err)
	}
	return Parse(data)
}

// Parse parses TOML manifest bytes. Parsing is purely structural;
// Validate checks the content.
func Parse(data []byte) (*Manifest, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("couldn't parse manifest: %w", err)
	}

	m := &Manifest{
		Package: Package{
			Name:        v.GetString("package.name"),
			Version:     v.GetString("package.version"),
			Edition:     v.GetString("package.edition"),
			Authors:     v.GetStringSlice("package.authors"),
			Description: v.GetString("package.description"),
			Repository:  v.GetString("package.repository"),
			Homepage:    v.GetString("package.homepage"),
			License:     v.GetString("package.license"),
			Publish:     true,
		},
		Dependencies:    make(map[string]Dependency),
		DevDependencies: make(map[string]Dependency),
		Features:        make(map[string][]string),
	}
	if v.IsSet("package.publish") {
		m.Package.Publish = v.GetBool("package.publish")
	}

	for name, raw := range v.GetStringMap("dependencies") {
		dep, err := decodeDependency(raw)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", name, err)
		}
		m.Dependencies[name] = dep
	}
	for name, raw := range v.GetStringMap("dev-dependencies") {
		dep, err := decodeDependency(raw)
		if err != nil {
			return nil, fmt.Errorf("dev-dependency %q: %w", name, err)
		}
		m.DevDependencies[name] = dep
	}
	for name, entries := range v.GetStringMapStringSlice("features") {
		m.Features[name] = entries
	}
	return m, nil
}

// decodeDependency accepts both manifest shorthands: a bare string is a
// registry version constraint, a table spells the source out.
func decodeDependency(raw interface{}) (Dependency, error) {
	switch value := raw.(type) {
	case string:
		return Dependency{Version: value}, nil
	case map[string]interface{}:
		dep := Dependency{}
		for key, field := range value {
			switch key {
			case "version":
				s, err := stringField(key, field)
				if err != nil {
					return Dependency{}, err
				}
				dep.Version = s
			case "registry":
				s, err := stringField(key, field)
				if err != nil {
					return Dependency{}, err
				}
				dep.Registry = s
			case "git":
				s, err := stringField(key, field)
				if err != nil {
					return Dependency{}, err
				}
				dep.Git = s
			case "rev":
				s, err := stringField(key, field)
				if err != nil {
					return Dependency{}, err
				}
				dep.Rev = s
			case "branch":
				s, err := stringField(key, field)
				if err != nil {
					return Dependency{}, err
				}
				dep.Branch = s
			case "path":
				s, err := stringField(key, field)
				if err != nil {
					return Dependency{}, err
				}
				dep.Path = s
			case "features":
				entries, err := stringSliceField(key, field)
				if err != nil {
					return Dependency{}, err
				}
				dep.Features = entries
			default:
				return Dependency{}, fmt.Errorf("unknown field %q", key)
			}
		}
		return dep, nil
	default:
		return Dependency{}, fmt.Errorf("expected version string or table, got %T", raw)
	}
}

func stringField(key string, field interface{}) (string, error) {
	s, ok := field.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string", key)
	}
	return s, nil
}

func stringSliceField(key string, field interface{}) ([]string, error) {
	raw, ok := field.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field %q must be a list of strings", key)
	}
	entries := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("field %q must be a list of strings", key)
		}
		entries = append(entries, s)
	}
	return entries, nil
}

// Resolve checks every path dependency against [dir], the directory
// holding the manifest, and returns absolute paths by dependency name.
// Dev-dependencies resolve under the same rules.
func (m *Manifest) Resolve(dir string) (map[string]string, error) {
	resolved := make(map[string]string)
	for _, name := range m.sortedDependencyNames() {
		if err := resolvePath(dir, name, m.Dependencies[name], resolved); err != nil {
			return nil, fmt.Errorf("dependency %q: %w", name, err)
		}
	}
	for _, name := range sortedNames(m.DevDependencies) {
		if err := resolvePath(dir, name, m.DevDependencies[name], resolved); err != nil {
			return nil, fmt.Errorf("dev-dependency %q: %w", name, err)
		}
	}
	return resolved, nil
}

func resolvePath(dir, name string, dep Dependency, resolved map[string]string) error {
	if !dep.FromPath() {
		return nil
	}
	full := dep.Path
	if !filepath.IsAbs(full) {
		full = filepath.Join(dir, dep.Path)
	}
	info, err := os.Stat(full)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", full)
	}
	resolved[name] = full
	return nil
}

func (m *Manifest) sortedDependencyNames() []string {
	return sortedNames(m.Dependencies)
}

func sortedNames(deps map[string]Dependency) []string {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manifest) sortedFeatureNames() []string {
	names := make([]string, 0, len(m.Features))
	for name := range m.Features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

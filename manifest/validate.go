// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	ErrMissingName      = errors.New("package name is empty")
	ErrNoSource         = errors.New("dependency declares no source")
	ErrAmbiguousSource  = errors.New("dependency declares more than one source")
	ErrMissingRevision  = errors.New("git dependency is not pinned to a revision or branch")
	ErrBadRevision      = errors.New("revision is not a 40-character hex id")
	ErrStrayGitField    = errors.New("rev or branch set without git")
	ErrStrayRegistry    = errors.New("registry set without a version constraint")
	ErrUnknownDep       = errors.New("feature references an undeclared dependency")
	ErrUnknownFeature   = errors.New("feature references an undeclared feature")
	ErrEmptyCapability  = errors.New("feature entry has an empty capability")

	revPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// validationErrors joins every violation Validate found. errors.Is
// matches when any contained violation matches.
type validationErrors []error

func (errs validationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (errs validationErrors) Is(target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Validate checks the structural rules a manifest must satisfy: the
// package identity is complete, every dependency resolves from exactly
// one of a registry version, a pinned git source, or a local path, and
// every feature entry names either a declared dependency's capability
// or another declared feature. All violations are collected and
// returned together.
func (m *Manifest) Validate() error {
	var errs validationErrors
	if m.Package.Name == "" {
		errs = append(errs, ErrMissingName)
	}
	if _, err := semver.NewVersion(m.Package.Version); err != nil {
		errs = append(errs, fmt.Errorf("package version %q: %w", m.Package.Version, err))
	}

	for _, name := range m.sortedDependencyNames() {
		if err := validateDependency(m.Dependencies[name]); err != nil {
			errs = append(errs, fmt.Errorf("dependency %q: %w", name, err))
		}
	}
	for _, name := range sortedNames(m.DevDependencies) {
		if err := validateDependency(m.DevDependencies[name]); err != nil {
			errs = append(errs, fmt.Errorf("dev-dependency %q: %w", name, err))
		}
	}

	for _, feature := range m.sortedFeatureNames() {
		for _, entry := range m.Features[feature] {
			if err := m.validateFeatureEntry(entry); err != nil {
				errs = append(errs, fmt.Errorf("feature %q: %w", feature, err))
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateDependency(dep Dependency) error {
	sources := 0
	if dep.FromRegistry() {
		sources++
	}
	if dep.FromGit() {
		sources++
	}
	if dep.FromPath() {
		sources++
	}
	switch {
	case sources == 0:
		return ErrNoSource
	case sources > 1:
		return ErrAmbiguousSource
	}

	if !dep.FromGit() && (dep.Rev != "" || dep.Branch != "") {
		return ErrStrayGitField
	}
	if !dep.FromRegistry() && dep.Registry != "" {
		return ErrStrayRegistry
	}

	switch {
	case dep.FromRegistry():
		if _, err := semver.NewConstraint(dep.Version); err != nil {
			return fmt.Errorf("version constraint %q: %w", dep.Version, err)
		}
	case dep.FromGit():
		if dep.Rev == "" && dep.Branch == "" {
			return ErrMissingRevision
		}
		if dep.Rev != "" && !revPattern.MatchString(dep.Rev) {
			return fmt.Errorf("%w: %q", ErrBadRevision, dep.Rev)
		}
	}

	for _, capability := range dep.Features {
		if capability == "" {
			return ErrEmptyCapability
		}
	}
	return nil
}

// validateFeatureEntry checks one feature-table entry. "dep/capability"
// enables a capability on a declared dependency; a bare name pulls in
// another feature from the same table.
func (m *Manifest) validateFeatureEntry(entry string) error {
	depName, capability, isCapability := splitCapability(entry)
	if !isCapability {
		if _, ok := m.Features[entry]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFeature, entry)
		}
		return nil
	}
	if capability == "" || depName == "" {
		return fmt.Errorf("%w: %q", ErrEmptyCapability, entry)
	}
	if _, ok := m.Dependencies[depName]; !ok {
		if _, ok := m.DevDependencies[depName]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDep, depName)
		}
	}
	return nil
}

func splitCapability(entry string) (dep, capability string, ok bool) {
	i := strings.Index(entry, "/")
	if i < 0 {
		return "", "", false
	}
	return entry[:i], entry[i+1:], true
}

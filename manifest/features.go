// Copyright (C) 2023-2024, Slate Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package manifest

import "sort"

// DefaultFeature is enabled implicitly whenever the manifest declares
// it.
const DefaultFeature = "default"

// EnabledFeatures expands [requested] feature names, plus the default
// feature when one is declared, into the full per-dependency capability
// sets they switch on. Capability lists declared inline on a dependency
// are always included. Unknown requested names are ignored; Validate
// catches them ahead of time.
func (m *Manifest) EnabledFeatures(requested ...string) map[string][]string {
	capabilities := make(map[string]map[string]struct{})
	enable := func(dep, capability string) {
		if _, ok := capabilities[dep]; !ok {
			capabilities[dep] = make(map[string]struct{})
		}
		capabilities[dep][capability] = struct{}{}
	}

	for name, dep := range m.Dependencies {
		for _, capability := range dep.Features {
			enable(name, capability)
		}
	}
	for name, dep := range m.DevDependencies {
		for _, capability := range dep.Features {
			enable(name, capability)
		}
	}

	pending := append([]string{}, requested...)
	if _, ok := m.Features[DefaultFeature]; ok {
		pending = append(pending, DefaultFeature)
	}
	visited := make(map[string]struct{})
	for len(pending) > 0 {
		feature := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, ok := visited[feature]; ok {
			continue
		}
		visited[feature] = struct{}{}

		for _, entry := range m.Features[feature] {
			if dep, capability, ok := splitCapability(entry); ok {
				enable(dep, capability)
				continue
			}
			pending = append(pending, entry)
		}
	}

	result := make(map[string][]string, len(capabilities))
	for dep, set := range capabilities {
		list := make([]string, 0, len(set))
		for capability := range set {
			list = append(list, capability)
		}
		sort.Strings(list)
		result[dep] = list
	}
	return result
}

// CapabilityEnabled reports whether [capability] is switched on for
// [dep] once [requested] features (plus the default) are expanded.
func (m *Manifest) CapabilityEnabled(dep, capability string, requested ...string) bool {
	for _, enabled := range m.EnabledFeatures(requested...)[dep] {
		if enabled == capability {
			return true
		}
	}
	return false
}

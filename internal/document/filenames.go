package document

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// The candidate table is process-global configuration, loaded once at
// startup before any resolver runs. overrideMu only guards against a
// test loading overrides while another goroutine reads the table.
var (
	overrideMu sync.RWMutex
	overrides  map[Type][]string
)

func candidateTable() map[Type][]string {
	overrideMu.RLock()
	defer overrideMu.RUnlock()

	if overrides == nil {
		return defaultCandidates
	}

	return overrides
}

// LoadFilenameOverrides reads a YAML file mapping document type to an
// ordered filename list and replaces the built-in candidates for the
// types it names. Types not mentioned keep their defaults.
//
// Example:
//
//	playbook:
//	  - AGENT_PLAYBOOK.md
//	  - PLAYBOOK.md
func LoadFilenameOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading filename overrides: %w", err)
	}

	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing filename overrides: %w", err)
	}

	merged := make(map[Type][]string, len(defaultCandidates))
	for t, names := range defaultCandidates {
		merged[t] = names
	}

	for key, names := range raw {
		t, err := ParseType(key)
		if err != nil {
			return fmt.Errorf("filename overrides: %w", err)
		}

		if len(names) == 0 {
			return fmt.Errorf("filename overrides: empty candidate list for %q", key)
		}

		for _, name := range names {
			if name == "" {
				return fmt.Errorf("filename overrides: empty filename for %q", key)
			}
		}

		merged[t] = names
	}

	overrideMu.Lock()
	overrides = merged
	overrideMu.Unlock()

	return nil
}

// ResetFilenameOverrides restores the built-in candidate table.
// Intended for tests.
func ResetFilenameOverrides() {
	overrideMu.Lock()
	overrides = nil
	overrideMu.Unlock()
}

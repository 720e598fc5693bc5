// Package catalog holds the static registry of known external services and the
// option-resolution logic that turns catalog entries into selectable key names.
package catalog

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"agent-vault/models"
)

// keyNamePattern is the canonical key-name form: uppercase letters, digits, and
// underscores only.
var keyNamePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// ValidKeyName reports whether name is in canonical key-name form.
func ValidKeyName(name string) bool {
	return keyNamePattern.MatchString(name)
}

// Catalog is an ordered, read-only registry of service configurations. It does
// not change within a session.
type Catalog struct {
	Services []models.ServiceConfig `json:"services" yaml:"services"`
}

// Parse decodes a YAML catalog document and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Validate checks that every service declares at least one
// key slot, every slot name is in canonical form, and no slot name is claimed
// by two services.
func (c *Catalog) Validate() error {
	seen := make(map[string]string)
	for _, svc := range c.Services {
		if svc.Label == "" {
			return fmt.Errorf("catalog service is missing a label")
		}
		if len(svc.Keys) == 0 {
			return fmt.Errorf("service %q declares no key slots", svc.Label)
		}
		for _, slot := range svc.Keys {
			if !ValidKeyName(slot.Name) {
				return fmt.Errorf("service %q has invalid key name %q", svc.Label, slot.Name)
			}
			if owner, ok := seen[slot.Name]; ok {
				return fmt.Errorf("key name %q claimed by both %q and %q", slot.Name, owner, svc.Label)
			}
			seen[slot.Name] = svc.Label
		}
	}
	return nil
}

// Flatten produces one option per (service, key slot) pair, preserving catalog
// order then slot order. Pure; safe to recompute on every render.
func (c *Catalog) Flatten() []models.FlatKeyOption {
	var options []models.FlatKeyOption
	for _, svc := range c.Services {
		for _, slot := range svc.Keys {
			options = append(options, models.FlatKeyOption{
				KeyName:      slot.Name,
				Label:        fmt.Sprintf("%s (%s: %s)", slot.Name, svc.Label, slot.Label),
				ServiceLabel: svc.Label,
				Description:  svc.Description,
				URL:          svc.URL,
			})
		}
	}
	return options
}

// Describe returns the label of the first service owning a key slot named
// keyName. Custom and unknown keys are valid and simply have no service label,
// reported by the false return.
func (c *Catalog) Describe(keyName string) (string, bool) {
	for _, svc := range c.Services {
		for _, slot := range svc.Keys {
			if slot.Name == keyName {
				return svc.Label, true
			}
		}
	}
	return "", false
}

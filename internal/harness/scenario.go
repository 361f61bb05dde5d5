// Package harness runs end-to-end protocol scenarios: a YAML file
// seeds both datastores and the automation stub, names a request
// payload, and the resulting response is compared byte-for-byte
// against a golden file.
package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one protocol conformance case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Request is the raw JSON payload handed to the handler, exactly
	// as a caller would write it to stdin.
	Request string `yaml:"request"`

	// Conversations seed the messages datastore. Omit for an absent
	// store, which exercises the degradation paths.
	Conversations []ConversationSeed `yaml:"conversations,omitempty"`

	// Contacts seed the address book.
	Contacts []ContactSeed `yaml:"contacts,omitempty"`

	// FailScripts lists automation script kinds the stub runner
	// rejects: send-to-chat-id, send-to-chat-named,
	// send-to-chat-containing, send-to-participant,
	// create-chat-and-send.
	FailScripts []string `yaml:"fail_scripts,omitempty"`
}

// ConversationSeed is one thread in the seeded messages store.
type ConversationSeed struct {
	GUID        string   `yaml:"guid"`
	Identifier  string   `yaml:"identifier"`
	DisplayName string   `yaml:"display_name,omitempty"`
	Handles     []string `yaml:"handles"`
}

// ContactSeed is one person in the seeded address book.
type ContactSeed struct {
	First  string   `yaml:"first"`
	Last   string   `yaml:"last,omitempty"`
	Phones []string `yaml:"phones,omitempty"`
	Emails []string `yaml:"emails,omitempty"`
}

// LoadScenario reads and validates a single scenario file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if s.Request == "" {
		return nil, fmt.Errorf("scenario %s: request is required", path)
	}
	return &s, nil
}

// LoadScenarios reads every scenario under dir, sorted by file name so
// test order is stable.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

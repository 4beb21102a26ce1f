package negotiator

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Turn is one automated message, optionally followed by a wait for the
// manual side's reply
type Turn struct {
	Say         string `yaml:"say"`
	ExpectReply bool   `yaml:"expect_reply"`
}

// Script is an ordered list of turns
type Script struct {
	Name  string `yaml:"name,omitempty"`
	Turns []Turn `yaml:"turns"`
}

// Validate rejects scripts with no turns or blank lines
func (s *Script) Validate() error {
	if len(s.Turns) == 0 {
		return fmt.Errorf("script has no turns")
	}
	for i, turn := range s.Turns {
		if strings.TrimSpace(turn.Say) == "" {
			return fmt.Errorf("turn %d: say must not be empty", i+1)
		}
	}
	return nil
}

// ParseScript decodes and validates a YAML script
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &s, nil
}

// LoadScript reads a YAML script from path
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// DefaultScript is the billing dispute used when no script is given
func DefaultScript() *Script {
	return &Script{
		Name: "duplicate-charge",
		Turns: []Turn{
			{Say: "Hi, I was charged twice for my order #112-4471 and I'd like the duplicate refunded.", ExpectReply: true},
			{Say: "Both charges are on my statement dated the 3rd. Can you confirm you see them?", ExpectReply: true},
			{Say: "Per your refund policy, duplicate charges are refunded in full. When will I see the refund?", ExpectReply: true},
			{Say: "Thank you for your help.", ExpectReply: false},
		},
	}
}

package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Pack is a house-style rules file given with --rules.
type Pack struct {
	Disable []string   `json:"disable,omitempty" yaml:"disable,omitempty"`
	Rules   []PackRule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// PackRule is a literal rule defined in a pack.
type PackRule struct {
	ID          string `json:"id" yaml:"id"`
	Pattern     string `json:"pattern" yaml:"pattern"`
	Flags       string `json:"flags,omitempty" yaml:"flags,omitempty"`
	Replacement string `json:"replacement" yaml:"replacement"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Before      string `json:"before,omitempty" yaml:"before,omitempty"`
}

// DefaultPackReason is used for pack rules that give no reason.
const DefaultPackReason = "house style"

// LoadPack reads a pack from disk. Files ending in .json are parsed as JSON,
// anything else as YAML. Returns nil Pack and nil error if path is empty.
func LoadPack(path string) (*Pack, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules pack: %w", err)
	}
	var p Pack
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &p)
	} else {
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing rules pack: %w", err)
	}
	for i, r := range p.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rules pack: rule %d has no id", i+1)
		}
		if r.Pattern == "" {
			return nil, fmt.Errorf("rules pack: rule %s has no pattern", r.ID)
		}
	}
	return &p, nil
}

func (pr PackRule) compile() (Rule, error) {
	flags, err := ParseFlags(pr.Flags)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", pr.ID, err)
	}
	reason := pr.Reason
	if reason == "" {
		reason = DefaultPackReason
	}
	return NewRule(pr.ID, GroupPack, pr.Pattern, flags, Literal(pr.Replacement), Literal(reason))
}

// Package risk classifies action descriptions by how destructive they
// could be. The pattern vocabulary is a configurable policy table; the
// priority order (critical > high > medium > low) is the contract.
package risk

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/example/maestro/pkg/models"
)

// defaultCriticalPatterns match actions that can destroy data or escalate
// privileges irreversibly.
var defaultCriticalPatterns = []string{
	`rm\s+(-\w*\s+)*-\w*r\w*f`,
	`sudo\s+rm`,
	`mkfs`,
	`dd\s+if=`,
	`drop\s+(database|table)`,
	`truncate\s+table`,
	`:\(\)\s*\{.*\};\s*:`,
	`chmod\s+(-\w+\s+)*777\s+/`,
	`shutdown`,
	"format\\s+[a-z]:",
}

// defaultHighPatterns match actions that rewrite shared state or history.
var defaultHighPatterns = []string{
	`push\s+(-\w+\s+)*--force`,
	`push\s+-f\b`,
	`reset\s+--hard`,
	`delete\s+(branch|remote|bucket|volume)`,
	`kubectl\s+delete`,
	`terraform\s+(destroy|apply)`,
	`docker\s+(rm|rmi|system\s+prune)`,
	`sudo\s+`,
	`chown\s+`,
	`systemctl\s+(stop|disable|mask)`,
	`kill\s+-9`,
	`deploy`,
	`rotate.*(secret|key|credential)`,
}

// defaultMediumPatterns match routine but state-changing actions.
var defaultMediumPatterns = []string{
	`git\s+(commit|merge|rebase|cherry-pick|tag)`,
	`git\s+push\b`,
	`npm\s+(install|publish)`,
	`pip\s+install`,
	`go\s+install`,
	`apt(-get)?\s+install`,
	`write|overwrite|modify`,
	`mv\s+`,
	`chmod\s+`,
	`create\s+(table|index|user)`,
	`insert\s+into`,
	`update\s+.*\s+set\s+`,
	`curl\s+.*(-X\s*)?(post|put|delete)`,
	`restart`,
}

// PolicyFile is the YAML shape for overriding the built-in pattern tables.
type PolicyFile struct {
	Critical []string `yaml:"critical"`
	High     []string `yaml:"high"`
	Medium   []string `yaml:"medium"`
}

// Policy classifies descriptions against ordered pattern tiers. Patterns
// are case-insensitive regular expressions; the first matching tier wins,
// checked critical first, then high, then medium. No match means low.
type Policy struct {
	critical []*regexp.Regexp
	high     []*regexp.Regexp
	medium   []*regexp.Regexp
}

// DefaultPolicy returns the built-in destructive-command vocabulary.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(defaultCriticalPatterns, defaultHighPatterns, defaultMediumPatterns)
	if err != nil {
		// The defaults are compile-time constants; a bad pattern is a bug.
		panic(fmt.Sprintf("risk: invalid default pattern: %v", err))
	}
	return p
}

// NewPolicy compiles a policy from raw pattern strings.
func NewPolicy(critical, high, medium []string) (*Policy, error) {
	p := &Policy{}
	var err error
	if p.critical, err = compileAll(critical); err != nil {
		return nil, fmt.Errorf("critical patterns: %w", err)
	}
	if p.high, err = compileAll(high); err != nil {
		return nil, fmt.Errorf("high patterns: %w", err)
	}
	if p.medium, err = compileAll(medium); err != nil {
		return nil, fmt.Errorf("medium patterns: %w", err)
	}
	return p, nil
}

// LoadPolicy reads a YAML policy table from disk. Tiers omitted from the
// file keep the built-in defaults.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read risk policy: %w", err)
	}

	var f PolicyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse risk policy: %w", err)
	}

	critical := f.Critical
	if critical == nil {
		critical = defaultCriticalPatterns
	}
	high := f.High
	if high == nil {
		high = defaultHighPatterns
	}
	medium := f.Medium
	if medium == nil {
		medium = defaultMediumPatterns
	}

	return NewPolicy(critical, high, medium)
}

// Detect classifies a description. Tiers are checked in severity order and
// the first match wins; unmatched descriptions are low risk.
func (p *Policy) Detect(description string) models.Risk {
	for _, re := range p.critical {
		if re.MatchString(description) {
			return models.RiskCritical
		}
	}
	for _, re := range p.high {
		if re.MatchString(description) {
			return models.RiskHigh
		}
	}
	for _, re := range p.medium {
		if re.MatchString(description) {
			return models.RiskMedium
		}
	}
	return models.RiskLow
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pat := range patterns {
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pat, err)
		}
		out = append(out, re)
	}
	return out, nil
}

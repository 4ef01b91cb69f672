package router

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/abhisek/tutorflow/internal/tools"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// KeywordRule maps phrase patterns to a tool. A message matching any
// Exclude pattern skips the rule.
type KeywordRule struct {
	Tool       string   `yaml:"tool"`
	Confidence float64  `yaml:"confidence"`
	Reason     string   `yaml:"reason"`
	Patterns   []string `yaml:"patterns"`
	Exclude    []string `yaml:"exclude"`
}

type keywordRules struct {
	Rules []KeywordRule `yaml:"rules"`
}

type compiledPattern struct {
	raw   string
	regex *regexp.Regexp
}

type compiledRule struct {
	KeywordRule
	patterns []compiledPattern
	exclude  []compiledPattern
}

// KeywordClassifier routes by deterministic phrase rules. It needs no
// network and serves offline mode and tests.
type KeywordClassifier struct {
	rules []compiledRule
}

// NewKeywordClassifier builds a classifier from the embedded rules.
func NewKeywordClassifier() *KeywordClassifier {
	c, err := ParseKeywordRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("router: embedded rules: %v", err))
	}
	return c
}

// ParseKeywordRules builds a classifier from YAML rules. Every rule must
// name a tool and carry at least one pattern.
func ParseKeywordRules(data []byte) (*KeywordClassifier, error) {
	var doc keywordRules
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	c := &KeywordClassifier{}
	for i, r := range doc.Rules {
		if tools.Parse(r.Tool) == tools.NoTool {
			return nil, fmt.Errorf("rule %d: unknown tool %q", i, r.Tool)
		}
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("rule %d (%s): no patterns", i, r.Tool)
		}
		cr := compiledRule{KeywordRule: r}
		for _, p := range r.Patterns {
			cp, err := compilePattern(p)
			if err != nil {
				return nil, fmt.Errorf("rule %d (%s): %w", i, r.Tool, err)
			}
			cr.patterns = append(cr.patterns, cp)
		}
		for _, p := range r.Exclude {
			cp, err := compilePattern(p)
			if err != nil {
				return nil, fmt.Errorf("rule %d (%s): exclude: %w", i, r.Tool, err)
			}
			cr.exclude = append(cr.exclude, cp)
		}
		c.rules = append(c.rules, cr)
	}
	return c, nil
}

func compilePattern(p string) (compiledPattern, error) {
	p = strings.ToLower(p)
	if !strings.Contains(p, ".*") && !strings.Contains(p, `\b`) {
		return compiledPattern{raw: p}, nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return compiledPattern{}, fmt.Errorf("pattern %q: %w", p, err)
	}
	return compiledPattern{raw: p, regex: re}, nil
}

func (cp compiledPattern) match(s string) bool {
	if cp.regex != nil {
		return cp.regex.MatchString(s)
	}
	return strings.Contains(s, cp.raw)
}

func (r compiledRule) excluded(s string) bool {
	for _, p := range r.exclude {
		if p.match(s) {
			return true
		}
	}
	return false
}

func (c *KeywordClassifier) Name() string { return SourceKeyword }

// Classify returns the first matching rule's tool, or NoTool with full
// confidence when nothing matches.
func (c *KeywordClassifier) Classify(ctx context.Context, message string) (*Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lower := strings.ToLower(strings.ReplaceAll(message, "’", "'"))
	for _, r := range c.rules {
		if r.excluded(lower) {
			continue
		}
		for _, p := range r.patterns {
			if p.match(lower) {
				return &Classification{
					Label:      r.Tool,
					Confidence: r.Confidence,
					Reasoning:  fmt.Sprintf("%s (matched %q)", r.Reason, p.raw),
				}, nil
			}
		}
	}

	return &Classification{
		Label:      tools.NoTool.String(),
		Confidence: 1,
		Reasoning:  "no study-tool phrase matched",
	}, nil
}

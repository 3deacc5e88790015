// internal/qualification/policy.go
package qualification

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

// KeywordCategory adds Weight to the score for every keyword found in a message.
type KeywordCategory struct {
	Name     string   `yaml:"name"`
	Weight   int      `yaml:"weight"`
	Keywords []string `yaml:"keywords"`
}

type BudgetBand struct {
	Below *int `yaml:"below"`
	Delta int  `yaml:"delta"`
}

type TeamSizeBand struct {
	AtLeast int `yaml:"at_least"`
	Delta   int `yaml:"delta"`
}

type TimelineBucket struct {
	Pattern string `yaml:"pattern"`
	Delta   int    `yaml:"delta"`

	re *regexp.Regexp
}

type ScoreBounds struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

type TagBands struct {
	NotRelevantMax int `yaml:"not_relevant_max"`
	WeakBelow      int `yaml:"weak_below"`
	HotBelow       int `yaml:"hot_below"`
}

// Policy holds every table the deterministic engine scores with.
// It is read-only once loaded and safe to share across goroutines.
type Policy struct {
	Version           string            `yaml:"version"`
	CalendlyLink      string            `yaml:"calendly_link"`
	Bounds            ScoreBounds       `yaml:"score_bounds"`
	Tags              TagBands          `yaml:"tag_bands"`
	KeywordCategories []KeywordCategory `yaml:"keyword_categories"`
	NoBudgetPhrases   []string          `yaml:"no_budget_phrases"`
	NoBudgetDelta     int               `yaml:"no_budget_delta"`
	BudgetBands       []BudgetBand      `yaml:"budget_bands"`
	TeamSizeBands     []TeamSizeBand    `yaml:"team_size_bands"`
	TimelineBuckets   []TimelineBucket  `yaml:"timeline_buckets"`
}

// DefaultPolicy returns the embedded policy. It panics only if the embedded
// file is broken, which the package tests guard against.
func DefaultPolicy() *Policy {
	p, err := ParsePolicy(defaultPolicyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded qualification policy is invalid: %v", err))
	}
	return p
}

// LoadPolicy reads a policy file. An empty path yields the embedded default.
func LoadPolicy(path string) (*Policy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Policy) compile() error {
	for i := range p.TimelineBuckets {
		re, err := regexp.Compile(p.TimelineBuckets[i].Pattern)
		if err != nil {
			return fmt.Errorf("timeline bucket %d: %w", i, err)
		}
		p.TimelineBuckets[i].re = re
	}
	for i := range p.KeywordCategories {
		for j, kw := range p.KeywordCategories[i].Keywords {
			p.KeywordCategories[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	for i, phrase := range p.NoBudgetPhrases {
		p.NoBudgetPhrases[i] = strings.ToLower(strings.TrimSpace(phrase))
	}
	return nil
}

// Validate checks the tables for ordering mistakes that would make scoring
// ambiguous.
func (p *Policy) Validate() error {
	if p.Bounds.Min >= p.Bounds.Max {
		return fmt.Errorf("score_bounds: min %d must be below max %d", p.Bounds.Min, p.Bounds.Max)
	}
	if !(p.Tags.NotRelevantMax < p.Tags.WeakBelow && p.Tags.WeakBelow < p.Tags.HotBelow) {
		return fmt.Errorf("tag_bands must be strictly increasing")
	}
	if len(p.KeywordCategories) == 0 {
		return fmt.Errorf("keyword_categories is empty")
	}
	for _, c := range p.KeywordCategories {
		if c.Name == "" {
			return fmt.Errorf("keyword category without name")
		}
		for _, kw := range c.Keywords {
			if kw == "" {
				return fmt.Errorf("keyword category %s has an empty keyword", c.Name)
			}
		}
	}
	if len(p.BudgetBands) == 0 {
		return fmt.Errorf("budget_bands is empty")
	}
	prev := -1 << 62
	for i, b := range p.BudgetBands {
		if b.Below == nil {
			if i != len(p.BudgetBands)-1 {
				return fmt.Errorf("budget band %d: only the last band may omit below", i)
			}
			continue
		}
		if *b.Below <= prev {
			return fmt.Errorf("budget band %d: below must increase", i)
		}
		prev = *b.Below
	}
	for i := 1; i < len(p.TeamSizeBands); i++ {
		if p.TeamSizeBands[i].AtLeast >= p.TeamSizeBands[i-1].AtLeast {
			return fmt.Errorf("team size band %d: at_least must decrease", i)
		}
	}
	for i, b := range p.TimelineBuckets {
		if b.re == nil {
			return fmt.Errorf("timeline bucket %d not compiled", i)
		}
	}
	if p.CalendlyLink == "" {
		return fmt.Errorf("calendly_link is required")
	}
	return nil
}

// WithCalendlyLink returns a copy using a different booking link.
func (p *Policy) WithCalendlyLink(link string) *Policy {
	if link == "" {
		return p
	}
	cp := *p
	cp.CalendlyLink = link
	return &cp
}

// Package eval runs YAML question suites against the pipeline and reports
// which expectations held.
package eval

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/Veraticus/local-guide/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed suites/*.yaml
var builtin embed.FS

// ErrInvalidSuite is returned for suites that fail validation.
var ErrInvalidSuite = errors.New("invalid suite")

// Expectation is the outcome a scenario requires.
type Expectation string

// Expectations.
const (
	ExpectAnswer  Expectation = "answer"
	ExpectRefusal Expectation = "refusal"
)

// PhraseSet holds acceptable refusal phrase numbers. In YAML it is either a
// single number or a list.
type PhraseSet []int

// UnmarshalYAML accepts `phrase: 1` as well as `phrase: [2, 3]`.
func (p *PhraseSet) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		n, err := strconv.Atoi(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: phrase must be a number: %w", value.Line, err)
		}
		*p = PhraseSet{n}
		return nil
	case yaml.SequenceNode:
		var list []int
		if err := value.Decode(&list); err != nil {
			return err
		}
		*p = list
		return nil
	default:
		return fmt.Errorf("line %d: phrase must be a number or a list of numbers", value.Line)
	}
}

// Allows reports whether text is one of the listed phrases. An empty set
// allows any refusal phrase.
func (p PhraseSet) Allows(text string) bool {
	if len(p) == 0 {
		return model.IsRefusalPhrase(text)
	}
	for _, n := range p {
		if phrase, ok := model.RefusalPhraseByNumber(n); ok && string(phrase) == text {
			return true
		}
	}
	return false
}

// Scenario is one question with its expected outcome.
type Scenario struct {
	Name     string              `yaml:"name"`
	City     model.City          `yaml:"city"`
	Prompt   string              `yaml:"prompt"`
	Expect   Expectation         `yaml:"expect"`
	Reason   model.RefusalReason `yaml:"reason,omitempty"`
	Phrase   PhraseSet           `yaml:"phrase,omitempty"`
	Contains []string            `yaml:"contains,omitempty"`
}

// Suite is a named list of scenarios.
type Suite struct {
	Name      string     `yaml:"name"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// ParseSuite decodes and validates a suite.
func ParseSuite(data []byte) (Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Suite{}, fmt.Errorf("%w: %w", ErrInvalidSuite, err)
	}
	for i := range s.Scenarios {
		s.Scenarios[i].City = model.NormalizeCity(string(s.Scenarios[i].City))
		if s.Scenarios[i].Name == "" {
			s.Scenarios[i].Name = fmt.Sprintf("scenario %d", i+1)
		}
	}
	if err := s.Validate(); err != nil {
		return Suite{}, err
	}
	return s, nil
}

// LoadSuite reads a suite from path.
func LoadSuite(path string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("failed to read suite %s: %w", path, err)
	}
	s, err := ParseSuite(data)
	if err != nil {
		return Suite{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// DefaultSuite returns the built-in suite covering the stock Madurai and
// Dindigul knowledge files.
func DefaultSuite() (Suite, error) {
	data, err := builtin.ReadFile("suites/default.yaml")
	if err != nil {
		return Suite{}, err
	}
	return ParseSuite(data)
}

// Validate checks every scenario. Empty prompts are allowed; they exercise
// the empty-input refusal.
func (s Suite) Validate() error {
	if len(s.Scenarios) == 0 {
		return fmt.Errorf("%w: no scenarios", ErrInvalidSuite)
	}
	for _, sc := range s.Scenarios {
		if sc.City == "" {
			return fmt.Errorf("%w: %s: city is required", ErrInvalidSuite, sc.Name)
		}
		switch sc.Expect {
		case ExpectAnswer:
			if len(sc.Phrase) > 0 || sc.Reason != model.ReasonNone {
				return fmt.Errorf("%w: %s: phrase and reason only apply to refusals", ErrInvalidSuite, sc.Name)
			}
		case ExpectRefusal:
			for _, n := range sc.Phrase {
				if _, ok := model.RefusalPhraseByNumber(n); !ok {
					return fmt.Errorf("%w: %s: phrase must be 1, 2 or 3, got %d", ErrInvalidSuite, sc.Name, n)
				}
			}
		default:
			return fmt.Errorf("%w: %s: expect must be %q or %q, got %q",
				ErrInvalidSuite, sc.Name, ExpectAnswer, ExpectRefusal, sc.Expect)
		}
	}
	return nil
}

// Package script implements a ModelGateway that replays a YAML script, for
// demos, offline use and end-to-end tests without a model.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ResultPlaceholder in a reply is replaced by the content of the latest tool result.
const ResultPlaceholder = "${result}"

// Script is the YAML document driving a Gateway.
//
//	rules:
//	  - match: "(?i)invoice"
//	    steps:
//	      - calls: [{name: search_mail, arguments: {query: invoice}}]
//	      - reply: "Found: ${result}"
//	fallback: "Sorry, I can't help with that."
//	completions:
//	  - match: "(?i)summar"
//	    reply: "Two invoices are due."
type Script struct {
	Rules       []Rule       `yaml:"rules"`
	Fallback    string       `yaml:"fallback"`
	Completions []Completion `yaml:"completions"`

	compiled   []*regexp.Regexp
	completion []*regexp.Regexp
}

// Rule answers user messages matching Match with Steps, one per agent step.
type Rule struct {
	Match string `yaml:"match"`
	Steps []Step `yaml:"steps"`
}

// Step is one scripted assistant message. Exactly one field is set.
type Step struct {
	Reply string                   `yaml:"reply,omitempty"`
	Calls []domain.ToolCallRequest `yaml:"calls,omitempty"`
	Error string                   `yaml:"error,omitempty"`
}

// Completion answers free-form completion prompts matching Match.
type Completion struct {
	Match string `yaml:"match"`
	Reply string `yaml:"reply"`
}

// Parse decodes and compiles a script.
func Parse(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding script: %w", err)
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return Parse(data)
}

func (s *Script) compile() error {
	s.compiled = make([]*regexp.Regexp, len(s.Rules))
	for i, r := range s.Rules {
		re, err := regexp.Compile(r.Match)
		if err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		s.compiled[i] = re
		for j, st := range r.Steps {
			set := 0
			for _, ok := range []bool{st.Reply != "", len(st.Calls) > 0, st.Error != ""} {
				if ok {
					set++
				}
			}
			if set != 1 {
				return fmt.Errorf("rule %d step %d: exactly one of reply, calls, error is required", i, j)
			}
		}
	}
	s.completion = make([]*regexp.Regexp, len(s.Completions))
	for i, c := range s.Completions {
		re, err := regexp.Compile(c.Match)
		if err != nil {
			return fmt.Errorf("completion %d: %w", i, err)
		}
		s.completion[i] = re
	}
	return nil
}

// Gateway replays a Script. It keeps no state: the rule is chosen from the
// latest user message and the step from how many assistant messages followed it.
type Gateway struct {
	script *Script
	newID  func() string
}

// New creates a Gateway over s.
func New(s *Script) *Gateway {
	return &Gateway{script: s, newID: uuid.NewString}
}

func (g *Gateway) Infer(ctx context.Context, history []domain.Message, catalog []domain.ToolSpec) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, &domain.InferenceError{Err: err}
	}

	last, after, ok := domain.LastTurn(history)
	if !ok {
		return domain.Message{}, &domain.InferenceError{Err: errors.New("script: no user message in history")}
	}

	step := 0
	lastResult := ""
	for _, m := range after {
		switch m.Role {
		case domain.RoleAssistant:
			step++
		case domain.RoleTool:
			lastResult = m.Content
		}
	}

	user := last.Content
	for i, rule := range g.script.Rules {
		if !g.script.compiled[i].MatchString(user) {
			continue
		}
		if step >= len(rule.Steps) {
			break
		}
		return g.play(rule.Steps[step], lastResult)
	}
	return domain.AssistantMessage(g.script.Fallback), nil
}

func (g *Gateway) play(st Step, lastResult string) (domain.Message, error) {
	switch {
	case st.Error != "":
		return domain.Message{}, &domain.InferenceError{Err: errors.New(st.Error)}
	case len(st.Calls) > 0:
		calls := make([]domain.ToolCallRequest, len(st.Calls))
		for i, c := range st.Calls {
			calls[i] = c.Clone()
			if calls[i].ID == "" {
				calls[i].ID = g.newID()
			}
		}
		return domain.AssistantMessage("", calls...), nil
	}
	return domain.AssistantMessage(strings.ReplaceAll(st.Reply, ResultPlaceholder, lastResult)), nil
}

// Complete answers prompts from the completions table; unmatched prompts get
// an empty JSON object so structured callers fail validation rather than parsing.
func (g *Gateway) Complete(ctx context.Context, prompt string) (string, error) {
	for i, c := range g.script.Completions {
		if g.script.completion[i].MatchString(prompt) {
			return c.Reply, nil
		}
	}
	return "{}", nil
}

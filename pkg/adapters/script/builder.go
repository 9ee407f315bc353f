package script

import "github.com/aretw0/missive/pkg/domain"

// Builder constructs a Script in Go instead of YAML.
//
//	s, err := script.NewBuilder().
//		On("(?i)invoice").Call("search_mail", map[string]any{"query": "invoice"}).Reply("Found: ${result}").
//		Fallback("Sorry.").
//		Build()
type Builder struct {
	script Script
}

// RuleBuilder adds steps to one rule.
type RuleBuilder struct {
	builder *Builder
	index   int
}

// NewBuilder creates an empty script builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// On starts a rule answering user messages that match pattern.
func (b *Builder) On(pattern string) *RuleBuilder {
	b.script.Rules = append(b.script.Rules, Rule{Match: pattern})
	return &RuleBuilder{builder: b, index: len(b.script.Rules) - 1}
}

// Fallback sets the reply used when no rule applies.
func (b *Builder) Fallback(text string) *Builder {
	b.script.Fallback = text
	return b
}

// Complete answers completion prompts matching pattern with reply.
func (b *Builder) Complete(pattern, reply string) *Builder {
	b.script.Completions = append(b.script.Completions, Completion{Match: pattern, Reply: reply})
	return b
}

// Build validates and compiles the script.
func (b *Builder) Build() (*Script, error) {
	s := b.script
	s.Rules = append([]Rule(nil), b.script.Rules...)
	if err := s.compile(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RuleBuilder) add(st Step) *RuleBuilder {
	rule := &r.builder.script.Rules[r.index]
	rule.Steps = append(rule.Steps, st)
	return r
}

// Reply adds a terminal reply step.
func (r *RuleBuilder) Reply(text string) *RuleBuilder {
	return r.add(Step{Reply: text})
}

// Call adds a step requesting one tool.
func (r *RuleBuilder) Call(name string, args map[string]any) *RuleBuilder {
	return r.add(Step{Calls: []domain.ToolCallRequest{{Name: name, Arguments: args}}})
}

// Calls adds a step requesting several tools at once.
func (r *RuleBuilder) Calls(calls ...domain.ToolCallRequest) *RuleBuilder {
	return r.add(Step{Calls: calls})
}

// Fail adds a step where the model errors.
func (r *RuleBuilder) Fail(message string) *RuleBuilder {
	return r.add(Step{Error: message})
}

// On starts the next rule.
func (r *RuleBuilder) On(pattern string) *RuleBuilder {
	return r.builder.On(pattern)
}

// Fallback sets the script fallback and returns to the script builder.
func (r *RuleBuilder) Fallback(text string) *Builder {
	return r.builder.Fallback(text)
}

// Done returns to the script builder.
func (r *RuleBuilder) Done() *Builder {
	return r.builder
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/schema"
)

// ErrSealed is returned when registering into a sealed registry.
var ErrSealed = errors.New("registry is sealed")

// ToolFunction defines the signature for a tool implementation.
// It receives a context and the resolved arguments (model-supplied values merged
// with injected handles), and returns a result or error.
type ToolFunction func(ctx context.Context, args map[string]any) (any, error)

// Descriptor is the static description of a tool.
type Descriptor struct {
	Name        string
	Description string

	// Params declares the model-supplied arguments.
	Params schema.Params

	// Injected names the arguments supplied by the environment, never by the model.
	Injected []string

	Impl ToolFunction
}

// Expected returns every argument name of the tool, model-supplied first.
func (d Descriptor) Expected() []string {
	names := d.Params.Names()
	return append(names, d.Injected...)
}

// IsInjected reports whether name is an environment-supplied argument.
func (d Descriptor) IsInjected(name string) bool {
	for _, n := range d.Injected {
		if n == name {
			return true
		}
	}
	return false
}

// Spec returns the model-facing description of the tool.
func (d Descriptor) Spec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.Params.JSONSchema(),
	}
}

// Registry manages the available tools.
// It is populated once at startup and sealed; afterwards it is read-only and
// safe to share across sessions.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Descriptor
	order  []string
	sealed bool
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Descriptor),
	}
}

// Register adds a tool to the registry.
// It fails with *domain.DuplicateToolError if the name is already present.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if d.Impl == nil {
		return fmt.Errorf("tool %s has no implementation", d.Name)
	}
	for _, name := range d.Injected {
		if _, clash := d.Params.Lookup(name); clash {
			return fmt.Errorf("tool %s declares %q as both model-supplied and injected", d.Name, name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}
	if _, exists := r.tools[d.Name]; exists {
		return &domain.DuplicateToolError{Name: d.Name}
	}
	r.tools[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// MustRegister is like Register but panics on error. Intended for startup wiring.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Seal freezes the registry. Further registrations fail with ErrSealed.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Resolve looks up a tool by name.
// Returns *domain.UnknownToolError if the tool is not found.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	r.mu.RLock()
	d, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return Descriptor{}, &domain.UnknownToolError{Name: name}
	}
	return d, nil
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Catalog returns the model-facing tool specs in registration order.
// The order is stable across calls so the model always sees the same catalog.
func (r *Registry) Catalog() []domain.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]domain.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

// CheckArguments validates model-supplied arguments against the declared
// parameters: required names, value types and undeclared keys.
// Failures are reported as *domain.InvalidArgumentsError.
func (d Descriptor) CheckArguments(args map[string]any) error {
	err := d.Params.Validate(args)
	if err == nil {
		return nil
	}
	return &domain.InvalidArgumentsError{Tool: d.Name, Fields: schema.FieldNames(err), Err: err}
}

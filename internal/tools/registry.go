// ABOUTME: Thread-safe registry of tools with argument validation and dispatch.
// ABOUTME: Every handler runs behind an error boundary so failures become text results.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrToolNotFound indicates no tool with the requested name is registered.
var ErrToolNotFound = errors.New("tool not found")

// ErrDuplicateTool indicates a tool name is already registered.
var ErrDuplicateTool = errors.New("tool name collision")

// ErrInvalidTool indicates a Spec that cannot be registered.
var ErrInvalidTool = errors.New("invalid tool")

// Observer receives one observation per dispatch.
type Observer interface {
	ObserveToolCall(tool, outcome string)
}

// Dispatch outcomes reported to the Observer.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
)

// Spec declares one tool.
type Spec struct {
	Name        string
	Description string
	Fields      []Field
	// ErrorPrefix starts the text of a failed call, e.g. "Error querying Wolfram|Alpha".
	ErrorPrefix string
	Handler     Handler
}

// Pack groups tools registered together.
type Pack struct {
	ID    string
	Tools []Spec
}

// Info is the public description of a registered tool.
type Info struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	PackID      string          `json:"-"`
}

type entry struct {
	spec        Spec
	packID      string
	inputSchema json.RawMessage
	schema      *jsonschema.Schema
	call        boundHandler
}

// Registry holds the registered tools. Tools are normally registered once at
// startup and only read afterwards.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*entry
	order    []string
	logger   *slog.Logger
	observer Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver reports dispatch outcomes to o.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:  make(map[string]*entry),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a single tool.
func (r *Registry) Register(spec Spec) error {
	return r.RegisterPack(Pack{Tools: []Spec{spec}})
}

// RegisterPack adds every tool in pack, or none of them if any fails.
// Returns ErrDuplicateTool if a name is already taken.
func (r *Registry) RegisterPack(pack Pack) error {
	prepared := make([]*entry, 0, len(pack.Tools))
	names := make(map[string]struct{}, len(pack.Tools))

	for _, spec := range pack.Tools {
		e, err := r.prepare(pack.ID, spec)
		if err != nil {
			return err
		}
		if _, dup := names[spec.Name]; dup {
			return fmt.Errorf("%w: tool '%s' declared twice in pack '%s'", ErrDuplicateTool, spec.Name, pack.ID)
		}
		names[spec.Name] = struct{}{}
		prepared = append(prepared, e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range prepared {
		if existing, exists := r.tools[e.spec.Name]; exists {
			return fmt.Errorf("%w: tool '%s' already registered by pack '%s'",
				ErrDuplicateTool, e.spec.Name, existing.packID)
		}
	}

	for _, e := range prepared {
		r.tools[e.spec.Name] = e
		r.order = append(r.order, e.spec.Name)
	}

	r.logger.Info("=== TOOL PACK REGISTERED ===",
		"pack_id", pack.ID,
		"tool_count", len(prepared),
		"total_tools", len(r.tools),
	)

	return nil
}

func (r *Registry) prepare(packID string, spec Spec) (*entry, error) {
	if !toolNamePattern.MatchString(spec.Name) {
		return nil, fmt.Errorf("%w: name %q must match %s", ErrInvalidTool, spec.Name, toolNamePattern)
	}
	if spec.Handler == nil {
		return nil, fmt.Errorf("%w: tool '%s' has no handler", ErrInvalidTool, spec.Name)
	}
	if err := checkFields(spec.Fields); err != nil {
		return nil, fmt.Errorf("%w: tool '%s': %v", ErrInvalidTool, spec.Name, err)
	}

	raw, err := InputSchema(spec.Fields)
	if err != nil {
		return nil, fmt.Errorf("%w: tool '%s': %v", ErrInvalidTool, spec.Name, err)
	}
	schema, err := compileSchema(spec.Name, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: tool '%s': %v", ErrInvalidTool, spec.Name, err)
	}

	return &entry{
		spec:        spec,
		packID:      packID,
		inputSchema: raw,
		schema:      schema,
		call:        errorBoundary(spec, r.logger),
	}, nil
}

// Get returns the description of one tool.
func (r *Registry) Get(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

// List returns every tool in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, r.tools[name].info())
	}
	return infos
}

// Names returns every tool name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Fields returns the declared arguments of a tool.
func (r *Registry) Fields(name string) ([]Field, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return append([]Field(nil), e.spec.Fields...), true
}

func (e *entry) info() Info {
	return Info{
		Name:        e.spec.Name,
		Description: e.spec.Description,
		InputSchema: e.inputSchema,
		PackID:      e.packID,
	}
}

// Dispatch validates args against the named tool and runs its handler once.
// Validation failures and handler failures are returned as text Results; the
// only error is ErrToolNotFound.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (Result, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = WithRequestID(ctx, requestID)
	}
	logger := r.logger.With("tool_name", name, "request_id", requestID)

	validated, err := validateArgs(e.spec.Fields, e.schema, args)
	if err != nil {
		logger.Warn("tool arguments rejected", "error", err)
		r.observe(name, OutcomeInvalid)
		return Text(fmt.Sprintf("Invalid arguments for %s: %s", name, trimSentinel(err))), nil
	}

	logger.Debug("→ dispatching to builtin", "pack_id", e.packID)

	result, outcome := e.call(ctx, validated)
	r.observe(name, outcome)
	if outcome != OutcomeOK {
		logger.Warn("tool call failed", "outcome", outcome)
	}
	return result, nil
}

func (r *Registry) observe(name, outcome string) {
	if r.observer != nil {
		r.observer.ObserveToolCall(name, outcome)
	}
}

// trimSentinel strips the "invalid arguments: " prefix from validation errors.
func trimSentinel(err error) string {
	msg := err.Error()
	prefix := ErrInvalidArguments.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

type requestIDKey struct{}

// WithRequestID tags ctx with a request id used in dispatch logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

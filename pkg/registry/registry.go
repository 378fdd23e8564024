// Package registry holds the process-wide workflow definitions and action handlers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/go-playground/validator/v10"
)

// ErrUnknownWorkflow indicates a lookup for a workflow name that was never registered.
var ErrUnknownWorkflow = errors.New("unknown workflow")

// ActionHandler executes one action of a step against a workflow instance and
// returns a short result description for the execution record.
type ActionHandler func(ctx context.Context, action models.Action, instance *models.WorkflowInstance) (string, error)

// Registry stores workflow definitions and action handlers. Definitions are
// registered at startup and treated as read-only afterwards; re-registering a
// name overwrites the previous definition (last registration wins).
type Registry struct {
	logger   *slog.Logger
	validate *validator.Validate

	mu        sync.RWMutex
	workflows map[string]*models.WorkflowDefinition
	handlers  map[models.ActionType]ActionHandler
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		workflows: make(map[string]*models.WorkflowDefinition),
		handlers:  make(map[models.ActionType]ActionHandler),
	}
}

// RegisterWorkflow validates and stores a definition under its name.
func (r *Registry) RegisterWorkflow(def *models.WorkflowDefinition) error {
	err := r.validate.Struct(def)
	if err != nil {
		return fmt.Errorf("invalid workflow definition %q: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workflows[def.Name]; exists {
		r.logger.Warn("Overwriting workflow definition", "workflow", def.Name)
	}

	r.workflows[def.Name] = def

	return nil
}

// Workflow returns the definition registered under name.
func (r *Registry) Workflow(name string) (*models.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.workflows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorkflow, name)
	}

	return def, nil
}

// WorkflowNames returns the registered definition names.
func (r *Registry) WorkflowNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.workflows))
	for name := range r.workflows {
		names = append(names, name)
	}

	return names
}

// RegisterHandler binds an action type to its handler.
func (r *Registry) RegisterHandler(actionType models.ActionType, handler ActionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[actionType] = handler
}

// Handler returns the handler for an action type, or false when none is
// registered. The engine logs and skips unregistered action types rather than
// failing the step.
func (r *Registry) Handler(actionType models.ActionType) (ActionHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[actionType]

	return handler, ok
}

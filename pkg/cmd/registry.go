package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bankops/caseflow/pkg/registry"
	"github.com/bankops/caseflow/pkg/workflows"
)

// NewRegistry builds a registry preloaded with the built-in workflows and,
// when workflowsPath is set, any *.json definitions found there.
func NewRegistry(logger *slog.Logger, workflowsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)

	err := workflows.RegisterBuiltin(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register built-in workflows: %w", err)
	}

	if workflowsPath == "" {
		return reg, nil
	}

	matches, err := filepath.Glob(filepath.Join(workflowsPath, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan workflows path: %w", err)
	}

	for _, match := range matches {
		data, err := os.ReadFile(match)
		if err != nil {
			return nil, fmt.Errorf("failed to read workflow file %s: %w", match, err)
		}

		def, err := reg.LoadWorkflowJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow file %s: %w", match, err)
		}

		logger.Info("Loaded workflow definition", "file", match, "workflow", def.Name)
	}

	return reg, nil
}

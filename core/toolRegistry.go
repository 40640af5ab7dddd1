package core

import (
	"fmt"
	"sort"
	"sync"

	"adsdash/agent-app/tools"
)

var (
	registry     *ToolRegistry
	registryOnce sync.Once
)

// ToolRegistry is the process-wide lookup table of tools by name.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]ToolExecutor
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]ToolExecutor)}
}

// GetToolRegistry returns the registry holding every inbuilt tool.
func GetToolRegistry() *ToolRegistry {
	registryOnce.Do(func() {
		registry = NewToolRegistry()
		if err := registerInbuiltTools(registry); err != nil {
			panic(err)
		}
	})
	return registry
}

func registerInbuiltTools(tr *ToolRegistry) error {
	for _, def := range tools.Catalog() {
		executor, err := NewInbuiltToolExecutor(def.Name, def.Description, def.Handler)
		if err != nil {
			return err
		}
		if tr.GetTool(executor.GetName()) != nil {
			return fmt.Errorf("tool %s registered twice", executor.GetName())
		}
		tr.RegisterTool(executor.GetName(), executor)
	}
	return nil
}

func (tr *ToolRegistry) RegisterTool(name string, executor ToolExecutor) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.tools[name] = executor
}

func (tr *ToolRegistry) GetTool(name string) ToolExecutor {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return tr.tools[name]
}

func (tr *ToolRegistry) Names() []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	names := make([]string, 0, len(tr.tools))
	for name := range tr.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

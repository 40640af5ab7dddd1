package core

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

type ToolExecutor interface {
	GetName() string
	GetDescription() string
	Execute(ctx context.Context, deps any, input string) (string, error)
	GetToolDescriptor() ToolDescriptor
}

func NewToolRepo(registry *ToolRegistry) *ToolRepo {
	return &ToolRepo{
		registry: registry,
		tools:    make(map[string]ToolExecutor),
	}
}

// ToolRepo is the subset of the registry an agent may call.
type ToolRepo struct {
	registry *ToolRegistry
	tools    map[string]ToolExecutor
}

func (repo *ToolRepo) RegisterTool(name string) error {
	tool := repo.registry.GetTool(name)
	if tool == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	repo.tools[tool.GetName()] = tool
	return nil
}

// ListToolDescriptors returns descriptors sorted by name.
func (repo *ToolRepo) ListToolDescriptors() []ToolDescriptor {
	list := make([]ToolDescriptor, 0, len(repo.tools))
	for _, item := range repo.tools {
		list = append(list, item.GetToolDescriptor())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func (repo *ToolRepo) GetTool(name string) ToolExecutor {
	return repo.tools[name]
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// NewInbuiltToolExecutor wraps handler, which must have the shape
// func(context.Context, D, In) (Out, error). The parameter schema is reflected from In.
func NewInbuiltToolExecutor(name string, description string, handler any) (ToolExecutor, error) {
	handlerValue := reflect.ValueOf(handler)
	handlerType := handlerValue.Type()

	if handlerType.Kind() != reflect.Func {
		return nil, fmt.Errorf("tool %s: handler is not a function", name)
	}
	if handlerType.NumIn() != 3 {
		return nil, fmt.Errorf("tool %s: handler function must have three parameters", name)
	}
	if handlerType.NumOut() != 2 {
		return nil, fmt.Errorf("tool %s: handler function must have two return values", name)
	}
	if !handlerType.In(0).Implements(contextType) {
		return nil, fmt.Errorf("tool %s: first parameter must be a context.Context", name)
	}
	if !handlerType.Out(1).Implements(errorType) {
		return nil, fmt.Errorf("tool %s: second return value must be an error", name)
	}

	inputType := handlerType.In(2)
	inputPtr := reflect.New(inputType)

	schema, err := GetSchema(inputPtr.Interface())
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	params, err := SchemaMap(b)
	if err != nil {
		return nil, err
	}
	if b, err = json.Marshal(params); err != nil {
		return nil, err
	}
	return &InbuiltToolExecutor{
		toolDescriptor: ToolDescriptor{
			Name:        name,
			Description: description,
			Parameters:  json.RawMessage(b),
		},
		depsType:  handlerType.In(1),
		inputType: inputType,
		handler:   handlerValue,
	}, nil
}

type InbuiltToolExecutor struct {
	toolDescriptor ToolDescriptor
	depsType       reflect.Type
	inputType      reflect.Type
	handler        reflect.Value
}

func (i *InbuiltToolExecutor) GetName() string {
	return i.toolDescriptor.Name
}

func (i *InbuiltToolExecutor) GetDescription() string {
	return i.toolDescriptor.Description
}

func (i *InbuiltToolExecutor) GetToolDescriptor() ToolDescriptor {
	return i.toolDescriptor
}

// Execute decodes input into the handler's argument type and returns the JSON
// encoded result. Argument problems wrap ErrInvalidToolInput; handler failures
// are returned as *ToolError.
func (i *InbuiltToolExecutor) Execute(ctx context.Context, deps any, input string) (string, error) {
	depsValue := reflect.ValueOf(deps)
	if !depsValue.IsValid() || !depsValue.Type().AssignableTo(i.depsType) {
		return "", &ToolError{Tool: i.GetName(), Err: fmt.Errorf("%w: want %s", ErrMissingDependency, i.depsType)}
	}

	inputPtr := reflect.New(i.inputType)
	if strings.TrimSpace(input) == "" {
		input = "{}"
	}
	if err := json.Unmarshal([]byte(input), inputPtr.Interface()); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidToolInput, i.GetName(), err)
	}

	results := i.handler.Call([]reflect.Value{reflect.ValueOf(ctx), depsValue, inputPtr.Elem()})

	if errInterface := results[1].Interface(); errInterface != nil {
		return "", &ToolError{Tool: i.GetName(), Err: errInterface.(error)}
	}
	b, err := json.Marshal(results[0].Interface())
	if err != nil {
		return "", &ToolError{Tool: i.GetName(), Err: fmt.Errorf("encode result: %w", err)}
	}
	return string(b), nil
}

package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. Field names in its errors use json tags.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// DecodeOutput parses a model reply into dst and checks it against schema.
// Unknown fields are ignored. Missing required fields, type mismatches and
// constraint violations are reported as *ValidationError.
func DecodeOutput(text string, schema *jsonschema.Schema, dst any) error {
	raw, err := extractJSON(text)
	if err != nil {
		return &ValidationError{Problems: []string{err.Error()}}
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return &ValidationError{Problems: []string{"malformed JSON: " + err.Error()}}
	}
	var problems []string
	checkRequired("", schema, generic, &problems)
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &ValidationError{Problems: []string{
				fmt.Sprintf("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value),
			}}
		}
		return &ValidationError{Problems: []string{err.Error()}}
	}

	return ValidateStruct(dst)
}

// ValidateStruct checks v's validate tags and reports every violation as a
// *ValidationError.
func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Problems: []string{err.Error()}}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describeFieldError(fe))
	}
	return &ValidationError{Problems: problems}
}

// extractJSON tolerates markdown fences and prose around the JSON object.
func extractJSON(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}
	if json.Valid([]byte(text)) {
		return []byte(text), nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errors.New("response contains no JSON object")
	}
	candidate := []byte(text[start : end+1])
	if !json.Valid(candidate) {
		return nil, errors.New("response contains no valid JSON object")
	}
	return bytes.TrimSpace(candidate), nil
}

func checkRequired(path string, schema *jsonschema.Schema, value any, problems *[]string) {
	if schema == nil || value == nil {
		return
	}
	switch schema.Type {
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			*problems = append(*problems, fmt.Sprintf("%s: expected object", displayPath(path)))
			return
		}
		for _, name := range schema.Required {
			if v, present := obj[name]; !present || v == nil {
				*problems = append(*problems, fmt.Sprintf("%s: required", joinPath(path, name)))
			}
		}
		if schema.Properties == nil {
			return
		}
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			if v, present := obj[pair.Key]; present {
				checkRequired(joinPath(path, pair.Key), pair.Value, v, problems)
			}
		}
	case "array":
		list, ok := value.([]any)
		if !ok {
			*problems = append(*problems, fmt.Sprintf("%s: expected array", displayPath(path)))
			return
		}
		for i, item := range list {
			checkRequired(fmt.Sprintf("%s[%d]", path, i), schema.Items, item, problems)
		}
	}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func displayPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + ": must not be empty"
	case "min", "gte":
		return fmt.Sprintf("%s: must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s: must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s: must have length %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s", field, fe.Tag())
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type variant struct {
	Headline string `json:"headline" validate:"required"`
	CTA      string `json:"cta" validate:"required"`
}

type variantsResult struct {
	Variants []variant `json:"variants" validate:"min=1,max=3,dive" jsonschema:"minItems=1,maxItems=3"`
	Summary  string    `json:"summary"`
	Extra    *string   `json:"extra,omitempty"`
}

func TestDecodeOutputStripsFences(t *testing.T) {
	text := "```json\n{\"variants\":[{\"headline\":\"h\",\"cta\":\"buy\"}],\"summary\":\"s\",\"ignored\":true}\n```"
	var out variantsResult
	require.NoError(t, DecodeOutput(text, ReflectSchema(&out), &out))
	want := variantsResult{Variants: []variant{{Headline: "h", CTA: "buy"}}, Summary: "s"}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("decoded result mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeOutputFindsObjectInProse(t *testing.T) {
	text := `Here is the plan: {"variants":[{"headline":"h","cta":"c"}],"summary":"s"} Hope it helps.`
	var out variantsResult
	require.NoError(t, DecodeOutput(text, ReflectSchema(&out), &out))
	assert.Equal(t, "s", out.Summary)
}

func TestDecodeOutputReportsNestedMissingFields(t *testing.T) {
	text := `{"variants":[{"headline":"h","cta":"c"},{"headline":"h2"}]}`
	var out variantsResult
	err := DecodeOutput(text, ReflectSchema(&out), &out)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ElementsMatch(t, []string{"summary: required", "variants[1].cta: required"}, verr.Problems)
}

func TestDecodeOutputRejectsTypeMismatch(t *testing.T) {
	text := `{"variants":[{"headline":"h","cta":"c"}],"summary":42}`
	var out variantsResult
	err := DecodeOutput(text, ReflectSchema(&out), &out)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Problems[0], "summary")
}

func TestDecodeOutputRejectsEmptyStringsAndLength(t *testing.T) {
	text := `{"variants":[{"headline":"","cta":"c"},{"headline":"a","cta":"c"},{"headline":"b","cta":"c"},{"headline":"d","cta":"c"}],"summary":"s"}`
	var out variantsResult
	err := DecodeOutput(text, ReflectSchema(&out), &out)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Problems, "variants: must be at most 3")
}

func TestDecodeOutputRejectsNonJSON(t *testing.T) {
	var out variantsResult
	err := DecodeOutput("I cannot help with that.", ReflectSchema(&out), &out)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestDecodeOutputIsDeterministic(t *testing.T) {
	text := `{"variants":[{"headline":"h","cta":"c"}],"summary":"s"}`
	var first, second variantsResult
	require.NoError(t, DecodeOutput(text, ReflectSchema(&first), &first))
	require.NoError(t, DecodeOutput(text, ReflectSchema(&second), &second))
	assert.Empty(t, cmp.Diff(first, second))
}

func TestReplaceLabels(t *testing.T) {
	got := ReplaceLabels("{{a}} and {{b}} and {{a}} {{missing}}", map[string]string{"a": "x", "b": "y"})
	assert.Equal(t, "x and y and x {{missing}}", got)
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(context.Canceled))
	assert.False(t, Retryable(&TransportError{Provider: "gemini", StatusCode: 403, Err: errors.New("denied")}))
	assert.True(t, Retryable(&TransportError{Provider: "gemini", StatusCode: 503, Err: errors.New("overloaded")}))
	assert.True(t, Retryable(errors.New("eof")))
}

func TestInbuiltToolExecutorRejectsBadShapes(t *testing.T) {
	_, err := NewInbuiltToolExecutor("bad", "", func(in string) string { return in })
	require.Error(t, err)

	exec, err := NewInbuiltToolExecutor("echo", "", func(ctx context.Context, deps *int, in variant) (variant, error) {
		return in, nil
	})
	require.NoError(t, err)
	assert.Contains(t, string(exec.GetToolDescriptor().Parameters), `"headline"`)

	n := 1
	_, err = exec.Execute(context.Background(), &n, `{"headline":`)
	assert.ErrorIs(t, err, ErrInvalidToolInput)

	_, err = exec.Execute(context.Background(), "wrong deps", `{}`)
	assert.ErrorIs(t, err, ErrMissingDependency)

	got, err := exec.Execute(context.Background(), &n, `{"headline":"h","cta":"c"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"headline":"h","cta":"c"}`, got)
}

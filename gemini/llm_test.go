package gemini

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"adsdash/agent-app/core"
)

func TestToContentsMapsRoles(t *testing.T) {
	history := []core.ChatContent{
		{Role: core.RoleUser, Content: "analyze", Images: []core.Image{{MIMEType: "image/png", Data: []byte{1, 2}}}},
		{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{{ID: "c1", ToolName: "get_meta_ad_guidelines", Arguments: `{"placement":"feed"}`}}},
		{Role: core.RoleTool, ToolCallID: "c1", ToolName: "get_meta_ad_guidelines", Content: `["a","b"]`},
	}
	contents, err := toContents(history)
	require.NoError(t, err)
	require.Len(t, contents, 3)

	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "image/png", contents[0].Parts[0].InlineData.MIMEType)
	assert.Equal(t, "analyze", contents[0].Parts[1].Text)

	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	fc := contents[1].Parts[0].FunctionCall
	require.NotNil(t, fc)
	assert.Equal(t, "feed", fc.Args["placement"])

	fr := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "c1", fr.ID)
	assert.Equal(t, []any{"a", "b"}, fr.Response["output"])
}

func TestToContentsRejectsBrokenArguments(t *testing.T) {
	_, err := toContents([]core.ChatContent{{Role: core.RoleAssistant, ToolCalls: []core.ToolCall{{ToolName: "x", Arguments: "{"}}}})
	require.Error(t, err)
}

func TestWrapErrorKeepsStatus(t *testing.T) {
	err := wrapError(genai.APIError{Code: 429, Message: "quota"})
	var te *core.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 429, te.StatusCode)
	assert.True(t, core.Retryable(err))

	err = wrapError(errors.New("dial tcp: refused"))
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
}

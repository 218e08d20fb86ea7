package mcpconn

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// DecodePayload unpacks a tool result into a plain Go value.
//
// Servers encode results inconsistently: some return structured content,
// others return text that itself encodes JSON. The first usable entry wins:
// structured content is returned directly; a text entry is parsed as JSON,
// or wrapped as {"text": raw} when it does not parse. A result with no
// recognizable content decodes to nil.
func DecodePayload(res *mcp.CallToolResult) any {
	if res == nil {
		return nil
	}
	if res.StructuredContent != nil {
		return res.StructuredContent
	}
	for _, entry := range res.Content {
		tc, ok := mcp.AsTextContent(entry)
		if !ok {
			continue
		}
		var value any
		if err := json.Unmarshal([]byte(tc.Text), &value); err != nil {
			return map[string]any{"text": tc.Text}
		}
		return value
	}
	return nil
}

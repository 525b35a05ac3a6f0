package dispatch

import (
	"encoding/json"

	"github.com/hivemind-sh/hivemind/internal/hive"
)

// Request is one call against the coordination hub. SessionID scopes
// identity resolution only; it never changes response shape.
type Request struct {
	ID        string          `json:"id,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Operation string          `json:"operation"`
	Args      json.RawMessage `json:"args,omitempty"`
}

// Response is the envelope for every operation result.
type Response struct {
	ID     string         `json:"id,omitempty"`
	OK     bool           `json:"ok"`
	Result any            `json:"result,omitempty"`
	Error  map[string]any `json:"error,omitempty"`
}

// errorPayload flattens a coded error into the wire shape
// {error, code, guidance?, ...context}.
func errorPayload(err error) map[string]any {
	he := hive.AsError(err)
	payload := map[string]any{
		"error": he.Message,
		"code":  string(he.Code),
	}
	if he.Guidance != "" {
		payload["guidance"] = he.Guidance
	}
	for k, v := range he.Context {
		payload[k] = v
	}
	return payload
}

// ok builds a success response.
func ok(id string, result any) Response {
	return Response{ID: id, OK: true, Result: result}
}

// fail builds an error response.
func fail(id string, err error) Response {
	return Response{ID: id, OK: false, Error: errorPayload(err)}
}

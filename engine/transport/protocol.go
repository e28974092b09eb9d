// Package transport carries render service calls as JSON frames over WebSocket connections.
package transport

import (
	"context"
	"encoding/json"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// Path is the HTTP path the server upgrades to WebSocket.
const Path = "/rpc"

// Request is one call frame. ID correlates the response on a connection.
type Request struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers the Request with the same ID. Exactly one of Result and Error is set.
type Response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody is the wire form of a status error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler runs calls received by a Server.
type Handler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	return f(ctx, method, params)
}

func toErrorBody(err error) *ErrorBody {
	return &ErrorBody{Code: status.CodeOf(err).String(), Message: status.Message(err)}
}

func (b *ErrorBody) toError() error {
	return &status.Error{Code: status.ParseCode(b.Code), Message: b.Message}
}

package entity

import (
	"encoding/json"
	"fmt"
)

const Version = "2.0"

// DefaultID is the id every request carries unless told otherwise. Canned
// MockServer responses echo a static id, so the harness pins it.
const DefaultID uint64 = 1

type RpcRequest struct {
	JsonRpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

func NewRpcRequest(method string, params ...any) RpcRequest {
	if params == nil {
		params = []any{}
	}

	return RpcRequest{
		JsonRpc: Version,
		Method:  method,
		Params:  params,
		ID:      DefaultID,
	}
}

type RpcResponse[T any] struct {
	JsonRpc string    `json:"jsonrpc"`
	ID      uint64    `json:"id"`
	Result  *T        `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC code(%d) error: %s", e.Code, e.Message)
}

package socketrpc

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tinytelemetry/cardwall/internal/model"
)

// JSON-RPC 2.0 Method Reference
//
// The socket RPC server exposes model.Dashboard over a Unix domain socket.
// Each method maps 1:1 to the Dashboard interface.
//
//   Method            Params                          Result
//   ──────────────    ─────────────────────────────   ─────────────────────────
//   ListCards         (none)                          []CardView
//   GetCard           {ID: string}                    CardLookup
//   RefreshCard       {ID: string}                    CardLookup
//   RefreshAll        (none)                          bool
//   RemoveCard        {ID: string}                    bool
//   History           {CardID: string, Limit: int}    []Outcome
//   OutcomeSummary    (none)                          []CardSummary
//   OutcomeCount      (none)                          int64
//
// An empty History CardID means all cards. History accepts empty or null
// params; GetCard, RefreshCard and RemoveCard require an ID.
//
// Error codes follow JSON-RPC 2.0:
//   -32700  Parse error (malformed JSON)
//   -32601  Method not found
//   -32602  Invalid params
//   -32603  Internal error (marshal failure)
//   -32000  Application error (dashboard failure)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return e.Message }

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeAppError       = -32000
)

// CardLookup carries a card view plus whether the id was registered.
type CardLookup struct {
	Found bool
	Card  model.CardView
}

// DefaultSocketPath returns the default Unix socket path.
// It prefers $XDG_RUNTIME_DIR/cardwall/cardwall.sock, falling back to
// ~/.local/state/cardwall/cardwall.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "cardwall", "cardwall.sock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/cardwall.sock"
	}
	return filepath.Join(home, ".local", "state", "cardwall", "cardwall.sock")
}

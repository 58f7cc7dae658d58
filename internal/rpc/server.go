package rpc

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/build"
	"github.com/zallet-core/zallet/internal/wallet"
)

var log = build.NewLogger(build.SubsystemRPC)

// Handler is a single JSON-RPC method implementation: it receives the raw
// params array and the wired wallet, and returns a JSON-marshalable result
// or a legacy-coded RPC error.
type Handler func(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError)

// methods is the full dispatch table, populated by each methods file's
// init via register.
var methods = map[string]Handler{}

func register(name string, h Handler) {
	methods[name] = h
}

// Server is the JSON-RPC 1.0 HTTP endpoint wired against a single wallet.
// Request authentication (basic auth against cfg.RPC.User) is left to the
// caller's http.Server/mux configuration, keeping transport-level concerns
// out of the handler layer.
type Server struct {
	Wallet *wallet.Wallet
}

type request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

type response struct {
	Result interface{}       `json:"result"`
	Error  *dcrjson.RPCError `json:"error"`
	ID     json.RawMessage   `json:"id"`
}

// ServeHTTP dispatches a single JSON-RPC request per call, matching
// zcashd/zallet's one-request-per-POST convention (no batching).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		http.Error(w, "request too large", http.StatusBadRequest)
		return
	}
	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		writeResponse(w, response{Error: newErr(CodeMisc, "invalid request: "+err.Error())})
		return
	}

	handler, ok := methods[req.Method]
	if !ok {
		writeResponse(w, response{ID: req.ID, Error: newErr(CodeMisc, "method not found: "+req.Method)})
		return
	}

	result, rpcErr := handler(s.Wallet, req.Params)
	if rpcErr != nil {
		log.Debugf("rpc %s failed: %v", req.Method, rpcErr)
	}
	writeResponse(w, response{ID: req.ID, Result: result, Error: rpcErr})
}

func writeResponse(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func decodeParam(params []json.RawMessage, i int, v interface{}) *dcrjson.RPCError {
	if i >= len(params) {
		return invalidParams("missing parameter")
	}
	if err := json.Unmarshal(params[i], v); err != nil {
		return invalidParams("malformed parameter: " + err.Error())
	}
	return nil
}

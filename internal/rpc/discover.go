package rpc

import (
	"encoding/json"
	"sort"

	"github.com/decred/dcrd/dcrjson/v3"

	"github.com/zallet-core/zallet/internal/wallet"
)

func init() {
	register("rpc.discover", rpcDiscover)
}

type openrpcDocument struct {
	OpenRPC string           `json:"openrpc"`
	Info    openrpcInfo      `json:"info"`
	Methods []openrpcMethod  `json:"methods"`
}

type openrpcInfo struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

type openrpcMethod struct {
	Name    string          `json:"name"`
	Summary string          `json:"summary,omitempty"`
	Params  []openrpcParam  `json:"params"`
	Result  *openrpcSchema  `json:"result,omitempty"`
}

type openrpcParam struct {
	Name   string        `json:"name"`
	Schema openrpcSchema `json:"schema"`
}

type openrpcSchema struct {
	Type string `json:"type"`
}

// rpcDiscover implements rpc.discover: an OpenRPC document built from the
// same method registry ServeHTTP dispatches against, so the document can
// never drift from what is actually callable. Per-method parameter/result
// schemas are intentionally untyped ("any"): this registry has no JSON
// Schema annotations attached to Handler the way openrpc-go-document's
// reflection-based generator would derive them from typed Go signatures,
// so every method is advertised with a single opaque "params" parameter
// and an untyped result instead.
func rpcDiscover(w *wallet.Wallet, params []json.RawMessage) (interface{}, *dcrjson.RPCError) {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := openrpcDocument{
		OpenRPC: "1.2.6",
		Info:    openrpcInfo{Title: "zallet", Version: "1.0.0"},
	}
	for _, name := range names {
		doc.Methods = append(doc.Methods, openrpcMethod{
			Name:    name,
			Summary: methodDescriptions[name],
			Params:  []openrpcParam{{Name: "params", Schema: openrpcSchema{Type: "any"}}},
			Result:  &openrpcSchema{Type: "any"},
		})
	}
	return doc, nil
}

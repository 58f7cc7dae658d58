package rpc

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHelpListsEveryMethod(t *testing.T) {
	out, rpcErr := helpMethod(nil, nil)
	if rpcErr != nil {
		t.Fatalf("help: %v", rpcErr)
	}
	listing := out.(string)
	for name := range methods {
		if !strings.Contains(listing, name) {
			t.Fatalf("help listing missing %q", name)
		}
	}
}

func TestHelpSingleCommand(t *testing.T) {
	params := []json.RawMessage{json.RawMessage(`"z_sendmany"`)}
	out, rpcErr := helpMethod(nil, params)
	if rpcErr != nil {
		t.Fatalf("help z_sendmany: %v", rpcErr)
	}
	text := out.(string)
	if !strings.HasPrefix(text, "z_sendmany\n") {
		t.Fatalf("expected command-prefixed help, got %q", text)
	}

	params = []json.RawMessage{json.RawMessage(`"no_such_method"`)}
	out, rpcErr = helpMethod(nil, params)
	if rpcErr != nil {
		t.Fatalf("help unknown: %v", rpcErr)
	}
	if !strings.Contains(out.(string), "unknown command") {
		t.Fatalf("expected unknown-command text, got %q", out)
	}
}

// Every dispatchable method should carry a description so help and
// rpc.discover stay useful as methods are added.
func TestEveryMethodHasDescription(t *testing.T) {
	for name := range methods {
		if methodDescriptions[name] == "" {
			t.Errorf("method %q has no description", name)
		}
	}
}

package mcp

import (
	"encoding/json"
	"testing"
)

func TestParseRejectsInvalidJSON(t *testing.T) {
	tests := []struct {
		name string
		line string
		code int
	}{
		{"garbage", "this is not json\n", CodeParseError},
		{"truncated object", `{"jsonrpc": "2.0",`, CodeParseError},
		{"empty line", "\n", CodeParseError},
		{"array payload", `[1, 2, 3]`, CodeInvalidRequest},
		{"string payload", `"hello"`, CodeInvalidRequest},
		{"number payload", `42`, CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, perr := Parse([]byte(tt.line))
			if perr == nil {
				t.Fatal("Parse should fail")
			}
			if perr.Code != tt.code {
				t.Errorf("code = %d, want %d", perr.Code, tt.code)
			}
		})
	}
}

func TestParseValidRequest(t *testing.T) {
	req, perr := Parse([]byte(`{"jsonrpc":"2.0","id":7,"method":"tools/list","params":{}}` + "\n"))
	if perr != nil {
		t.Fatalf("Parse: %v", perr)
	}
	if req.Method != "tools/list" {
		t.Errorf("Method = %q, want %q", req.Method, "tools/list")
	}
	if string(req.ID) != "7" {
		t.Errorf("ID = %s, want 7", req.ID)
	}
	if req.IsNotification() {
		t.Error("request with id should not be a notification")
	}
	if verr := req.Validate(); verr != nil {
		t.Errorf("Validate: %v", verr)
	}
}

func TestNotificationDetection(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{"no id field", `{"jsonrpc":"2.0","method":"cancelled"}`, true},
		{"numeric id", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, false},
		{"string id", `{"jsonrpc":"2.0","id":"a","method":"initialize"}`, false},
		{"explicit null id", `{"jsonrpc":"2.0","id":null,"method":"initialize"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, perr := Parse([]byte(tt.line))
			if perr != nil {
				t.Fatalf("Parse: %v", perr)
			}
			if got := req.IsNotification(); got != tt.want {
				t.Errorf("IsNotification = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateEnvelope(t *testing.T) {
	tests := []struct {
		name string
		line string
		data string
	}{
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"x"}`, "unsupported jsonrpc version"},
		{"missing version", `{"id":1,"method":"x"}`, "unsupported jsonrpc version"},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, "method is required"},
		{"mistyped method", `{"jsonrpc":"2.0","id":1,"method":42}`, "method must be a non-empty string"},
		{"empty method", `{"jsonrpc":"2.0","id":1,"method":""}`, "method must be a non-empty string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, perr := Parse([]byte(tt.line))
			if perr != nil {
				t.Fatalf("Parse: %v", perr)
			}
			verr := req.Validate()
			if verr == nil {
				t.Fatal("Validate should fail")
			}
			if verr.Code != CodeInvalidRequest {
				t.Errorf("code = %d, want %d", verr.Code, CodeInvalidRequest)
			}
		})
	}
}

// Serializing a response then parsing the line back yields the same id
// and the same result or error payload.
func TestSerializeParseRoundTrip(t *testing.T) {
	resp := &Response{
		JSONRPC: "2.0",
		ID:      json.RawMessage("42"),
		Result:  map[string]any{"ok": true},
	}
	data, err := Serialize(resp)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if data[len(data)-1] != '\n' {
		t.Error("serialized frame should end with a newline")
	}

	var decoded struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  map[string]any  `json:"result"`
		Error   *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.JSONRPC != "2.0" {
		t.Errorf("jsonrpc = %q, want 2.0", decoded.JSONRPC)
	}
	if string(decoded.ID) != "42" {
		t.Errorf("id = %s, want 42", decoded.ID)
	}
	if decoded.Result["ok"] != true {
		t.Errorf("result = %v, want ok:true", decoded.Result)
	}
	if decoded.Error != nil {
		t.Errorf("error = %v, want nil", decoded.Error)
	}
}

func TestSerializeErrorFrame(t *testing.T) {
	resp := &Response{
		JSONRPC: "2.0",
		ID:      json.RawMessage("null"),
		Error:   &RPCError{Code: CodeParseError, Message: "Parse error"},
	}
	data, err := Serialize(resp)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(decoded["id"]) != "null" {
		t.Errorf("id = %s, want null", decoded["id"])
	}
	if _, ok := decoded["result"]; ok {
		t.Error("error frame should not carry a result field")
	}
}

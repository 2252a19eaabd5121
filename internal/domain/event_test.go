package domain

import (
	"encoding/json"
	"testing"
)

func TestEvent_MarshalJSON_FlattensExtra(t *testing.T) {
	e := Event{
		ID:       "id-1",
		Code:     "click",
		Time:     100,
		Metadata: map[string]any{MetaTimeUnix: int64(100)},
		Extra:    map[string]any{"button": "left", "code": "shadowed"},
	}

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["button"] != "left" {
		t.Errorf("button = %v, want left", got["button"])
	}
	if got["code"] != "click" {
		t.Errorf("code = %v, extra must not shadow fixed fields", got["code"])
	}
	if _, ok := got["info"]; ok {
		t.Error("empty info should be omitted")
	}
}

func TestEvent_UserID(t *testing.T) {
	e := Event{Metadata: map[string]any{MetaUserID: "u-1"}}
	if got := e.UserID(); got != "u-1" {
		t.Errorf("UserID() = %q, want u-1", got)
	}
	if got := (Event{Metadata: map[string]any{MetaUserID: nil}}).UserID(); got != "" {
		t.Errorf("UserID() = %q, want empty", got)
	}
}

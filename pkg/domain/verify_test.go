package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify(t *testing.T) {
	call := ToolCallRequest{ID: "c1", Name: "search_mail"}

	tests := []struct {
		name    string
		msgs    []Message
		wantErr bool
	}{
		{"Empty", nil, false},
		{"Plain exchange", []Message{UserMessage("hi"), AssistantMessage("hello")}, false},
		{"Answered call", []Message{UserMessage("hi"), AssistantMessage("", call), ToolResultMessage(call, "[]", false), AssistantMessage("none")}, false},
		{"Orphan result", []Message{UserMessage("hi"), ToolResultMessage(call, "[]", false)}, true},
		{"Answered twice", []Message{AssistantMessage("", call), ToolResultMessage(call, "a", false), ToolResultMessage(call, "b", false)}, true},
		{"Duplicate call id", []Message{AssistantMessage("", call), ToolResultMessage(call, "a", false), AssistantMessage("", call)}, true},
		{"Missing call id", []Message{AssistantMessage("", ToolCallRequest{Name: "x"})}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.msgs)
			if tt.wantErr {
				var integrity *IntegrityError
				assert.ErrorAs(t, err, &integrity)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

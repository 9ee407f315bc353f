package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
)

// JSONHandler implements IOHandler over JSON Lines.
//
// Each input line is either a JSON object {"text": "..."}, a JSON string, or
// raw text. Each turn produces one Response object; system messages are
// emitted as {"system": "..."}.
type JSONHandler struct {
	Reader *bufio.Reader

	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		encoder: json.NewEncoder(w),
	}
}

type jsonInput struct {
	Text string `json:"text"`
}

func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		line, err := h.Reader.ReadString('\n')
		if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		text := line
		var obj jsonInput
		var str string
		switch {
		case json.Unmarshal([]byte(line), &obj) == nil && obj.Text != "":
			text = obj.Text
		case json.Unmarshal([]byte(line), &str) == nil:
			text = str
		}

		clean, err := SanitizeInput(text)
		if err != nil {
			if sysErr := h.SystemOutput(ctx, err.Error()); sysErr != nil {
				return "", sysErr
			}
			continue
		}
		return clean, nil
	}
}

func (h *JSONHandler) Output(ctx context.Context, resp Response) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoder.Encode(resp)
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoder.Encode(map[string]string{"system": msg})
}

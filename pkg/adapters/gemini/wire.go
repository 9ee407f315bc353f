package gemini

import (
	"encoding/json"

	"github.com/aretw0/missive/pkg/domain"
)

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	Tools             []geminiToolDeclaration `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string              `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResp `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiFunctionDeclaration struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters,omitempty"`
}

type geminiToolDeclaration struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiGenerationConfig struct {
	Temperature *float32 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// toContents maps the history onto Gemini contents.
// Tool results are sent as functionResponse parts with the user role, and
// consecutive results are grouped into a single content.
func toContents(history []domain.Message) []geminiContent {
	var out []geminiContent
	for _, msg := range history {
		switch msg.Role {
		case domain.RoleTool:
			part := geminiPart{FunctionResponse: &geminiFunctionResp{
				Name:     msg.ToolName,
				Response: toolResponse(msg),
			}}
			if n := len(out); n > 0 && out[n-1].Role == "user" && out[n-1].Parts[0].FunctionResponse != nil {
				out[n-1].Parts = append(out[n-1].Parts, part)
				continue
			}
			out = append(out, geminiContent{Role: "user", Parts: []geminiPart{part}})

		case domain.RoleAssistant:
			var parts []geminiPart
			if msg.Content != "" {
				parts = append(parts, geminiPart{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				args := call.Arguments
				if args == nil {
					args = map[string]any{}
				}
				parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{Name: call.Name, Args: args}})
			}
			if len(parts) == 0 {
				continue
			}
			out = append(out, geminiContent{Role: "model", Parts: parts})

		default:
			out = append(out, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}
	return out
}

// toolResponse wraps a tool result in the object Gemini expects.
func toolResponse(msg domain.Message) map[string]any {
	var decoded any
	if err := json.Unmarshal([]byte(msg.Content), &decoded); err != nil {
		decoded = msg.Content
	}
	key := "result"
	if msg.IsError {
		key = "error"
	}
	return map[string]any{key: decoded}
}

func toTools(catalog []domain.ToolSpec) []geminiToolDeclaration {
	if len(catalog) == 0 {
		return nil
	}
	decls := make([]geminiFunctionDeclaration, 0, len(catalog))
	for _, spec := range catalog {
		decl := geminiFunctionDeclaration{Name: spec.Name, Description: spec.Description}
		if props, ok := spec.Parameters["properties"].(map[string]any); ok && len(props) > 0 {
			decl.Parameters = spec.Parameters
		}
		decls = append(decls, decl)
	}
	return []geminiToolDeclaration{{FunctionDeclarations: decls}}
}

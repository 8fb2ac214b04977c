package transform

import (
	"fmt"
	"strings"
)

// Config is a declarative connection transform. The legacy workflow format
// stored transforms as opaque executable strings; those are parsed by
// content inspection into one of these configs and the original text is
// never evaluated.
type Config struct {
	Type     string                 `json:"type"`
	Message  string                 `json:"message,omitempty"`
	Context  string                 `json:"context,omitempty"`
	Format   string                 `json:"format,omitempty"`
	Channel  string                 `json:"channel,omitempty"`
	Username string                 `json:"username,omitempty"`
	Field    string                 `json:"field,omitempty"`
	Default  interface{}            `json:"default,omitempty"`
	Fields   map[string]interface{} `json:"fields,omitempty"`
}

// Transform types
const (
	TypeAIInput      = "ai_input"
	TypeAIOutput     = "ai_output"
	TypeSlackMessage = "slack_message"
	TypeExtractField = "extract_field"
	TypeCreateObject = "create_object"
	TypePassThrough  = "pass_through"
)

// ParseLegacy maps an opaque legacy transform string to a declarative
// config. Unknown content defaults to pass_through; nothing here executes
// the input.
func ParseLegacy(text string) *Config {
	if strings.TrimSpace(text) == "" {
		return &Config{Type: TypePassThrough}
	}

	if strings.Contains(text, "Tell me a funny joke") {
		return &Config{
			Type:    TypeAIInput,
			Message: "Tell me a funny joke",
			Context: "joke_generation",
		}
	}

	if strings.Contains(text, "🎭") || strings.Contains(text, "#general") || strings.Contains(text, "JokeBot") {
		return &Config{
			Type:     TypeSlackMessage,
			Format:   "🎭 {text} 🎭",
			Channel:  "#general",
			Username: "JokeBot",
		}
	}

	if strings.Contains(text, "input_data.get('output')") ||
		strings.Contains(text, "text") ||
		strings.Contains(text, "message") {
		return &Config{Type: TypeAIOutput}
	}

	return &Config{Type: TypePassThrough}
}

// Apply runs a declarative transform over a connection value. Unknown
// config types pass the value through unchanged.
func Apply(cfg *Config, value interface{}) (interface{}, error) {
	if cfg == nil {
		return value, nil
	}

	switch cfg.Type {
	case TypeAIInput:
		return applyAIInput(cfg, value), nil
	case TypeAIOutput:
		return applyAIOutput(value), nil
	case TypeSlackMessage:
		return applySlackMessage(cfg, value), nil
	case TypeExtractField:
		return applyExtractField(cfg, value), nil
	case TypeCreateObject:
		return applyCreateObject(cfg, value), nil
	case TypePassThrough:
		return value, nil
	default:
		return value, nil
	}
}

func applyAIInput(cfg *Config, value interface{}) map[string]interface{} {
	message := cfg.Message
	if message == "" {
		message = stringify(value)
	}
	return map[string]interface{}{
		"message": message,
		"context": cfg.Context,
	}
}

// applyAIOutput normalizes an AI node result to {text}
func applyAIOutput(value interface{}) map[string]interface{} {
	if m, ok := value.(map[string]interface{}); ok {
		if out, ok := m["output"]; ok {
			return map[string]interface{}{"text": stringify(out)}
		}
		if pr, ok := m["provider_result"].(map[string]interface{}); ok {
			if resp, ok := pr["response"]; ok {
				return map[string]interface{}{"text": stringify(resp)}
			}
		}
		if content, ok := m["content"]; ok {
			return map[string]interface{}{"text": stringify(content)}
		}
		if text, ok := m["text"]; ok {
			return map[string]interface{}{"text": stringify(text)}
		}
	}
	return map[string]interface{}{"text": stringify(value)}
}

func applySlackMessage(cfg *Config, value interface{}) map[string]interface{} {
	text := extractText(value)
	if cfg.Format != "" {
		text = strings.ReplaceAll(cfg.Format, "{text}", text)
	}
	out := map[string]interface{}{
		"text":        text,
		"action_type": "send_message",
	}
	if cfg.Channel != "" {
		out["channel"] = cfg.Channel
	}
	if cfg.Username != "" {
		out["username"] = cfg.Username
	}
	return out
}

func applyExtractField(cfg *Config, value interface{}) interface{} {
	if cfg.Field == "" {
		return value
	}
	found, ok := lookupPath(value, cfg.Field)
	if !ok {
		return cfg.Default
	}
	return found
}

// applyCreateObject composes a map from constants and from_input lookups
func applyCreateObject(cfg *Config, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(cfg.Fields))
	for name, spec := range cfg.Fields {
		if ref, ok := spec.(map[string]interface{}); ok {
			if path, ok := ref["from_input"].(string); ok {
				if found, ok := lookupPath(value, path); ok {
					out[name] = found
				} else {
					out[name] = ref["default"]
				}
				continue
			}
		}
		out[name] = spec
	}
	return out
}

// lookupPath resolves a dotted path into nested maps
func lookupPath(value interface{}, path string) (interface{}, bool) {
	current := value
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func extractText(value interface{}) string {
	if m, ok := value.(map[string]interface{}); ok {
		for _, key := range []string{"text", "output", "content", "message"} {
			if v, ok := m[key]; ok {
				return stringify(v)
			}
		}
	}
	return stringify(value)
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

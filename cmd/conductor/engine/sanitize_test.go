package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeParamsRedactsCredentialKeys(t *testing.T) {
	out := SanitizeParams(map[string]interface{}{
		"channel":        "#general",
		"api_key":        "sk-live-abc123",
		"Password":       "hunter2",
		"slack_token":    "xoxb-999",
		"my_credentials": map[string]interface{}{"user": "bob"},
		"nested": map[string]interface{}{
			"client_secret": "shh",
			"text":          "hello",
		},
	})

	assert.Equal(t, "#general", out["channel"])
	assert.Equal(t, Redacted, out["api_key"])
	assert.Equal(t, Redacted, out["Password"])
	assert.Equal(t, Redacted, out["slack_token"])
	assert.Equal(t, Redacted, out["my_credentials"])

	nested := out["nested"].(map[string]interface{})
	assert.Equal(t, Redacted, nested["client_secret"])
	assert.Equal(t, "hello", nested["text"])
}

func TestSanitizeParamsWalksSlices(t *testing.T) {
	out := SanitizeParams(map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"auth_token": "t", "id": 1},
			"plain",
		},
	})

	items := out["items"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(t, Redacted, first["auth_token"])
	assert.Equal(t, 1, first["id"])
	assert.Equal(t, "plain", items[1])
}

func TestSanitizeParamsReplacesUnserializable(t *testing.T) {
	out := SanitizeParams(map[string]interface{}{
		"fn": func() {},
	})
	assert.Equal(t, "func()", out["fn"])
}

func TestSanitizeParamsNil(t *testing.T) {
	assert.Nil(t, SanitizeParams(nil))
}

func TestInputSummary(t *testing.T) {
	assert.Equal(t, "no inputs", InputSummary(nil))

	summary := InputSummary(map[string]interface{}{
		"text":    strings.Repeat("x", 40),
		"channel": "#general",
		"token":   "xoxb-1",
		"extra1":  1,
		"extra2":  2,
	})
	// keys sorted: channel, extra1, extra2 shown; rest collapsed
	assert.Contains(t, summary, "channel=#general")
	assert.Contains(t, summary, "+2 more")
	assert.NotContains(t, summary, "xoxb-1")

	long := InputSummary(map[string]interface{}{"text": strings.Repeat("x", 40)})
	assert.Equal(t, "text="+strings.Repeat("x", 30)+"...", long)

	shapes := InputSummary(map[string]interface{}{
		"payload": map[string]interface{}{"a": 1, "b": 2},
		"rows":    []interface{}{1, 2, 3},
	})
	assert.Contains(t, shapes, "payload=map(2)")
	assert.Contains(t, shapes, "rows=list(3)")
}

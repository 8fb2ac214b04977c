package router

import "testing"

func TestValidateSlackEvent_Defaults(t *testing.T) {
	// Default event types are message and app_mention
	if !validateSlackEvent(map[string]interface{}{}, map[string]interface{}{"type": "message", "text": "hi"}) {
		t.Errorf("message should match default event types")
	}
	if validateSlackEvent(map[string]interface{}{}, map[string]interface{}{"type": "reaction_added"}) {
		t.Errorf("reaction_added should not match default event types")
	}
}

func TestValidateSlackEvent_IgnoreBots(t *testing.T) {
	event := map[string]interface{}{"type": "message", "text": "hi", "bot_id": "B123"}

	if validateSlackEvent(map[string]interface{}{}, event) {
		t.Errorf("bot events should be rejected by default")
	}
	if !validateSlackEvent(map[string]interface{}{"ignore_bots": false}, event) {
		t.Errorf("bot events should pass when ignore_bots is false")
	}
}

func TestValidateSlackEvent_MentionRequired(t *testing.T) {
	config := map[string]interface{}{
		"event_types":      []interface{}{"app_mention", "message"},
		"mention_required": true,
	}

	if validateSlackEvent(config, map[string]interface{}{"type": "message", "text": "hello"}) {
		t.Errorf("plain message should not satisfy mention_required")
	}
	if !validateSlackEvent(config, map[string]interface{}{"type": "app_mention", "text": "<@U123> hi"}) {
		t.Errorf("app_mention should satisfy mention_required")
	}
	if !validateSlackEvent(config, map[string]interface{}{"type": "message", "text": "<@U123ABC> hi"}) {
		t.Errorf("mention token in text should satisfy mention_required")
	}

	richText := map[string]interface{}{
		"type": "message",
		"text": "hey",
		"blocks": []interface{}{
			map[string]interface{}{
				"type": "rich_text",
				"elements": []interface{}{
					map[string]interface{}{
						"type": "rich_text_section",
						"elements": []interface{}{
							map[string]interface{}{"type": "user", "user_id": "U123"},
						},
					},
				},
			},
		},
	}
	if !validateSlackEvent(config, richText) {
		t.Errorf("rich_text user element should satisfy mention_required")
	}
}

func TestValidateSlackEvent_ChannelFilter(t *testing.T) {
	event := map[string]interface{}{"type": "message", "text": "hi", "channel": "C09D2JW6814"}

	// Literal channel id
	if !validateSlackEvent(map[string]interface{}{"channel_filter": "C09D2JW6814"}, event) {
		t.Errorf("literal channel id should match")
	}
	if validateSlackEvent(map[string]interface{}{"channel_filter": "C0OTHER"}, event) {
		t.Errorf("different channel id should not match")
	}

	// Regex pattern
	if !validateSlackEvent(map[string]interface{}{"channel_filter": "^C09.*"}, event) {
		t.Errorf("regex filter should match")
	}

	// Allow-list
	if !validateSlackEvent(map[string]interface{}{"channels": []interface{}{"C09D2JW6814"}}, event) {
		t.Errorf("channel allow-list should match")
	}
}

func TestValidateSlackEvent_ThreadAndPrefix(t *testing.T) {
	config := map[string]interface{}{"require_thread": true}
	if validateSlackEvent(config, map[string]interface{}{"type": "message", "text": "hi"}) {
		t.Errorf("unthreaded message should be rejected")
	}
	if !validateSlackEvent(config, map[string]interface{}{"type": "message", "text": "hi", "thread_ts": "123.456"}) {
		t.Errorf("threaded message should pass")
	}

	config = map[string]interface{}{"command_prefix": "!run"}
	if validateSlackEvent(config, map[string]interface{}{"type": "message", "text": "hello"}) {
		t.Errorf("message without prefix should be rejected")
	}
	if !validateSlackEvent(config, map[string]interface{}{"type": "message", "text": "  !run deploy"}) {
		t.Errorf("trimmed prefix match should pass")
	}
	// Prefix only constrains message events
	if !validateSlackEvent(map[string]interface{}{
		"command_prefix": "!run",
		"event_types":    []interface{}{"app_mention"},
	}, map[string]interface{}{"type": "app_mention", "text": "hello"}) {
		t.Errorf("command_prefix should not constrain app_mention")
	}
}

package router

import (
	"regexp"
	"strings"
)

var slackMentionToken = regexp.MustCompile(`<@U[A-Z0-9]+>`)

// validateSlackEvent applies the detailed post-filter for one candidate
// Slack trigger row. eventData is the inner "event" object of the Slack
// envelope.
func validateSlackEvent(config map[string]interface{}, eventData map[string]interface{}) bool {
	eventType := asString(eventData, "type")

	eventTypes := asStringSlice(config["event_types"])
	if len(eventTypes) == 0 {
		eventTypes = []string{"message", "app_mention"}
	}
	if !containsString(eventTypes, eventType) {
		return false
	}

	if !matchSlackChannel(config, asString(eventData, "channel")) {
		return false
	}

	if filter := asString(config, "user_filter"); filter != "" {
		if !matchWildcard(filter, asString(eventData, "user")) {
			return false
		}
	}

	if asBool(config, "ignore_bots", true) && asString(eventData, "bot_id") != "" {
		return false
	}

	if asBool(config, "mention_required", false) && !hasMention(eventType, eventData) {
		return false
	}

	if asBool(config, "require_thread", false) && asString(eventData, "thread_ts") == "" {
		return false
	}

	if eventType == "message" {
		if prefix := asString(config, "command_prefix"); prefix != "" {
			text := strings.TrimSpace(asString(eventData, "text"))
			if !strings.HasPrefix(text, prefix) {
				return false
			}
		}
	}

	return true
}

// matchSlackChannel accepts literal channel ids (they start with C) and
// simple regex patterns for anything else. No filter means any channel.
func matchSlackChannel(config map[string]interface{}, channel string) bool {
	filter := asString(config, "channel_filter")
	if filter == "" {
		if channels := asStringSlice(config["channels"]); len(channels) > 0 {
			return containsString(channels, channel)
		}
		return true
	}

	if strings.HasPrefix(filter, "C") {
		return filter == channel
	}

	re, err := regexp.Compile(filter)
	if err != nil {
		return false
	}
	return re.MatchString(channel)
}

// hasMention reports whether the event addresses the bot: an app_mention
// event, a <@U...> token in the text, or a rich_text block containing a
// user element.
func hasMention(eventType string, eventData map[string]interface{}) bool {
	if eventType == "app_mention" {
		return true
	}

	if slackMentionToken.MatchString(asString(eventData, "text")) {
		return true
	}

	blocks, ok := eventData["blocks"].([]interface{})
	if !ok {
		return false
	}
	for _, b := range blocks {
		block := asMap(b)
		if asString(block, "type") != "rich_text" {
			continue
		}
		if richTextHasUser(block["elements"]) {
			return true
		}
	}
	return false
}

func richTextHasUser(elements interface{}) bool {
	list, ok := elements.([]interface{})
	if !ok {
		return false
	}
	for _, e := range list {
		el := asMap(e)
		if el == nil {
			continue
		}
		if asString(el, "type") == "user" {
			return true
		}
		if richTextHasUser(el["elements"]) {
			return true
		}
	}
	return false
}

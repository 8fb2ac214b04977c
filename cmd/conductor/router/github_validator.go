package router

import (
	"fmt"
	"strings"

	"github.com/tidewave/conductor/common/models"
)

// validateGitHubEvent applies the detailed post-filter for one candidate
// trigger row. config is the row's trigger_config.
//
// Rules, in order:
//  1. event_config must list the event type (array or map shape)
//  2. pull_request actions, when configured, must include payload.action
//  3. branch filter (push: payload.ref; pull_request: base.ref)
//  4. path filter over changed files (push only; PR events pass — fetching
//     the PR file list would cost an API round-trip in the routing path)
//  5. author filter against payload.sender.login
func validateGitHubEvent(config map[string]interface{}, eventType string, payload map[string]interface{}) (bool, error) {
	eventCfg, ok := eventConfigFor(config, eventType)
	if !ok {
		return false, nil
	}

	if eventType == "pull_request" {
		if actions := asStringSlice(eventCfg["actions"]); len(actions) > 0 {
			action := asString(payload, "action")
			if !containsString(actions, action) {
				return false, nil
			}
		}
	}

	if !matchBranch(config, eventType, payload) {
		return false, nil
	}

	if !matchPaths(config, eventType, payload) {
		return false, nil
	}

	if filter := asString(config, "author_filter"); filter != "" {
		sender := asMap(payload["sender"])
		if !matchWildcard(filter, asString(sender, "login")) {
			return false, nil
		}
	}

	return true, nil
}

// eventConfigFor extracts the per-event config. event_config accepts two
// shapes: an array of event names, or a map of event name to settings.
// A missing or empty config rejects every event.
func eventConfigFor(config map[string]interface{}, eventType string) (map[string]interface{}, bool) {
	raw, exists := config["event_config"]
	if !exists || raw == nil {
		return nil, false
	}

	switch cfg := raw.(type) {
	case []interface{}, []string:
		names := asStringSlice(cfg)
		if containsString(names, eventType) {
			return map[string]interface{}{}, true
		}
		return nil, false
	case map[string]interface{}:
		if len(cfg) == 0 {
			return nil, false
		}
		entry, ok := cfg[eventType]
		if !ok {
			return nil, false
		}
		if m := asMap(entry); m != nil {
			return m, true
		}
		return map[string]interface{}{}, true
	}

	return nil, false
}

func matchBranch(config map[string]interface{}, eventType string, payload map[string]interface{}) bool {
	branches := asStringSlice(config["branches"])
	if len(branches) == 0 {
		return true
	}

	var branch string
	switch eventType {
	case "push":
		// refs/heads/X -> X
		branch = strings.TrimPrefix(asString(payload, "ref"), "refs/heads/")
	case "pull_request":
		pr := asMap(payload["pull_request"])
		base := asMap(pr["base"])
		branch = asString(base, "ref")
	default:
		// Branch filters only constrain branch-carrying events
		return true
	}

	return matchAnyWildcard(branches, branch)
}

func matchPaths(config map[string]interface{}, eventType string, payload map[string]interface{}) bool {
	patterns := asStringSlice(config["paths"])
	if len(patterns) == 0 {
		return true
	}

	if eventType != "push" {
		// PR path filters are non-restrictive
		return true
	}

	changed := changedFiles(payload)
	for _, file := range changed {
		for _, pattern := range patterns {
			if matchWildcard(pattern, file) {
				return true
			}
		}
	}
	return false
}

// changedFiles aggregates added/modified/removed paths across all commits
// of a push payload
func changedFiles(payload map[string]interface{}) []string {
	commits, ok := payload["commits"].([]interface{})
	if !ok {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, c := range commits {
		commit := asMap(c)
		if commit == nil {
			continue
		}
		for _, field := range []string{"added", "modified", "removed"} {
			for _, f := range asStringSlice(commit[field]) {
				if _, dup := seen[f]; dup {
					continue
				}
				seen[f] = struct{}{}
				out = append(out, f)
			}
		}
	}
	return out
}

// githubRepoFullName pulls "owner/name" from a webhook payload
func githubRepoFullName(payload map[string]interface{}) string {
	repo := asMap(payload["repository"])
	if repo == nil {
		return ""
	}
	if full := asString(repo, "full_name"); full != "" {
		return full
	}
	owner := asMap(repo["owner"])
	name := asString(repo, "name")
	login := asString(owner, "login")
	if login != "" && name != "" {
		return fmt.Sprintf("%s/%s", login, name)
	}
	return name
}

package router

import "testing"

func pushPayload(ref string, files ...string) map[string]interface{} {
	changed := make([]interface{}, len(files))
	for i, f := range files {
		changed[i] = f
	}
	return map[string]interface{}{
		"ref": ref,
		"repository": map[string]interface{}{
			"full_name": "acme/widgets",
		},
		"sender": map[string]interface{}{"login": "octocat"},
		"commits": []interface{}{
			map[string]interface{}{
				"added":    changed,
				"modified": []interface{}{},
				"removed":  []interface{}{},
			},
		},
	}
}

func TestValidateGitHubEvent_EventConfigShapes(t *testing.T) {
	payload := pushPayload("refs/heads/main")

	// Array shape
	ok, err := validateGitHubEvent(map[string]interface{}{
		"event_config": []interface{}{"push", "pull_request"},
	}, "push", payload)
	if err != nil || !ok {
		t.Errorf("array shape should accept push, got ok=%v err=%v", ok, err)
	}

	// Map shape
	ok, _ = validateGitHubEvent(map[string]interface{}{
		"event_config": map[string]interface{}{"push": map[string]interface{}{}},
	}, "push", payload)
	if !ok {
		t.Errorf("map shape should accept push")
	}

	// Unlisted event
	ok, _ = validateGitHubEvent(map[string]interface{}{
		"event_config": map[string]interface{}{"push": map[string]interface{}{}},
	}, "pull_request", payload)
	if ok {
		t.Errorf("unlisted event type should be rejected")
	}

	// Missing config rejects
	ok, _ = validateGitHubEvent(map[string]interface{}{}, "push", payload)
	if ok {
		t.Errorf("missing event_config should reject")
	}

	// Empty map rejects
	ok, _ = validateGitHubEvent(map[string]interface{}{
		"event_config": map[string]interface{}{},
	}, "push", payload)
	if ok {
		t.Errorf("empty event_config should reject")
	}
}

func TestValidateGitHubEvent_BranchFilter(t *testing.T) {
	config := map[string]interface{}{
		"event_config": []interface{}{"push"},
		"branches":     []interface{}{"feature/*"},
	}

	ok, _ := validateGitHubEvent(config, "push", pushPayload("refs/heads/feature/x"))
	if !ok {
		t.Errorf("feature/* should match refs/heads/feature/x")
	}

	config["branches"] = []interface{}{"main"}
	ok, _ = validateGitHubEvent(config, "push", pushPayload("refs/heads/feature/x"))
	if ok {
		t.Errorf("main should not match refs/heads/feature/x")
	}
}

func TestValidateGitHubEvent_PullRequestActions(t *testing.T) {
	config := map[string]interface{}{
		"event_config": map[string]interface{}{
			"pull_request": map[string]interface{}{
				"actions": []interface{}{"opened", "synchronize"},
			},
		},
	}

	payload := map[string]interface{}{
		"action": "opened",
		"pull_request": map[string]interface{}{
			"base": map[string]interface{}{"ref": "main"},
		},
		"sender": map[string]interface{}{"login": "octocat"},
	}

	ok, _ := validateGitHubEvent(config, "pull_request", payload)
	if !ok {
		t.Errorf("opened action should match")
	}

	payload["action"] = "closed"
	ok, _ = validateGitHubEvent(config, "pull_request", payload)
	if ok {
		t.Errorf("closed action should not match")
	}
}

func TestValidateGitHubEvent_PathFilter(t *testing.T) {
	config := map[string]interface{}{
		"event_config": []interface{}{"push"},
		"paths":        []interface{}{"docs/*"},
	}

	ok, _ := validateGitHubEvent(config, "push", pushPayload("refs/heads/main", "docs/readme.md"))
	if !ok {
		t.Errorf("docs/* should match docs/readme.md")
	}

	ok, _ = validateGitHubEvent(config, "push", pushPayload("refs/heads/main", "src/main.go"))
	if ok {
		t.Errorf("docs/* should not match src/main.go")
	}

	// PR events pass path filters
	config["event_config"] = []interface{}{"pull_request"}
	prPayload := map[string]interface{}{
		"pull_request": map[string]interface{}{
			"base": map[string]interface{}{"ref": "main"},
		},
		"sender": map[string]interface{}{"login": "octocat"},
	}
	ok, _ = validateGitHubEvent(config, "pull_request", prPayload)
	if !ok {
		t.Errorf("path filter should be non-restrictive for pull_request")
	}
}

func TestValidateGitHubEvent_AuthorFilter(t *testing.T) {
	config := map[string]interface{}{
		"event_config":  []interface{}{"push"},
		"author_filter": "octo*",
	}

	ok, _ := validateGitHubEvent(config, "push", pushPayload("refs/heads/main"))
	if !ok {
		t.Errorf("octo* should match octocat")
	}

	config["author_filter"] = "renovate[bot]"
	ok, _ = validateGitHubEvent(config, "push", pushPayload("refs/heads/main"))
	if ok {
		t.Errorf("renovate[bot] should not match octocat")
	}
}

func TestChangedFiles_Deduplicates(t *testing.T) {
	payload := map[string]interface{}{
		"commits": []interface{}{
			map[string]interface{}{"added": []interface{}{"a.go"}, "modified": []interface{}{"b.go"}},
			map[string]interface{}{"modified": []interface{}{"a.go", "c.go"}},
		},
	}

	files := changedFiles(payload)
	if len(files) != 3 {
		t.Errorf("expected 3 distinct files, got %v", files)
	}
}

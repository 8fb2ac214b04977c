package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func githubSign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func slackSign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyGitHubSignature(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)

	if err := VerifyGitHubSignature("s3cret", body, githubSign("s3cret", body)); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
	if err := VerifyGitHubSignature("s3cret", body, githubSign("wrong", body)); err == nil {
		t.Errorf("signature from wrong secret accepted")
	}
	if err := VerifyGitHubSignature("s3cret", body, "deadbeef"); err == nil {
		t.Errorf("header without sha256= prefix accepted")
	}
	if err := VerifyGitHubSignature("", body, githubSign("", body)); err == nil {
		t.Errorf("empty secret accepted")
	}
}

func TestVerifySlackSignature(t *testing.T) {
	now := time.Now()
	timestamp := fmt.Sprintf("%d", now.Unix())
	body := []byte(`{"type":"event_callback"}`)

	sig := slackSign("signing", timestamp, body)
	if err := VerifySlackSignature("signing", timestamp, body, sig, now); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
	if err := VerifySlackSignature("signing", timestamp, body, slackSign("other", timestamp, body), now); err == nil {
		t.Errorf("signature from wrong secret accepted")
	}
	if err := VerifySlackSignature("signing", "not-a-number", body, sig, now); err == nil {
		t.Errorf("malformed timestamp accepted")
	}
}

func TestVerifySlackSignature_ReplayWindow(t *testing.T) {
	now := time.Now()
	stale := fmt.Sprintf("%d", now.Add(-6*time.Minute).Unix())
	body := []byte(`{}`)

	err := VerifySlackSignature("signing", stale, body, slackSign("signing", stale, body), now)
	if err == nil {
		t.Errorf("request outside replay window accepted")
	}

	fresh := fmt.Sprintf("%d", now.Add(-4*time.Minute).Unix())
	err = VerifySlackSignature("signing", fresh, body, slackSign("signing", fresh, body), now)
	if err != nil {
		t.Errorf("request inside replay window rejected: %v", err)
	}
}

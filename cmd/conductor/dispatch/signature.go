package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidewave/conductor/common/models"
)

// slackReplayWindow bounds how old a signed Slack request may be
const slackReplayWindow = 5 * time.Minute

// VerifyGitHubSignature checks the X-Hub-Signature-256 header against the
// raw request body. The header carries "sha256=" + hex(HMAC-SHA256(body)).
func VerifyGitHubSignature(secret string, body []byte, signatureHeader string) error {
	if secret == "" {
		return &models.AuthError{Message: "github webhook secret not configured"}
	}
	expected, ok := strings.CutPrefix(signatureHeader, "sha256=")
	if !ok {
		return &models.AuthError{Message: "missing or malformed signature header"}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(expected)) {
		return &models.AuthError{Message: "signature mismatch"}
	}
	return nil
}

// VerifySlackSignature checks the X-Slack-Signature header. The base string
// is "v0:" + timestamp + ":" + body, and requests older than the replay
// window are rejected before any HMAC work.
func VerifySlackSignature(signingSecret string, timestamp string, body []byte, signatureHeader string, now time.Time) error {
	if signingSecret == "" {
		return &models.AuthError{Message: "slack signing secret not configured"}
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return &models.AuthError{Message: "invalid request timestamp"}
	}
	age := now.Unix() - ts
	if age < 0 {
		age = -age
	}
	if age > int64(slackReplayWindow.Seconds()) {
		return &models.AuthError{Message: "request timestamp outside replay window"}
	}

	base := fmt.Sprintf("v0:%s:%s", timestamp, body)
	mac := hmac.New(sha256.New, []byte(signingSecret))
	mac.Write([]byte(base))
	computed := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computed), []byte(signatureHeader)) {
		return &models.AuthError{Message: "signature mismatch"}
	}
	return nil
}

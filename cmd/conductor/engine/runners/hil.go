package runners

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tidewave/conductor/common/models"
)

const defaultHILTimeout = 24 * time.Hour

// HILRunner suspends the node until a human responds out of band. It
// returns a pending token; the engine parks the node in WAITING_HUMAN and
// a resume call finalizes it.
type HILRunner struct{}

// NewHILRunner creates a human-in-the-loop runner
func NewHILRunner() *HILRunner {
	return &HILRunner{}
}

// Run issues the pending token
func (r *HILRunner) Run(_ context.Context, node *models.Node, inputs map[string]interface{}, _ *RunContext) (*Result, error) {
	interactionType := configString(node, "interaction_type")
	if interactionType == "" {
		interactionType = "approval"
	}

	message := configString(node, "message_template")
	if message == "" {
		message = inputText(inputs)
	}

	timeout := defaultHILTimeout
	if seconds := configInt(node, "timeout_seconds", 0); seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &Result{
		Pending: &PendingHuman{
			Token:           uuid.NewString(),
			InteractionType: interactionType,
			Message:         message,
			Timeout:         timeout,
		},
	}, nil
}

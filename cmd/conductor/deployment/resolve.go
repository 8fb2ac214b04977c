package deployment

import (
	"context"
	"strings"

	"github.com/tidewave/conductor/common/models"
)

// resolveProviderContext enriches extracted trigger specs with credential
// context so routing can match against provider-side identifiers. All
// failures here are deliberately soft: a trigger with unresolved context
// is still registered, it just may not match until credentials exist.
func (m *Manager) resolveProviderContext(ctx context.Context, ownerID string, specs []*models.TriggerSpec) {
	for _, spec := range specs {
		switch spec.Type {
		case models.TriggerTypeGitHub:
			m.resolveGitHubContext(ctx, ownerID, spec)
		case models.TriggerTypeSlack:
			m.resolveSlackContext(ctx, ownerID, spec)
		}
	}
}

func (m *Manager) resolveGitHubContext(ctx context.Context, ownerID string, spec *models.TriggerSpec) {
	if m.tokens == nil {
		return
	}
	token, err := m.tokens.GetActive(ctx, ownerID, "github")
	if err != nil {
		m.logger.Warn("github credential lookup failed, trigger registered without installation id",
			"workflow_id", spec.WorkflowID, "error", err)
		return
	}
	if installationID, ok := token.CredentialData["installation_id"]; ok {
		spec.Config["github_app_installation_id"] = installationID
	}
}

func (m *Manager) resolveSlackContext(ctx context.Context, ownerID string, spec *models.TriggerSpec) {
	if m.tokens == nil {
		return
	}
	token, err := m.tokens.GetActive(ctx, ownerID, "slack")
	if err != nil {
		m.logger.Warn("slack credential lookup failed, trigger registered workspace-agnostic",
			"workflow_id", spec.WorkflowID, "error", err)
		return
	}

	// The stored team is authoritative; user-provided workspace ids are
	// ignored.
	if teamID, ok := token.CredentialData["team_id"].(string); ok && teamID != "" {
		spec.Config["workspace_id"] = teamID
		spec.IndexKey = teamID
	}

	m.resolveSlackChannels(ctx, token.AccessToken, spec)
}

// resolveSlackChannels rewrites channel names to channel ids, updating
// whichever config shape was present (channels array or channel_filter CSV)
func (m *Manager) resolveSlackChannels(ctx context.Context, accessToken string, spec *models.TriggerSpec) {
	if m.channels == nil {
		return
	}

	if raw, ok := spec.Config["channels"]; ok {
		if list, ok := raw.([]interface{}); ok {
			resolved := make([]interface{}, len(list))
			for i, entry := range list {
				name, _ := entry.(string)
				resolved[i] = m.resolveOneChannel(ctx, accessToken, name)
			}
			spec.Config["channels"] = resolved
		}
		return
	}

	if csv, ok := spec.Config["channel_filter"].(string); ok && csv != "" {
		parts := strings.Split(csv, ",")
		for i, part := range parts {
			parts[i] = m.resolveOneChannel(ctx, accessToken, strings.TrimSpace(part))
		}
		spec.Config["channel_filter"] = strings.Join(parts, ",")
	}
}

func (m *Manager) resolveOneChannel(ctx context.Context, accessToken, name string) string {
	if name == "" || strings.HasPrefix(name, "C") {
		return name
	}
	id, err := m.channels.ResolveChannel(ctx, accessToken, strings.TrimPrefix(name, "#"))
	if err != nil {
		m.logger.Warn("slack channel not resolved, keeping name", "channel", name, "error", err)
		return name
	}
	return id
}

package repository

import (
	"context"
	"fmt"

	"github.com/tidewave/conductor/common/db"
)

// schema is applied by the bootstrap DB init hook. Statements are
// idempotent so restarts are safe.
const schema = `
CREATE TABLE IF NOT EXISTS trigger_index (
	id                UUID PRIMARY KEY,
	workflow_id       TEXT NOT NULL,
	trigger_type      TEXT NOT NULL,
	index_key         TEXT NOT NULL,
	trigger_config    JSONB NOT NULL DEFAULT '{}',
	deployment_status TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_trigger_index_lookup
	ON trigger_index (trigger_type, index_key, deployment_status);
CREATE INDEX IF NOT EXISTS idx_trigger_index_workflow
	ON trigger_index (workflow_id);

CREATE TABLE IF NOT EXISTS workflow (
	workflow_id TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	version     TEXT NOT NULL,
	spec        JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS deployment (
	workflow_id        TEXT PRIMARY KEY,
	deployment_status  TEXT NOT NULL,
	deployment_version INT NOT NULL DEFAULT 0,
	deployed_at        TIMESTAMPTZ,
	undeployed_at      TIMESTAMPTZ,
	deployment_config  JSONB,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS deployment_history (
	id                 UUID PRIMARY KEY,
	workflow_id        TEXT NOT NULL,
	action             TEXT NOT NULL,
	from_status        TEXT NOT NULL,
	to_status          TEXT NOT NULL,
	deployment_version INT NOT NULL,
	error_message      TEXT,
	config_snapshot    JSONB,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_deployment_history_workflow
	ON deployment_history (workflow_id, created_at);

CREATE TABLE IF NOT EXISTS execution (
	execution_id TEXT PRIMARY KEY,
	workflow_id  TEXT NOT NULL,
	status       TEXT NOT NULL,
	record       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_execution_workflow
	ON execution (workflow_id, created_at);

CREATE TABLE IF NOT EXISTS github_webhook_event (
	id                UUID PRIMARY KEY,
	delivery_id       TEXT NOT NULL,
	event_type        TEXT NOT NULL,
	repository        TEXT NOT NULL DEFAULT '',
	action            TEXT NOT NULL DEFAULT '',
	sender            TEXT NOT NULL DEFAULT '',
	payload           JSONB NOT NULL,
	matched_workflows INT NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS oauth_token (
	user_id         TEXT NOT NULL,
	provider        TEXT NOT NULL,
	access_token    TEXT NOT NULL,
	credential_data JSONB NOT NULL DEFAULT '{}',
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	PRIMARY KEY (user_id, provider)
);
`

// InitSchema creates all conductor tables
func InitSchema(database *db.DB) error {
	if _, err := database.Exec(context.Background(), schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

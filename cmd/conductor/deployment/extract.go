package deployment

import (
	"github.com/tidewave/conductor/cmd/conductor/router"
	"github.com/tidewave/conductor/common/models"
)

// ExtractTriggerSpecs builds one normalized TriggerSpec per trigger node.
// Configuration values are unwrapped from schema objects so the index
// never stores schema shells.
func ExtractTriggerSpecs(wf *models.Workflow) ([]*models.TriggerSpec, error) {
	var specs []*models.TriggerSpec
	for _, node := range wf.TriggerNodes() {
		config := unwrapConfigurations(node.Configurations)
		triggerType := models.TriggerType(node.Subtype)

		specs = append(specs, &models.TriggerSpec{
			WorkflowID: wf.ID,
			NodeID:     node.ID,
			Type:       triggerType,
			IndexKey:   indexKeyFor(wf.ID, triggerType, config),
			Config:     config,
		})
	}
	return specs, nil
}

// indexKeyFor computes the fast-lookup key for a trigger family
func indexKeyFor(workflowID string, t models.TriggerType, config map[string]interface{}) string {
	switch t {
	case models.TriggerTypeCron:
		return stringValue(config, "cron_expression")
	case models.TriggerTypeWebhook:
		path := stringValue(config, "path")
		if path == "" {
			path = stringValue(config, "webhook_path")
		}
		return router.NormalizeWebhookPath(path)
	case models.TriggerTypeGitHub:
		// Empty means account-wide
		return stringValue(config, "repository")
	case models.TriggerTypeSlack:
		// Empty means workspace-agnostic; resolution overwrites this
		return stringValue(config, "workspace_id")
	case models.TriggerTypeEmail:
		addr := stringValue(config, "email_address")
		if addr == "" {
			addr = stringValue(config, "recipient")
		}
		return addr
	case models.TriggerTypeManual:
		return workflowID
	}
	return ""
}

func stringValue(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// unwrapConfigurations normalizes a configurations map, replacing schema
// objects with their effective values
func unwrapConfigurations(config map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(config))
	for key, value := range config {
		out[key] = UnwrapConfigValue(value)
	}
	return out
}

// UnwrapConfigValue extracts the effective value from a configuration
// entry. Entries may be plain literals or schema objects of the form
// {type, default, required, description, value?}: prefer value, then
// default, then a zero matching the declared type.
func UnwrapConfigValue(value interface{}) interface{} {
	schema, ok := value.(map[string]interface{})
	if !ok || !isSchemaObject(schema) {
		return value
	}

	if v, ok := schema["value"]; ok && v != nil {
		return v
	}
	if d, ok := schema["default"]; ok && d != nil {
		return d
	}
	return zeroForType(schema["type"])
}

// isSchemaObject distinguishes schema shells from ordinary nested config
// maps. A schema object declares a type and carries only schema fields.
func isSchemaObject(m map[string]interface{}) bool {
	if _, ok := m["type"].(string); !ok {
		return false
	}
	for key := range m {
		switch key {
		case "type", "default", "required", "description", "value", "enum_values":
		default:
			return false
		}
	}
	return true
}

func zeroForType(declared interface{}) interface{} {
	t, _ := declared.(string)
	switch t {
	case "string", "str", "text":
		return ""
	case "integer", "int", "number", "float":
		return 0
	case "boolean", "bool":
		return false
	case "array", "list":
		return []interface{}{}
	case "object", "dict", "map":
		return map[string]interface{}{}
	}
	return nil
}

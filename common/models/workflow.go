package models

// NodeType classifies workflow nodes
type NodeType string

const (
	NodeTypeTrigger        NodeType = "TRIGGER"
	NodeTypeAIAgent        NodeType = "AI_AGENT"
	NodeTypeAction         NodeType = "ACTION"
	NodeTypeExternalAction NodeType = "EXTERNAL_ACTION"
	NodeTypeFlow           NodeType = "FLOW"
	NodeTypeHumanInTheLoop NodeType = "HUMAN_IN_THE_LOOP"
	NodeTypeTool           NodeType = "TOOL"
	NodeTypeMemory         NodeType = "MEMORY"
)

// Workflow is the immutable-after-deploy workflow document
type Workflow struct {
	ID          string           `json:"id"`
	Version     string           `json:"version"`
	Name        string           `json:"name"`
	Nodes       []*Node          `json:"nodes"`
	Connections []*Connection    `json:"connections"`
	Settings    WorkflowSettings `json:"settings"`
	Metadata    WorkflowMetadata `json:"metadata"`
}

// WorkflowSettings holds run-level policy
type WorkflowSettings struct {
	ContinueOnFailure  bool `json:"continue_on_failure"`
	TimeoutSeconds     int  `json:"timeout_seconds"`
	MaxConcurrentNodes int  `json:"max_concurrent_nodes,omitempty"`
}

// WorkflowMetadata carries descriptive fields, not interpreted by the engine
type WorkflowMetadata struct {
	CreatedBy string   `json:"created_by,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Icon      string   `json:"icon,omitempty"`
}

// Node is a typed workflow node
type Node struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Type           NodeType               `json:"type"`
	Subtype        string                 `json:"subtype"`
	Configurations map[string]interface{} `json:"configurations,omitempty"`
	InputParams    map[string]interface{} `json:"input_params,omitempty"`
	OutputParams   map[string]interface{} `json:"output_params,omitempty"`
	InputPorts     []string               `json:"input_ports,omitempty"`
	OutputPorts    []string               `json:"output_ports,omitempty"`

	// AttachedNodes holds MEMORY and TOOL children of an AI_AGENT node.
	// Attached nodes are managed by their parent and never scheduled.
	AttachedNodes []*Node `json:"attached_nodes,omitempty"`
}

// Connection is a directed edge between node ports. ConversionFunction
// is legacy opaque text; it is parsed into a declarative transform config
// at deploy time and never evaluated.
type Connection struct {
	FromNode           string `json:"from_node"`
	FromPort           string `json:"from_port"`
	ToNode             string `json:"to_node"`
	ToPort             string `json:"to_port"`
	ConversionFunction string `json:"conversion_function,omitempty"`
}

// Node lookup helpers

// NodeByID returns the node with the given id, or nil
func (w *Workflow) NodeByID(id string) *Node {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// TriggerNodes returns all nodes of type TRIGGER
func (w *Workflow) TriggerNodes() []*Node {
	var out []*Node
	for _, n := range w.Nodes {
		if n.Type == NodeTypeTrigger {
			out = append(out, n)
		}
	}
	return out
}

// AttachedByID finds an attached child (MEMORY or TOOL) by id
func (n *Node) AttachedByID(id string) *Node {
	for _, a := range n.AttachedNodes {
		if a.ID == id {
			return a
		}
	}
	return nil
}

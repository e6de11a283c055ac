package model

// AgentResponse is the structured output of the generate/review protocol.
// Its fields are projected onto Message, TurnMetrics and Conversation rather
// than being persisted as a distinct entity.
type AgentResponse struct {
	Output           string   `json:"output"`
	Reasoning        string   `json:"reasoning,omitempty"`
	ToolsUsed        []string `json:"tools_used,omitempty"`
	Confidence       float64  `json:"confidence"`
	ShouldEscalate   bool     `json:"should_escalate"`
	EscalationReason string   `json:"escalation_reason,omitempty"`
	NeedsEmail       bool     `json:"needs_email"`
	CollectedEmail   string   `json:"collected_email,omitempty"`
}

// Package agent carries the A2A agent card served at /.well-known/agent.json.
package agent

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed agent.json
var AgentCardData []byte

// Card is the subset of the agent card the server reads back.
type Card struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	URL         string            `json:"url"`
	Endpoints   map[string]string `json:"endpoints"`
}

// LoadAgentCard validates the embedded card.
func LoadAgentCard() (*Card, error) {
	var card Card
	if err := json.Unmarshal(AgentCardData, &card); err != nil {
		return nil, fmt.Errorf("parse agent card: %w", err)
	}
	if card.Name == "" || card.Version == "" {
		return nil, fmt.Errorf("agent card is missing name or version")
	}
	return &card, nil
}

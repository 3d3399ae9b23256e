package profiler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
	"github.com/BerylCAtieno/customer-persona-agent/internal/extract"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
)

type personaReply struct {
	PersonaName       *string `json:"persona_name"`
	Description       *string `json:"description"`
	MarketingStrategy *string `json:"marketing_strategy"`
}

// SynthesizePersona describes one non-empty cluster. The returned persona's
// ClusterID is the group's ID. An empty group is a caller bug and is rejected
// without calling the model.
func (p *Profiler) SynthesizePersona(ctx context.Context, group models.ClusterGroup) (models.Persona, error) {
	if group.Empty() {
		return models.Persona{}, fmt.Errorf("cluster %d has no members", group.ID)
	}
	prompt, err := buildPersonaPrompt(group)
	if err != nil {
		return models.Persona{}, err
	}
	text, err := p.call(ctx, fmt.Sprintf("persona for cluster %d", group.ID), prompt)
	if err != nil {
		return models.Persona{}, err
	}

	var reply personaReply
	if err := extract.Into(text, &reply); err != nil {
		return models.Persona{}, err
	}
	fields := []struct {
		key string
		val *string
	}{
		{"persona_name", reply.PersonaName},
		{"description", reply.Description},
		{"marketing_strategy", reply.MarketingStrategy},
	}
	for _, f := range fields {
		if f.val == nil || strings.TrimSpace(*f.val) == "" {
			return models.Persona{}, &errs.MalformedResponseError{Reason: fmt.Sprintf("missing %q", f.key), Raw: text}
		}
	}

	return models.Persona{
		ClusterID:         group.ID,
		PersonaName:       strings.TrimSpace(*reply.PersonaName),
		Description:       strings.TrimSpace(*reply.Description),
		MarketingStrategy: strings.TrimSpace(*reply.MarketingStrategy),
	}, nil
}

func buildPersonaPrompt(group models.ClusterGroup) (string, error) {
	stats, err := json.MarshalIndent(group.Means, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode cluster stats: %w", err)
	}
	return fmt.Sprintf(`You are an expert marketing analyst. A customer cluster has these average stats:
%s
- Number of customers in this segment: %d

Create a persona for this segment. Respond ONLY as a JSON object with keys: "persona_name", "description", and "marketing_strategy". The value of "marketing_strategy" MUST be a single plain string, not a list or an object.`, stats, group.Size()), nil
}

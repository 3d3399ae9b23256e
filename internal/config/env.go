package config

import "strings"

// envReplacer maps nested keys such as llm.model to PERSONAS_LLM_MODEL.
var envReplacer = strings.NewReplacer(".", "_")

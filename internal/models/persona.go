package models

type KEstimate struct {
	K         int    `json:"k" yaml:"k"`
	Reasoning string `json:"reasoning" yaml:"reasoning"`
}

// ClusterGroup holds the members assigned to one cluster and the mean of every
// numeric field across them. Means is nil for an empty group.
type ClusterGroup struct {
	ID      int
	Members []Record
	Means   map[string]float64
}

func (g ClusterGroup) Size() int {
	return len(g.Members)
}

func (g ClusterGroup) Empty() bool {
	return len(g.Members) == 0
}

type Persona struct {
	ClusterID         int    `json:"cluster_id" yaml:"cluster_id"`
	PersonaName       string `json:"persona_name" yaml:"persona_name"`
	Description       string `json:"description" yaml:"description"`
	MarketingStrategy string `json:"marketing_strategy" yaml:"marketing_strategy"`
}

// AnalysisResult is the single output of a pipeline run. Personas are ordered
// by ascending ClusterID.
type AnalysisResult struct {
	KEstimation KEstimate `json:"k_estimation" yaml:"k_estimation"`
	Personas    []Persona `json:"personas" yaml:"personas"`
}

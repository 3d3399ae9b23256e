package pipeline

import "fmt"

// Stage is the position of one analysis run in its lifecycle.
type Stage int

const (
	StageReceived Stage = iota
	StageSampled
	StageKEstimated
	StageVectorized
	StageClustered
	StageAggregated
	StagePersonasSynthesizing
	StageAssembled
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageReceived:             "RECEIVED",
	StageSampled:              "SAMPLED",
	StageKEstimated:           "K_ESTIMATED",
	StageVectorized:           "VECTORIZED",
	StageClustered:            "CLUSTERED",
	StageAggregated:           "AGGREGATED",
	StagePersonasSynthesizing: "PERSONAS_SYNTHESIZING",
	StageAssembled:            "ASSEMBLED",
	StageDone:                 "DONE",
	StageFailed:               "FAILED",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// IsTerminal reports whether no further transition is possible.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}

// canTransition allows the strict forward sequence plus FAILED from any
// non-terminal stage.
func canTransition(from, to Stage) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	return to == from+1
}

package queue

import "strings"

// Stage identifies one claimable phase of the pipeline. Stage names double as
// column-name prefixes in the work_items table, so the set is closed: only
// the constants below are valid, and every store operation validates its
// stage argument before splicing it into SQL.
type Stage string

const (
	StageEnrichment    Stage = "enrichment"
	StageTranscription Stage = "transcription"
	StageDescription   Stage = "description"
	StageVetting       Stage = "vetting"
	StageMatch         Stage = "match"
	StagePitch         Stage = "pitch"
)

var pipelineOrder = []Stage{
	StageEnrichment,
	StageTranscription,
	StageDescription,
	StageVetting,
	StageMatch,
	StagePitch,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(pipelineOrder))
	for _, stage := range pipelineOrder {
		set[stage] = struct{}{}
	}
	return set
}()

// Stages returns the ordered list of pipeline stages.
func Stages() []Stage {
	cp := make([]Stage, len(pipelineOrder))
	copy(cp, pipelineOrder)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// Valid reports whether the stage is one of the known pipeline stages.
func (s Stage) Valid() bool {
	_, ok := stageSet[s]
	return ok
}

// Predecessor returns the stage that must complete before this one becomes
// claimable. The first stage has none: intake seeds it as pending.
func (s Stage) Predecessor() (Stage, bool) {
	for i, stage := range pipelineOrder {
		if stage == s {
			if i == 0 {
				return "", false
			}
			return pipelineOrder[i-1], true
		}
	}
	return "", false
}

// Terminal reports whether this is the last pipeline stage; its completion is
// the handoff signal observed by the business workflow.
func (s Stage) Terminal() bool {
	return len(pipelineOrder) > 0 && s == pipelineOrder[len(pipelineOrder)-1]
}

func (s Stage) col(suffix string) string {
	return string(s) + "_" + suffix
}

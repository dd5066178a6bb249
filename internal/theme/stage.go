package theme

import "fmt"

// Stage is a step of a theme build
type Stage int

// Stages run in this order; StageFailed is reachable from every other stage
const (
	StageIdle Stage = iota
	StageBuildingSource
	StageResolvingPalette
	StageCompilingProbe
	StageExtractingColorTable
	StageCompilingFull
	StageReducing
	StageRewriting
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageIdle:                 "idle",
	StageBuildingSource:       "building-source",
	StageResolvingPalette:     "resolving-palette",
	StageCompilingProbe:       "compiling-probe",
	StageExtractingColorTable: "extracting-color-table",
	StageCompilingFull:        "compiling-full",
	StageReducing:             "reducing",
	StageRewriting:            "rewriting",
	StageDone:                 "done",
	StageFailed:               "failed",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageError records the stage a build failed in
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if e.Stage == StageDone {
		return fmt.Sprintf("theme built but not written: %v", e.Err)
	}
	return fmt.Sprintf("theme build failed while %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

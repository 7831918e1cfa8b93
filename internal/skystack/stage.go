package skystack

import (
	"fmt"
	"time"
)

// Outcome classifies how one pipeline stage ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "ok"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StageResult is the record every stage hands back to the pipeline driver.
// The driver decides continue/abort from the outcome; the report renders the
// accumulated results at the end.
type StageResult struct {
	Stage   string
	Outcome Outcome
	Detail  string
}

func stageSuccess(stage, format string, a ...any) StageResult {
	return StageResult{Stage: stage, Outcome: OutcomeSuccess, Detail: fmt.Sprintf(format, a...)}
}

func stageSkipped(stage, format string, a ...any) StageResult {
	return StageResult{Stage: stage, Outcome: OutcomeSkipped, Detail: fmt.Sprintf(format, a...)}
}

func stageFailed(stage, format string, a ...any) StageResult {
	return StageResult{Stage: stage, Outcome: OutcomeFailed, Detail: fmt.Sprintf(format, a...)}
}

// ToolStatus is the verifier's per-binary record. Failure is nil for a
// healthy tool.
type ToolStatus struct {
	Name    string
	Failure *VerificationFailure
}

func (t ToolStatus) Healthy() bool { return t.Failure == nil }

// InstallationReport accumulates every StageResult of one pipeline run plus
// the verifier's per-tool health. It is finalized exactly once; later
// Finalize calls are ignored so the rendered summary cannot change under a
// racing signal handler.
type InstallationReport struct {
	Results    []StageResult
	Tools      []ToolStatus
	AllHealthy bool
	StartedAt  time.Time

	finalized bool
}

func NewInstallationReport() *InstallationReport {
	return &InstallationReport{StartedAt: time.Now()}
}

// Record appends a stage result and returns it unchanged, so stage call
// sites can record and propagate in one expression.
func (r *InstallationReport) Record(res StageResult) StageResult {
	r.Results = append(r.Results, res)
	return res
}

// RecordTools stores the verifier output backing the final health flag.
func (r *InstallationReport) RecordTools(tools []ToolStatus) {
	r.Tools = tools
}

// Finalize freezes the report. The first call wins.
func (r *InstallationReport) Finalize(allHealthy bool) {
	if r.finalized {
		return
	}
	r.AllHealthy = allHealthy
	r.finalized = true
}

func (r *InstallationReport) Finalized() bool { return r.finalized }

package tasks

// Phase marks where in a pipeline run a progress update was emitted.
type Phase int

const (
	PhaseStarted Phase = iota
	PhaseFetching
	PhaseResolving
	PhaseWriting
	PhaseComplete
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseFetching:
		return "fetching"
	case PhaseResolving:
		return "resolving"
	case PhaseWriting:
		return "writing"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProgressUpdate is a point-in-time snapshot of a pipeline run, suitable for
// driving a progress display. Current and Total are item counts for the
// current phase; Total is 0 when the phase's extent is unknown.
type ProgressUpdate struct {
	RunID   string
	Phase   Phase
	Message string
	Current int
	Total   int
}

// sendProgress delivers an update without ever blocking the pipeline. A slow
// or absent consumer drops updates rather than stalling a run.
func (p *Pipeline) sendProgress(update ProgressUpdate) {
	if p.updates == nil {
		return
	}
	select {
	case p.updates <- update:
	default:
	}
}

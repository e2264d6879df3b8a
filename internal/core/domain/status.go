package domain

// ProcessStatus is the lifecycle state of the analysis controller.
// Exactly one value is active per job.
type ProcessStatus string

const (
	StatusIdle       ProcessStatus = "idle"
	StatusUploading  ProcessStatus = "uploading"
	StatusProcessing ProcessStatus = "processing"
	StatusPaused     ProcessStatus = "paused"
	StatusCompleted  ProcessStatus = "completed"
	StatusError      ProcessStatus = "error"
)

// CanTransition is the single authoritative transition predicate.
//
//	idle       -> uploading
//	uploading  -> processing | idle (cancel)
//	processing -> paused | completed | error | idle (cancel)
//	paused     -> processing (resume) | idle (cancel)
//	completed  -> idle (reset / new upload)
//	error      -> idle (reset / new upload)
func (s ProcessStatus) CanTransition(to ProcessStatus) bool {
	switch s {
	case StatusIdle:
		return to == StatusUploading
	case StatusUploading:
		return to == StatusProcessing || to == StatusIdle
	case StatusProcessing:
		return to == StatusPaused || to == StatusCompleted || to == StatusError || to == StatusIdle
	case StatusPaused:
		return to == StatusProcessing || to == StatusIdle
	case StatusCompleted, StatusError:
		return to == StatusIdle
	default:
		return false
	}
}

// Terminal reports whether the job has finished, successfully or not.
func (s ProcessStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Active reports whether a job currently owns the machine.
func (s ProcessStatus) Active() bool {
	return s == StatusUploading || s == StatusProcessing || s == StatusPaused
}

package domain

// JobStatus is the lifecycle state of a download job. Jobs only move
// forward; completed, cancelled and error admit no further transitions.
type JobStatus string

const (
	JobQueued      JobStatus = "queued"      // Registered, worker not yet attached.
	JobDownloading JobStatus = "downloading" // Transfer attached, payload arriving.
	JobProcessing  JobStatus = "processing"  // Transfer done, files being sorted into the library.
	JobCompleted   JobStatus = "completed"   // Payload moved, temp data removed.
	JobCancelled   JobStatus = "cancelled"   // Stopped on request, temp data removed.
	JobError       JobStatus = "error"       // Failed, reason captured on the job.
)

// validTransitions defines the adjacency list of allowed status transitions.
var validTransitions = map[JobStatus][]JobStatus{
	JobQueued:      {JobDownloading, JobError},
	JobDownloading: {JobProcessing, JobCancelled, JobError},
	JobProcessing:  {JobCompleted, JobError},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobCancelled, JobError:
		return true
	}
	return false
}

package constants

// JobStatus is the canonical status for a queued extraction job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"  // accepted, waiting for a worker
	JobStatusRunning JobStatus = "RUNNING" // in progress
	JobStatusDone    JobStatus = "DONE"    // case record committed
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure, nothing committed
)

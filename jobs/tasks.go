package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantSweep is the task type for purging expired role grants.
	TaskGrantSweep = "grants:sweep"
)

// GrantSweepPayload configures one sweep run.
type GrantSweepPayload struct {
	// Retention is how long a grant stays in storage past its expiry, so
	// audit listings keep recently lapsed grants visible.
	Retention time.Duration `json:"retention"`
}

// NewGrantSweepTask constructs an Asynq task.
func NewGrantSweepTask(payload GrantSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantSweep, data), nil
}

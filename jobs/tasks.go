package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMetricsRefresh schedules the weekly metrics refresh routine.
	TaskMetricsRefresh = "metrics:refresh"
)

// MetricsRefreshPayload configures the scope of the metrics refresh job.
// Owner is "all" for a full sweep or a numeric user id for one owner.
type MetricsRefreshPayload struct {
	Owner string `json:"owner"`
}

// NewMetricsRefreshTask creates an Asynq task for refreshing weekly metric
// snapshots.
func NewMetricsRefreshTask(owner string) (*asynq.Task, error) {
	if owner == "" {
		owner = "all"
	}
	body, err := json.Marshal(MetricsRefreshPayload{Owner: owner})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMetricsRefresh, body, asynq.Queue(QueueDefault)), nil
}

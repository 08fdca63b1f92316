package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRetentionRecompute = "retention.recompute"

type RetentionRecomputePayload struct {
	// RequestedBy records who triggered the run; empty for scheduled runs.
	RequestedBy string `json:"requestedBy,omitempty"`
}

func NewRetentionRecomputeTask(payload RetentionRecomputePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetentionRecompute, data), nil
}

func ParseRetentionRecomputePayload(task *asynq.Task) (RetentionRecomputePayload, error) {
	var payload RetentionRecomputePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RetentionRecomputePayload{}, err
	}
	return payload, nil
}

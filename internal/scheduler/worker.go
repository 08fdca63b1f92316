package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	retentionservice "gymops_backend/internal/retention/service"
	"gymops_backend/platform/config"
	"gymops_backend/platform/logger"
)

// Worker consumes queued jobs and drives the retention service.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	retention *retentionservice.Service
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, retention *retentionservice.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		retention: retention,
		log:       log,
	}

	mux.HandleFunc(TaskRetentionRecompute, w.handleRetentionRecompute)

	return w, nil
}

func (w *Worker) handleRetentionRecompute(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRetentionRecomputePayload(task)
	if err != nil {
		return err
	}

	w.log.Info("retention recompute job started", "requested_by", payload.RequestedBy)

	result, err := w.retention.RecomputeAll(ctx)
	if err != nil {
		return fmt.Errorf("retention recompute: %w", err)
	}

	w.log.Info("retention recompute job finished",
		"processed", result.Processed,
		"tasks_created", result.TasksCreated,
	)

	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

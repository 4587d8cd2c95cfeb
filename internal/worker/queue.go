package worker

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/emesedutech/cbt-akm/internal/config"
	"github.com/emesedutech/cbt-akm/internal/session"
)

// QueueRecorder pushes integrity events onto the Redis queue for the
// IntegrityWorker. It satisfies session.Recorder; failures are logged and
// absorbed so a Redis outage never blocks a live session.
type QueueRecorder struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewQueueRecorder(rdb *redis.Client, log zerolog.Logger) *QueueRecorder {
	return &QueueRecorder{
		rdb: rdb,
		log: log.With().Str("component", "integrity_queue").Logger(),
	}
}

func (q *QueueRecorder) Record(ctx context.Context, ev session.IntegrityEvent) {
	data, err := json.Marshal(IntegrityPayload{
		StudentID: ev.StudentID,
		ExamID:    ev.ExamID,
		Signal:    string(ev.Signal),
		Detail:    ev.Detail,
		Timestamp: ev.RecordedAt.Unix(),
	})
	if err != nil {
		q.log.Error().Err(err).Msg("Marshal integrity payload failed")
		return
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistIntegrityQueue, data).Err(); err != nil {
		q.log.Error().Err(err).Msg("Enqueue integrity event failed")
	}
}

// ResultQueue hands graded attempts to the ResultWorker.
type ResultQueue struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewResultQueue(rdb *redis.Client, log zerolog.Logger) *ResultQueue {
	return &ResultQueue{
		rdb: rdb,
		log: log.With().Str("component", "result_queue").Logger(),
	}
}

func (q *ResultQueue) Enqueue(ctx context.Context, p ResultPayload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, data).Err()
}

package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fusepoint/dashboard-service/internal/api/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher fans per-project jobs out to a fixed set of workers. Jobs are
// sharded by project id so one project is never handled by two workers in
// the same run.
type Dispatcher struct {
	numWorkers int
	log        zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	return &Dispatcher{numWorkers: numWorkers, log: log}
}

// Workers reports the configured worker count.
func (d *Dispatcher) Workers() int { return d.numWorkers }

// Run calls fn once per project id and blocks until every job has finished.
// The returned map holds only the ids whose job failed. Ids still queued when
// ctx is cancelled fail with ctx.Err().
func (d *Dispatcher) Run(ctx context.Context, projectIDs []int64, fn func(context.Context, int64) error) map[int64]error {
	failures := make(map[int64]error)
	if len(projectIDs) == 0 {
		return failures
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(id int64, err error) {
		mu.Lock()
		failures[id] = err
		mu.Unlock()
	}

	workers := make([]chan int64, d.numWorkers)
	for i := range workers {
		workers[i] = make(chan int64, channelBuffer)
		wg.Add(1)
		go func(id int, ch <-chan int64) {
			defer wg.Done()
			d.runWorker(ctx, id, ch, fn, record)
		}(i, workers[i])
	}

	for _, projectID := range projectIDs {
		shard := d.shardIndex(projectID)
		select {
		case workers[shard] <- projectID:
			metrics.WorkerQueueDepth.WithLabelValues(strconv.Itoa(shard)).Set(float64(len(workers[shard])))
		case <-ctx.Done():
			record(projectID, ctx.Err())
		}
	}
	for _, ch := range workers {
		close(ch)
	}
	wg.Wait()

	return failures
}

// shardIndex maps a project id deterministically to a worker index.
func (d *Dispatcher) shardIndex(projectID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(projectID, 10)))
	return int(h.Sum32() % uint32(d.numWorkers))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan int64, fn func(context.Context, int64) error, record func(int64, error)) {
	depth := metrics.WorkerQueueDepth.WithLabelValues(strconv.Itoa(id))
	defer depth.Set(0)

	for projectID := range ch {
		depth.Set(float64(len(ch)))
		if err := ctx.Err(); err != nil {
			record(projectID, err)
			continue
		}
		if err := fn(ctx, projectID); err != nil {
			d.log.Error().Err(err).
				Int64("project_id", projectID).
				Int("worker_id", id).
				Msg("dashboard job failed")
			record(projectID, err)
		}
	}
}

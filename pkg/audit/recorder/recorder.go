package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/audit"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables audit recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// RecordThings includes a JSON rendering of the evaluated host
	// value in each record.
	// Default: false
	RecordThings bool
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder records rule evaluations asynchronously. Records are
// enqueued on a buffered channel and drained by a background worker;
// when the channel is full the record is dropped rather than blocking
// the evaluation path.
type Recorder struct {
	storage    audit.Storage
	config     *Config
	recordChan chan *audit.Record
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger
}

// NewRecorder creates an audit recorder over the given storage backend
// and starts its background writer.
func NewRecorder(storage audit.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *audit.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// Record assigns the record an ID and enqueues it for async writing.
// It returns immediately; a full buffer drops the record with a log
// line instead of blocking.
func (r *Recorder) Record(ctx context.Context, record *audit.Record) {
	if !r.config.Enabled {
		return
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Time.IsZero() {
		record.Time = time.Now()
	}

	select {
	case r.recordChan <- record:
	default:
		r.logger.Error("audit record channel full, dropping record",
			"record_id", record.ID,
			"rule_set", record.RuleSet,
			"rule", record.Rule,
		)
	}
}

// RecordThing renders thing as JSON for inclusion in a record, when
// thing recording is enabled. Unserializable values render as their
// error message rather than failing the evaluation.
func (r *Recorder) RecordThing(thing any) string {
	if !r.config.RecordThings {
		return ""
	}
	data, err := json.Marshal(thing)
	if err != nil {
		return "unserializable: " + err.Error()
	}
	return string(data)
}

// worker drains the record channel into storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.write(record)
		case <-r.done:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case record := <-r.recordChan:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

// write persists one record under the configured timeout.
func (r *Recorder) write(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"error", err,
		)
		return
	}
	r.logger.Debug("audit record stored", "record_id", record.ID)
}

// Close stops the background writer after draining buffered records.
// The storage backend is not closed; it may be shared.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()
	return nil
}

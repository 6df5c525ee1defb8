// Package orchestrator implements the scan orchestrator (C10): it
// admits scans under a concurrency limit, persists their lifecycle to
// the store, streams progress events, and optionally ships the
// finished report to Kafka. Grounded in the teacher repo's
// internal/engine.Engine worker-goroutine-plus-semaphore admission
// pattern (cmd/nerd/main.go, internal/engine/engine.go).
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/codenerd-labs/auditor/internal/config"
	"github.com/codenerd-labs/auditor/internal/engine"
	"github.com/codenerd-labs/auditor/internal/kafka"
	"github.com/codenerd-labs/auditor/internal/logging"
	"github.com/codenerd-labs/auditor/internal/model"
	"github.com/codenerd-labs/auditor/internal/progress"
	"github.com/codenerd-labs/auditor/internal/store"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"
)

// ErrorKind tags an orchestrator-level rejection, distinct from
// engine.ScanError which tags a failure within an already-admitted scan.
type ErrorKind string

const (
	ErrUnknownEngine ErrorKind = "unknown_engine"
	ErrUnknownProject ErrorKind = "unknown_project"
	ErrAdmission      ErrorKind = "admission"
)

// OrchestratorError is returned when StartScan cannot admit a scan at all.
type OrchestratorError struct {
	Kind ErrorKind
	Err  error
}

func (e *OrchestratorError) Error() string { return fmt.Sprintf("orchestrator: %s: %v", e.Kind, e.Err) }
func (e *OrchestratorError) Unwrap() error  { return e.Err }

// knownEngines are the engine tags spec.md §4.10 allows a scan request
// to name; "doc" and "struct" correspond to the catalog's non-overlapping
// id ranges (1-99, 100-199) decided in SPEC_FULL.md.
var knownEngines = map[string]bool{"doc": true, "struct": true}

// Orchestrator owns the admission semaphore, the store, and the
// progress broadcaster. Construct with New.
type Orchestrator struct {
	store        *store.Store
	broadcaster  *progress.Broadcaster
	sem          *semaphore.Weighted
	excludedDirs []string
	kafkaCfg     config.KafkaConfig
	breaker      *gobreaker.CircuitBreaker
}

// New builds an Orchestrator. maxConcurrent <= 0 resolves to
// runtime.NumCPU(), mirroring the teacher's worker-pool sizing default.
func New(st *store.Store, bc *progress.Broadcaster, maxConcurrent int, excludedDirs []string, kafkaCfg config.KafkaConfig) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.NumCPU()
	}
	var breaker *gobreaker.CircuitBreaker
	if kafkaCfg.Broker != "" {
		breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "kafka-produce",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Kafka().Warnw("circuit breaker state change", "breaker", name, "from", from, "to", to)
			},
		})
	}
	return &Orchestrator{
		store:        st,
		broadcaster:  bc,
		sem:          semaphore.NewWeighted(int64(maxConcurrent)),
		excludedDirs: excludedDirs,
		kafkaCfg:     kafkaCfg,
		breaker:      breaker,
	}
}

// StartScan admits a new scan against projectID using engineTag ("doc" or
// "struct"), per spec.md §4.10. It blocks (context-aware) until a
// concurrency slot is free, persists a running scan row, and returns
// immediately with that row while the scan itself runs in a background
// goroutine. Progress is published on bc under the returned scan's id.
func (o *Orchestrator) StartScan(ctx context.Context, projectID, engineTag string, scope model.ProjectScope) (*store.Scan, error) {
	if !knownEngines[engineTag] {
		return nil, &OrchestratorError{Kind: ErrUnknownEngine, Err: fmt.Errorf("unknown engine %q", engineTag)}
	}

	project, err := o.store.GetProject(projectID)
	if err != nil {
		return nil, &OrchestratorError{Kind: ErrUnknownProject, Err: err}
	}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, &OrchestratorError{Kind: ErrAdmission, Err: err}
	}

	cfg := engine.Config{
		ProjectScope: scope,
		Checks:       engineChecks(engineTag),
		ExcludedDirs: o.excludedDirs,
	}
	configJSON, _ := json.Marshal(cfg)
	configStr := string(configJSON)

	scan, err := o.store.CreateScan(project.ID, engineTag, &configStr)
	if err != nil {
		o.sem.Release(1)
		return nil, &OrchestratorError{Kind: ErrAdmission, Err: err}
	}

	activeScans.Inc()
	o.broadcaster.CreateChannel(scan.ID)
	logging.Orchestrator().Infow("scan admitted", "scan_id", scan.ID, "project_id", project.ID, "engine", engineTag)

	go o.run(project, scan, cfg)

	return scan, nil
}

// run executes the scan to completion and is always responsible for
// releasing the semaphore permit it was handed, regardless of outcome.
func (o *Orchestrator) run(project *store.Project, scan *store.Scan, cfg engine.Config) {
	defer o.sem.Release(1)
	defer activeScans.Dec()

	start := time.Now()
	report, scanErr := engine.Scan(project.RootPath, cfg)
	scanDuration.Observe(time.Since(start).Seconds())

	if scanErr != nil {
		logging.Orchestrator().Errorw("scan failed", "scan_id", scan.ID, "error", scanErr)
		errJSON, _ := json.Marshal(map[string]string{"error": scanErr.Error()})
		errStr := string(errJSON)
		if err := o.store.FinishScan(scan.ID, store.ScanFailed, &errStr); err != nil {
			logging.Orchestrator().Errorw("failed to persist scan failure", "scan_id", scan.ID, "error", err)
		}
		scansTotal.WithLabelValues("failed").Inc()
		o.broadcaster.Publish(scan.ID, progress.DoneSentinel)
		o.broadcaster.RemoveChannel(scan.ID)
		return
	}

	for _, entry := range report.Results {
		checksTotal.WithLabelValues(string(entry.Result.Status)).Inc()
		o.broadcaster.Publish(scan.ID, fmt.Sprintf("check:%d:%s", entry.Id, entry.Result.Status))
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		logging.Orchestrator().Errorw("failed to marshal report", "scan_id", scan.ID, "error", err)
	}
	reportStr := string(reportJSON)

	if err := o.store.FinishScan(scan.ID, store.ScanCompleted, &reportStr); err != nil {
		logging.Orchestrator().Errorw("failed to persist scan completion", "scan_id", scan.ID, "error", err)
	}
	scansTotal.WithLabelValues("completed").Inc()

	o.maybeProduce(scan.ID, reportJSON)

	o.broadcaster.Publish(scan.ID, progress.DoneSentinel)
	o.broadcaster.RemoveChannel(scan.ID)
	logging.Orchestrator().Infow("scan completed", "scan_id", scan.ID, "total", report.Summary.Total)
}

// maybeProduce ships the finished report to Kafka when a broker is
// configured, guarded by a circuit breaker so a wedged broker cannot
// stall the orchestrator's worker goroutines indefinitely (spec.md
// §4.11's "best effort, never blocks scan completion" requirement).
func (o *Orchestrator) maybeProduce(scanID string, reportJSON []byte) {
	if o.kafkaCfg.Broker == "" {
		return
	}
	_, err := o.breaker.Execute(func() (interface{}, error) {
		return kafka.Produce(kafka.Request{
			Broker:        o.kafkaCfg.Broker,
			Topic:         o.kafkaCfg.Topic,
			Partition:     o.kafkaCfg.Partition,
			ClientID:      o.kafkaCfg.ClientID,
			CorrelationID: int32(time.Now().Unix() % 1_000_000),
			TimeoutMs:     int32(o.kafkaCfg.TimeoutMs),
			Key:           []byte(scanID),
			Value:         reportJSON,
		})
	})
	if err != nil {
		logging.Kafka().Warnw("report produce failed", "scan_id", scanID, "error", err)
	}
}

// engineChecks maps an engine tag to the catalog's non-overlapping id
// range, per SPEC_FULL.md's Open Question decision.
func engineChecks(engineTag string) map[model.CheckId]bool {
	out := make(map[model.CheckId]bool)
	switch engineTag {
	case "doc":
		for id := model.CheckId(1); id < 100; id++ {
			out[id] = true
		}
	case "struct":
		for id := model.CheckId(100); id < 200; id++ {
			out[id] = true
		}
	}
	return out
}

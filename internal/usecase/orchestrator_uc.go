package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"practicetest-core/internal/domain"
	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/adapter"
	"practicetest-core/internal/domain/ports/repository"
	"practicetest-core/internal/infra/logging"
	"practicetest-core/internal/infra/metrics"
	"practicetest-core/internal/infra/worker"
)

// SectionSpec is one requested slice of a practice test.
type SectionSpec struct {
	Section    model.SectionType
	Count      int
	Subsection string
}

// Orchestrator runs one concurrent section task per requested section and
// folds their outcomes into the job status. Section tasks share nothing but
// the job store, the pool and the quota store.
type Orchestrator struct {
	jobs     repository.JobStore
	poolRepo repository.PoolRepository
	alloc    *Allocator
	quota    *QuotaService
	gen      adapter.Generator
	workers  *worker.Pool

	watchdogTimeout time.Duration
	genTimeout      time.Duration

	log *zerolog.Logger

	mu      sync.Mutex
	baseCtx context.Context
}

func NewOrchestrator(
	jobs repository.JobStore,
	poolRepo repository.PoolRepository,
	alloc *Allocator,
	quota *QuotaService,
	gen adapter.Generator,
	workers *worker.Pool,
	watchdogTimeout time.Duration,
	genTimeout time.Duration,
	log *zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		jobs:            jobs,
		poolRepo:        poolRepo,
		alloc:           alloc,
		quota:           quota,
		gen:             gen,
		workers:         workers,
		watchdogTimeout: watchdogTimeout,
		genTimeout:      genTimeout,
		log:             log,
		baseCtx:         context.Background(),
	}
}

// Start pins the lifetime context for background job runs; jobs survive the
// HTTP request that created them but not the process.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.baseCtx = ctx
	o.mu.Unlock()
}

func (o *Orchestrator) background() context.Context {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.baseCtx
}

// CreateJob runs the quota pre-check, persists the initial snapshot (every
// section waiting at 0%) and schedules the section tasks. The snapshot is
// visible to a status poll before the job id is returned.
func (o *Orchestrator) CreateJob(ctx context.Context, userID, role, difficulty string, specs []SectionSpec) (string, error) {
	defer logging.TraceDuration(logging.With(ctx, o.log), "Orchestrator.CreateJob")()

	if len(specs) == 0 {
		return "", fmt.Errorf("%w: no sections requested", domain.ErrInvalidArgument)
	}
	seen := map[model.SectionType]bool{}
	for _, sp := range specs {
		if !sp.Section.Valid() || sp.Count <= 0 || seen[sp.Section] {
			return "", fmt.Errorf("%w: bad section spec %q", domain.ErrInvalidArgument, sp.Section)
		}
		seen[sp.Section] = true
	}

	// Fail fast: any required section with a zero grant rejects the whole
	// request before a single task starts, with the full limits snapshot.
	granted := make([]SectionSpec, 0, len(specs))
	for _, sp := range specs {
		g, err := o.quota.Check(ctx, userID, role, sp.Section, sp.Count)
		if err != nil {
			return "", err
		}
		if g == 0 {
			info, snapErr := o.quota.Snapshot(ctx, userID, role)
			if snapErr != nil {
				o.log.Warn().Err(snapErr).Str("user_id", userID).Msg("limits snapshot failed")
			}
			metrics.IncQuotaRejection(string(sp.Section), role)
			return "", &domain.QuotaExceededError{
				Section: string(sp.Section),
				Usage:   info.Usage,
				Limits:  info.Limits,
			}
		}
		sp.Count = g
		granted = append(granted, sp)
	}

	id := ulid.Make().String()
	sections := make([]model.SectionType, 0, len(granted))
	for _, sp := range granted {
		sections = append(sections, sp.Section)
	}
	job := model.NewJob(id, userID, difficulty, sections, time.Now())
	if err := o.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job snapshot: %w", err)
	}

	go o.run(id, userID, difficulty, granted)
	return id, nil
}

// Status returns the current snapshot; domain.ErrJobNotFound once the
// retention TTL has expired.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*model.Job, error) {
	return o.jobs.Get(ctx, jobID)
}

// Result returns the snapshot only if it is terminal; a partial job still
// carries every section that did complete.
func (o *Orchestrator) Result(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.Terminal() {
		return nil, fmt.Errorf("%w: job still running", domain.ErrInvalidArgument)
	}
	return job, nil
}

// Cancel requests cooperative cancellation. Tasks notice the flag at their
// next checkpoint; an in-flight generator call is never forcibly aborted.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) error {
	err := o.jobs.Update(ctx, jobID, func(j *model.Job) error {
		j.CancelRequested = true
		return nil
	})
	if err != nil {
		return err
	}
	o.aggregate(ctx, jobID)
	return nil
}

func (o *Orchestrator) run(jobID, userID, difficulty string, specs []SectionSpec) {
	ctx := logging.WithJobID(logging.WithUserID(o.background(), userID), jobID)
	log := logging.With(ctx, o.log)
	log.Info().Int("sections", len(specs)).Msg("job started")

	done := make(chan struct{})
	go o.watchdog(ctx, jobID, done)

	var wg sync.WaitGroup
	for _, sp := range specs {
		sp := sp
		wg.Add(1)
		err := o.workers.Submit(ctx, func(taskCtx context.Context) error {
			defer wg.Done()
			o.runSection(taskCtx, jobID, userID, difficulty, sp)
			o.aggregate(taskCtx, jobID)
			return nil
		})
		if err != nil {
			wg.Done()
			o.failSection(ctx, jobID, sp.Section, fmt.Errorf("schedule section task: %w", err))
			o.aggregate(ctx, jobID)
		}
	}
	wg.Wait()
	close(done)
	o.aggregate(ctx, jobID)

	if job, err := o.jobs.Get(ctx, jobID); err == nil {
		log.Info().Str("status", string(job.Status)).Msg("job finished")
	}
}

// aggregate recomputes the job status from the section statuses. It is the
// only writer of job.Status.
func (o *Orchestrator) aggregate(ctx context.Context, jobID string) {
	err := o.jobs.Update(ctx, jobID, func(j *model.Job) error {
		next := model.AggregateStatus(j.Sections, j.CancelRequested)
		if next == j.Status {
			return nil
		}
		j.Status = next
		if next.Terminal() {
			if next == model.JobStatusFailed {
				j.Error = "all sections failed"
			}
			metrics.IncJobFinished(string(next))
		}
		return nil
	})
	if err != nil {
		logging.With(ctx, o.log).Warn().Err(err).Str("job_id", jobID).Msg("aggregate failed")
	}
}

// watchdog converts a generating section with no progress updates inside the
// window into a failed one, so a hung external call can never keep the job
// from terminating.
func (o *Orchestrator) watchdog(ctx context.Context, jobID string, done <-chan struct{}) {
	interval := o.watchdogTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := o.jobs.Get(ctx, jobID)
			if err != nil {
				return
			}
			if job.Status.Terminal() {
				return
			}
			for section, p := range job.Sections {
				if p.Status == model.SectionStatusGenerating && time.Since(p.UpdatedAt) > o.watchdogTimeout {
					o.failSection(ctx, jobID, section, fmt.Errorf("generation timed out after %s", o.watchdogTimeout))
					o.aggregate(ctx, jobID)
				}
			}
		}
	}
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/adapter"
	"practicetest-core/internal/domain/ports/repository"
	"practicetest-core/internal/infra/logging"
	"practicetest-core/internal/infra/metrics"
)

// runSection reconciles pool allocation and the on-demand deficit into one
// completed section. Cancellation is checked before the claim, between claim
// and generation, and after generation; a task observing the flag parks its
// section back in waiting and stops.
func (o *Orchestrator) runSection(ctx context.Context, jobID, userID, difficulty string, spec SectionSpec) {
	start := time.Now()
	section := spec.Section
	log := logging.With(ctx, o.log)

	if o.cancelRequested(ctx, jobID) {
		o.parkSection(ctx, jobID, section)
		return
	}

	o.updateSection(ctx, jobID, section, model.SectionStatusAllocating, 10, "claiming questions from the pool")

	filter := repository.ClaimFilter{
		Section:    section,
		Subsection: spec.Subsection,
		Difficulty: difficulty,
	}
	items, deficit, err := o.alloc.Claim(ctx, userID, filter, spec.Count)
	if err != nil {
		o.failSection(ctx, jobID, section, fmt.Errorf("pool claim: %w", err))
		o.observeSection(section, model.SectionStatusFailed, start)
		return
	}

	pct := 20
	if spec.Count > 0 {
		pct = 20 + 60*len(items)/spec.Count
	}

	if o.cancelRequested(ctx, jobID) {
		o.parkSection(ctx, jobID, section)
		return
	}

	if deficit > 0 {
		o.updateSection(ctx, jobID, section, model.SectionStatusGenerating, pct,
			fmt.Sprintf("generating %d of %d questions on demand", deficit, spec.Count))

		genCtx, cancel := context.WithTimeout(ctx, o.genTimeout)
		generated, err := o.gen.Generate(genCtx, adapter.GenerateRequest{
			Section:    section,
			Subsection: spec.Subsection,
			Difficulty: difficulty,
			Count:      deficit,
		})
		cancel()
		if err != nil {
			o.failSection(ctx, jobID, section, fmt.Errorf("on-demand generation: %w", err))
			o.observeSection(section, model.SectionStatusFailed, start)
			return
		}

		// Bank the fresh items in the shared pool and ledger them for this
		// user so they can never be served to them again.
		if err := o.poolRepo.Insert(ctx, nil, generated); err != nil {
			log.Warn().Err(err).Str("section", string(section)).Msg("could not bank generated items")
		}
		if err := o.poolRepo.RecordUsage(ctx, nil, userID, generated, model.UsageGenerated); err != nil {
			log.Warn().Err(err).Str("section", string(section)).Msg("could not ledger generated items")
		}
		items = append(items, generated...)
	}

	if o.cancelRequested(ctx, jobID) {
		o.parkSection(ctx, jobID, section)
		return
	}

	// Quota is committed only now, after content exists. A commit failure is
	// logged but does not fail the section: the user has their questions.
	if err := o.quota.Commit(ctx, userID, map[model.SectionType]int{section: len(items)}); err != nil {
		log.Warn().Err(err).Str("section", string(section)).Msg("quota commit failed")
	}

	err = o.jobs.Update(ctx, jobID, func(j *model.Job) error {
		if j.Results == nil {
			j.Results = map[model.SectionType][]model.PoolItem{}
		}
		j.Results[section] = items
		if p, ok := j.Sections[section]; ok {
			p.Status = model.SectionStatusCompleted
			p.Percentage = 100
			p.Message = fmt.Sprintf("%d questions ready", len(items))
			p.Error = ""
			p.UpdatedAt = time.Now()
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("section", string(section)).Msg("could not record section result")
	}
	o.observeSection(section, model.SectionStatusCompleted, start)
}

func (o *Orchestrator) cancelRequested(ctx context.Context, jobID string) bool {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return false
	}
	return job.CancelRequested || job.Status.Terminal()
}

func (o *Orchestrator) updateSection(ctx context.Context, jobID string, section model.SectionType, status model.SectionStatus, pct int, msg string) {
	err := o.jobs.Update(ctx, jobID, func(j *model.Job) error {
		if p, ok := j.Sections[section]; ok {
			p.Status = status
			p.Percentage = pct
			p.Message = msg
			p.UpdatedAt = time.Now()
		}
		return nil
	})
	if err != nil {
		logging.With(ctx, o.log).Warn().Err(err).
			Str("job_id", jobID).
			Str("section", string(section)).
			Msg("section update failed")
	}
}

// parkSection puts a section back into waiting once its task observed the
// cancel flag; the aggregation step then settles the job on cancelled.
func (o *Orchestrator) parkSection(ctx context.Context, jobID string, section model.SectionType) {
	err := o.jobs.Update(ctx, jobID, func(j *model.Job) error {
		if p, ok := j.Sections[section]; ok && !p.Status.Terminal() {
			p.Status = model.SectionStatusWaiting
			p.Message = "cancelled"
			p.UpdatedAt = time.Now()
		}
		return nil
	})
	if err != nil {
		logging.With(ctx, o.log).Debug().Err(err).Str("job_id", jobID).Msg("park section failed")
	}
}

func (o *Orchestrator) failSection(ctx context.Context, jobID string, section model.SectionType, cause error) {
	err := o.jobs.Update(ctx, jobID, func(j *model.Job) error {
		if p, ok := j.Sections[section]; ok {
			p.Status = model.SectionStatusFailed
			p.Message = "failed"
			p.Error = cause.Error()
			p.UpdatedAt = time.Now()
		}
		return nil
	})
	if err != nil {
		logging.With(ctx, o.log).Warn().Err(err).
			Str("job_id", jobID).
			Str("section", string(section)).
			Msg("could not record section failure")
	}
}

func (o *Orchestrator) observeSection(section model.SectionType, status model.SectionStatus, start time.Time) {
	metrics.IncSectionFinished(string(section), string(status))
	metrics.ObserveSectionDuration(string(section), time.Since(start).Seconds())
}

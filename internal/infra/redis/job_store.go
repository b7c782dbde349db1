package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"practicetest-core/internal/domain"
	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/repository"
)

var _ repository.JobStore = (*JobStore)(nil)

// JobStore keeps job snapshots as JSON values with a TTL. Running jobs get
// their TTL refreshed on every write; once a job turns terminal the TTL drops
// to the retention window and the key simply ages out, which is the whole
// garbage collection story.
type JobStore struct {
	client       *Client
	locker       Locker
	runningTTL   time.Duration
	retentionTTL time.Duration
}

func NewJobStore(client *Client, locker Locker, runningTTL, retentionTTL time.Duration) *JobStore {
	return &JobStore{
		client:       client,
		locker:       locker,
		runningTTL:   runningTTL,
		retentionTTL: retentionTTL,
	}
}

func jobKey(id string) string  { return "job:" + id }
func lockKey(id string) string { return "job_lock:" + id }

func (s *JobStore) Create(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return s.client.Set(ctx, jobKey(job.ID), data, s.ttlFor(job))
}

func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	data, err := s.client.Get(ctx, jobKey(id))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	var job model.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *JobStore) Update(ctx context.Context, id string, mutate func(*model.Job) error) error {
	token, err := s.locker.TryLock(ctx, lockKey(id), 5*time.Second)
	if err != nil {
		return err
	}
	defer func() { _ = s.locker.Unlock(context.Background(), lockKey(id), token) }()

	old, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if old.Status.Terminal() {
		// No resurrection: terminal snapshots only age out.
		return nil
	}

	job := cloneJob(old)
	if err := mutate(job); err != nil {
		return err
	}
	enforceMonotonic(old, job)
	job.UpdatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return s.client.Set(ctx, jobKey(id), data, s.ttlFor(job))
}

func (s *JobStore) ttlFor(job *model.Job) time.Duration {
	if job.Status.Terminal() {
		return s.retentionTTL
	}
	return s.runningTTL
}

// enforceMonotonic keeps section percentages non-decreasing and terminal
// sections frozen, whatever the mutate function wrote. The first terminal
// write wins; this is what settles the watchdog-vs-late-task race.
func enforceMonotonic(old, job *model.Job) {
	for key, prev := range old.Sections {
		cur, ok := job.Sections[key]
		if !ok {
			// The section key set is fixed at creation.
			job.Sections[key] = prev
			continue
		}
		if prev.Status.Terminal() {
			*cur = *prev
			continue
		}
		if cur.Percentage < prev.Percentage {
			cur.Percentage = prev.Percentage
		}
	}
	for key := range job.Sections {
		if _, ok := old.Sections[key]; !ok {
			delete(job.Sections, key)
		}
	}
	if old.CancelRequested {
		job.CancelRequested = true
	}
}

func cloneJob(j *model.Job) *model.Job {
	cp := *j
	cp.Sections = make(map[model.SectionType]*model.SectionProgress, len(j.Sections))
	for k, v := range j.Sections {
		p := *v
		cp.Sections[k] = &p
	}
	cp.Results = make(map[model.SectionType][]model.PoolItem, len(j.Results))
	for k, v := range j.Results {
		cp.Results[k] = append([]model.PoolItem(nil), v...)
	}
	return &cp
}

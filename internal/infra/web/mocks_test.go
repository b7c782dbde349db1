package web

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"practicetest-core/internal/domain"
	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/adapter"
	"practicetest-core/internal/domain/ports/repository"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newMemJobStore() *memJobStore { return &memJobStore{jobs: map[string]*model.Job{}} }

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

func (m *memJobStore) Create(_ context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = cloneJob(job)
	return nil
}

func (m *memJobStore) Get(_ context.Context, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (m *memJobStore) Update(_ context.Context, id string, mutate func(*model.Job) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if old.Status.Terminal() {
		return nil
	}
	job := cloneJob(old)
	if err := mutate(job); err != nil {
		return err
	}
	job.UpdatedAt = time.Now()
	m.jobs[id] = job
	return nil
}

type memPoolRepo struct {
	mu     sync.Mutex
	items  []model.PoolItem
	ledger map[string]map[string]bool
}

func newMemPoolRepo() *memPoolRepo { return &memPoolRepo{ledger: map[string]map[string]bool{}} }

func (m *memPoolRepo) seed(section model.SectionType, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		payload, _ := json.Marshal(map[string]string{"question": fmt.Sprintf("q%d", i)})
		m.items = append(m.items, model.PoolItem{
			ID:          uuid.NewString(),
			ContentType: "question",
			Section:     section,
			Payload:     payload,
			CreatedAt:   time.Now(),
		})
	}
}

func (m *memPoolRepo) Insert(_ context.Context, _ repository.Tx, items []model.PoolItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, items...)
	return nil
}

func (m *memPoolRepo) ClaimUnused(_ context.Context, userID string, f repository.ClaimFilter, count int) ([]model.PoolItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.ledger[userID]
	if used == nil {
		used = map[string]bool{}
		m.ledger[userID] = used
	}
	claimed := make([]model.PoolItem, 0, count)
	for _, it := range m.items {
		if len(claimed) == count {
			break
		}
		if it.Section != f.Section || used[it.ID] {
			continue
		}
		used[it.ID] = true
		claimed = append(claimed, it)
	}
	return claimed, nil
}

func (m *memPoolRepo) RecordUsage(_ context.Context, _ repository.Tx, userID string, items []model.PoolItem, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.ledger[userID]
	if used == nil {
		used = map[string]bool{}
		m.ledger[userID] = used
	}
	for _, it := range items {
		used[it.ID] = true
	}
	return nil
}

func (m *memPoolRepo) CountUnused(_ context.Context, userID string, f repository.ClaimFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.ledger[userID]
	n := 0
	for _, it := range m.items {
		if it.Section == f.Section && !used[it.ID] {
			n++
		}
	}
	return n, nil
}

type memQuotaRepo struct {
	mu     sync.Mutex
	limits map[string]*model.DailyLimit
}

func newMemQuotaRepo() *memQuotaRepo { return &memQuotaRepo{limits: map[string]*model.DailyLimit{}} }

func (m *memQuotaRepo) GetOrReset(_ context.Context, userID string, today time.Time) (*model.DailyLimit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := today.UTC().Truncate(24 * time.Hour)
	dl, ok := m.limits[userID]
	if !ok || dl.LastResetDate.Before(day) {
		dl = &model.DailyLimit{UserID: userID, LastResetDate: day, Counters: map[model.SectionType]int{}}
		m.limits[userID] = dl
	}
	cp := &model.DailyLimit{UserID: userID, LastResetDate: dl.LastResetDate, Counters: map[model.SectionType]int{}}
	for k, v := range dl.Counters {
		cp.Counters[k] = v
	}
	return cp, nil
}

func (m *memQuotaRepo) Commit(ctx context.Context, userID string, today time.Time, counts map[model.SectionType]int) error {
	if _, err := m.GetOrReset(ctx, userID, today); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for section, n := range counts {
		if n > 0 {
			m.limits[userID].Counters[section] += n
		}
	}
	return nil
}

type stubGenerator struct{}

func (stubGenerator) Name() string { return "stub" }

func (stubGenerator) Generate(_ context.Context, req adapter.GenerateRequest) ([]model.PoolItem, error) {
	items := make([]model.PoolItem, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		payload, _ := json.Marshal(map[string]string{"question": fmt.Sprintf("generated %d", i)})
		items = append(items, model.PoolItem{
			ID:          uuid.NewString(),
			ContentType: "question",
			Section:     req.Section,
			Subsection:  req.Subsection,
			Difficulty:  req.Difficulty,
			Payload:     payload,
			CreatedAt:   time.Now(),
		})
	}
	return items, nil
}

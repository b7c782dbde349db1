package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"practicetest-core/internal/domain"
	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/adapter"
	"practicetest-core/internal/domain/ports/repository"
)

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

//
// ---------------- in-memory pool repository ----------------
//

type memPoolRepo struct {
	mu     sync.Mutex
	items  []model.PoolItem
	ledger map[string]map[string]string // user -> item id -> usage type
}

func newMemPoolRepo() *memPoolRepo {
	return &memPoolRepo{ledger: map[string]map[string]string{}}
}

func (m *memPoolRepo) Insert(_ context.Context, _ repository.Tx, items []model.PoolItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = time.Now()
		}
		m.items = append(m.items, items[i])
	}
	return nil
}

func (m *memPoolRepo) matches(it model.PoolItem, f repository.ClaimFilter) bool {
	if it.Section != f.Section {
		return false
	}
	if f.Subsection != "" && it.Subsection != f.Subsection {
		return false
	}
	if f.Difficulty != "" && it.Difficulty != f.Difficulty {
		return false
	}
	return true
}

func (m *memPoolRepo) ClaimUnused(_ context.Context, userID string, f repository.ClaimFilter, count int) ([]model.PoolItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := make([]model.PoolItem, 0)
	for _, it := range m.items {
		if m.matches(it, f) {
			candidates = append(candidates, it)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	used := m.ledger[userID]
	if used == nil {
		used = map[string]string{}
		m.ledger[userID] = used
	}
	claimed := make([]model.PoolItem, 0, count)
	for _, it := range candidates {
		if len(claimed) == count {
			break
		}
		if _, seen := used[it.ID]; seen {
			continue
		}
		used[it.ID] = model.UsagePool
		claimed = append(claimed, it)
	}
	return claimed, nil
}

func (m *memPoolRepo) RecordUsage(_ context.Context, _ repository.Tx, userID string, items []model.PoolItem, usageType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.ledger[userID]
	if used == nil {
		used = map[string]string{}
		m.ledger[userID] = used
	}
	for _, it := range items {
		if _, seen := used[it.ID]; !seen {
			used[it.ID] = usageType
		}
	}
	return nil
}

func (m *memPoolRepo) CountUnused(_ context.Context, userID string, f repository.ClaimFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.ledger[userID]
	n := 0
	for _, it := range m.items {
		if !m.matches(it, f) {
			continue
		}
		if _, seen := used[it.ID]; !seen {
			n++
		}
	}
	return n, nil
}

func (m *memPoolRepo) ledgerSize(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ledger[userID])
}

func seedItems(repo *memPoolRepo, section model.SectionType, n int) []model.PoolItem {
	items := make([]model.PoolItem, 0, n)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		payload, _ := json.Marshal(map[string]string{"question": fmt.Sprintf("q%d", i)})
		items = append(items, model.PoolItem{
			ID:          uuid.NewString(),
			ContentType: "question",
			Section:     section,
			Payload:     payload,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		})
	}
	_ = repo.Insert(context.Background(), nil, items)
	return items
}

//
// ---------------- in-memory quota repository ----------------
//

type memQuotaRepo struct {
	mu     sync.Mutex
	limits map[string]*model.DailyLimit
	resets int
}

func newMemQuotaRepo() *memQuotaRepo {
	return &memQuotaRepo{limits: map[string]*model.DailyLimit{}}
}

func (m *memQuotaRepo) GetOrReset(_ context.Context, userID string, today time.Time) (*model.DailyLimit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := today.UTC().Truncate(24 * time.Hour)
	dl, ok := m.limits[userID]
	if !ok {
		dl = &model.DailyLimit{UserID: userID, LastResetDate: day, Counters: map[model.SectionType]int{}}
		m.limits[userID] = dl
	} else if dl.LastResetDate.Before(day) {
		dl.LastResetDate = day
		dl.Counters = map[model.SectionType]int{}
		m.resets++
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
	dl := m.limits[userID]
	for section, n := range counts {
		if n > 0 {
			dl.Counters[section] += n
		}
	}
	return nil
}

//
// ---------------- in-memory job store ----------------
//

type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: map[string]*model.Job{}}
}

func cloneTestJob(j *model.Job) *model.Job {
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
	m.jobs[job.ID] = cloneTestJob(job)
	return nil
}

func (m *memJobStore) Get(_ context.Context, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return cloneTestJob(job), nil
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
	job := cloneTestJob(old)
	if err := mutate(job); err != nil {
		return err
	}
	// same invariants the real store enforces
	for key, prev := range old.Sections {
		cur := job.Sections[key]
		if prev.Status.Terminal() {
			*cur = *prev
			continue
		}
		if cur.Percentage < prev.Percentage {
			cur.Percentage = prev.Percentage
		}
	}
	if old.CancelRequested {
		job.CancelRequested = true
	}
	job.UpdatedAt = time.Now()
	m.jobs[id] = job
	return nil
}

//
// ---------------- fake generator ----------------
//

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	failFor  map[model.SectionType]error
	blockFor map[model.SectionType]chan struct{}
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		failFor:  map[model.SectionType]error{},
		blockFor: map[model.SectionType]chan struct{}{},
	}
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGenerator) Generate(ctx context.Context, req adapter.GenerateRequest) ([]model.PoolItem, error) {
	g.mu.Lock()
	g.calls++
	failErr := g.failFor[req.Section]
	block := g.blockFor[req.Section]
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failErr != nil {
		return nil, failErr
	}

	now := time.Now()
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
			CreatedAt:   now,
		})
	}
	return items, nil
}

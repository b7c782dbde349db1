package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/domain/ports/repository"
	"practicetest-core/internal/infra/metrics"
)

// defaultRole is assumed when a token carries no recognised role claim.
const defaultRole = "free"

// QuotaService enforces per-user per-section daily caps. Limits come from
// config per role; the counters live in the quota repository and roll over
// lazily on the first access of a new day.
type QuotaService struct {
	repo  repository.QuotaRepository
	roles map[string]map[string]int
	log   *zerolog.Logger
	now   func() time.Time
}

func NewQuotaService(repo repository.QuotaRepository, roles map[string]map[string]int, log *zerolog.Logger) *QuotaService {
	return &QuotaService{repo: repo, roles: roles, log: log, now: time.Now}
}

func (s *QuotaService) limitFor(role string, section model.SectionType) int {
	limits, ok := s.roles[role]
	if !ok {
		limits = s.roles[defaultRole]
	}
	if limits == nil {
		return 0
	}
	n, ok := limits[string(section)]
	if !ok {
		return 0
	}
	return n
}

// Check returns how many items the user may still generate for the section
// today: min(requested, max(0, limit-used)). A zero grant is not an error
// here; the caller decides whether the section was required.
func (s *QuotaService) Check(ctx context.Context, userID, role string, section model.SectionType, requested int) (int, error) {
	limit := s.limitFor(role, section)
	if limit == model.UnlimitedQuota {
		return requested, nil
	}
	dl, err := s.repo.GetOrReset(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}
	remaining := limit - dl.Used(section)
	if remaining < 0 {
		remaining = 0
	}
	if requested < remaining {
		return requested, nil
	}
	return remaining, nil
}

// Commit increments counters after content has actually been produced. Failed
// generation never reaches this point, so quota is never pre-charged.
func (s *QuotaService) Commit(ctx context.Context, userID string, counts map[model.SectionType]int) error {
	if err := s.repo.Commit(ctx, userID, s.now(), counts); err != nil {
		return err
	}
	for section, n := range counts {
		metrics.AddQuotaCommitted(string(section), n)
	}
	return nil
}

// Snapshot builds the usage/limits view attached to quota rejections and the
// limits endpoint.
func (s *QuotaService) Snapshot(ctx context.Context, userID, role string) (model.LimitsInfo, error) {
	dl, err := s.repo.GetOrReset(ctx, userID, s.now())
	if err != nil {
		return model.LimitsInfo{}, err
	}
	info := model.LimitsInfo{
		Usage:  map[string]int{},
		Limits: map[string]int{},
	}
	limits, ok := s.roles[role]
	if !ok {
		limits = s.roles[defaultRole]
	}
	for section, n := range limits {
		info.Limits[section] = n
		info.Usage[section] = dl.Used(model.SectionType(section))
	}
	return info, nil
}

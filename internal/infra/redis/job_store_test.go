package redis

import (
	"testing"
	"time"

	"practicetest-core/internal/domain/model"
)

func twoSectionJob() *model.Job {
	return model.NewJob("j1", "u1", "medium",
		[]model.SectionType{model.SectionQuantitative, model.SectionReading}, time.Now())
}

func TestEnforceMonotonic_PercentagesNeverDrop(t *testing.T) {
	t.Parallel()

	old := twoSectionJob()
	old.Sections[model.SectionQuantitative].Percentage = 60

	job := cloneJob(old)
	job.Sections[model.SectionQuantitative].Percentage = 20
	enforceMonotonic(old, job)

	if got := job.Sections[model.SectionQuantitative].Percentage; got != 60 {
		t.Fatalf("percentage dropped to %d", got)
	}
}

func TestEnforceMonotonic_FirstTerminalWriteWins(t *testing.T) {
	t.Parallel()

	// The watchdog failed the section; a late task tries to complete it.
	old := twoSectionJob()
	old.Sections[model.SectionReading].Status = model.SectionStatusFailed
	old.Sections[model.SectionReading].Error = "generation timed out after 3m0s"

	job := cloneJob(old)
	job.Sections[model.SectionReading].Status = model.SectionStatusCompleted
	job.Sections[model.SectionReading].Percentage = 100
	job.Sections[model.SectionReading].Error = ""
	enforceMonotonic(old, job)

	p := job.Sections[model.SectionReading]
	if p.Status != model.SectionStatusFailed || p.Error == "" {
		t.Fatalf("terminal section was rewritten: %s %q", p.Status, p.Error)
	}
}

func TestEnforceMonotonic_SectionKeySetIsFixed(t *testing.T) {
	t.Parallel()

	old := twoSectionJob()
	job := cloneJob(old)
	delete(job.Sections, model.SectionReading)
	job.Sections[model.SectionWriting] = &model.SectionProgress{
		Section: model.SectionWriting,
		Status:  model.SectionStatusWaiting,
	}
	enforceMonotonic(old, job)

	if _, ok := job.Sections[model.SectionReading]; !ok {
		t.Fatal("dropped section was not restored")
	}
	if _, ok := job.Sections[model.SectionWriting]; ok {
		t.Fatal("foreign section was not removed")
	}
}

func TestEnforceMonotonic_CancelFlagIsSticky(t *testing.T) {
	t.Parallel()

	old := twoSectionJob()
	old.CancelRequested = true

	job := cloneJob(old)
	job.CancelRequested = false
	enforceMonotonic(old, job)

	if !job.CancelRequested {
		t.Fatal("cancel flag was cleared")
	}
}

func TestCloneJob_IsDeep(t *testing.T) {
	t.Parallel()

	old := twoSectionJob()
	old.Results = map[model.SectionType][]model.PoolItem{
		model.SectionQuantitative: {{ID: "a"}},
	}

	cp := cloneJob(old)
	cp.Sections[model.SectionQuantitative].Percentage = 99
	cp.Results[model.SectionQuantitative][0].ID = "b"

	if old.Sections[model.SectionQuantitative].Percentage != 0 {
		t.Fatal("section mutation leaked into the original")
	}
	if old.Results[model.SectionQuantitative][0].ID != "a" {
		t.Fatal("result mutation leaked into the original")
	}
}

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"practicetest-core/internal/domain"
	"practicetest-core/internal/domain/model"
	"practicetest-core/internal/usecase"
)

type createJobRequest struct {
	Difficulty string `json:"difficulty"`
	Sections   []struct {
		Type       string `json:"type"`
		Count      int    `json:"count"`
		Subsection string `json:"subsection,omitempty"`
	} `json:"sections"`
}

type sectionStatusView struct {
	Status     string `json:"status"`
	Percentage int    `json:"percentage"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

type statusResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Progress struct {
		Completed  int `json:"completed"`
		Total      int `json:"total"`
		Percentage int `json:"percentage"`
	} `json:"progress"`
	Sections  map[string]sectionStatusView `json:"sections"`
	Error     string                       `json:"error,omitempty"`
	CreatedAt time.Time                    `json:"created_at"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

func (s *Server) createJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, role := identityFrom(ctx)

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	specs := make([]usecase.SectionSpec, 0, len(req.Sections))
	for _, sec := range req.Sections {
		specs = append(specs, usecase.SectionSpec{
			Section:    model.SectionType(sec.Type),
			Count:      sec.Count,
			Subsection: sec.Subsection,
		})
	}

	jobID, err := s.orc.CreateJob(ctx, userID, role, req.Difficulty, specs)
	if err != nil {
		var qe *domain.QuotaExceededError
		switch {
		case errors.As(err, &qe):
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":          qe.Error(),
				"limit_exceeded": true,
				"limits_info": map[string]any{
					"usage":  qe.Usage,
					"limits": qe.Limits,
				},
			})
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.log.Error().Err(err).Msg("create job failed")
			writeError(w, http.StatusInternalServerError, "could not create job")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) jobStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	job, err := s.orc.Status(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, domain.ErrJobNotFound.Error())
			return
		}
		s.log.Error().Err(err).Str("job_id", jobID).Msg("status read failed")
		writeError(w, http.StatusInternalServerError, "could not read job status")
		return
	}

	resp := statusResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		Sections:  make(map[string]sectionStatusView, len(job.Sections)),
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	resp.Progress.Completed, resp.Progress.Total, resp.Progress.Percentage = job.Progress()
	for section, p := range job.Sections {
		resp.Sections[string(section)] = sectionStatusView{
			Status:     string(p.Status),
			Percentage: p.Percentage,
			Message:    p.Message,
			Error:      p.Error,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) jobResultHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	job, err := s.orc.Result(ctx, jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			writeError(w, http.StatusNotFound, domain.ErrJobNotFound.Error())
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusConflict, "job has not finished yet")
		default:
			s.log.Error().Err(err).Str("job_id", jobID).Msg("result read failed")
			writeError(w, http.StatusInternalServerError, "could not read job result")
		}
		return
	}

	// A partial job still returns every section that completed; the client
	// renders what succeeded and flags the rest.
	sections := make(map[string]any, len(job.Results))
	for section, items := range job.Results {
		sections[string(section)] = items
	}
	failed := make(map[string]string)
	for section, p := range job.Sections {
		if p.Status == model.SectionStatusFailed {
			failed[string(section)] = p.Error
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   job.ID,
		"status":   string(job.Status),
		"sections": sections,
		"failed":   failed,
	})
}

func (s *Server) cancelJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	if err := s.orc.Cancel(ctx, jobID); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, domain.ErrJobNotFound.Error())
			return
		}
		s.log.Error().Err(err).Str("job_id", jobID).Msg("cancel failed")
		writeError(w, http.StatusInternalServerError, "could not cancel job")
		return
	}
	// Cancellation is cooperative; in-flight generation may still complete.
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "status": "cancel_requested"})
}

func (s *Server) limitsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, role := identityFrom(ctx)

	info, err := s.quota.Snapshot(ctx, userID, role)
	if err != nil {
		s.log.Error().Err(err).Msg("limits snapshot failed")
		writeError(w, http.StatusInternalServerError, "could not read limits")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

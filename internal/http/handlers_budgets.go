package http

import (
	"net/http"

	"finboard/internal/core"
	"finboard/internal/services"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request, owner string) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	in, err := req.input(s.loc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	b, err := s.budgets.Create(r.Context(), owner, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// handleListBudgets lists budgets; ?active=true hides inactive ones.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request, owner string) {
	activeOnly, err := parseBool(r.URL.Query(), "active")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	budgets, err := s.budgets.List(r.Context(), owner, activeOnly)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(budgets))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request, owner string) {
	b, err := s.budgets.Get(r.Context(), owner, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, owner string) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	in, err := req.input(s.loc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	b, err := s.budgets.Update(r.Context(), owner, r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request, owner string) {
	if err := s.budgets.Delete(r.Context(), owner, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request, owner string) {
	p, err := s.budgets.Progress(r.Context(), owner, r.PathValue("id"), s.now().In(s.loc))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProgressAll(w http.ResponseWriter, r *http.Request, owner string) {
	all, err := s.budgets.ProgressAll(r.Context(), owner, s.now().In(s.loc))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil[core.BudgetProgress](all))
}

func (s *Server) handleThresholdAlerts(w http.ResponseWriter, r *http.Request, owner string) {
	alerts, err := s.budgets.ThresholdAlerts(r.Context(), owner, s.now().In(s.loc))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil[services.ThresholdAlert](alerts))
}

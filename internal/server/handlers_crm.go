package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/entity"
	"github.com/freightline/loadbook/internal/repository"
)

func urlID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func (s *Server) handleListBrokers(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	brokers, err := s.brokers.ListByAccount(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	if brokers == nil {
		brokers = []entity.Broker{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"brokers": brokers, "count": len(brokers)})
}

// handleCreateBroker registers a broker by hand, ahead of any load naming
// them. The row starts as a prospect with zero aggregates; the next sync
// fills the aggregates in without touching status or notes.
func (s *Server) handleCreateBroker(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())

	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if body.Name == "" || body.Email == "" {
		badRequest(w, "name and email are required")
		return
	}

	created, err := s.brokers.UpsertAggregates(r.Context(), entity.Broker{
		AccountID:    account,
		Name:         body.Name,
		Email:        body.Email,
		Phone:        strings.TrimSpace(body.Phone),
		TotalRevenue: "0.00",
		AvgRate:      "0.00",
	})
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{"created": created, "email": body.Email})
}

func (s *Server) handleGetBroker(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	id, ok := urlID(r)
	if !ok {
		badRequest(w, "invalid broker id")
		return
	}
	b, err := s.brokers.GetByID(r.Context(), account, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleUpdateBroker edits the user-owned fields. Aggregate columns are not
// editable here; the sync engine owns them.
func (s *Server) handleUpdateBroker(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	id, ok := urlID(r)
	if !ok {
		badRequest(w, "invalid broker id")
		return
	}

	var fields repository.BrokerUserFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if fields.Status != nil && !validBrokerStatus(*fields.Status) {
		badRequest(w, "status must be active, inactive or prospect")
		return
	}

	b, err := s.brokers.UpdateUserFields(r.Context(), account, id, fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func validBrokerStatus(status string) bool {
	switch status {
	case entity.BrokerActive, entity.BrokerInactive, entity.BrokerProspect:
		return true
	}
	return false
}

// handleCRMSync recomputes broker aggregates from the canonical load set,
// synchronously, and reports how many rows were written.
func (s *Server) handleCRMSync(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	loads, err := s.loads.ListByAccount(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	synced, updated, err := s.aggregator.SyncFromLoads(r.Context(), account, loads)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"synced": synced, "updated": updated})
}

// --- interactions ---

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	brokerID, ok := urlID(r)
	if !ok {
		badRequest(w, "invalid broker id")
		return
	}
	items, err := s.interactions.ListByBroker(r.Context(), account, brokerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []entity.BrokerInteraction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"interactions": items, "count": len(items)})
}

func (s *Server) handleCreateInteraction(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	brokerID, ok := urlID(r)
	if !ok {
		badRequest(w, "invalid broker id")
		return
	}
	// The broker must exist in this partition.
	if _, err := s.brokers.GetByID(r.Context(), account, brokerID); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		Kind       string     `json:"kind"`
		Summary    string     `json:"summary"`
		OccurredAt *time.Time `json:"occurred_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Summary) == "" {
		badRequest(w, "summary is required")
		return
	}

	in := entity.BrokerInteraction{
		BrokerID:  brokerID,
		AccountID: account,
		Kind:      strings.TrimSpace(body.Kind),
		Summary:   strings.TrimSpace(body.Summary),
	}
	if body.OccurredAt != nil {
		in.OccurredAt = body.OccurredAt.UTC()
	}
	created, err := s.interactions.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteInteraction(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	id, ok := urlID(r)
	if !ok {
		badRequest(w, "invalid interaction id")
		return
	}
	if err := s.interactions.Delete(r.Context(), account, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- tasks ---

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	tasks, err := s.tasks.ListByAccount(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []entity.BrokerTask{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())

	var body struct {
		BrokerID string  `json:"broker_id"`
		Title    string  `json:"title"`
		Priority string  `json:"priority"`
		DueDate  *string `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	brokerID, err := uuid.Parse(body.BrokerID)
	if err != nil {
		badRequest(w, "invalid broker id")
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		badRequest(w, "title is required")
		return
	}
	if _, err := s.brokers.GetByID(r.Context(), account, brokerID); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.tasks.Create(r.Context(), entity.BrokerTask{
		BrokerID:  brokerID,
		AccountID: account,
		Title:     strings.TrimSpace(body.Title),
		Priority:  strings.TrimSpace(body.Priority),
		DueDate:   body.DueDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	id, ok := urlID(r)
	if !ok {
		badRequest(w, "invalid task id")
		return
	}
	var upd repository.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	t, err := s.tasks.Update(r.Context(), account, id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	id, ok := urlID(r)
	if !ok {
		badRequest(w, "invalid task id")
		return
	}
	if err := s.tasks.Delete(r.Context(), account, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

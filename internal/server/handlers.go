package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SafeerAbbas624/lead-management-system/internal/distribution"
	"github.com/SafeerAbbas624/lead-management-system/internal/dnc"
	"github.com/SafeerAbbas624/lead-management-system/internal/session"
)

// readUpload pulls the "file" part out of a multipart request.
func (s *Server) readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return "", nil, fmt.Errorf("parse multipart form: %w", err)
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("missing file part: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.maxUploadBytes))
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return header.Filename, data, nil
}

func (s *Server) handleUploadStart(w http.ResponseWriter, r *http.Request) {
	filename, data, err := s.readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.pipeline.Start(r.Context(), filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": sess.ID,
		"filename":   sess.FileName,
		"total_rows": sess.RowCount,
		"headers":    sess.Headers,
		"mapping":    sess.Mapping.FieldToHeader,
		"confidence": sess.Mapping.OverallConfidence(len(sess.Headers)),
		"steps":      sess.Steps,
	})
}

type stepRequest struct {
	SessionID string             `json:"session_id"`
	Step      string             `json:"step"`
	Params    session.StepParams `json:"params"`
}

func (s *Server) handleUploadStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.pipeline.ExecuteStep(r.Context(), req.SessionID, session.Step(req.Step), req.Params)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": result.Status != session.StatusError,
		"result":  result,
	})
}

type supplierRequest struct {
	SessionID  string  `json:"session_id"`
	SupplierID int64   `json:"supplier_id"`
	CostAmount float64 `json:"cost_amount"`
	CostMode   string  `json:"cost_mode"`
}

func (s *Server) handleSetSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.pipeline.SetSupplier(r.Context(), req.SessionID, req.SupplierID, req.CostAmount, req.CostMode)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": result.Status != session.StatusError,
		"result":  result,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.pipeline.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": sess.ID,
		"filename":   sess.FileName,
		"total_rows": sess.RowCount,
		"status":     sess.Status(),
		"steps":      sess.Steps,
		"supplier":   sess.SupplierName,
		"batch_id":   sess.BatchID,
		"created_at": sess.CreatedAt,
		"updated_at": sess.UpdatedAt,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Delete(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.store.ListCompletedBatches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "batches": batches})
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.store.ListActiveClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "clients": clients})
}

func (s *Server) handleDistributionHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	entries, err := s.allocator.History(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "history": entries})
}

type checkHistoryRequest struct {
	ClientIDs []int64 `json:"client_ids"`
	LeadIDs   []int64 `json:"lead_ids"`
}

func (s *Server) handleCheckClientHistory(w http.ResponseWriter, r *http.Request) {
	var req checkHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	conflicts, err := s.allocator.CheckClientHistory(r.Context(), req.ClientIDs, req.LeadIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"has_conflicts": len(conflicts) > 0,
		"conflicts":     conflicts,
	})
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	var req distribution.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	dist, err := s.allocator.Distribute(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "distribution": dist})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid distribution id")
		return
	}

	// Resolve the distribution before writing headers so a bad id still
	// gets a JSON error instead of a half-written CSV.
	dist, err := s.store.GetDistribution(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if dist == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("distribution %d not found", id))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dist.ExportedFilename))
	if _, err := s.allocator.ExportCSV(r.Context(), id, w); err != nil {
		// Headers are already out; nothing useful left to send.
		return
	}
}

func (s *Server) handleDNCUpload(w http.ResponseWriter, r *http.Request) {
	filename, data, err := s.readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	listName := r.FormValue("list_name")

	res, err := dnc.IngestFile(r.Context(), s.store, listName, filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": res})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrUnknownStep):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

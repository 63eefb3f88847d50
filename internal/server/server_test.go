package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafeerAbbas624/lead-management-system/internal/cleaner"
	"github.com/SafeerAbbas624/lead-management-system/internal/distribution"
	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
	"github.com/SafeerAbbas624/lead-management-system/internal/session"
)

func newTestServer(t *testing.T, store *lead.MemStore) http.Handler {
	t.Helper()
	arena := session.NewMemArena(0, 0)
	pipeline := session.NewPipeline(store, arena, cleaner.DefaultOptions(), 10, 20)
	allocator := distribution.NewAllocator(store, 100, rand.New(rand.NewSource(1)))
	return New(store, pipeline, allocator, 0, nil).Router()
}

func multipartBody(t *testing.T, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var out map[string]any
	if strings.Contains(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, lead.NewMem())
	w, out := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestUploadFlow(t *testing.T) {
	store := lead.NewMem()
	store.SeedSupplier(lead.Supplier{ID: 1, Name: "Acme Leads", IsActive: true})
	h := newTestServer(t, store)

	csv := "Email,First,Last,Cell\nann@x.com,ann,lee,5551234567\nBOB@x.com,bob,ray,5559876543\n"
	body, ctype := multipartBody(t, "leads.csv", []byte(csv), nil)
	r := httptest.NewRequest(http.MethodPost, "/api/upload/start", body)
	r.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var started map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	sessionID, _ := started["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.Equal(t, float64(2), started["total_rows"])

	// Run a step.
	w2, out := doJSON(t, h, http.MethodPost, "/api/upload/step", map[string]any{
		"session_id": sessionID,
		"step":       "data-cleaning",
	})
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, true, out["success"])

	// Bind the supplier.
	w2, out = doJSON(t, h, http.MethodPost, "/api/upload/supplier", map[string]any{
		"session_id":  sessionID,
		"supplier_id": 1,
		"cost_amount": 100,
		"cost_mode":   "total_sheet",
	})
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, true, out["success"])

	// Fetch the session.
	w2, out = doJSON(t, h, http.MethodGet, "/api/upload/session/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "Acme Leads", out["supplier"])

	// Delete it.
	w2, _ = doJSON(t, h, http.MethodDelete, "/api/upload/session/"+sessionID, nil)
	assert.Equal(t, http.StatusOK, w2.Code)
	w2, _ = doJSON(t, h, http.MethodGet, "/api/upload/session/"+sessionID, nil)
	assert.Equal(t, http.StatusNotFound, w2.Code)
}

func TestUploadStep_Errors(t *testing.T) {
	h := newTestServer(t, lead.NewMem())

	w, _ := doJSON(t, h, http.MethodPost, "/api/upload/step", map[string]any{
		"session_id": "nope",
		"step":       "preview",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, h, http.MethodPost, "/api/upload/step", map[string]any{
		"session_id": "nope",
		"step":       "reticulate",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func seedDistributable(t *testing.T, store *lead.MemStore, n int) int64 {
	t.Helper()
	ctx := context.Background()
	batch := &lead.UploadBatch{FileName: "acme.csv", SourceName: "Acme", Status: lead.BatchCompleted}
	require.NoError(t, store.CreateBatch(ctx, batch))

	leads := make([]lead.Lead, n)
	for i := range leads {
		leads[i] = lead.Lead{
			Email:         fmt.Sprintf("l%d@x.com", i),
			Phone:         fmt.Sprintf("55500%05d", i),
			UploadBatchID: batch.ID,
		}
	}
	_, err := store.InsertLeads(ctx, leads)
	require.NoError(t, err)
	return batch.ID
}

func TestDistributionEndpoints(t *testing.T) {
	store := lead.NewMem()
	store.SeedClient(lead.Client{ID: 1, Name: "Alpha", IsActive: true})
	batchID := seedDistributable(t, store, 4)
	h := newTestServer(t, store)

	w, out := doJSON(t, h, http.MethodGet, "/api/distribution/batches", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["batches"], 1)

	w, out = doJSON(t, h, http.MethodGet, "/api/distribution/clients", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["clients"], 1)

	w, out = doJSON(t, h, http.MethodPost, "/api/distribution/distribute", map[string]any{
		"batches":                 []map[string]any{{"batch_id": batchID, "percentage": 100}},
		"client_ids":              []int64{1},
		"selling_price_per_sheet": 40,
	})
	require.Equal(t, http.StatusOK, w.Code)
	dist := out["distribution"].(map[string]any)
	assert.Equal(t, float64(4), dist["leadsallocated"])
	distID := int64(dist["id"].(float64))

	w, out = doJSON(t, h, http.MethodGet, "/api/distribution/history", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["history"], 1)

	w, out = doJSON(t, h, http.MethodPost, "/api/distribution/check-client-history", map[string]any{
		"client_ids": []int64{1},
		"lead_ids":   []int64{1, 2, 3, 4},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["has_conflicts"])

	r := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/distribution/export-csv/%d", distID), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "lead_distribution_")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 5) // header plus four leads
}

func TestExportCSV_NotFound(t *testing.T) {
	h := newTestServer(t, lead.NewMem())
	w, _ := doJSON(t, h, http.MethodGet, "/api/distribution/export-csv/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDNCUpload(t *testing.T) {
	store := lead.NewMem()
	h := newTestServer(t, store)

	body, ctype := multipartBody(t, "dnc.csv", []byte("value\nblock@x.com\n5551234567\n"), map[string]string{
		"list_name": "Client Blocklist",
	})
	r := httptest.NewRequest(http.MethodPost, "/api/dnc/upload", body)
	r.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	result := out["result"].(map[string]any)
	assert.Equal(t, float64(1), result["emails"])
	assert.Equal(t, float64(1), result["phones"])

	list, err := store.GetDNCListByName(context.Background(), "Client Blocklist")
	require.NoError(t, err)
	require.NotNil(t, list)
}

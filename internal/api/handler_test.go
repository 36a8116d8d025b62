package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-engine/internal/admission"
	"promo-engine/internal/eligibility"
	"promo-engine/internal/storage"
)

type mockStore struct {
	promos []eligibility.Promotion
	err    error
}

func (m *mockStore) LoadAll(context.Context) ([]eligibility.Promotion, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]eligibility.Promotion(nil), m.promos...), nil
}

func (m *mockStore) LoadOne(_ context.Context, id string) (*eligibility.Promotion, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.promos {
		if m.promos[i].ID == id {
			p := m.promos[i]
			return &p, nil
		}
	}
	return nil, admission.ErrNotFound
}

func (m *mockStore) Save(_ context.Context, id string, patch admission.Patch) (*eligibility.Promotion, error) {
	for i := range m.promos {
		if m.promos[i].ID == id {
			m.promos[i] = patch.Apply(m.promos[i])
			p := m.promos[i]
			return &p, nil
		}
	}
	return nil, admission.ErrNotFound
}

func (m *mockStore) Create(_ context.Context, p eligibility.Promotion) (*eligibility.Promotion, error) {
	m.promos = append(m.promos, p)
	return &p, nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	for i := range m.promos {
		if m.promos[i].ID == id {
			m.promos = append(m.promos[:i], m.promos[i+1:]...)
			return nil
		}
	}
	return admission.ErrNotFound
}

// Monday noon.
var noon = time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

func newTestHandler(store *mockStore, warmCache bool) *PromotionHandler {
	ctrl := admission.New(store, admission.Options{
		Now:      func() time.Time { return noon },
		Location: time.UTC,
	})
	cache := storage.NewCache()
	if warmCache {
		cache.Update(append([]eligibility.Promotion(nil), store.promos...))
	}
	return NewPromotionHandler(ctrl, store, cache)
}

func doRequest(h *PromotionHandler, method, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	w := httptest.NewRecorder()
	Router(h).ServeHTTP(w, req)
	return w
}

func TestStorefront(t *testing.T) {
	tests := []struct {
		name       string
		promos     []eligibility.Promotion
		wantStatus int
		wantIDs    []string
	}{
		{
			name:       "no promotions at all",
			promos:     nil,
			wantStatus: http.StatusNoContent,
		},
		{
			name: "only ineligible promotions",
			promos: []eligibility.Promotion{
				{ID: "1", Title: "Off", IsActive: false},
				{ID: "2", Title: "Sunday Brunch", IsActive: true, Days: []time.Weekday{time.Sunday}},
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name: "eligible subset served",
			promos: []eligibility.Promotion{
				{ID: "1", Title: "Happy Hour", IsActive: true},
				{ID: "2", Title: "Off", IsActive: false},
				{ID: "3", Title: "Monday Deal", IsActive: true, Days: []time.Weekday{time.Monday}},
			},
			wantStatus: http.StatusOK,
			wantIDs:    []string{"1", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&mockStore{promos: tt.promos}, true)
			w := doRequest(h, "GET", "/v1/promotions", "")
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusOK {
				var banners []Banner
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &banners))
				ids := make([]string, len(banners))
				for i, b := range banners {
					ids[i] = b.ID
				}
				assert.Equal(t, tt.wantIDs, ids)
			}
		})
	}
}

func TestStorefront_ColdCacheFallsBackToStore(t *testing.T) {
	store := &mockStore{promos: []eligibility.Promotion{
		{ID: "1", Title: "Happy Hour", IsActive: true},
	}}
	h := newTestHandler(store, false)

	w := doRequest(h, "GET", "/v1/promotions", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminPatch_PriorityConflict(t *testing.T) {
	store := &mockStore{promos: []eligibility.Promotion{
		{ID: "a", Title: "Happy Hour", IsActive: true, IsPriority: true},
		{ID: "b", Title: "Taco Monday", IsActive: true, IsPriority: true},
		{ID: "d", Title: "Late Night", IsActive: false, IsPriority: true},
	}}
	h := newTestHandler(store, true)

	w := doRequest(h, "PATCH", "/v1/admin/promotions/d", `{"isActive": true}`)
	require.Equal(t, http.StatusConflict, w.Code)

	var body struct {
		Error     string   `json:"error"`
		Conflicts []string `json:"conflicts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "PRIORITY_LIMIT", body.Error)
	assert.ElementsMatch(t, []string{"Happy Hour", "Taco Monday"}, body.Conflicts)
}

func TestAdminPatch_Allowed(t *testing.T) {
	store := &mockStore{promos: []eligibility.Promotion{
		{ID: "d", Title: "Late Night", IsActive: false},
	}}
	h := newTestHandler(store, true)

	w := doRequest(h, "PATCH", "/v1/admin/promotions/d", `{"isActive": true, "isPriority": true}`)
	require.Equal(t, http.StatusOK, w.Code)

	var updated eligibility.Promotion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.True(t, updated.IsActive)
	assert.True(t, updated.IsPriority)
}

func TestAdminPatch_EmptyBody(t *testing.T) {
	h := newTestHandler(&mockStore{promos: []eligibility.Promotion{{ID: "d", Title: "D"}}}, true)
	w := doRequest(h, "PATCH", "/v1/admin/promotions/d", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminPatch_NotFound(t *testing.T) {
	h := newTestHandler(&mockStore{}, true)
	w := doRequest(h, "PATCH", "/v1/admin/promotions/ghost", `{"isActive": true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminCreate(t *testing.T) {
	h := newTestHandler(&mockStore{}, true)
	w := doRequest(h, "POST", "/v1/admin/promotions", `{
		"title": "Weekend Special",
		"isActive": true,
		"startTime": "18:00",
		"endTime": "22:00",
		"daysOfWeek": [5, 6]
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created eligibility.Promotion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Weekend Special", created.Title)
}

func TestAdminCreate_MalformedRules(t *testing.T) {
	h := newTestHandler(&mockStore{}, true)

	// one-sided time window must be rejected at the boundary
	w := doRequest(h, "POST", "/v1/admin/promotions", `{
		"title": "Broken",
		"startTime": "18:00"
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminPriorityCount(t *testing.T) {
	store := &mockStore{promos: []eligibility.Promotion{
		{ID: "a", Title: "A", IsActive: true, IsPriority: true},
		{ID: "b", Title: "B", IsActive: true},
		{ID: "c", Title: "C", IsActive: true, IsPriority: true, Days: []time.Weekday{time.Sunday}},
	}}
	h := newTestHandler(store, true)

	w := doRequest(h, "GET", "/v1/admin/promotions/priority-count", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body["count"])
}

func TestAdminPreview(t *testing.T) {
	store := &mockStore{promos: []eligibility.Promotion{
		{ID: "a", Title: "A", IsActive: true},
		{ID: "b", Title: "B", IsActive: false},
	}}
	h := newTestHandler(store, true)

	w := doRequest(h, "GET", "/v1/admin/promotions/preview", "")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []PreviewEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Result.Eligible)
	assert.Equal(t, eligibility.ReasonInactive, entries[1].Result.Reason)
}

func TestAdminDelete(t *testing.T) {
	store := &mockStore{promos: []eligibility.Promotion{{ID: "a", Title: "A"}}}
	h := newTestHandler(store, true)

	w := doRequest(h, "DELETE", "/v1/admin/promotions/a", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(h, "DELETE", "/v1/admin/promotions/a", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

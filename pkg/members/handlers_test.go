package members

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrcr/scrcr-server/pkg/httputil"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	members map[int64]*Member
	nextID  int64
}

func newMemStore() *memStore {
	return &memStore{members: make(map[int64]*Member), nextID: 1}
}

func (s *memStore) Create(_ context.Context, draft Draft) (*Member, error) {
	for _, m := range s.members {
		if m.DocumentID == draft.DocumentID {
			return nil, ErrDuplicate
		}
	}
	m := &Member{
		ID:             s.nextID,
		DocumentID:     draft.DocumentID,
		FirstName:      draft.FirstName,
		LastName:       draft.LastName,
		Phone:          draft.Phone,
		Email:          draft.Email,
		Address:        draft.Address,
		MembershipDate: draft.MembershipDate,
		Status:         draft.Status,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	s.members[m.ID] = m
	s.nextID++
	return m, nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*Member, error) {
	m, ok := s.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

func (s *memStore) List(_ context.Context, filter Filter) ([]*Member, error) {
	var list []*Member
	for _, m := range s.members {
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		list = append(list, m)
	}
	return list, nil
}

func (s *memStore) Update(_ context.Context, id int64, draft Draft) (*Member, error) {
	m, ok := s.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.DocumentID = draft.DocumentID
	m.FirstName = draft.FirstName
	m.LastName = draft.LastName
	m.Status = draft.Status
	m.UpdatedAt = time.Now()
	return m, nil
}

func (s *memStore) Deactivate(_ context.Context, id int64) error {
	m, ok := s.members[id]
	if !ok {
		return ErrNotFound
	}
	m.Status = StatusInactive
	return nil
}

func newTestRouter(store Store) *mux.Router {
	r := mux.NewRouter()
	NewHandlers(store, nil).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateMember(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doJSON(t, router, http.MethodPost, "/members", Draft{
		DocumentID: "12345678",
		FirstName:  "Maria",
		LastName:   "Lopez",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
}

func TestCreateMember_Validation(t *testing.T) {
	router := newTestRouter(newMemStore())

	tests := []struct {
		name  string
		draft Draft
	}{
		{"missing document", Draft{FirstName: "Maria", LastName: "Lopez"}},
		{"missing first name", Draft{DocumentID: "1234567", LastName: "Lopez"}},
		{"bad status", Draft{DocumentID: "1234567", FirstName: "M", LastName: "L", Status: "bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/members", tt.draft)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateMember_Duplicate(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store)

	draft := Draft{DocumentID: "12345678", FirstName: "Maria", LastName: "Lopez"}
	rec := doJSON(t, router, http.MethodPost, "/members", draft)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/members", draft)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetMember_NotFound(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doJSON(t, router, http.MethodGet, "/members/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMembers_Empty(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doJSON(t, router, http.MethodGet, "/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestUpdateAndDeleteMember(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(store)

	rec := doJSON(t, router, http.MethodPost, "/members", Draft{
		DocumentID: "1234567", FirstName: "Maria", LastName: "Lopez",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/members/1", Draft{
		DocumentID: "1234567", FirstName: "Maria", LastName: "Gomez",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gomez")

	// Delete keeps the row and flips the status.
	rec = doJSON(t, router, http.MethodDelete, "/members/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/members/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"inactive"`)

	rec = doJSON(t, router, http.MethodDelete, "/members/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

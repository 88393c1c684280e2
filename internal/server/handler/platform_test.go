package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teejy22/liquidlab-revenue/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPlatformService struct {
	platforms map[string]domain.Platform
	createErr error
	listErr   error
}

func newStubPlatformService() *stubPlatformService {
	return &stubPlatformService{platforms: map[string]domain.Platform{}}
}

func (s *stubPlatformService) Create(ctx context.Context, p domain.Platform) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.platforms[p.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.platforms[p.ID] = p
	return nil
}

func (s *stubPlatformService) GetByID(ctx context.Context, id string) (domain.Platform, error) {
	p, ok := s.platforms[id]
	if !ok {
		return domain.Platform{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *stubPlatformService) ListActive(ctx context.Context) ([]domain.Platform, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Platform
	for _, p := range s.platforms {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPlatformService) SetActive(ctx context.Context, id string, active bool) error {
	p, ok := s.platforms[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = active
	s.platforms[id] = p
	return nil
}

const testWallet = "0x3333333333333333333333333333333333333333"

func TestCreatePlatform(t *testing.T) {
	post := func(h *PlatformHandler, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/platforms", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.CreatePlatform(rec, req)
		return rec
	}

	t.Run("creates active platform", func(t *testing.T) {
		svc := newStubPlatformService()
		h := NewPlatformHandler(svc, testLogger())

		rec := post(h, `{"id":"plat-1","name":"One","owner_user_id":"u1","wallet_address":"`+testWallet+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var p domain.Platform
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.True(t, p.Active)
		assert.Equal(t, testWallet, p.WalletAddress)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		svc := newStubPlatformService()
		h := NewPlatformHandler(svc, testLogger())

		require.Equal(t, http.StatusCreated, post(h, `{"id":"plat-1","name":"One"}`).Code)
		rec := post(h, `{"id":"plat-1","name":"Clone"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		h := NewPlatformHandler(newStubPlatformService(), testLogger())
		assert.Equal(t, http.StatusBadRequest, post(h, `{"name":"no id"}`).Code)
		assert.Equal(t, http.StatusBadRequest, post(h, `{"id":"no-name"}`).Code)
		assert.Equal(t, http.StatusBadRequest, post(h, `not json`).Code)
	})

	t.Run("invalid wallet rejected", func(t *testing.T) {
		h := NewPlatformHandler(newStubPlatformService(), testLogger())
		rec := post(h, `{"id":"plat-1","name":"One","wallet_address":"0xnothex"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty wallet allowed", func(t *testing.T) {
		h := NewPlatformHandler(newStubPlatformService(), testLogger())
		rec := post(h, `{"id":"plat-1","name":"One"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestGetPlatform(t *testing.T) {
	svc := newStubPlatformService()
	svc.platforms["plat-1"] = domain.Platform{ID: "plat-1", Name: "One", Active: true}
	h := NewPlatformHandler(svc, testLogger())

	get := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/platforms/"+id, nil)
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.GetPlatform(rec, req)
		return rec
	}

	t.Run("found", func(t *testing.T) {
		rec := get("plat-1")
		require.Equal(t, http.StatusOK, rec.Code)
		var p domain.Platform
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, "One", p.Name)
	})

	t.Run("not found", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get("nope").Code)
	})
}

func TestSetActive(t *testing.T) {
	svc := newStubPlatformService()
	svc.platforms["plat-1"] = domain.Platform{ID: "plat-1", Name: "One", Active: true}
	h := NewPlatformHandler(svc, testLogger())

	patch := func(id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/platforms/"+id+"/active", strings.NewReader(body))
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.SetActive(rec, req)
		return rec
	}

	t.Run("deactivates", func(t *testing.T) {
		rec := patch("plat-1", `{"active":false}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, svc.platforms["plat-1"].Active)
	})

	t.Run("unknown platform", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, patch("nope", `{"active":true}`).Code)
	})
}

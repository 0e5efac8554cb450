package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/MalayathiGeetha/Motor-Part/pkg/errors"
	pkgredis "github.com/MalayathiGeetha/Motor-Part/pkg/redis"
)

const deductPath = "/api/v1/parts/6d3c0c39-0b7e-4a55-9c53-1f2f7f0f4c11/deduct"

func deductRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, deductPath, strings.NewReader(body))
	req.Header.Set(ActorHeader, "clerk")
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Actor(nil)(h).ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return payload.Error.Code
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	store := pkgredis.NewLocalStore()
	calls := 0
	h := Idempotency(store, nil, StockReplayWindow)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	serve(h, deductRequest("", `{"quantity":1}`))
	serve(h, deductRequest("", `{"quantity":1}`))

	assert.Equal(t, 2, calls)
	assert.Zero(t, store.Len())
}

func TestIdempotencyWithoutStoreIsTransparent(t *testing.T) {
	calls := 0
	h := Idempotency(nil, nil, StockReplayWindow)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	serve(h, deductRequest("k", `{}`))
	serve(h, deductRequest("k", `{}`))
	assert.Equal(t, 2, calls)
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := pkgredis.NewLocalStore()
	calls := 0
	h := Idempotency(store, nil, StockReplayWindow)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"current_stock":6}}`))
	}))

	first := serve(h, deductRequest("sale-77", `{"quantity":4}`))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get(IdempotencyReplayHeader))

	again := serve(h, deductRequest("sale-77", `{"quantity":4}`))
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "true", again.Header().Get(IdempotencyReplayHeader))
	assert.Equal(t, "application/json", again.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"current_stock":6}}`, again.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyReplaysRejections(t *testing.T) {
	store := pkgredis.NewLocalStore()
	calls := 0
	h := Idempotency(store, nil, StockReplayWindow)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	serve(h, deductRequest("sale-78", `{"quantity":40}`))
	rec := serve(h, deductRequest("sale-78", `{"quantity":40}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := pkgredis.NewLocalStore()
	calls := 0
	h := Idempotency(store, nil, StockReplayWindow)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	serve(h, deductRequest("retry-me", `{"quantity":1}`))
	serve(h, deductRequest("retry-me", `{"quantity":1}`))

	assert.Equal(t, 2, calls)
	assert.Zero(t, store.Len())
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	store := pkgredis.NewLocalStore()
	h := Idempotency(store, nil, StockReplayWindow)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve(h, deductRequest("xyz", `{"quantity":1}`))
	rec := serve(h, deductRequest("xyz", `{"quantity":2}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, rec))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := pkgredis.NewLocalStore()
	var nested *httptest.ResponseRecorder
	var h http.Handler
	h = Idempotency(store, nil, StockReplayWindow)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if nested == nil {
			nested = serve(h, deductRequest("dup", `{"quantity":1}`))
		}
		w.WriteHeader(http.StatusOK)
	}))

	first := serve(h, deductRequest("dup", `{"quantity":1}`))
	assert.Equal(t, http.StatusOK, first.Code)
	require.NotNil(t, nested)
	assert.Equal(t, http.StatusConflict, nested.Code)
}

func TestIdempotencyScopesKeyByActorAndPath(t *testing.T) {
	store := pkgredis.NewLocalStore()
	calls := 0
	h := Idempotency(store, nil, StockReplayWindow)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	serve(h, deductRequest("shared", `{"quantity":1}`))
	other := deductRequest("shared", `{"quantity":1}`)
	other.Header.Set(ActorHeader, "manager")
	serve(h, other)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, store.Len())
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	h := Idempotency(pkgredis.NewLocalStore(), nil, StockReplayWindow)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := serve(h, deductRequest(strings.Repeat("k", 256), `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

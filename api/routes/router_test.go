package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/MalayathiGeetha/Motor-Part/internal/alerts"
	"github.com/MalayathiGeetha/Motor-Part/internal/audit"
	"github.com/MalayathiGeetha/Motor-Part/internal/inventory"
	"github.com/MalayathiGeetha/Motor-Part/pkg/config"
	"github.com/MalayathiGeetha/Motor-Part/pkg/db"
	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
	"github.com/MalayathiGeetha/Motor-Part/pkg/metrics"
	"github.com/MalayathiGeetha/Motor-Part/pkg/migrate"
	pkgredis "github.com/MalayathiGeetha/Motor-Part/pkg/redis"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		Retryable bool           `json:"retryable"`
		Details   map[string]any `json:"details"`
	} `json:"error"`
}

type partBody struct {
	ID           uuid.UUID `json:"id"`
	PartCode     string    `json:"part_code"`
	CurrentStock int       `json:"current_stock"`
	StockStatus  string    `json:"stock_status"`
}

type alertBody struct {
	ID     uuid.UUID `json:"id"`
	PartID uuid.UUID `json:"part_id"`
	Status string    `json:"status"`
}

type auditBody struct {
	Actor    string  `json:"actor"`
	Action   string  `json:"action"`
	OldValue *string `json:"old_value"`
	NewValue *string `json:"new_value"`
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:routes_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migrate.AutoMigrate(conn))
	return conn
}

func newTestRouter(t *testing.T, idem *pkgredis.LocalStore) http.Handler {
	t.Helper()
	conn := openTestDB(t)
	client := db.NewFromConn(conn)
	reg := prometheus.NewRegistry()
	invMetrics := metrics.NewInventoryMetrics(reg)

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)
	manager, err := alerts.NewManager(alerts.ManagerParams{
		Repo:    alerts.NewRepository(conn),
		Audit:   auditSvc,
		Tx:      client,
		Metrics: invMetrics,
	})
	require.NoError(t, err)
	partSvc, err := inventory.NewService(inventory.ServiceParams{
		Repo:                    inventory.NewRepository(conn),
		Alerts:                  manager,
		Audit:                   auditSvc,
		Tx:                      client,
		Metrics:                 invMetrics,
		DefaultReorderThreshold: 10,
	})
	require.NoError(t, err)

	cfg := &config.Config{App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}}}
	logg := logger.New(logger.Options{ServiceName: "routes-test", Output: io.Discard})

	var idemStore pkgredis.IdempotencyStore
	if idem != nil {
		idemStore = idem
	}

	return NewRouter(cfg, logg, client, nil, idemStore, partSvc, manager, auditSvc,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Code != http.StatusNoContent && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func createPart(t *testing.T, h http.Handler, code string, stock, threshold int) partBody {
	t.Helper()
	body := fmt.Sprintf(`{"part_code":%q,"part_name":"Part %s","unit_price":"12.50","current_stock":%d,"reorder_threshold":%d}`, code, code, stock, threshold)
	rec, env := do(t, h, http.MethodPost, "/api/v1/parts", body, map[string]string{"X-Actor": "clerk"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var part partBody
	require.NoError(t, json.Unmarshal(env.Data, &part))
	return part
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestRouter(t, nil)

	rec, _ := do(t, h, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReadyReportsDependencyFailure(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	h := NewRouter(cfg, nil, stubPinger{err: errors.New("down")}, nil, nil, nil, nil, nil, nil)

	rec, env := do(t, h, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.True(t, env.Error.Retryable)
}

func TestStockLifecycleOverHTTP(t *testing.T) {
	h := newTestRouter(t, nil)
	part := createPart(t, h, "OF-Z10", 12, 10)
	assert.Equal(t, "IN_STOCK", part.StockStatus)

	path := "/api/v1/parts/" + part.ID.String()
	rec, env := do(t, h, http.MethodPost, path+"/deduct", `{"quantity":3}`, map[string]string{"X-Actor": "clerk"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated partBody
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 9, updated.CurrentStock)
	assert.Equal(t, "LOW_STOCK", updated.StockStatus)

	rec, env = do(t, h, http.MethodPost, path+"/deduct", `{"quantity":25}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Error.Code)
	assert.EqualValues(t, 9, env.Error.Details["available"])
	assert.EqualValues(t, 25, env.Error.Details["requested"])

	rec, env = do(t, h, http.MethodGet, "/api/v1/alerts/open", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var open []alertBody
	require.NoError(t, json.Unmarshal(env.Data, &open))
	require.Len(t, open, 1)
	assert.Equal(t, part.ID, open[0].PartID)

	rec, env = do(t, h, http.MethodPut, "/api/v1/alerts/"+open[0].ID.String()+"/acknowledge", "", map[string]string{"X-Actor": "manager"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var acked alertBody
	require.NoError(t, json.Unmarshal(env.Data, &acked))
	assert.Equal(t, "ACKNOWLEDGED", acked.Status)

	rec, _ = do(t, h, http.MethodPost, path+"/receive", `{"quantity":20}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/api/v1/alerts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active []alertBody
	require.NoError(t, json.Unmarshal(env.Data, &active))
	assert.Empty(t, active)

	rec, env = do(t, h, http.MethodGet, path+"/audit", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trail []auditBody
	require.NoError(t, json.Unmarshal(env.Data, &trail))
	require.Len(t, trail, 3)
	assert.Equal(t, "STOCK_RECEIVED", trail[0].Action)
	assert.Equal(t, "SYSTEM", trail[0].Actor)
	assert.Equal(t, "STOCK_DEDUCTED", trail[1].Action)
	assert.Equal(t, "clerk", trail[1].Actor)
	require.NotNil(t, trail[1].OldValue)
	assert.Equal(t, "Stock:12", *trail[1].OldValue)

	rec, env = do(t, h, http.MethodGet, "/api/v1/audit/entity/alert/"+open[0].ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var alertTrail []auditBody
	require.NoError(t, json.Unmarshal(env.Data, &alertTrail))
	require.Len(t, alertTrail, 3)
	assert.Equal(t, "LOW_STOCK_RESOLVED", alertTrail[0].Action)
	assert.Equal(t, "ALERT_ACKNOWLEDGED", alertTrail[1].Action)
	assert.Equal(t, "manager", alertTrail[1].Actor)
}

func TestCreatePartValidation(t *testing.T) {
	h := newTestRouter(t, nil)

	rec, env := do(t, h, http.MethodPost, "/api/v1/parts", `{"part_name":"no code","unit_price":"1.00"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	createPart(t, h, "DUP", 1, 0)
	rec, env = do(t, h, http.MethodPost, "/api/v1/parts", `{"part_code":"DUP","part_name":"again","unit_price":"1.00"}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestUpdateRejectsStockField(t *testing.T) {
	h := newTestRouter(t, nil)
	part := createPart(t, h, "UP-1", 5, 1)

	rec, _ := do(t, h, http.MethodPut, "/api/v1/parts/"+part.ID.String(), `{"current_stock":99}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := do(t, h, http.MethodPut, "/api/v1/parts/"+part.ID.String(), `{"part_name":"Renamed"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated partBody
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 5, updated.CurrentStock)
}

func TestDeleteAndNotFound(t *testing.T) {
	h := newTestRouter(t, nil)
	part := createPart(t, h, "DEL-1", 5, 1)
	path := "/api/v1/parts/" + part.ID.String()

	rec, _ := do(t, h, http.MethodDelete, path, "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, env := do(t, h, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/parts/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSearchAndStats(t *testing.T) {
	h := newTestRouter(t, nil)
	createPart(t, h, "BRAKE-1", 4, 2)
	createPart(t, h, "CLUTCH-1", 1, 2)

	rec, env := do(t, h, http.MethodGet, "/api/v1/parts?limit=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items  []partBody `json:"items"`
		Cursor string     `json:"cursor"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Items, 1)
	assert.NotEmpty(t, page.Cursor)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/parts?limit=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/api/v1/parts/search?q=brake", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found []partBody
	require.NoError(t, json.Unmarshal(env.Data, &found))
	require.Len(t, found, 1)
	assert.Equal(t, "BRAKE-1", found[0].PartCode)

	rec, env = do(t, h, http.MethodGet, "/api/v1/inventory/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		TotalParts     int64  `json:"total_parts"`
		InventoryValue string `json:"inventory_value"`
		LowStockAlerts int64  `json:"low_stock_alerts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(2), stats.TotalParts)
	assert.Equal(t, "62.5", stats.InventoryValue)
	assert.Equal(t, int64(1), stats.LowStockAlerts)

	rec, env = do(t, h, http.MethodGet, "/api/v1/audit?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var auditPage struct {
		Items  []auditBody `json:"items"`
		Cursor string      `json:"cursor"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &auditPage))
	assert.Len(t, auditPage.Items, 2)
	assert.NotEmpty(t, auditPage.Cursor)
}

func TestDeductReplaysWithIdempotencyKey(t *testing.T) {
	store := pkgredis.NewLocalStore()
	h := newTestRouter(t, store)
	part := createPart(t, h, "IDEM-1", 10, 1)
	path := "/api/v1/parts/" + part.ID.String() + "/deduct"
	headers := map[string]string{"X-Actor": "clerk", "Idempotency-Key": "sale-77-line-1"}

	rec, _ := do(t, h, http.MethodPost, path, `{"quantity":4}`, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, env := do(t, h, http.MethodPost, path, `{"quantity":4}`, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
	var replayed partBody
	require.NoError(t, json.Unmarshal(env.Data, &replayed))
	assert.Equal(t, 6, replayed.CurrentStock)

	rec, env = do(t, h, http.MethodGet, "/api/v1/parts/"+part.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var current partBody
	require.NoError(t, json.Unmarshal(env.Data, &current))
	assert.Equal(t, 6, current.CurrentStock)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, nil)
	part := createPart(t, h, "MET-1", 10, 1)
	do(t, h, http.MethodPost, "/api/v1/parts/"+part.ID.String()+"/receive", `{"quantity":2}`, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "motorshop_stock_mutations_total")
}

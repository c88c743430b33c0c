package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Keoroanthony/customer-gateway/internal/apperrors"
	"github.com/Keoroanthony/customer-gateway/internal/auth"
	"github.com/Keoroanthony/customer-gateway/internal/customers"
	"github.com/Keoroanthony/customer-gateway/internal/handlers"
	"github.com/Keoroanthony/customer-gateway/internal/health"
	"github.com/Keoroanthony/customer-gateway/internal/httputil"
	"github.com/Keoroanthony/customer-gateway/internal/images"
	"github.com/Keoroanthony/customer-gateway/internal/middleware"
	"github.com/Keoroanthony/customer-gateway/internal/models"
	"github.com/Keoroanthony/customer-gateway/internal/store"
)

const goodToken = "Bearer good"

// tokenValidator accepts only the token "good".
type tokenValidator struct{}

func (tokenValidator) Validate(_ context.Context, token string) (models.Principal, error) {
	if token != "good" {
		return models.Principal{}, apperrors.Unauthorized(http.StatusUnauthorized, "Invalid token")
	}
	return models.NewPrincipal(json.RawMessage(`{"id":"u1","username":"ada"}`)), nil
}

func (tokenValidator) Live(context.Context) error { return nil }

type testEnv struct {
	router  *gin.Engine
	db      *gorm.DB
	logs    *observer.ObservedLogs
	uploads *atomic.Int32
	ready   *atomic.Bool
}

// setupRouter wires the real router to a sqlite store and a fake image
// service. Uploading a photo whose body is "fail" makes the image service
// answer 500.
func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "failed to connect test database")
	require.NoError(t, testDB.AutoMigrate(&store.CustomerRecord{}))
	t.Cleanup(func() {
		if sqlDB, err := testDB.DB(); err == nil {
			sqlDB.Close()
		}
	})

	uploads := new(atomic.Int32)
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		n := uploads.Add(1)
		file, _, err := r.FormFile("photo")
		if err != nil {
			http.Error(w, "No file uploaded.", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) == "fail" {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"url":"https://img/%d"}`, n)
	})
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Live"))
	})
	imageSrv := httptest.NewServer(mux)
	t.Cleanup(imageSrv.Close)

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	st := store.NewGormStore(testDB)
	imgs := images.NewClient(imageSrv.URL, httputil.NewClient(2*time.Second), log)
	gate := auth.NewGate(tokenValidator{}, log)

	ready := new(atomic.Bool)
	ready.Store(true)
	agg := health.NewAggregator(log,
		health.Check{Name: "document store", Run: st.Ping},
		health.Check{Name: "identity service", Run: gate.Live},
		health.Check{Name: "image service", Run: func(ctx context.Context) error {
			if !ready.Load() {
				return fmt.Errorf("GET %s/health/live returned status 503", imageSrv.URL)
			}
			return imgs.Live(ctx)
		}},
	)

	reg := prometheus.NewRegistry()
	router := handlers.NewRouter(handlers.RouterConfig{
		Customers: customers.NewService(st, imgs, log),
		Gate:      gate,
		Health:    agg,
		Metrics:   middleware.NewMetrics(reg),
		Gatherer:  reg,
		Log:       log,
	})

	return &testEnv{router: router, db: testDB, logs: logs, uploads: uploads, ready: ready}
}

type formPart struct {
	name, value string
	file        bool
}

func field(name, value string) formPart { return formPart{name: name, value: value} }
func file(name, body string) formPart   { return formPart{name: name, value: body, file: true} }

func multipartRequest(t *testing.T, method, path string, parts ...formPart) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if !p.file {
			require.NoError(t, mw.WriteField(p.name, p.value))
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="ada.png"`, p.name))
		h.Set("Content-Type", "image/png")
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.value))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", goodToken)
	return req
}

func performRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)
	return recorder
}

func authedRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", goodToken)
	return req
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &v), recorder.Body.String())
	return v
}

func detail(t *testing.T, recorder *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, recorder)["detail"]
}

func countRows(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&store.CustomerRecord{}).Count(&n).Error)
	return n
}

func createAda(t *testing.T, env *testEnv) models.Customer {
	t.Helper()
	recorder := performRequest(env.router, multipartRequest(t, http.MethodPost, "/customers",
		field("name", "Ada"), field("phone", "555-0100"), file("photo", "PNGDATA")))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	return decode[models.Customer](t, recorder)
}

func TestCustomerRoutesRequireAuth(t *testing.T) {
	env := setupRouter(t)

	t.Run("Missing header", func(t *testing.T) {
		recorder := performRequest(env.router, httptest.NewRequest(http.MethodGet, "/customers", nil))
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, "Not authenticated", detail(t, recorder))
	})

	t.Run("Rejected token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/customers", nil)
		req.Header.Set("Authorization", "Bearer bad")
		recorder := performRequest(env.router, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, "Invalid token", detail(t, recorder))
	})

	t.Run("Rejected requests never touch the image service", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, "/customers",
			field("name", "Ada"), field("phone", "555-0100"), file("photo", "PNGDATA"))
		req.Header.Del("Authorization")
		recorder := performRequest(env.router, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, int32(0), env.uploads.Load())
		assert.Equal(t, int64(0), countRows(t, env.db))
	})
}

func TestCreateCustomerHandler(t *testing.T) {
	t.Run("Round trip keeps the uploaded photo reference", func(t *testing.T) {
		env := setupRouter(t)

		created := createAda(t, env)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Ada", created.Name)
		assert.Equal(t, "555-0100", created.Phone)
		assert.Equal(t, "https://img/1", created.Photo)

		recorder := performRequest(env.router, authedRequest(http.MethodGet, "/customers/"+created.ID))
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, created, decode[models.Customer](t, recorder))

		raw := decode[map[string]string](t, recorder)
		assert.Equal(t, created.ID, raw["_id"])
	})

	t.Run("Missing field is rejected before any upload", func(t *testing.T) {
		env := setupRouter(t)

		recorder := performRequest(env.router, multipartRequest(t, http.MethodPost, "/customers",
			field("name", "Ada"), file("photo", "PNGDATA")))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "phone is required", detail(t, recorder))
		assert.Equal(t, int32(0), env.uploads.Load())
	})

	t.Run("Missing photo is rejected", func(t *testing.T) {
		env := setupRouter(t)

		recorder := performRequest(env.router, multipartRequest(t, http.MethodPost, "/customers",
			field("name", "Ada"), field("phone", "555-0100")))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "photo is required", detail(t, recorder))
	})

	t.Run("Failed upload writes nothing", func(t *testing.T) {
		env := setupRouter(t)

		recorder := performRequest(env.router, multipartRequest(t, http.MethodPost, "/customers",
			field("name", "Ada"), field("phone", "555-0100"), file("photo", "fail")))
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		assert.Equal(t, "Failed to upload image", detail(t, recorder))
		assert.Equal(t, int32(1), env.uploads.Load())
		assert.Equal(t, int64(0), countRows(t, env.db))
	})
}

func TestListCustomersHandler(t *testing.T) {
	env := setupRouter(t)

	t.Run("Empty collection is an empty array", func(t *testing.T) {
		recorder := performRequest(env.router, authedRequest(http.MethodGet, "/customers"))
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `[]`, recorder.Body.String())
	})

	t.Run("Skip and limit page through the records", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			createAda(t, env)
		}

		recorder := performRequest(env.router, authedRequest(http.MethodGet, "/customers?skip=1&limit=1"))
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Len(t, decode[[]models.Customer](t, recorder), 1)

		recorder = performRequest(env.router, authedRequest(http.MethodGet, "/customers"))
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Len(t, decode[[]models.Customer](t, recorder), 3)
	})

	t.Run("Non-integer paging is rejected", func(t *testing.T) {
		recorder := performRequest(env.router, authedRequest(http.MethodGet, "/customers?skip=abc"))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "skip must be an integer", detail(t, recorder))
	})

	t.Run("Negative paging is rejected", func(t *testing.T) {
		recorder := performRequest(env.router, authedRequest(http.MethodGet, "/customers?limit=-5"))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestGetCustomerHandler(t *testing.T) {
	env := setupRouter(t)

	t.Run("Malformed id", func(t *testing.T) {
		recorder := performRequest(env.router, authedRequest(http.MethodGet, "/customers/not-an-id"))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Invalid customer id", detail(t, recorder))
	})

	t.Run("Unknown id", func(t *testing.T) {
		recorder := performRequest(env.router, authedRequest(http.MethodGet, "/customers/"+uuid.NewString()))
		assert.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Equal(t, "Customer not found", detail(t, recorder))
	})
}

func TestUpdateCustomerHandler(t *testing.T) {
	t.Run("Supplied fields replace the stored ones", func(t *testing.T) {
		env := setupRouter(t)
		created := createAda(t, env)

		recorder := performRequest(env.router, multipartRequest(t, http.MethodPut, "/customers/"+created.ID,
			field("phone", "555-0199"), file("photo", "NEWPNG")))
		require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
		assert.JSONEq(t, `{"message":"Customer updated successfully"}`, recorder.Body.String())

		recorder = performRequest(env.router, authedRequest(http.MethodGet, "/customers/"+created.ID))
		got := decode[models.Customer](t, recorder)
		assert.Equal(t, "Ada", got.Name)
		assert.Equal(t, "555-0199", got.Phone)
		assert.Equal(t, "https://img/2", got.Photo)
	})

	t.Run("Empty update is rejected without side effects", func(t *testing.T) {
		env := setupRouter(t)
		created := createAda(t, env)

		recorder := performRequest(env.router, multipartRequest(t, http.MethodPut, "/customers/"+created.ID))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "No update data provided", detail(t, recorder))
		assert.Equal(t, int32(1), env.uploads.Load())
	})

	t.Run("Body that is not multipart counts as empty", func(t *testing.T) {
		env := setupRouter(t)
		created := createAda(t, env)

		recorder := performRequest(env.router, authedRequest(http.MethodPut, "/customers/"+created.ID))
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "No update data provided", detail(t, recorder))
	})

	t.Run("Unknown id", func(t *testing.T) {
		env := setupRouter(t)

		recorder := performRequest(env.router, multipartRequest(t, http.MethodPut, "/customers/"+uuid.NewString(),
			field("name", "Grace")))
		assert.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Equal(t, "Customer not found", detail(t, recorder))
	})
}

func TestDeleteCustomerHandler(t *testing.T) {
	env := setupRouter(t)
	created := createAda(t, env)

	recorder := performRequest(env.router, authedRequest(http.MethodDelete, "/customers/"+created.ID))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"message":"Customer deleted successfully"}`, recorder.Body.String())

	recorder = performRequest(env.router, authedRequest(http.MethodDelete, "/customers/"+created.ID))
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = performRequest(env.router, authedRequest(http.MethodGet, "/customers/"+created.ID))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRouterFallbacks(t *testing.T) {
	env := setupRouter(t)

	recorder := performRequest(env.router, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "Not Found", detail(t, recorder))

	recorder = performRequest(env.router, httptest.NewRequest(http.MethodPatch, "/health/live", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
	assert.Equal(t, "Method Not Allowed", detail(t, recorder))
}

func TestEveryRequestLogsTwoEvents(t *testing.T) {
	env := setupRouter(t)

	requests := []*http.Request{
		authedRequest(http.MethodGet, "/customers"),
		httptest.NewRequest(http.MethodGet, "/customers", nil),
		authedRequest(http.MethodGet, "/customers/not-an-id"),
		httptest.NewRequest(http.MethodGet, "/nowhere", nil),
		httptest.NewRequest(http.MethodGet, "/health/live", nil),
	}

	for _, req := range requests {
		env.logs.TakeAll()
		performRequest(env.router, req)

		events := env.logs.Filter(func(e observer.LoggedEntry) bool {
			return e.LoggerName == "http"
		}).All()
		require.Len(t, events, 2, "%s %s", req.Method, req.URL.Path)
		assert.Equal(t, "Request started", events[0].Message)
		assert.Equal(t, "Request finished", events[1].Message)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupRouter(t)
	performRequest(env.router, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	recorder := performRequest(env.router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `customer_gateway_http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}

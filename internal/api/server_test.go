package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/smartegg/smartegg-core/internal/actuator"
	"github.com/smartegg/smartegg-core/internal/alert"
	"github.com/smartegg/smartegg-core/internal/auth"
	"github.com/smartegg/smartegg-core/internal/incubation"
	"github.com/smartegg/smartegg-core/internal/infrastructure/config"
	"github.com/smartegg/smartegg-core/internal/infrastructure/database/dbtest"
	"github.com/smartegg/smartegg-core/internal/infrastructure/logging"
	"github.com/smartegg/smartegg-core/internal/ingest"
	"github.com/smartegg/smartegg-core/internal/realtime"
)

const (
	testJWTSecret = "test-secret-key-at-least-32-characters-long"
	testAPIKey    = "board-key"
)

// testServer creates a Server wired to real repositories backed by in-memory SQLite.
func testServer(t *testing.T) *Server {
	t.Helper()

	db := dbtest.Open(t)
	broker := realtime.NewBroker()

	users := auth.NewUserRepository(db.DB)
	incs := incubation.NewSQLiteRepository(db.DB)
	readings := incubation.NewSQLiteReadingRepository(db.DB)
	alerts := alert.NewSQLiteRepository(db.DB)

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:      logging.Discard(),
		DB:          db,
		Auth:        auth.NewService(users, testJWTSecret, time.Hour),
		Users:       users,
		Incubations: incs,
		Readings:    readings,
		Actuators:   actuator.NewService(actuator.NewSQLiteRepository(db.DB), broker),
		Alerts:      alerts,
		Ingest: ingest.NewPipeline(testAPIKey, ingest.Deps{
			Incubations: incs,
			Readings:    readings,
			Alerts:      alerts,
			Events:      broker,
		}),
		Broker:  broker,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

// do sends a request through the router and returns the recorder.
func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

// register creates an account and returns its id and session token.
func register(t *testing.T, h http.Handler, email string) (string, string) {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "secreto1", "name": "Ana",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[sessionResponse](t, w)
	return resp.User.ID, resp.Token
}

// createIncubation starts a batch and returns its id.
func createIncubation(t *testing.T, h http.Handler, token string) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/v1/incubations", token, map[string]any{"numberOfEggs": 12})
	if w.Code != http.StatusCreated {
		t.Fatalf("create incubation status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[struct {
		Incubation incubation.Incubation `json:"incubation"`
	}](t, w).Incubation.ID
}

func ingestReading(t *testing.T, h http.Handler, incID string, temp float64) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodPost, "/api/v1/sensors/data", "", map[string]any{
		"incubationId": incID, "temperature": temp, "humidity": 55, "apiKey": testAPIKey,
	})
}

// ─── Health ────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	h := testServer(t).Handler()

	w := do(t, h, http.MethodGet, "/api/v1/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	resp := decode[map[string]any](t, w)
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("health = %v", resp)
	}
}

type failingDB struct{}

func (failingDB) HealthCheck(context.Context) error { return errors.New("disk gone") }

func TestHealth_DatabaseDown(t *testing.T) {
	srv := testServer(t)
	srv.db = failingDB{}

	w := do(t, srv.Handler(), http.MethodGet, "/api/v1/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without deps should fail")
	}
}

// ─── Auth ──────────────────────────────────────────────────────────

func TestAuthFlow(t *testing.T) {
	h := testServer(t).Handler()
	userID, token := register(t, h, "ana@example.com")

	w := do(t, h, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "ana@example.com", "password": "secreto1", "name": "Ana",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want %d", w.Code, http.StatusConflict)
	}

	w = do(t, h, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "ana@example.com", Password: "secreto1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp := decode[sessionResponse](t, w); resp.User.ID != userID || resp.Token == "" {
		t.Errorf("login response = %+v", resp)
	}

	w = do(t, h, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "ana@example.com", Password: "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	w = do(t, h, http.MethodGet, "/api/v1/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "argon2id") {
		t.Error("profile response leaks the password hash")
	}

	w = do(t, h, http.MethodPatch, "/api/v1/auth/me", token, map[string]any{"telegramChatId": 777, "notifyEmail": true})
	if w.Code != http.StatusOK {
		t.Fatalf("patch me status = %d, body = %s", w.Code, w.Body.String())
	}
	user := decode[struct {
		User auth.User `json:"user"`
	}](t, w).User
	if user.TelegramChatID == nil || *user.TelegramChatID != 777 || !user.NotifyEmail || user.Name != "Ana" {
		t.Errorf("patched profile = %+v", user)
	}
}

func TestRegister_Validation(t *testing.T) {
	h := testServer(t).Handler()

	w := do(t, h, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "bad", "password": "secreto1", "name": "Ana"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp := decode[Error](t, w); resp.Code != ErrCodeValidation {
		t.Errorf("code = %q, want %q", resp.Code, ErrCodeValidation)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := testServer(t).Handler()

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/api/v1/incubations", tt.token, nil)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if resp := decode[Error](t, w); resp.Code != ErrCodeUnauthorized {
				t.Errorf("code = %q, want %q", resp.Code, ErrCodeUnauthorized)
			}
		})
	}
}

// ─── Incubations ───────────────────────────────────────────────────

func TestIncubationLifecycle(t *testing.T) {
	h := testServer(t).Handler()
	_, token := register(t, h, "ana@example.com")
	id := createIncubation(t, h, token)

	w := do(t, h, http.MethodGet, "/api/v1/incubations", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if resp := decode[map[string]any](t, w); resp["count"] != float64(1) {
		t.Errorf("list count = %v, want 1", resp["count"])
	}

	w = do(t, h, http.MethodGet, "/api/v1/incubations/"+id, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decode[map[string]map[string]any](t, w)["incubation"]
	if got["daysElapsed"] == nil || got["currentStage"] == nil {
		t.Errorf("incubation lacks derived lifecycle fields: %v", got)
	}

	w = do(t, h, http.MethodPatch, "/api/v1/incubations/"+id, token, map[string]any{"notes": "lote de prueba"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	patched := decode[struct {
		Incubation incubation.Incubation `json:"incubation"`
	}](t, w).Incubation
	if patched.Notes != "lote de prueba" || patched.TempMin != 37.0 {
		t.Errorf("patched = %+v", patched)
	}

	w = do(t, h, http.MethodPatch, "/api/v1/incubations/"+id, token, map[string]any{"hatchedEggs": 99})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid patch status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = do(t, h, http.MethodGet, "/api/v1/incubations/"+id+"/stats", token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("stats status = %d", w.Code)
	}

	w = do(t, h, http.MethodDelete, "/api/v1/incubations/"+id, token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/v1/incubations/"+id, token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestIncubation_OwnerScoped(t *testing.T) {
	h := testServer(t).Handler()
	_, owner := register(t, h, "ana@example.com")
	_, other := register(t, h, "luis@example.com")
	id := createIncubation(t, h, owner)

	paths := []string{
		"/api/v1/incubations/" + id,
		"/api/v1/incubations/" + id + "/stats",
		"/api/v1/sensors/" + id + "/latest",
		"/api/v1/actuators/" + id,
	}
	for _, p := range paths {
		if w := do(t, h, http.MethodGet, p, other, nil); w.Code != http.StatusNotFound {
			t.Errorf("GET %s as other user = %d, want %d", p, w.Code, http.StatusNotFound)
		}
	}
}

// ─── Sensors ───────────────────────────────────────────────────────

func TestIngest(t *testing.T) {
	h := testServer(t).Handler()
	_, token := register(t, h, "ana@example.com")
	id := createIncubation(t, h, token)

	w := ingestReading(t, h, id, 38.5)
	if w.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, body = %s", w.Code, w.Body.String())
	}
	result := decode[ingest.Result](t, w)
	if len(result.Alerts) != 1 || result.Alerts[0].Type != alert.TypeTemperature {
		t.Fatalf("alerts = %+v, want one temperature alert", result.Alerts)
	}
	if result.Reading.WaterLevel != incubation.WaterMedium {
		t.Errorf("water level = %q, want default", result.Reading.WaterLevel)
	}

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"wrong key", map[string]any{"incubationId": id, "temperature": 37.5, "humidity": 55, "apiKey": "nope"}, http.StatusUnauthorized},
		{"unknown incubation", map[string]any{"incubationId": "missing", "temperature": 37.5, "humidity": 55, "apiKey": testAPIKey}, http.StatusNotFound},
		{"missing temperature", map[string]any{"incubationId": id, "humidity": 55, "apiKey": testAPIKey}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, h, http.MethodPost, "/api/v1/sensors/data", "", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestLatestAndHistory(t *testing.T) {
	h := testServer(t).Handler()
	_, token := register(t, h, "ana@example.com")
	id := createIncubation(t, h, token)

	if w := do(t, h, http.MethodGet, "/api/v1/sensors/"+id+"/latest", token, nil); w.Code != http.StatusNotFound {
		t.Errorf("latest before ingest = %d, want %d", w.Code, http.StatusNotFound)
	}

	ingestReading(t, h, id, 37.2)
	ingestReading(t, h, id, 37.4)

	w := do(t, h, http.MethodGet, "/api/v1/sensors/"+id+"/latest", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("latest status = %d", w.Code)
	}
	latest := decode[struct {
		Reading incubation.Reading `json:"reading"`
	}](t, w).Reading
	if latest.Temperature != 37.4 {
		t.Errorf("latest temperature = %v, want 37.4", latest.Temperature)
	}

	w = do(t, h, http.MethodGet, "/api/v1/sensors/"+id+"/history", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	if resp := decode[map[string]any](t, w); resp["count"] != float64(2) || resp["hours"] != float64(defaultHistoryHours) {
		t.Errorf("history = %v", resp)
	}

	for _, q := range []string{"abc", "0", "500"} {
		if w := do(t, h, http.MethodGet, "/api/v1/sensors/"+id+"/history?hours="+q, token, nil); w.Code != http.StatusBadRequest {
			t.Errorf("history?hours=%s status = %d, want %d", q, w.Code, http.StatusBadRequest)
		}
	}
}

// ─── Actuators ─────────────────────────────────────────────────────

func TestActuatorRoutes(t *testing.T) {
	h := testServer(t).Handler()
	_, token := register(t, h, "ana@example.com")
	id := createIncubation(t, h, token)

	type actuatorResponse struct {
		Actuator actuator.Actuator `json:"actuator"`
	}

	w := do(t, h, http.MethodGet, "/api/v1/actuators/"+id, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = do(t, h, http.MethodPut, "/api/v1/actuators/"+id, token, map[string]any{"heaterActive": true, "manualMode": true})
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}
	a := decode[actuatorResponse](t, w).Actuator
	if !a.HeaterActive || !a.ManualMode || a.HumidifierActive {
		t.Errorf("after put = %+v", a)
	}

	w = do(t, h, http.MethodPut, "/api/v1/actuators/"+id, token, map[string]any{"ventilationActive": true})
	a = decode[actuatorResponse](t, w).Actuator
	if !a.HeaterActive || !a.VentilationActive {
		t.Errorf("merge-patch lost fields: %+v", a)
	}

	w = do(t, h, http.MethodPost, "/api/v1/actuators/"+id+"/turn", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("turn status = %d", w.Code)
	}
	a = decode[actuatorResponse](t, w).Actuator
	if a.EggTurnCount != 1 || a.LastEggTurn == nil {
		t.Errorf("after turn = %+v", a)
	}
}

// ─── Alerts ────────────────────────────────────────────────────────

func TestAlertRoutes(t *testing.T) {
	h := testServer(t).Handler()
	_, token := register(t, h, "ana@example.com")
	id := createIncubation(t, h, token)

	ingestReading(t, h, id, 38.5)
	ingestReading(t, h, id, 36.0)

	type alertsResponse struct {
		Alerts []alert.Alert `json:"alerts"`
		Count  int           `json:"count"`
	}

	w := do(t, h, http.MethodGet, "/api/v1/alerts?read=false&incubationId="+id, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decode[alertsResponse](t, w)
	if list.Count != 2 {
		t.Fatalf("unread count = %d, want 2", list.Count)
	}

	if w := do(t, h, http.MethodGet, "/api/v1/alerts?severity=loud", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad severity status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	first := list.Alerts[0]
	w = do(t, h, http.MethodPut, "/api/v1/alerts/"+strconv.FormatInt(first.ID, 10)+"/read", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("mark read status = %d", w.Code)
	}

	if w := do(t, h, http.MethodPut, "/api/v1/alerts/999999/read", token, nil); w.Code != http.StatusNotFound {
		t.Errorf("mark missing status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := do(t, h, http.MethodPut, "/api/v1/alerts/abc/read", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("mark bad id status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = do(t, h, http.MethodPut, "/api/v1/alerts/read-all", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("read-all status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp := decode[map[string]any](t, w); resp["updated"] != float64(1) {
		t.Errorf("read-all updated = %v, want 1", resp["updated"])
	}

	w = do(t, h, http.MethodGet, "/api/v1/alerts?read=false", token, nil)
	if list := decode[alertsResponse](t, w); list.Count != 0 {
		t.Errorf("unread after read-all = %d, want 0", list.Count)
	}
}

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efarmer/subsidy/cmd/subsidy/container"
	"github.com/efarmer/subsidy/common/bootstrap"
	"github.com/efarmer/subsidy/common/config"
	"github.com/efarmer/subsidy/common/logger"
)

const testRules = `rules:
  - {cropType: Wheat, rainfallZone: Medium, productType: Urea, maxPerAcre: 10}
  - {cropType: Paddy, rainfallZone: High, productType: Urea, maxPerAcre: 12}
`

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	ctx := context.Background()

	rulesFile := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesFile, []byte(testRules), 0o600))

	cfg, err := config.Load("subsidy-test")
	require.NoError(t, err)
	cfg.Store.Backend = "memory"
	cfg.Store.RegistryBackend = "memory"
	cfg.Store.RulesFile = rulesFile
	cfg.Store.MaxUploadBytes = 1 << 20
	cfg.Cache.Backend = "memory"
	cfg.Queue.Type = "memory"
	cfg.RateLimit.Enabled = false
	cfg.Telemetry.EnableMetrics = false
	cfg.Telemetry.EnablePprof = false

	components, err := bootstrap.Setup(ctx, "subsidy-test",
		bootstrap.WithCustomConfig(cfg),
		bootstrap.WithCustomLogger(logger.NewNop()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = components.Shutdown(ctx) })

	c, err := container.NewContainer(ctx, components)
	require.NoError(t, err)

	e := echo.New()
	RegisterFarmerRoutes(e, c)
	RegisterTransactionRoutes(e, c)
	RegisterAdminRoutes(e, c)
	RegisterFeedRoutes(e, c)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func registerFarmer(t *testing.T, e *echo.Echo, land string) string {
	t.Helper()
	code, body := doJSON(t, e, http.MethodPost, "/api/v1/farmers", map[string]any{
		"farmerName":   "Sita",
		"aadhaar":      "1234 5678 9012",
		"district":     "Nashik",
		"landArea":     land,
		"soilType":     "Red",
		"cropType":     "Wheat",
		"rainfallZone": "Medium",
	}, nil)
	require.Equal(t, http.StatusCreated, code)
	return body["efn"].(string)
}

func uploadImages(t *testing.T, e *echo.Echo, efn string, files map[string]string) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, content := range files {
		part, err := w.CreateFormFile(field, field+".jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/farmers/"+efn+"/images", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestFarmerLifecycle(t *testing.T) {
	e := newTestServer(t)
	efn := registerFarmer(t, e, "2.5")
	assert.Regexp(t, `^EFN-NAS-[0-9A-F]{8}$`, efn)

	code, body := doJSON(t, e, http.MethodGet, "/api/v1/farmers/"+efn, nil, nil)
	require.Equal(t, http.StatusOK, code)
	farmer := body["farmer"].(map[string]any)
	assert.Equal(t, "XXXX XXXX 9012", farmer["aadhaar"])
	assert.Equal(t, "Images Pending", farmer["imageStatus"])
	quota := body["entitlement"].(map[string]any)
	assert.Equal(t, "Urea", quota["productType"])
	assert.Equal(t, 25.0, quota["maxAllowed"])
	assert.NotEmpty(t, body["schemes"])

	code, body = doJSON(t, e, http.MethodPatch, "/api/v1/farmers/"+efn, `{"landArea": 3}`, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3.0, body["landArea"])

	code, _ = doJSON(t, e, http.MethodPatch, "/api/v1/farmers/"+efn, `{"efn": "EFN-OTHER"}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = doJSON(t, e, http.MethodGet, "/api/v1/farmers/"+efn+"/schemes", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, efn, body["efn"])
	assert.NotEmpty(t, body["schemes"])

	code, body = doJSON(t, e, http.MethodGet, "/api/v1/farmers/"+efn+"/entitlement?product=DAP", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, body["maxAllowed"])
	assert.Equal(t, false, body["ruleDefined"])

	code, body = doJSON(t, e, http.MethodGet, "/api/v1/farmers", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["count"])

	code, body = doJSON(t, e, http.MethodGet, "/api/v1/farmers/EFN-NOPE", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error"])
}

func TestRegisterFarmer_RequiresName(t *testing.T) {
	e := newTestServer(t)
	code, body := doJSON(t, e, http.MethodPost, "/api/v1/farmers", map[string]any{"district": "Pune"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_request", body["error"])
}

func TestSubmitTransaction_FlagsOverage(t *testing.T) {
	e := newTestServer(t)
	efn := registerFarmer(t, e, "2")

	code, body := doJSON(t, e, http.MethodPost, "/api/v1/transactions", map[string]any{
		"efn": efn, "productType": "Urea", "quantity": "26", "unit": "kg",
	}, map[string]string{"X-Dealer-ID": "D009"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Suspicious", body["riskStatus"])
	flagged := body["case"].(map[string]any)
	assert.Equal(t, "Quantity exceeds entitlement by 6.0 units", flagged["reason"])
	assert.Equal(t, "D009", flagged["dealerId"])

	code, body = doJSON(t, e, http.MethodPost, "/api/v1/transactions", map[string]any{
		"efn": efn, "productType": "Urea", "quantity": 20,
	}, nil)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "OK", body["riskStatus"])
	assert.Nil(t, body["case"])
	txn := body["transaction"].(map[string]any)
	assert.Equal(t, "D001", txn["dealerId"])

	code, body = doJSON(t, e, http.MethodGet, "/api/v1/cases", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["count"])

	code, body = doJSON(t, e, http.MethodGet, "/api/v1/admin/dashboard", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["totalTransactions"])
	assert.Equal(t, 1.0, body["totalFlagged"])
	assert.Equal(t, map[string]any{"D009": 1.0, "D001": 1.0}, body["dealerCounts"])
}

func TestSubmitTransaction_UnknownFarmer(t *testing.T) {
	e := newTestServer(t)
	code, _ := doJSON(t, e, http.MethodPost, "/api/v1/transactions", map[string]any{
		"efn": "EFN-NOPE", "productType": "Urea", "quantity": 1,
	}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	_, body := doJSON(t, e, http.MethodGet, "/api/v1/transactions", nil, nil)
	assert.Equal(t, 0.0, body["count"])
}

func TestUploadImages(t *testing.T) {
	e := newTestServer(t)
	a := registerFarmer(t, e, "1")
	b := registerFarmer(t, e, "1")

	code, body := uploadImages(t, e, a, map[string]string{"standardImage": "field-a", "cornerImage": "corner-a"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Verified (unique images)", body["farmer"].(map[string]any)["imageStatus"])

	code, body = uploadImages(t, e, b, map[string]string{"standardImage": "field-a"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Suspicious: reused from owner "+a+" (role standard)", body["farmer"].(map[string]any)["imageStatus"])

	ref := body["farmer"].(map[string]any)["standardImageRef"].(string)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/"+ref, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "field-a", rec.Body.String())

	code, body = doJSON(t, e, http.MethodGet, "/api/v1/images/"+ref+"/usages", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["usages"], 2)

	code, _ = uploadImages(t, e, a, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = uploadImages(t, e, "EFN-NOPE", map[string]string{"standardImage": "x"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRulesAdmin(t *testing.T) {
	e := newTestServer(t)

	code, body := doJSON(t, e, http.MethodGet, "/api/v1/rules", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["count"])

	dup := map[string]any{"cropType": "Wheat", "rainfallZone": "Medium", "productType": "Urea", "maxPerAcre": 5}
	code, body = doJSON(t, e, http.MethodPut, "/api/v1/rules", map[string]any{"rules": []any{dup, dup}}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "invalid_rules", body["error"])

	code, _ = doJSON(t, e, http.MethodPut, "/api/v1/rules", map[string]any{"rules": []any{dup}}, nil)
	require.Equal(t, http.StatusOK, code)

	efn := registerFarmer(t, e, "2")
	_, body = doJSON(t, e, http.MethodGet, "/api/v1/farmers/"+efn+"/entitlement", nil, nil)
	assert.Equal(t, 10.0, body["maxAllowed"])
}

func TestEventFeed_Upgrades(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events/ws?efn=EFN-NAS-00000001"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
}

package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/scontrinidev/scontrini/internal/config"
	"github.com/scontrinidev/scontrini/internal/database"
	"github.com/scontrinidev/scontrini/internal/models"
)

func testHandler(pool database.Pool) *Handler {
	return &Handler{
		db: &database.DB{Pool: pool},
		cfg: &config.Config{
			JWTSecret: "test-secret",
			JWTExpiry: time.Hour,
		},
	}
}

func testServerApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/health", h.Health)
	app.Post("/api/auth/login", h.Login)
	app.Get("/api/receipts", h.ListReceipts)
	app.Get("/api/receipts/:id", h.GetReceipt)
	return app
}

func decodeResponse(t *testing.T, resp *http.Response) APIResponse {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out APIResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHealthOK(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	app := testServerApp(testHandler(mock))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","database":"ok"}`, string(body))
}

func TestHealthDegradedDatabase(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectPing().WillReturnError(eris.New("connection refused"))

	app := testServerApp(testHandler(mock))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"degraded","database":"unreachable"}`, string(body))
}

func loginRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func TestLoginMissingCredentials(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	app := testServerApp(testHandler(mock))
	resp, err := app.Test(loginRequest(`{"email":"admin@scontrini.local"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.False(t, out.Success)
	assert.Equal(t, "email and password are required", out.Error)
}

func TestLoginUnknownUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("nobody@scontrini.local").
		WillReturnError(pgx.ErrNoRows)

	app := testServerApp(testHandler(mock))
	resp, err := app.Test(loginRequest(`{"email":"nobody@scontrini.local","password":"pw"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.Equal(t, "invalid credentials", out.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("admin@scontrini.local").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at"}).
			AddRow(1, "admin@scontrini.local", string(hash), models.RoleAdmin, time.Now()))

	app := testServerApp(testHandler(mock))
	resp, err := app.Test(loginRequest(`{"email":"admin@scontrini.local","password":"wrong"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.Equal(t, "invalid credentials", out.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginSuccessReturnsToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("admin@scontrini.local").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at"}).
			AddRow(1, "admin@scontrini.local", string(hash), models.RoleAdmin, time.Now()))

	app := testServerApp(testHandler(mock))
	resp, err := app.Test(loginRequest(`{"email":"admin@scontrini.local","password":"s3cret"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.True(t, out.Success)

	data, ok := out.Data.(map[string]interface{})
	require.True(t, ok)
	token, _ := data["token"].(string)
	assert.NotEmpty(t, token)

	user, ok := data["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "admin@scontrini.local", user["email"])
	// The password hash must never leak into the response.
	assert.NotContains(t, user, "PasswordHash")
	assert.NotContains(t, user, "password_hash")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReceiptsEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM receipts").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	app := testServerApp(testHandler(mock))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/receipts", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.True(t, out.Success)
	require.NotNil(t, out.Meta)
	assert.Equal(t, 0, out.Meta.Total)
	assert.Equal(t, 20, out.Meta.Limit)
	assert.Equal(t, 0, out.Meta.Offset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReceiptNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM receipts").
		WithArgs(7).
		WillReturnError(pgx.ErrNoRows)

	app := testServerApp(testHandler(mock))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/receipts/7", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.Equal(t, "receipt not found", out.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReceiptImageNoStoredImage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM receipts").
		WithArgs(7).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "contract_version", "captured_at", "image_bucket", "image_key",
			"merchant_name", "merchant_address", "merchant_vat_id", "merchant_fiscal_code", "merchant_country",
			"currency", "receipt_datetime", "document_number", "payment_method",
			"subtotal", "vat_total", "total", "items_format",
			"ocr_engine", "ocr_lang", "ocr_text", "ocr_confidence",
			"preprocess_steps", "warnings", "created_at",
		}).AddRow(
			7, "1.0", (*string)(nil), (*string)(nil), (*string)(nil),
			(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), "IT",
			"EUR", (*string)(nil), (*string)(nil), (*string)(nil),
			(*float64)(nil), (*float64)(nil), (*float64)(nil), "unknown",
			"tesseract", "ita", (*string)(nil), (*float64)(nil),
			[]string{}, []string{}, time.Now(),
		))
	mock.ExpectQuery("SELECT (.+) FROM receipt_items").
		WithArgs(7).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	h := testHandler(mock)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/api/receipts/:id/image", h.GetReceiptImage)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/receipts/7/image", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.Equal(t, "receipt has no stored image", out.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReceiptInvalidID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	app := testServerApp(testHandler(mock))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/receipts/zero", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

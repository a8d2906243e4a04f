package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/millhub-dev/millhub/db"
	"github.com/millhub-dev/millhub/internal/config"
	"github.com/millhub-dev/millhub/internal/models"
	"github.com/millhub-dev/millhub/internal/quotes"
	"github.com/millhub-dev/millhub/internal/storage"
)

func newTestServer(t *testing.T) *gin.Engine {
	r, _ := newTestServerWithDB(t)
	return r
}

func newTestServerWithDB(t *testing.T) (*gin.Engine, *gorm.DB) {
	return newTestServerWithBlobs(t, storage.NewMemoryStore())
}

func newTestServerWithBlobs(t *testing.T, blobs storage.BlobStore) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))

	cfg := &config.Config{
		Port:        "0",
		JWTSecret:   "test-secret",
		TokenTTL:    7 * 24 * time.Hour,
		CORSOrigins: []string{"*"},
	}

	synth := quotes.NewSeededSynthesizer(database, 42)

	return NewRouter(database, cfg, blobs, synth), database
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func register(t *testing.T, r *gin.Engine, email string) {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"password": "secretpw",
		"name":     "Test Machinist",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func login(t *testing.T, r *gin.Engine, email, password string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()

	register(t, r, email)

	w := login(t, r, email, "secretpw")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	require.Equal(t, "bearer", body["token_type"])

	token, ok := body["access_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

type cadFile struct {
	name    string
	content string
}

func createRFQ(t *testing.T, r *gin.Engine, token string, fields map[string]string, file *cadFile) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	if file != nil {
		part, err := writer.CreateFormFile("cad_file", file.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(file.content))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/rfqs", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoot(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "OK", body["message"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := newTestServer(t)

	register(t, r, "dup@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "dup@example.com",
		"password": "otherpw",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	r := newTestServer(t)

	register(t, r, "alice@example.com")

	wrongPassword := login(t, r, "alice@example.com", "wrongpw")
	unknownEmail := login(t, r, "nobody@example.com", "secretpw")

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, http.StatusBadRequest, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestMe(t *testing.T) {
	r := newTestServer(t)
	token := registerAndLogin(t, r, "me@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "me@example.com", body["email"])
	assert.Equal(t, "Test Machinist", body["name"])

	w = doJSON(t, r, http.MethodGet, "/api/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEndpointsRequireToken(t *testing.T) {
	r := newTestServer(t)

	for _, path := range []string{"/api/me", "/api/rfqs", "/api/quotes", "/api/orders", "/api/payments"} {
		w := doJSON(t, r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestCreateRFQGeneratesSortedQuotes(t *testing.T) {
	r := newTestServer(t)
	token := registerAndLogin(t, r, "buyer@example.com")

	w := createRFQ(t, r, token, map[string]string{
		"material":     "aluminum 6061",
		"quantity":     "25",
		"tolerance":    "±0.05mm",
		"part_marking": "true",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	rfq := decodeBody(t, w)
	assert.Equal(t, "aluminum 6061", rfq["material"])
	assert.EqualValues(t, 25, rfq["quantity"])
	assert.Equal(t, true, rfq["part_marking"])
	assert.Nil(t, rfq["cad_file_id"])

	rfqID, ok := rfq["id"].(string)
	require.True(t, ok)

	w = doJSON(t, r, http.MethodGet, "/api/quotes?rfq_id="+rfqID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	listed := decodeList(t, w)
	require.Len(t, listed, 3)

	prices := make([]float64, 0, 3)
	names := make([]string, 0, 3)

	for _, q := range listed {
		prices = append(prices, q["price"].(float64))
		names = append(names, q["supplier_name"].(string))
		assert.Equal(t, "EUR", q["currency"])

		lead := q["lead_time_days"].(float64)
		assert.GreaterOrEqual(t, lead, 5.0)
		assert.LessOrEqual(t, lead, 21.0)
	}

	assert.LessOrEqual(t, prices[0], prices[1])
	assert.LessOrEqual(t, prices[1], prices[2])

	// Cheapest first: the 0.95 supplier, then 1.00, then 1.05.
	assert.Equal(t, []string{"Alpha Machining", "CNCWorks GmbH", "PrecisionMills AG"}, names)

	base := prices[1]
	assert.GreaterOrEqual(t, base, 120.0)
	assert.Less(t, base, 380.0)
	assert.InDelta(t, base*0.95, prices[0], 0.02)
	assert.InDelta(t, base*1.05, prices[2], 0.02)
}

func TestCreateRFQValidation(t *testing.T) {
	r := newTestServer(t)
	token := registerAndLogin(t, r, "strict@example.com")

	cases := []struct {
		name   string
		fields map[string]string
		file   *cadFile
	}{
		{"zero quantity", map[string]string{"material": "steel", "quantity": "0"}, nil},
		{"negative quantity", map[string]string{"material": "steel", "quantity": "-3"}, nil},
		{"non-numeric quantity", map[string]string{"material": "steel", "quantity": "lots"}, nil},
		{"missing material", map[string]string{"quantity": "5"}, nil},
		{"invalid part_marking", map[string]string{"material": "steel", "quantity": "5", "part_marking": "maybe"}, nil},
		{"executable upload", map[string]string{"material": "steel", "quantity": "5"}, &cadFile{"part.exe", "MZ"}},
		{"extensionless upload", map[string]string{"material": "steel", "quantity": "5"}, &cadFile{"partstep", "solid"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := createRFQ(t, r, token, tc.fields, tc.file)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateRFQWithCADFile(t *testing.T) {
	r := newTestServer(t)
	token := registerAndLogin(t, r, "cad@example.com")

	// Extension matching is case-insensitive.
	w := createRFQ(t, r, token, map[string]string{
		"material": "titanium",
		"quantity": "2",
	}, &cadFile{"bracket.STEP", "ISO-10303-21;"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	rfq := decodeBody(t, w)
	assert.Equal(t, "bracket.STEP", rfq["cad_filename"])
	assert.NotEmpty(t, rfq["cad_file_id"])
}

func TestRFQListNewestFirstAndGet(t *testing.T) {
	r := newTestServer(t)
	token := registerAndLogin(t, r, "lister@example.com")

	var ids []string

	for _, material := range []string{"steel", "brass", "copper"} {
		w := createRFQ(t, r, token, map[string]string{"material": material, "quantity": "1"}, nil)
		require.Equal(t, http.StatusOK, w.Code)
		ids = append(ids, decodeBody(t, w)["id"].(string))
		time.Sleep(5 * time.Millisecond)
	}

	w := doJSON(t, r, http.MethodGet, "/api/rfqs", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	listed := decodeList(t, w)
	require.Len(t, listed, 3)
	assert.Equal(t, "copper", listed[0]["material"])
	assert.Equal(t, "steel", listed[2]["material"])

	w = doJSON(t, r, http.MethodGet, "/api/rfqs/"+ids[0], token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "steel", decodeBody(t, w)["material"])

	w = doJSON(t, r, http.MethodGet, "/api/rfqs/does-not-exist", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRFQListCappedAtHundred(t *testing.T) {
	r, database := newTestServerWithDB(t)
	token := registerAndLogin(t, r, "bulk@example.com")

	var user models.User
	require.NoError(t, database.Where("email = ?", "bulk@example.com").First(&user).Error)

	// Inserted directly so the test does not pay for 105 quote batches.
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 105; i++ {
		rfq := models.RFQ{
			UserID:    user.ID,
			Material:  fmt.Sprintf("material-%03d", i),
			Quantity:  1,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, database.Create(&rfq).Error)
	}

	w := doJSON(t, r, http.MethodGet, "/api/rfqs", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	listed := decodeList(t, w)
	require.Len(t, listed, 100)
	assert.Equal(t, "material-104", listed[0]["material"])
	assert.Equal(t, "material-005", listed[99]["material"])
}

type failingBlobStore struct{}

func (failingBlobStore) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestCreateRFQUploadFailure(t *testing.T) {
	r, database := newTestServerWithBlobs(t, failingBlobStore{})
	token := registerAndLogin(t, r, "unlucky@example.com")

	w := createRFQ(t, r, token, map[string]string{
		"material": "steel",
		"quantity": "3",
	}, &cadFile{"part.step", "solid"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// The upload fails before the record is written; nothing is stored.
	var count int64
	require.NoError(t, database.Model(&models.RFQ{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAcceptAndPayFlow(t *testing.T) {
	r := newTestServer(t)
	token := registerAndLogin(t, r, "flow@example.com")

	w := createRFQ(t, r, token, map[string]string{"material": "steel", "quantity": "10"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rfqID := decodeBody(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodGet, "/api/quotes?rfq_id="+rfqID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decodeList(t, w)
	require.Len(t, listed, 3)

	cheapest := listed[0]
	quoteID := cheapest["id"].(string)
	price := cheapest["price"].(float64)

	w = doJSON(t, r, http.MethodPost, "/api/quotes/"+quoteID+"/accept", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	order := decodeBody(t, w)
	assert.Equal(t, "pending_payment", order["status"])
	assert.Equal(t, rfqID, order["rfq_id"])
	assert.Equal(t, quoteID, order["quote_id"])

	orderID := order["id"].(string)

	w = doJSON(t, r, http.MethodPost, "/api/orders/"+orderID+"/pay", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	payment := decodeBody(t, w)
	assert.Equal(t, "paid", payment["status"])
	assert.Equal(t, orderID, payment["order_id"])
	assert.Equal(t, "EUR", payment["currency"])
	assert.Equal(t, price, payment["amount"].(float64))

	w = doJSON(t, r, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders := decodeList(t, w)
	require.Len(t, orders, 1)
	assert.Equal(t, "paid", orders[0]["status"])

	w = doJSON(t, r, http.MethodGet, "/api/payments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	payments := decodeList(t, w)
	require.Len(t, payments, 1)
	assert.Equal(t, payment["id"], payments[0]["id"])
}

// Accepting the same quote twice produces two distinct orders. Nothing
// enforces one order per quote today; this pins down the current
// behavior rather than endorsing it.
func TestDuplicateAcceptCreatesTwoOrders(t *testing.T) {
	r := newTestServer(t)
	token := registerAndLogin(t, r, "eager@example.com")

	w := createRFQ(t, r, token, map[string]string{"material": "steel", "quantity": "1"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rfqID := decodeBody(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodGet, "/api/quotes?rfq_id="+rfqID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	quoteID := decodeList(t, w)[0]["id"].(string)

	first := doJSON(t, r, http.MethodPost, "/api/quotes/"+quoteID+"/accept", token, nil)
	second := doJSON(t, r, http.MethodPost, "/api/quotes/"+quoteID+"/accept", token, nil)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.NotEqual(t, decodeBody(t, first)["id"], decodeBody(t, second)["id"])
}

func TestOwnershipIsolation(t *testing.T) {
	r := newTestServer(t)

	tokenA := registerAndLogin(t, r, "a@example.com")
	tokenB := registerAndLogin(t, r, "b@example.com")

	w := createRFQ(t, r, tokenB, map[string]string{"material": "steel", "quantity": "4"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rfqB := decodeBody(t, w)["id"].(string)

	// Foreign RFQ is indistinguishable from a missing one.
	w = doJSON(t, r, http.MethodGet, "/api/rfqs/"+rfqB, tokenA, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Foreign rfq_id filter yields an empty list, not an error.
	w = doJSON(t, r, http.MethodGet, "/api/quotes?rfq_id="+rfqB, tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeList(t, w))

	w = doJSON(t, r, http.MethodGet, "/api/quotes?rfq_id="+rfqB, tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	quoteB := decodeList(t, w)[0]["id"].(string)

	// Acting on another user's quote or order is Forbidden.
	w = doJSON(t, r, http.MethodPost, "/api/quotes/"+quoteB+"/accept", tokenA, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/quotes/"+quoteB+"/accept", tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	orderB := decodeBody(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodPost, "/api/orders/"+orderB+"/pay", tokenA, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Unknown resources stay NotFound.
	w = doJSON(t, r, http.MethodPost, "/api/quotes/does-not-exist/accept", tokenA, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/orders/does-not-exist/pay", tokenA, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// A's lists never contain B's records.
	for _, path := range []string{"/api/rfqs", "/api/quotes", "/api/orders", "/api/payments"} {
		w = doJSON(t, r, http.MethodGet, path, tokenA, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Empty(t, decodeList(t, w), path)
	}
}

func TestQuotesAcrossAllRFQs(t *testing.T) {
	r := newTestServer(t)
	token := registerAndLogin(t, r, "multi@example.com")

	for _, material := range []string{"steel", "brass"} {
		w := createRFQ(t, r, token, map[string]string{"material": material, "quantity": "1"}, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/api/quotes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	listed := decodeList(t, w)
	require.Len(t, listed, 6)

	for i := 1; i < len(listed); i++ {
		assert.LessOrEqual(t, listed[i-1]["price"].(float64), listed[i]["price"].(float64))
	}
}

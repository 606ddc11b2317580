package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/authshop/config"
	"github.com/oksasatya/authshop/internal/container"
	"github.com/oksasatya/authshop/internal/infrastructure/memory"
	"github.com/oksasatya/authshop/internal/infrastructure/storage"
	"github.com/oksasatya/authshop/pkg/helpers"
	"github.com/oksasatya/authshop/pkg/validation"
)

type outbox struct {
	mu    sync.Mutex
	codes map[string]string
	links map[string]string
}

func (o *outbox) SendOTP(_ context.Context, to, _, code string, _ time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes[to] = code
	return nil
}

func (o *outbox) SendPasswordReset(_ context.Context, to, _, link string, _ time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links[to] = link
	return nil
}

func (o *outbox) code(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[to]
}

type testApp struct {
	engine *gin.Engine
	box    *outbox
	dir    string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	dir := t.TempDir()
	cfg := &config.Config{
		StorageDriver:       "local",
		UploadDir:           dir,
		PublicBaseURL:       "http://localhost:3000",
		SessionTTL:          24 * time.Hour,
		ResetTokenTTL:       time.Hour,
		RegisterOTPTTL:      50 * time.Minute,
		ResendOTPTTL:        10 * time.Minute,
		CookieDomain:        "localhost",
		CORSAllowedOrigins:  "http://localhost:5173",
		ResetPasswordURL:    "http://127.0.0.1:3000/users/reset",
		DebugMetricsEnabled: true,
	}
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	files, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	box := &outbox{codes: map[string]string{}, links: map[string]string{}}
	c := &container.Container{
		Config:   cfg,
		Logger:   logger,
		Accounts: memory.NewAccountRepository(),
		JWT:      helpers.NewJWTManager("router-test-secret", cfg.SessionTTL),
		Hasher:   helpers.NewBcryptHasher(bcrypt.MinCost),
		OTP:      helpers.NewOTPService(),
		Notifier: box,
		Files:    files,
	}
	return &testApp{engine: New(c), box: box, dir: dir}
}

type reply struct {
	Code    int
	Body    map[string]any
	Cookies []*http.Cookie
}

func (a *testApp) do(t *testing.T, method, path string, body any, token string) reply {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.serve(t, req)
}

func (a *testApp) serve(t *testing.T, req *http.Request) reply {
	t.Helper()
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	r := reply{Code: w.Code, Cookies: w.Result().Cookies()}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r.Body), w.Body.String())
	}
	return r
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestAccountLifecycle(t *testing.T) {
	app := newTestApp(t)

	r := app.do(t, http.MethodPost, "/users/register", map[string]string{
		"name": "Alice", "email": "a@x.com", "password": "pw1234", "confirm_password": "pw1234",
	}, "")
	require.Equal(t, http.StatusCreated, r.Code, r.Body)
	assert.Equal(t, "success", r.Body["status"])
	assert.NotEmpty(t, r.Body["userId"])
	assert.Nil(t, r.Body["profileImage"])

	code := app.box.code("a@x.com")
	require.Len(t, code, 6)

	r = app.do(t, http.MethodPost, "/users/verify-otp", map[string]string{"email": "a@x.com", "otp": wrongCode(code)}, "")
	assert.Equal(t, http.StatusBadRequest, r.Code)

	r = app.do(t, http.MethodPost, "/users/login", map[string]string{"email": "a@x.com", "password": "pw1234"}, "")
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = app.do(t, http.MethodPost, "/users/verify-otp", map[string]string{"email": "a@x.com", "otp": code}, "")
	require.Equal(t, http.StatusOK, r.Code, r.Body)
	assert.Equal(t, true, r.Body["verified"])

	r = app.do(t, http.MethodPost, "/users/login", map[string]string{"email": "a@x.com", "password": "pw1234"}, "")
	require.Equal(t, http.StatusOK, r.Code, r.Body)
	token, _ := r.Body["token"].(string)
	require.NotEmpty(t, token)
	var session *http.Cookie
	for _, ck := range r.Cookies {
		if ck.Name == helpers.SessionCookieName {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.Equal(t, token, session.Value)

	r = app.do(t, http.MethodGet, "/users/logged-user", nil, token)
	require.Equal(t, http.StatusOK, r.Code, r.Body)
	user := r.Body["user"].(map[string]any)
	assert.Equal(t, "Alice", user["name"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "", user["profileImage"])

	r = app.do(t, http.MethodPost, "/users/change-password", map[string]string{"password": "newpw", "confirm_password": "newpw"}, token)
	require.Equal(t, http.StatusOK, r.Code, r.Body)

	r = app.do(t, http.MethodPost, "/users/login", map[string]string{"email": "a@x.com", "password": "pw1234"}, "")
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	r = app.do(t, http.MethodPost, "/users/login", map[string]string{"email": "a@x.com", "password": "newpw"}, "")
	assert.Equal(t, http.StatusOK, r.Code)

	r = app.do(t, http.MethodPost, "/users/logout", nil, "")
	assert.Equal(t, http.StatusOK, r.Code)
	require.NotEmpty(t, r.Cookies)
	assert.Equal(t, "", r.Cookies[0].Value)
	assert.True(t, r.Cookies[0].MaxAge < 0)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	app := newTestApp(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/users/logged-user"},
		{http.MethodPost, "/users/change-password"},
		{http.MethodGet, "/users/search?q=a"},
	} {
		r := app.do(t, tc.method, tc.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, r.Code, tc.path)
		assert.Equal(t, "error", r.Body["status"])

		r = app.do(t, tc.method, tc.path, nil, "forged.token.value")
		assert.Equal(t, http.StatusUnauthorized, r.Code, tc.path)
	}
}

func TestRegisterWithProfileImage(t *testing.T) {
	app := newTestApp(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{"name": "Bob", "email": "b@x.com", "password": "pw", "confirm_password": "pw"} {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="profileImage"; filename="bob.png"`}
	h["Content-Type"] = []string{"image/png"}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/users/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r := app.serve(t, req)
	require.Equal(t, http.StatusCreated, r.Code, r.Body)

	img, _ := r.Body["profileImage"].(string)
	require.True(t, strings.HasPrefix(img, "http://localhost:3000/uploads/"), img)

	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(img, "http://localhost:3000"), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "\x89PNG fake", w.Body.String())
}

func TestFormEncodedBodies(t *testing.T) {
	app := newTestApp(t)

	form := url.Values{"name": {"Cara"}, "email": {"c@x.com"}, "password": {"pw"}, "confirm_password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r := app.serve(t, req)
	assert.Equal(t, http.StatusCreated, r.Code, r.Body)

	r = app.do(t, http.MethodPost, "/users/register", map[string]string{
		"name": "Cara", "email": "c@x.com", "password": "pw", "confirm_password": "pw",
	}, "")
	assert.Equal(t, http.StatusConflict, r.Code)
}

func TestValidationAndStatusMapping(t *testing.T) {
	app := newTestApp(t)

	r := app.do(t, http.MethodPost, "/users/register", map[string]string{"name": "A", "email": "a@x.com", "password": "p", "confirm_password": "q"}, "")
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "Passwords do not match", r.Body["message"])

	r = app.do(t, http.MethodPost, "/users/register", map[string]string{"name": "A", "email": "a@x.com", "password": strings.Repeat("x", 80), "confirm_password": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Contains(t, r.Body["errors"], "password")

	wide := strings.Repeat("€", 40)
	r = app.do(t, http.MethodPost, "/users/register", map[string]string{"name": "A", "email": "a@x.com", "password": wide, "confirm_password": wide}, "")
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, map[string]any{"password": "must be at most 72 bytes long", "confirm_password": "must be at most 72 bytes long"}, r.Body["errors"])

	req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader("{broken"))
	req.Header.Set("Content-Type", "application/json")
	r = app.serve(t, req)
	assert.Equal(t, http.StatusBadRequest, r.Code)

	r = app.do(t, http.MethodPost, "/users/check-email", map[string]string{"email": "nobody@x.com"}, "")
	assert.Equal(t, http.StatusNotFound, r.Code)

	r = app.do(t, http.MethodPost, "/users/password-reset/unknown/whatever", map[string]string{"password": "a", "confirm_password": "a"}, "")
	assert.Equal(t, http.StatusNotFound, r.Code)

	r = app.do(t, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, r.Code)
	assert.Equal(t, "Not Found", r.Body["message"])
}

func TestResetFlowsOverHTTP(t *testing.T) {
	app := newTestApp(t)
	app.do(t, http.MethodPost, "/users/register", map[string]string{
		"name": "Dee", "email": "d@x.com", "password": "pw", "confirm_password": "pw",
	}, "")
	r := app.do(t, http.MethodPost, "/users/verify-otp", map[string]string{"email": "d@x.com", "otp": app.box.code("d@x.com")}, "")
	require.Equal(t, http.StatusOK, r.Code)

	r = app.do(t, http.MethodPost, "/users/check-email", map[string]string{"email": "d@x.com"}, "")
	require.Equal(t, http.StatusOK, r.Code)
	id := r.Body["user"].(map[string]any)["id"].(string)

	r = app.do(t, http.MethodPost, "/users/send-reset-password-email", map[string]string{"email": "d@x.com"}, "")
	require.Equal(t, http.StatusOK, r.Code)
	link := app.box.links["d@x.com"]
	require.True(t, strings.HasPrefix(link, "http://127.0.0.1:3000/users/reset/"+id+"/"), link)
	path := strings.Replace(strings.TrimPrefix(link, "http://127.0.0.1:3000"), "/users/reset/", "/users/password-reset/", 1)

	r = app.do(t, http.MethodPost, path, map[string]string{"password": "tok", "confirm_password": "tok"}, "")
	require.Equal(t, http.StatusOK, r.Code, r.Body)

	r = app.do(t, http.MethodPost, "/users/change-password-email", map[string]string{"email": "d@x.com", "oldPassword": "tok", "newPassword": "mail"}, "")
	require.Equal(t, http.StatusOK, r.Code, r.Body)

	r = app.do(t, http.MethodPost, "/users/reset-password-direct", map[string]string{"email": "d@x.com", "password": "direct", "confirm_password": "direct"}, "")
	require.Equal(t, http.StatusOK, r.Code, r.Body)

	r = app.do(t, http.MethodPost, "/users/login", map[string]string{"email": "d@x.com", "password": "direct"}, "")
	assert.Equal(t, http.StatusOK, r.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.do(t, http.MethodPost, "/users/login", map[string]string{"email": "x@x.com", "password": "p"}, "")

	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `authshop_account_operations_total{operation="login",outcome="not_found"}`)
}

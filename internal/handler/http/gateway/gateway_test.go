package gateway_http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"docvault/internal/app/auth"
	"docvault/internal/app/files"
	"docvault/internal/contracts"
	"docvault/internal/handler/rpc"
	"docvault/internal/infrastructure/storage"
	"docvault/internal/infrastructure/tokens"
	file_memory "docvault/internal/repository/file_repo/memory"
	user_memory "docvault/internal/repository/user_repo/memory"
	"docvault/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "gateway-test-secret"

func newTestGateway(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	tm := tokens.NewManager(testSecret, time.Hour, time.Hour, time.Hour)

	bus := transport.NewMemoryBus()
	client := transport.NewClient(bus, "replies.gateway-test", 2*time.Second, logger.Named("client"))
	emails := client.Proxy(contracts.EmailQueue)

	authServer := transport.NewServer(bus, contracts.AuthQueue, "auth-service", logger.Named("auth"))
	rpc.RegisterAuthRoutes(authServer, auth.NewAuthService(
		user_memory.NewUserRepository(), tm, emails, logger, auth.WithBcryptCost(bcrypt.MinCost),
	), logger)

	fileServer := transport.NewServer(bus, contracts.FileQueue, "file-service", logger.Named("files"))
	rpc.RegisterFileRoutes(fileServer, files.NewFileService(
		file_memory.NewFileRepository(), storage.NewMemoryStorage("docs"), emails, time.Hour, logger,
	), logger)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); _ = client.Listen(ctx) }()
	go func() { defer wg.Done(); _ = authServer.Serve(ctx) }()
	go func() { defer wg.Done(); _ = fileServer.Serve(ctx) }()

	router := NewRouter(Config{
		AllowedOrigins: []string{"*"},
		UploadTimeout:  5 * time.Second,
		MaxUploadBytes: 10 << 20,
	}, client.Proxy(contracts.AuthQueue), client.Proxy(contracts.FileQueue), tm, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		wg.Wait()
	})
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func registerAndLogin(t *testing.T, base, email string) contracts.LoginResponse {
	t.Helper()
	creds := map[string]string{"email": email, "password": "Secret1"}
	resp := doJSON(t, http.MethodPost, base+"/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, base+"/auth/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[contracts.LoginResponse](t, resp)
}

func TestGateway_Health(t *testing.T) {
	srv := newTestGateway(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateway_RegisterLoginAndProfile(t *testing.T) {
	srv := newTestGateway(t)
	login := registerAndLogin(t, srv.URL, "alice@example.com")
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "alice@example.com", login.User.Email)

	resp := doJSON(t, http.MethodGet, srv.URL+"/profile", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decodeBody[contracts.User](t, resp)
	assert.Equal(t, login.User.ID, profile.ID)
	assert.False(t, profile.IsEmailVerified)
}

func TestGateway_DuplicateRegistrationIsConflict(t *testing.T) {
	srv := newTestGateway(t)
	registerAndLogin(t, srv.URL, "alice@example.com")

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/register", "",
		map[string]string{"email": "alice@example.com", "password": "Secret1"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[errorResponse](t, resp)
	assert.Equal(t, http.StatusConflict, body.Code)
	assert.NotEmpty(t, body.Error)
}

func TestGateway_WrongPasswordIsUnauthorized(t *testing.T) {
	srv := newTestGateway(t)
	registerAndLogin(t, srv.URL, "alice@example.com")

	resp := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "",
		map[string]string{"email": "alice@example.com", "password": "Wrong1"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGateway_InvalidBodyIsBadRequest(t *testing.T) {
	srv := newTestGateway(t)
	resp, err := http.Post(srv.URL+"/auth/login", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGateway_VerifyEmailRequiresToken(t *testing.T) {
	srv := newTestGateway(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/auth/verify-email", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/auth/verify-email?token=garbage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGateway_GuardRejectsMissingAndForeignTokens(t *testing.T) {
	srv := newTestGateway(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/files", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A verification token must not open protected routes.
	tm := tokens.NewManager(testSecret, time.Hour, time.Hour, time.Hour)
	verify, err := tm.Issue(tokens.PurposeVerifyEmail, "user-1", "alice@example.com")
	require.NoError(t, err)
	resp = doJSON(t, http.MethodGet, srv.URL+"/profile", verify, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func upload(t *testing.T, url, token, name string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGateway_FileLifecycle(t *testing.T) {
	srv := newTestGateway(t)
	alice := registerAndLogin(t, srv.URL, "alice@example.com")
	bob := registerAndLogin(t, srv.URL, "bob@example.com")

	resp := upload(t, srv.URL+"/files/upload", alice.AccessToken, "report.pdf", []byte("%PDF-1.4\nhello"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rec := decodeBody[contracts.FileRecord](t, resp)
	assert.Equal(t, "report.pdf", rec.OriginalName)
	assert.Equal(t, "application/pdf", rec.MimeType)
	assert.Equal(t, alice.User.ID, rec.UserID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/files", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[[]contracts.FileRecord](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/files", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody[[]contracts.FileRecord](t, resp))

	resp = doJSON(t, http.MethodGet, srv.URL+"/files/"+rec.ID, bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/files/"+rec.ID, alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, rec.ID, decodeBody[contracts.FileRecord](t, resp).ID)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/files/"+rec.ID, alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeBody[contracts.DeleteFileResponse](t, resp).Success)

	resp = doJSON(t, http.MethodGet, srv.URL+"/files/"+rec.ID, alice.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGateway_UploadRejectsUnsupportedType(t *testing.T) {
	srv := newTestGateway(t)
	alice := registerAndLogin(t, srv.URL, "alice@example.com")

	resp := upload(t, srv.URL+"/files/upload", alice.AccessToken, "notes.txt", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type stubCaller struct {
	err error
}

func (s stubCaller) Send(context.Context, string, any, any, ...transport.CallOption) error {
	return s.err
}

func TestGateway_TransportFailuresMapToGatewayStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"timeout", &transport.TimeoutError{Pattern: contracts.PatternLogin, CorrelationID: "c1"}, http.StatusGatewayTimeout},
		{"broker down", &transport.TransportError{Op: "publish", Pattern: contracts.PatternLogin, Err: errors.New("dial tcp")}, http.StatusBadGateway},
		{"business", transport.Unauthorized("Invalid credentials"), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			tm := tokens.NewManager(testSecret, time.Hour, time.Hour, time.Hour)
			router := NewRouter(Config{AllowedOrigins: []string{"*"}}, stubCaller{err: tt.err}, stubCaller{}, tm, logger)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/login",
				bytes.NewBufferString(`{"email":"a@example.com","password":"x"}`))
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			var body errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.status, body.Code)
		})
	}
}

func TestClientLimiter_RejectsBurstOverflow(t *testing.T) {
	l := newClientLimiter(1, 2)
	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
}

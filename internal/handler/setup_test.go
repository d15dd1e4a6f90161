package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"
	"golang.org/x/crypto/bcrypt"

	"github.com/xxxsen/sharebox/internal/config"
	"github.com/xxxsen/sharebox/internal/filestore"
	"github.com/xxxsen/sharebox/internal/handler"
	"github.com/xxxsen/sharebox/internal/middleware"
	"github.com/xxxsen/sharebox/internal/pkg/jwt"
	"github.com/xxxsen/sharebox/internal/repo"
	"github.com/xxxsen/sharebox/internal/service"
	"github.com/xxxsen/sharebox/internal/testutil"
)

const (
	testBaseURL = "http://sharebox.test"
	testSecret  = "test-secret"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, rateLimit time.Duration) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenTestDB(t)
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{
			"dir":         t.TempDir(),
			"base_url":    testBaseURL,
			"sign_secret": "blob-secret",
		},
	})
	require.NoError(t, err)

	policy := config.DefaultShareConfig()
	policy.BcryptCost = bcrypt.MinCost
	fileRepo := repo.NewFileRepo(db)
	shareRepo := repo.NewShareRepo(db)
	cache := service.NewFileCache(fileRepo, policy.FileCacheSize, policy.FileCacheTTL())
	links := service.NewShareLinkStore(shareRepo)
	shares := service.NewShareService(
		fileRepo,
		links,
		service.NewTokenIssuer(fileRepo, links, policy),
		service.NewPasswordGate(links, policy.VerifyConcurrency),
		service.NewAccessCounter(links),
		service.NewDownloadAuthorizer(links, cache, store, policy.DownloadURLTTL()),
	)

	deps := handler.RouterDeps{
		Files:           handler.NewFileHandler(service.NewFileService(fileRepo, store, cache), 1024*1024),
		Shares:          handler.NewShareHandler(shares),
		Blobs:           handler.NewBlobHandler(store),
		JWTSecret:       []byte(testSecret),
		AccessRateLimit: rateLimit,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return engine
}

func bearer(t *testing.T, ownerID string) string {
	t.Helper()
	token, err := jwt.GenerateToken(ownerID, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, router http.Handler, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func uploadFile(t *testing.T, router http.Handler, auth, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

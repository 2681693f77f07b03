package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupMiddlewareTest() (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)), CORS())
	r.NoRoute(NotFound())
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetString(RequestIDKey)})
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Error(errors.New("db down"))
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50000})
	})
	return r, logs
}

func serve(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r, _ := setupMiddlewareTest()

	w := serve(r, "GET", "/ok", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = serve(r, "GET", "/ok", map[string]string{RequestIDHeader: "req-42"})
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.JSONEq(t, `{"id":"req-42"}`, w.Body.String())
}

func TestLogger(t *testing.T) {
	r, logs := setupMiddlewareTest()

	serve(r, "GET", "/ok", nil)
	serve(r, "GET", "/boom", map[string]string{RequestIDHeader: "req-7"})
	serve(r, "GET", "/missing", nil)

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	fields := entries[1].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, []interface{}{"db down"}, fields["errors"])

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
}

func TestCORS(t *testing.T) {
	r, _ := setupMiddlewareTest()

	w := serve(r, "OPTIONS", "/ok", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestNotFound(t *testing.T) {
	r, _ := setupMiddlewareTest()

	w := serve(r, "GET", "/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":40400,"message":"Route GET /missing not found"}`, w.Body.String())
}

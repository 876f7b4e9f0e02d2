package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/pkg/configpkg"
)

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)

	var buf bytes.Buffer

	logger := zerolog.New(&buf)

	server := gin.New()
	server.Use(RequestLogger(logger))
	server.GET("/ok", func(gctx *gin.Context) {
		zerolog.Ctx(gctx.Request.Context()).Info().Msg("inside handler")
		gctx.Status(http.StatusOK)
	})
	server.GET("/panic", func(gctx *gin.Context) {
		panic("boom")
	})

	t.Run("GeneratesRequestID", func(t *testing.T) {
		buf.Reset()

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		server.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)

		requestID := recorder.Header().Get(RequestIDHeader)
		require.NotEmpty(t, requestID)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)

		for _, line := range lines {
			var entry map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &entry))
			require.Equal(t, requestID, entry["request_id"])
		}
	})

	t.Run("KeepsRequestID", func(t *testing.T) {
		buf.Reset()

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set(RequestIDHeader, "req-1")
		server.ServeHTTP(recorder, req)

		require.Equal(t, "req-1", recorder.Header().Get(RequestIDHeader))
		require.NotContains(t, buf.String(), `"request_id":"req-1","request_id"`)
	})

	t.Run("RecoversPanic", func(t *testing.T) {
		buf.Reset()

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		server.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusInternalServerError, recorder.Code)
		require.Contains(t, buf.String(), "panic message: boom")
	})
}

func TestCreateLogger(t *testing.T) {
	prod := CreateLogger(configpkg.Config{Environment: "production"})
	require.Equal(t, zerolog.InfoLevel, prod.GetLevel())

	dev := CreateLogger(configpkg.Config{Environment: "development"})
	require.Equal(t, zerolog.TraceLevel, dev.GetLevel())
}

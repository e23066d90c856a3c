package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		pingErr  error
		wantCode int
		wantBody string
	}{
		{"database up", nil, http.StatusOK, `{"status":"ok","version":"1.2.0","checks":{"database":"up"}}`},
		{"database down", errors.New("dial tcp: refused"), http.StatusServiceUnavailable, `{"status":"unavailable","version":"1.2.0","checks":{"database":"down"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(fakePinger{err: tt.pingErr}, "1.2.0")
			r := gin.New()
			r.GET("/health/ready", h.Ready)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.NotContains(t, w.Body.String(), "refused")
		})
	}
}

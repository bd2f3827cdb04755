package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/culturemap/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestLoggerPropagatesIDs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "info", Output: &buf, ServiceName: "test"})

	r := gin.New()
	r.Use(RequestLogger(log))
	var seenOwner, seenRequest string
	r.GET("/x", func(c *gin.Context) {
		seenOwner = Owner(c)
		seenRequest = logger.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x?debug=1", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	req.Header.Set(UserIDHeader, "user-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "user-7", seenOwner)
	assert.Equal(t, "req-42", seenRequest)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "user-7", line[logger.FieldUserID])
	assert.Equal(t, "Request completed: method=GET, path=/x?debug=1", line["message"])
}

func TestGetLoggerFallsBackToContext(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background())
	assert.Same(t, logger.GetDefault(), GetLogger(c))
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		config     CORSConfig
		origin     string
		wantOrigin string
	}{
		{"allow all", CORSConfig{AllowAllOrigins: true}, "https://a.example", "*"},
		{"listed origin", CORSConfig{AllowedOrigins: []string{"https://a.example"}}, "https://A.example", "https://A.example"},
		{"unlisted origin", CORSConfig{AllowedOrigins: []string{"https://a.example"}}, "https://b.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.config))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestMaxBodySize(t *testing.T) {
	r := gin.New()
	r.POST("/x", MaxBodySize(4), func(c *gin.Context) {
		_, err := c.GetRawData()
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString("too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString("ok")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

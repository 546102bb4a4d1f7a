package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger_KeepsRequestBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.POST("/echo", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(b))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"content":"hi"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"content":"hi"}`, w.Body.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short"))

	long := strings.Repeat("a", maxLoggedBody+10)
	got := truncate(long)
	assert.True(t, strings.HasSuffix(got, "...(truncated)"))
	assert.Len(t, got, maxLoggedBody+len("...(truncated)"))
}

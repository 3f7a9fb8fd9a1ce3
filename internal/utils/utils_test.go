package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"public X-Real-IP", map[string]string{"X-Real-IP": "200.1.2.3"}, "200.1.2.3"},
		{"private X-Real-IP falls through", map[string]string{"X-Real-IP": "10.0.0.1", "X-Forwarded-For": "201.5.6.7"}, "201.5.6.7"},
		{"first public forwarded", map[string]string{"X-Forwarded-For": "10.1.1.1, 127.0.0.1, 190.9.8.7, 8.8.8.8"}, "190.9.8.7"},
		{"all private forwarded", map[string]string{"X-Forwarded-For": "192.168.1.4, 10.0.0.2"}, "192.168.1.4"},
		{"direct connection", nil, "192.0.2.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetRealIP(newContext(tt.headers)))
		})
	}
}

func TestGetUserAgent(t *testing.T) {
	assert.Equal(t, "Unknown", GetUserAgent(newContext(nil)))
	assert.Equal(t, "curl/8.0", GetUserAgent(newContext(map[string]string{"User-Agent": "curl/8.0"})))
}

func TestParseUserAgent(t *testing.T) {
	t.Run("Desktop Chrome", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.Equal(t, "desktop", info.DeviceType)
		assert.Equal(t, "Chrome", info.Browser)
		assert.Contains(t, info.OS, "Windows")
		assert.False(t, info.IsBot)
	})

	t.Run("Android phone", func(t *testing.T) {
		info := ParseUserAgent("Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36")
		assert.Equal(t, "mobile", info.DeviceType)
		assert.Contains(t, info.OS, "Android")
	})

	t.Run("Empty", func(t *testing.T) {
		info := ParseUserAgent("")
		assert.Equal(t, "unknown", info.DeviceType)
		assert.Equal(t, "Unknown", info.Browser)
	})
}

func TestGenerateJWTSecret(t *testing.T) {
	a, err := GenerateJWTSecret()
	require.NoError(t, err)
	b, err := GenerateJWTSecret()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

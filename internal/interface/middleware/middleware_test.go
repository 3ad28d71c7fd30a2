package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/oksasatya/tutorhub-user-service/internal/domain/valueobject"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(HeaderRequestID))

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, incoming)
	assert.Equal(t, incoming, serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	assert.NotEqual(t, "<script>", serve(r, req).Body.String())
}

func TestActor(t *testing.T) {
	r := gin.New()
	r.Use(Actor())
	r.GET("/", func(c *gin.Context) {
		id, role, ok := ActorFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, id+"|"+role.String())
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	actorID := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderActorID, actorID)
	req.Header.Set(HeaderActorRole, "overlord")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req.Header.Set(HeaderActorRole, string(vo.RoleAdmin))
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, actorID+"|admin", w.Body.String())
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-Connecting-IP", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "not-an-ip")
	req.Header.Set("X-Forwarded-For", "198.51.100.2, 10.0.0.1")
	assert.Equal(t, "198.51.100.2", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.9")
	req.Header.Set("X-Forwarded-For", "198.51.100.2")
	assert.Equal(t, "198.51.100.9", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "192.0.2.1", serve(r, req).Body.String())
}

func TestRateLimitWithoutRedisIsOpen(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil, 1, time.Minute, KeyByIP(), nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestKeys(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	var byIP, byPath, byActor string
	r.GET("/users/:id", func(c *gin.Context) {
		byIP, byPath, byActor = KeyByIP()(c), KeyByIPAndPath()(c), KeyByActor()(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.2")
	req.Header.Set(HeaderActorID, "actor-1")
	serve(r, req)
	assert.Equal(t, "rl:ip:198.51.100.2", byIP)
	assert.Equal(t, "rl:path:/users/:id:ip:198.51.100.2", byPath)
	assert.Equal(t, "rl:actor:actor-1", byActor)
}

func TestAllowPrivateIP(t *testing.T) {
	allow := AllowPrivateIP()
	for ip, want := range map[string]bool{"127.0.0.1": true, "10.1.2.3": true, "203.0.113.7": false, "garbage": false} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("real_ip", ip)
		assert.Equal(t, want, allow(c), ip)
	}
}

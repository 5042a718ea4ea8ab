package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/freelance-escrow/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/ws"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Silence()
	os.Exit(m.Run())
}

func TestPageParams(t *testing.T) {
	cases := []struct {
		query         string
		limit, offset int
	}{
		{"", 20, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=0", 20, 0},
		{"?limit=5000", maxPageSize, 0},
		{"?limit=abc&offset=-3", 20, 0},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
		limit, offset := pageParams(c, 20)
		assert.Equal(t, tc.limit, limit, tc.query)
		assert.Equal(t, tc.offset, offset, tc.query)
	}
}

func TestParamUUIDRejectsGarbage(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	_, ok := paramUUID(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type tokenFunc func(string) (uuid.UUID, valueobject.Role, error)

func (f tokenFunc) ParseAccess(token string) (uuid.UUID, valueobject.Role, error) { return f(token) }

func TestWSHandlerRequiresToken(t *testing.T) {
	tokens := tokenFunc(func(string) (uuid.UUID, valueobject.Role, error) {
		return uuid.Nil, "", errors.New("expired")
	})
	h := NewWSHandler(ws.NewHub(nil), tokens, []string{"https://app.example.com"})

	r := gin.New()
	r.GET("/api/ws", h.Handle)

	for _, path := range []string{"/api/ws", "/api/ws?token=stale"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestWSHandlerChecksOrigin(t *testing.T) {
	h := NewWSHandler(ws.NewHub(nil), nil, []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
	assert.True(t, h.upgrader.CheckOrigin(req), "non-browser clients send no origin")

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, h.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, h.upgrader.CheckOrigin(req))
}

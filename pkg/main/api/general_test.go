package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/nekomata-dev/subdex/pkg/main/config"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.SetTestSettings(&config.MainConfig{
		General: config.GeneralConfig{APIKey: "testkey"},
	})
	engine := gin.New()
	AddGeneralRoutes(engine.Group("/api"))
	return engine
}

func TestCheckauth(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		url  string
		code int
	}{
		{"missing key", "/api/relations/date", http.StatusUnauthorized},
		{"wrong key", "/api/relations/date?apikey=nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			router.ServeHTTP(w, req)
			if w.Code != tt.code {
				t.Errorf("status = %d; want %d", w.Code, tt.code)
			}
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"filenames": ["[SubsPlease] Show Title - 05 (1080p) [ABCD1234].srt"]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/parse?apikey=testkey", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Filename string `json:"filename"`
			Episode  struct {
				Type   string `json:"type"`
				Number int    `json:"number"`
			} `json:"episode"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "single", resp.Data[0].Episode.Type)
	require.Equal(t, 5, resp.Data[0].Episode.Number)
}

func TestParseEndpointRejectsBadBody(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/parse?apikey=testkey", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", w.Code)
	}
}

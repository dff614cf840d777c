package aiassist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shoe_market_backend/internal/common"
	"shoe_market_backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*ShoeAnalysis, error) {
	args := m.Called(ctx, image, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ShoeAnalysis), args.Error(1)
}

type countingLimiter struct {
	calls int64
	err   error
}

func (l *countingLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, error) {
	l.calls++
	return l.calls <= limit, l.err
}

func uploadRequest(t *testing.T, content []byte) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("image", "shoe.jpg")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-shoe", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newRouter(svc Service, actor *uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	requireAuth := func(c *gin.Context) {
		if actor == nil {
			common.RespondWithError(c, common.ErrUnauthorized)
			return
		}
		c.Set(common.UserIDKey, *actor)
		c.Next()
	}
	NewHandler(svc, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"), requireAuth)
	return r
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAnalyzeShoe_Success(t *testing.T) {
	analyzer := new(MockAnalyzer)
	analyzer.On("Analyze", mock.Anything, jpegMagic, "image/jpeg").
		Return(&ShoeAnalysis{Brand: "Nike", Model: "Air Jordan 1", Color: "Red/White", Category: "Basketball", Description: "Iconic."}, nil)
	svc := NewService(analyzer, nil, &config.Config{MaxUploadMB: 1}, zap.NewNop())
	actor := uuid.New()

	rec := httptest.NewRecorder()
	newRouter(svc, &actor).ServeHTTP(rec, uploadRequest(t, jpegMagic))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Nike", body["brand"])
	assert.Equal(t, "Basketball", body["category"])
	assert.NotContains(t, body, "error")
	analyzer.AssertExpectations(t)
}

func TestAnalyzeShoe_FailsOpen(t *testing.T) {
	analyzer := new(MockAnalyzer)
	analyzer.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("429 RESOURCE_EXHAUSTED"))
	svc := NewService(analyzer, nil, &config.Config{MaxUploadMB: 1}, zap.NewNop())
	actor := uuid.New()

	rec := httptest.NewRecorder()
	newRouter(svc, &actor).ServeHTTP(rec, uploadRequest(t, jpegMagic))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": BusyMessage}, decode(t, rec))
}

func TestAnalyzeShoe_RejectsNonImages(t *testing.T) {
	analyzer := new(MockAnalyzer)
	svc := NewService(analyzer, nil, &config.Config{MaxUploadMB: 1}, zap.NewNop())
	actor := uuid.New()

	rec := httptest.NewRecorder()
	newRouter(svc, &actor).ServeHTTP(rec, uploadRequest(t, []byte("%PDF-1.4 not a shoe")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze-shoe", nil)
	newRouter(svc, &actor).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzeShoe_RequiresAuth(t *testing.T) {
	svc := NewService(new(MockAnalyzer), nil, &config.Config{MaxUploadMB: 1}, zap.NewNop())
	rec := httptest.NewRecorder()
	newRouter(svc, nil).ServeHTTP(rec, uploadRequest(t, jpegMagic))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyzeUpload_RateLimited(t *testing.T) {
	analyzer := new(MockAnalyzer)
	analyzer.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(&ShoeAnalysis{Brand: "Asics"}, nil)
	limiter := &countingLimiter{}
	svc := NewService(analyzer, limiter, &config.Config{MaxUploadMB: 1, AIRateLimitPerHour: 2}, zap.NewNop())
	actor := uuid.New()

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		newRouter(svc, &actor).ServeHTTP(rec, uploadRequest(t, jpegMagic))
		assert.Equal(t, "Asics", decode(t, rec)["brand"])
	}
	rec := httptest.NewRecorder()
	newRouter(svc, &actor).ServeHTTP(rec, uploadRequest(t, jpegMagic))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, BusyMessage, decode(t, rec)["error"])
	analyzer.AssertNumberOfCalls(t, "Analyze", 2)
}

func TestAnalyzeUpload_LimiterOutageAllows(t *testing.T) {
	analyzer := new(MockAnalyzer)
	analyzer.On("Analyze", mock.Anything, mock.Anything, mock.Anything).Return(&ShoeAnalysis{Brand: "Vans"}, nil)
	svc := NewService(analyzer, &countingLimiter{err: errors.New("dial tcp: connection refused")}, &config.Config{MaxUploadMB: 1, AIRateLimitPerHour: 1}, zap.NewNop())
	actor := uuid.New()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		newRouter(svc, &actor).ServeHTTP(rec, uploadRequest(t, jpegMagic))
		assert.Equal(t, "Vans", decode(t, rec)["brand"])
	}
}

func TestGeminiAnalyzer_NotConfigured(t *testing.T) {
	a, err := NewGeminiAnalyzer(context.Background(), &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, defaultModel, a.model)
	_, err = a.Analyze(context.Background(), jpegMagic, "image/jpeg")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestParseAnalysis(t *testing.T) {
	got, err := parseAnalysis(`{"brand":"Dr. Martens","model":"1460","color":"Black","category":"Combat","description":"Tough."}`)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Martens", got.Brand)
	assert.Equal(t, "Other", got.Category)

	_, err = parseAnalysis("")
	assert.Error(t, err)
	_, err = parseAnalysis("not json")
	assert.Error(t, err)
}

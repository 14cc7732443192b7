package httpapi_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fekuna/omnipos-warehouse-service/internal/apperrors"
	"github.com/fekuna/omnipos-warehouse-service/internal/auth"
	"github.com/fekuna/omnipos-warehouse-service/internal/httpapi"
	"github.com/fekuna/omnipos-warehouse-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-warehouse-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTenantMiddleware_RejectsMissingHeader(t *testing.T) {
	router := gin.New()
	router.Use(httpapi.TenantMiddleware())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantMiddleware_PropagatesTenantAndActor(t *testing.T) {
	router := gin.New()
	router.Use(httpapi.TenantMiddleware())

	var gotTenant, gotActor string
	router.GET("/x", func(c *gin.Context) {
		gotTenant = auth.GetTenantID(c.Request.Context())
		gotActor = auth.GetActorID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(httpapi.HeaderTenantID, "tenant-1")
	req.Header.Set(httpapi.HeaderUserID, "user-1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tenant-1", gotTenant)
	assert.Equal(t, "user-1", gotActor)
}

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{apperrors.Validation("quantity", "must be positive"), http.StatusBadRequest},
		{apperrors.NotFound("order", "x"), http.StatusNotFound},
		{apperrors.InvalidState("order", "shipped", "pick"), http.StatusConflict},
		{apperrors.InsufficientStock("p1", 10, 3), http.StatusConflict},
		{apperrors.QuantityMismatch("order line 1", 10, 6), http.StatusConflict},
		{postgres.ErrTxConflict, http.StatusConflict},
		{apperrors.ConfigurationMissing("numbering template"), http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		router := gin.New()
		router.GET("/x", func(c *gin.Context) {
			httpapi.RespondError(c, logger.NewNop(), tt.err)
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, tt.code, w.Code, "error %v", tt.err)
	}
}

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexlog/flexchat/internal/app/models/dto"
	"github.com/flexlog/flexchat/internal/pkg/apperrors"
)

func TestHandleAPIError_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   dto.ErrorCode
	}{
		{
			name:       "not a member",
			err:        apperrors.NewAuthorizationError("user is not a member of this conversation"),
			wantStatus: http.StatusForbidden,
			wantCode:   dto.ErrorCodeNotMember,
		},
		{
			name:       "admin required",
			err:        apperrors.NewAdminRequiredError("only a conversation admin can unpin messages"),
			wantStatus: http.StatusForbidden,
			wantCode:   dto.ErrorCodeForbidden,
		},
		{
			name:       "author only",
			err:        apperrors.NewForbiddenError("only the author may retry a message"),
			wantStatus: http.StatusForbidden,
			wantCode:   dto.ErrorCodeForbidden,
		},
		{
			name:       "empty message",
			err:        apperrors.NewEmptyMessageError("message must carry a body or media"),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrorCodeEmptyMessage,
		},
		{
			name:       "invalid media",
			err:        apperrors.NewInvalidMediaError("media requires a media type"),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrorCodeValidationFailed,
		},
		{
			name:       "provisional id conflict",
			err:        apperrors.NewConflictError("provisional id is already bound to another message"),
			wantStatus: http.StatusConflict,
			wantCode:   dto.ErrorCodeInvalidRequest,
		},
		{
			name:       "validation",
			err:        apperrors.NewValidationError("message must carry a body or media"),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrorCodeValidationFailed,
		},
		{
			name:       "not found",
			err:        apperrors.NewResourceNotFoundError("message not found"),
			wantStatus: http.StatusNotFound,
			wantCode:   dto.ErrorCodeResourceNotFound,
		},
		{
			name:       "expired token",
			err:        apperrors.ErrTokenExpired,
			wantStatus: http.StatusUnauthorized,
			wantCode:   dto.ErrorCodeExpiredToken,
		},
		{
			name:       "transient storage",
			err:        apperrors.NewTransientError("could not read typing indicators"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   dto.ErrorCodeTransientStorage,
		},
		{
			name:       "unknown",
			err:        errors.New("something odd"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrorCodeInternalServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(recorder)

			HandleAPIError(ctx, tt.err)

			assert.Equal(t, tt.wantStatus, recorder.Code)

			var resp dto.APIResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.False(t, resp.Success)
		})
	}
}

func TestHandleAPIError_UsesWrappedMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)

	HandleAPIError(ctx, apperrors.NewForbiddenError("only the author may retry a message"))

	var resp dto.APIResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "only the author may retry a message", resp.Error.Message)
}

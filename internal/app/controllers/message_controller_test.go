package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexlog/flexchat/internal/app/models"
	"github.com/flexlog/flexchat/internal/app/models/dto"
	"github.com/flexlog/flexchat/internal/pkg/apperrors"
)

// mockMessageService stubs the pipeline with injectable behavior per test
type mockMessageService struct {
	sendFn  func(ctx context.Context, conversationID, authorID int64, req *dto.SendMessageRequest) (*dto.ProvisionalMessageResponse, error)
	retryFn func(ctx context.Context, authorID int64, provisionalID string) (*dto.ProvisionalMessageResponse, error)
}

func (m *mockMessageService) Send(ctx context.Context, conversationID, authorID int64, req *dto.SendMessageRequest) (*dto.ProvisionalMessageResponse, error) {
	return m.sendFn(ctx, conversationID, authorID, req)
}

func (m *mockMessageService) Retry(ctx context.Context, authorID int64, provisionalID string) (*dto.ProvisionalMessageResponse, error) {
	return m.retryFn(ctx, authorID, provisionalID)
}

func (m *mockMessageService) Pin(ctx context.Context, messageID, userID int64) error   { return nil }
func (m *mockMessageService) Unpin(ctx context.Context, messageID, userID int64) error { return nil }
func (m *mockMessageService) MarkRead(ctx context.Context, messageID, userID int64) error {
	return nil
}
func (m *mockMessageService) ListPinned(ctx context.Context, conversationID, userID int64) ([]dto.MessageResponse, error) {
	return nil, nil
}
func (m *mockMessageService) ReplyPreview(ctx context.Context, targetID int64) *dto.ReplyPreviewResponse {
	return nil
}
func (m *mockMessageService) ResolveProvisional(provisionalID string) (int64, bool) { return 0, false }

func newMessageTestRouter(svc *mockMessageService, userID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})

	controller := NewMessageController(svc)
	router.POST("/api/v1/conversations/:id/messages", controller.SendMessage)
	router.POST("/api/v1/messages/:messageId/retry", controller.RetryMessage)
	return router
}

func TestSendMessageEndpoint_Created(t *testing.T) {
	serverID := int64(7)
	svc := &mockMessageService{
		sendFn: func(ctx context.Context, conversationID, authorID int64, req *dto.SendMessageRequest) (*dto.ProvisionalMessageResponse, error) {
			assert.Equal(t, int64(1), conversationID)
			assert.Equal(t, int64(100), authorID)
			return &dto.ProvisionalMessageResponse{
				ProvisionalID:  "prov-1",
				ServerID:       &serverID,
				Status:         models.DeliveryStatusSent,
				ConversationID: conversationID,
				AuthorID:       authorID,
				Body:           req.Body,
				CreatedAt:      time.Now(),
			}, nil
		},
	}
	router := newMessageTestRouter(svc, 100)

	body, _ := json.Marshal(dto.SendMessageRequest{Body: strPtrTest("nice pace today")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/1/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp struct {
		Success bool                           `json:"success"`
		Data    dto.ProvisionalMessageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "prov-1", resp.Data.ProvisionalID)
	assert.Equal(t, models.DeliveryStatusSent, resp.Data.Status)
}

func TestSendMessageEndpoint_EmptyRejected(t *testing.T) {
	svc := &mockMessageService{
		sendFn: func(ctx context.Context, conversationID, authorID int64, req *dto.SendMessageRequest) (*dto.ProvisionalMessageResponse, error) {
			return nil, apperrors.NewEmptyMessageError("message must carry a body or media")
		},
	}
	router := newMessageTestRouter(svc, 100)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/1/messages", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSendMessageEndpoint_NonMemberForbidden(t *testing.T) {
	svc := &mockMessageService{
		sendFn: func(ctx context.Context, conversationID, authorID int64, req *dto.SendMessageRequest) (*dto.ProvisionalMessageResponse, error) {
			return nil, apperrors.NewAuthorizationError("user is not a member of this conversation")
		},
	}
	router := newMessageTestRouter(svc, 100)

	body, _ := json.Marshal(dto.SendMessageRequest{Body: strPtrTest("hi")})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/1/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusForbidden, recorder.Code)

	var resp dto.APIResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrorCodeNotMember, resp.Error.Code)
}

func TestRetryEndpoint_UnknownProvisional(t *testing.T) {
	svc := &mockMessageService{
		retryFn: func(ctx context.Context, authorID int64, provisionalID string) (*dto.ProvisionalMessageResponse, error) {
			assert.Equal(t, "prov-gone", provisionalID)
			return nil, apperrors.NewResourceNotFoundError("no pending message with this provisional id")
		},
	}
	router := newMessageTestRouter(svc, 100)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/prov-gone/retry", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func strPtrTest(s string) *string { return &s }

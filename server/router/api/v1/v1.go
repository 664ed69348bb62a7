package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/t3clone/t3chat/internal/profile"
	"github.com/t3clone/t3chat/plugin/ai/metrics"
	"github.com/t3clone/t3chat/server/auth"
	"github.com/t3clone/t3chat/server/internal/observability"
	"github.com/t3clone/t3chat/server/middleware"
	"github.com/t3clone/t3chat/server/service/attachment"
	"github.com/t3clone/t3chat/server/service/chat"
	"github.com/t3clone/t3chat/store"
)

const (
	// llmRequestsPerMinute bounds the model backed routes per user.
	llmRequestsPerMinute = 30
	llmBurst             = 10
)

type APIV1Service struct {
	Profile           *profile.Profile
	Store             *store.Store
	ChatService       *chat.Service
	AttachmentService *attachment.Service
	MetricsService    metrics.MetricsService
	Authenticator     *auth.Authenticator
	RateLimiter       *middleware.RateLimiter
}

func NewAPIV1Service(
	profile *profile.Profile,
	store *store.Store,
	chatService *chat.Service,
	attachmentService *attachment.Service,
	metricsService metrics.MetricsService,
) *APIV1Service {
	return &APIV1Service{
		Profile:           profile,
		Store:             store,
		ChatService:       chatService,
		AttachmentService: attachmentService,
		MetricsService:    metricsService,
		Authenticator:     auth.NewAuthenticator(profile.JWTSecret),
		RateLimiter:       middleware.NewRateLimiter(llmRequestsPerMinute, llmBurst),
	}
}

// RegisterRoutes registers the JSON API with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.Healthz)

	authed := []echo.MiddlewareFunc{s.requireAuth}
	limited := []echo.MiddlewareFunc{s.requireAuth, s.RateLimiter.Middleware(rateLimitKey)}

	api := e.Group("/api")
	// Public.
	api.GET("/models", s.ListModels)
	api.GET("/shared/:shareId", s.GetSharedChat)

	// Model backed.
	api.POST("/chat", s.Chat, limited...)
	api.POST("/autocomplete", s.Autocomplete, limited...)
	api.POST("/convert-code", s.ConvertCode, limited...)
	api.POST("/chat-index", s.IndexChat, limited...)

	api.GET("/convert-code", s.ListCodeConversions, authed...)
	api.GET("/chat-index", s.ListChatIndex, authed...)

	api.GET("/chats", s.ListChats, authed...)
	api.GET("/chats/:id", s.GetChat, authed...)
	api.PATCH("/chats/:id", s.UpdateChat, authed...)
	api.DELETE("/chats/:id", s.DeleteChat, authed...)
	api.POST("/chats/:id/share", s.ShareChat, authed...)
	api.DELETE("/chats/:id/share", s.UnshareChat, authed...)
	api.GET("/chats/:id/export", s.ExportChat, authed...)

	api.POST("/attachments", s.CreateAttachment, authed...)
	api.GET("/attachments/:id", s.GetAttachmentBlob, authed...)
	api.GET("/attachments/:id/thumbnail", s.GetAttachmentThumbnail, authed...)
	api.DELETE("/attachments/:id", s.DeleteAttachment, authed...)

	api.GET("/settings", s.GetUserSetting, authed...)
	api.PUT("/settings", s.UpdateUserSetting, authed...)
	api.GET("/profile", s.GetUserProfile, authed...)
	api.PUT("/profile", s.UpdateUserProfile, authed...)

	api.GET("/metrics", s.GetMetricsOverview, authed...)
}

// requireAuth rejects requests without a valid bearer token and stores the
// user id in the request context.
func (s *APIV1Service) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		result, err := s.Authenticator.Authenticate(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			observability.LoggerFromContext(ctx).Debug("authentication failed", "error", err.Error())
			return c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "authentication required"})
		}
		ctx = auth.SetUserIDInContext(ctx, result.UserID)
		if reqCtx, ok := observability.FromContext(ctx); ok {
			reqCtx.UserID = result.UserID
		}
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func rateLimitKey(c echo.Context) string {
	return auth.GetUserID(c.Request().Context())
}

func currentUserID(c echo.Context) string {
	return auth.GetUserID(c.Request().Context())
}

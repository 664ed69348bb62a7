package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/t3clone/t3chat/internal/profile"
	"github.com/t3clone/t3chat/plugin/ai"
	"github.com/t3clone/t3chat/plugin/ai/metrics"
	"github.com/t3clone/t3chat/plugin/ai/tools"
	"github.com/t3clone/t3chat/plugin/textextract"
	"github.com/t3clone/t3chat/server/middleware"
	apiv1 "github.com/t3clone/t3chat/server/router/api/v1"
	"github.com/t3clone/t3chat/server/service/attachment"
	"github.com/t3clone/t3chat/server/service/chat"
	"github.com/t3clone/t3chat/store"
)

const (
	wikipediaTimeout       = 10 * time.Second
	rateLimitCleanupPeriod = 5 * time.Minute
	rateLimitIdleTimeout   = 30 * time.Minute
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer  *echo.Echo
	apiV1       *apiv1.APIV1Service
	chatService *chat.Service
	metrics     *metrics.Service

	runnerCancelFuncs []context.CancelFunc
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Store:   store,
		Profile: profile,
	}

	aiConfig := ai.NewConfigFromProfile(profile)
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI configuration")
	}
	registry := ai.NewRegistry(aiConfig)
	if !registry.Enabled() {
		slog.Warn("AI is disabled, model backed routes will answer 503")
	}

	calculator, err := tools.NewCalculatorTool()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create calculator tool")
	}
	wikipedia := tools.NewWikipediaTool(profile.WikipediaBaseURL, &http.Client{Timeout: wikipediaTimeout})

	s.metrics = metrics.NewService()
	var attachmentOpts []attachment.Option
	if profile.TikaURL != "" {
		config := textextract.DefaultConfig()
		config.TikaServerURL = profile.TikaURL
		attachmentOpts = append(attachmentOpts, attachment.WithTextExtractor(textextract.NewClient(config)))
	}
	attachmentService := attachment.NewService(store, profile.AttachmentDir(), profile.MaxUploadBytes, attachmentOpts...)
	s.chatService = chat.NewService(store, registry, tools.NewRegistry(calculator, wikipedia), attachmentService, s.metrics)

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.HTTPErrorHandler = apiv1.HTTPErrorHandler
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.HeaderRequestID},
		ExposeHeaders: []string{apiv1.HeaderChatID, middleware.HeaderRequestID},
	}))
	echoServer.Use(middleware.RequestContext(slog.Default()))
	s.echoServer = echoServer

	s.apiV1 = apiv1.NewAPIV1Service(profile, store, s.chatService, attachmentService, s.metrics)
	s.apiV1.RegisterRoutes(echoServer)

	return s, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", slog.String("error", err.Error()))
		}
	}()
	s.StartBackgroundRunners(ctx)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	// Stop taking requests first so no new index jobs get queued.
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	for _, cancelFunc := range s.runnerCancelFuncs {
		if cancelFunc != nil {
			cancelFunc()
		}
	}
	if err := s.chatService.Wait(ctx); err != nil {
		slog.Warn("background index jobs did not finish", slog.String("error", err.Error()))
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("t3chat stopped properly")
}

func (s *Server) StartBackgroundRunners(ctx context.Context) {
	metricsCtx, metricsCancel := context.WithCancel(ctx)
	limiterCtx, limiterCancel := context.WithCancel(ctx)
	s.runnerCancelFuncs = append(s.runnerCancelFuncs, metricsCancel, limiterCancel)

	go s.metrics.PruneLoop(metricsCtx)
	go s.apiV1.RateLimiter.CleanupLoop(limiterCtx, rateLimitCleanupPeriod, rateLimitIdleTimeout)
}

package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/scene-hub/scene-hub/internal/docstore"
	"github.com/scene-hub/scene-hub/internal/errs"
	"github.com/scene-hub/scene-hub/internal/hub"
	"github.com/scene-hub/scene-hub/internal/storage"
)

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	Hub        *hub.Services
	ListenPort int
}

const contextKeyRequestID = "_scenehub_request_id"

// NewApp builds a Fiber application with request-ID middleware and
// structured error handling.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Hub == nil {
		return nil, errors.New("hub services are required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	registerRoutes(app, opts)
	return app, nil
}

// requestContextMiddleware 为每个请求生成 ID 并回写响应头，便于链路排查。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// renderError 把错误分类翻译为状态码：
// 未找到 → 404，策略拒绝 → 403，上游失败/数据损坏 → 502，其余 → 500。
func renderError(c fiber.Ctx, logger *logrus.Logger, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errs.IsNotFound(err),
		errors.Is(err, docstore.ErrDocNotFound),
		errors.Is(err, storage.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, errs.ErrPolicyRefusal):
		status = fiber.StatusForbidden
	case errors.Is(err, errs.ErrUnsupportedManifest):
		// 目标存在但不是可摄取的 crate（仅 workspace），属于请求方错误
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrUpstreamUnavailable),
		errors.Is(err, errs.ErrMalformedData),
		errors.Is(err, errs.ErrIntegrity):
		status = fiber.StatusBadGateway
	}

	fields := logrus.Fields{
		"action":     "request_error",
		"status":     status,
		"path":       string(c.Request().URI().Path()),
		"request_id": RequestID(c),
	}
	if status >= 500 {
		logger.WithFields(fields).Error(err.Error())
	} else {
		logger.WithFields(fields).Warn(err.Error())
	}

	return c.Status(status).JSON(fiber.Map{
		"error":      err.Error(),
		"request_id": RequestID(c),
	})
}

// setCacheHeaders 依据 ref 是否可变写缓存头：不可变内容允许长期缓存，
// "latest" 等移动 ref 禁止缓存，保证客户端总能看到最新解析结果。
func setCacheHeaders(c fiber.Ctx, moving bool) {
	if moving {
		c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
		return
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
}

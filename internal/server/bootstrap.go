package server

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/scene-hub/scene-hub/internal/config"
	"github.com/scene-hub/scene-hub/internal/docstore"
	"github.com/scene-hub/scene-hub/internal/fetch"
	"github.com/scene-hub/scene-hub/internal/github"
	"github.com/scene-hub/scene-hub/internal/hub"
	"github.com/scene-hub/scene-hub/internal/registry"
	"github.com/scene-hub/scene-hub/internal/storage"
)

// Bootstrap 依据配置组装全部后端能力与 Fiber 应用。
// 文档存储默认使用内存驱动，外部驱动通过 docs 参数注入；传 nil 取默认。
func Bootstrap(cfg *config.Config, docs docstore.Store, logger *logrus.Logger) (*fiber.App, *hub.Services, error) {
	httpClient := fetch.NewClient(cfg.Global.UpstreamTimeout.DurationValue())

	throttle := registry.NewThrottle(cfg.Registry.ThrottleInterval.DurationValue())
	upstream := registry.NewClient(httpClient, cfg.Registry.IndexURL, cfg.Registry.APIURL, throttle, logger)
	reg := registry.NewLocalCacheRegistry(upstream, cfg.Registry.TarballCachePath, cfg.Registry.TarballCacheReadOnly, logger)

	gh := github.NewClient(httpClient, cfg.GitHub.APIURL, cfg.GitHub.RawURL, cfg.GitHub.Token, logger)

	store, err := storage.NewFSStore(cfg.Global.StoragePath)
	if err != nil {
		return nil, nil, err
	}

	if docs == nil {
		docs = docstore.NewMemStore()
	}

	services := hub.NewServices(reg, gh, store, docs, cfg.Global.Environment, logger)

	app, err := NewApp(AppOptions{
		Logger:     logger,
		Hub:        services,
		ListenPort: cfg.Global.ListenPort,
	})
	if err != nil {
		return nil, nil, err
	}
	return app, services, nil
}

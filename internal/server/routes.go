package server

import (
	"github.com/gofiber/fiber/v3"

	"github.com/scene-hub/scene-hub/internal/crateid"
)

// registerRoutes 挂载全部业务路由。registry 与 GitHub 两类来源共享同一套
// 文档读取逻辑，只在标识解析上分叉。
func registerRoutes(app *fiber.App, opts AppOptions) {
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	crates := app.Group("/crates/:name")
	crates.Get("/versions", handleVersions(opts))
	crates.Get("/versions/:version", handleRegistryCrate(opts))
	crates.Get("/versions/:version/scenes", handleRegistryScenes(opts))
	crates.Get("/versions/:version/scenes/:scene", handleRegistryScene(opts))
	crates.Get("/versions/:version/files/*", handleRegistryFile(opts))

	gh := app.Group("/github/:owner/:repo/ref/:ref")
	gh.Get("/", handleGitHubCrate(opts))
	gh.Get("/scenes", handleGitHubScenes(opts))
	gh.Get("/scenes/:scene", handleGitHubScene(opts))
	gh.Get("/files/*", handleGitHubFile(opts))
}

func handleVersions(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		versions, err := opts.Hub.Versions(c.Context(), c.Params("name"))
		if err != nil {
			return renderError(c, opts.Logger, err)
		}

		out := make([]string, len(versions))
		for i, v := range versions {
			out[i] = v.String()
		}
		setCacheHeaders(c, true)
		return c.JSON(out)
	}
}

// resolveRegistryID 把路径参数解析为具体标识，并报告 ref 是否为移动 ref。
func resolveRegistryID(c fiber.Ctx, opts AppOptions) (crateid.CrateID, bool, error) {
	token := c.Params("version")
	id, err := opts.Hub.ResolveRegistryCrate(c.Context(), c.Params("name"), token)
	return id, token == crateid.RefLatest, err
}

func resolveGitHubID(c fiber.Ctx, opts AppOptions) (crateid.CrateID, bool, error) {
	ref := c.Params("ref")
	manifestPath := fiber.Query(c, "manifest-path", crateid.DefaultManifestPath)
	id, err := opts.Hub.ResolveGitHubCrate(c.Context(), c.Params("owner"), c.Params("repo"), ref, manifestPath)
	return id, crateid.IsMovingRef(ref), err
}

type idResolver func(fiber.Ctx, AppOptions) (crateid.CrateID, bool, error)

func handleCrate(opts AppOptions, resolve idResolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, moving, err := resolve(c, opts)
		if err != nil {
			return renderError(c, opts.Logger, err)
		}
		doc, err := opts.Hub.CrateDoc(c.Context(), id)
		if err != nil {
			return renderError(c, opts.Logger, err)
		}
		setCacheHeaders(c, moving)
		return c.JSON(doc)
	}
}

func handleScenes(opts AppOptions, resolve idResolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, moving, err := resolve(c, opts)
		if err != nil {
			return renderError(c, opts.Logger, err)
		}
		docs, err := opts.Hub.SceneDocs(c.Context(), id)
		if err != nil {
			return renderError(c, opts.Logger, err)
		}
		setCacheHeaders(c, moving)
		return c.JSON(docs)
	}
}

func handleScene(opts AppOptions, resolve idResolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, moving, err := resolve(c, opts)
		if err != nil {
			return renderError(c, opts.Logger, err)
		}
		doc, err := opts.Hub.SceneDoc(c.Context(), id, c.Params("scene"))
		if err != nil {
			return renderError(c, opts.Logger, err)
		}
		setCacheHeaders(c, moving)
		return c.JSON(doc)
	}
}

func handleFile(opts AppOptions, resolve idResolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, moving, err := resolve(c, opts)
		if err != nil {
			return renderError(c, opts.Logger, err)
		}
		data, err := opts.Hub.GetFile(c.Context(), id, c.Params("*"))
		if err != nil {
			return renderError(c, opts.Logger, err)
		}
		setCacheHeaders(c, moving)
		return c.Send(data)
	}
}

func handleRegistryCrate(opts AppOptions) fiber.Handler  { return handleCrate(opts, resolveRegistryID) }
func handleRegistryScenes(opts AppOptions) fiber.Handler { return handleScenes(opts, resolveRegistryID) }
func handleRegistryScene(opts AppOptions) fiber.Handler  { return handleScene(opts, resolveRegistryID) }
func handleRegistryFile(opts AppOptions) fiber.Handler   { return handleFile(opts, resolveRegistryID) }

func handleGitHubCrate(opts AppOptions) fiber.Handler  { return handleCrate(opts, resolveGitHubID) }
func handleGitHubScenes(opts AppOptions) fiber.Handler { return handleScenes(opts, resolveGitHubID) }
func handleGitHubScene(opts AppOptions) fiber.Handler  { return handleScene(opts, resolveGitHubID) }
func handleGitHubFile(opts AppOptions) fiber.Handler   { return handleFile(opts, resolveGitHubID) }

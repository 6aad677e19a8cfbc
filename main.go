package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/scene-hub/scene-hub/internal/config"
	"github.com/scene-hub/scene-hub/internal/crateid"
	"github.com/scene-hub/scene-hub/internal/hub"
	"github.com/scene-hub/scene-hub/internal/logging"
	"github.com/scene-hub/scene-hub/internal/server"
	"github.com/scene-hub/scene-hub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	populate    bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["environment"] = cfg.Global.Environment
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	app, services, err := server.Bootstrap(cfg, nil, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "组装服务失败: %v\n", err)
		return 1
	}

	if opts.populate {
		if err := populateDocuments(cfg, services, logger); err != nil {
			fmt.Fprintf(stdErr, "填充文档失败: %v\n", err)
			return 1
		}
		return 0
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["environment"] = cfg.Global.Environment
	fields["listen_port"] = cfg.Global.ListenPort
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   cfg.Global.ListenPort,
	}).Info("Fiber 服务启动")

	// 收到终止信号后优雅关停，在途请求完成后退出
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.WithFields(logrus.Fields{
			"action": "shutdown",
			"signal": sig.String(),
		}).Info("收到信号，开始关停")
		if err := app.Shutdown(); err != nil {
			logger.WithField("action", "shutdown").Warn(err.Error())
		}
	}()

	if err := app.Listen(fmt.Sprintf(":%d", cfg.Global.ListenPort)); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// populateDocuments 把配置名单里的 crate 全部解析到最新版本后摄取。
func populateDocuments(cfg *config.Config, services *hub.Services, logger *logrus.Logger) error {
	ctx := context.Background()

	ids := make([]crateid.CrateID, 0, len(cfg.PopulateCrates))
	for _, name := range cfg.PopulateCrates {
		id, err := services.ResolveRegistryCrate(ctx, name, crateid.RefLatest)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		ids = append(ids, id)
	}

	if err := services.Populate(ctx, ids); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"action": "populate",
		"crates": len(ids),
	}).Info("文档填充完成")
	return nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("scene-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		populate   bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 SCENE_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&populate, "populate", false, "清空并按配置名单摄取文档后退出（生产环境拒绝）")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("SCENE_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		populate:    populate,
		showVersion: showVer,
	}, nil
}

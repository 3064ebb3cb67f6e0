package application

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/grand-thief-cash/humble/internal/components/logging"
	"github.com/grand-thief-cash/humble/internal/config"
	"github.com/grand-thief-cash/humble/internal/core"
	"github.com/grand-thief-cash/humble/internal/hooks"
	"github.com/grand-thief-cash/humble/internal/registry"
)

type App struct {
	container        *core.Container
	lifecycleManager *core.LifecycleManager
	configManager    *config.ConfigManager

	bootOnce sync.Once
	bootErr  error

	shutdownTimeout time.Duration
}

func NewApp(env string, configPath string) *App {
	abs := configPath
	if p, err := filepath.Abs(configPath); err == nil {
		abs = p
	}
	container := core.NewContainer()
	app := &App{
		configManager:    config.NewConfigManager(env, abs),
		container:        container,
		lifecycleManager: core.NewLifecycleManager(container),
		shutdownTimeout:  30 * time.Second,
	}
	app.registerDefaultHooks()
	return app
}

// SetShutdownTimeout bounds how long StopAll may take after the run context ends.
func (app *App) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		app.shutdownTimeout = d
	}
}

func (app *App) boot() error {
	app.bootOnce.Do(func() {
		if err := app.configManager.LoadConfig(); err != nil {
			app.bootErr = fmt.Errorf("load config failed: %w", err)
			return
		}
		if err := registry.BuildAndRegisterAll(app.configManager.GetConfig(), app.container); err != nil {
			app.bootErr = fmt.Errorf("register components failed: %w", err)
			return
		}
	})
	return app.bootErr
}

// registerDefaultHooks 启动和关闭时打印日志. 日志组件在 before_start 之后才启动,
// 在 after_shutdown 之前已经停止, 所以这两个阶段使用标准库 log.
func (app *App) registerDefaultHooks() {
	defaults := []struct {
		name  string
		phase hooks.Phase
		fn    hooks.HookFunc
	}{
		{"log_startup", hooks.BeforeStart, func(ctx context.Context) error {
			log.Println("humble is starting...")
			return nil
		}},
		{"log_started", hooks.AfterStart, func(ctx context.Context) error {
			logging.Info(ctx, "humble started")
			return nil
		}},
		{"log_shutdown", hooks.BeforeShutdown, func(ctx context.Context) error {
			logging.Info(ctx, "humble is shutting down")
			return nil
		}},
		{"log_shutdown_complete", hooks.AfterShutdown, func(ctx context.Context) error {
			log.Println("humble shutdown completed")
			return nil
		}},
	}
	for _, h := range defaults {
		if err := app.lifecycleManager.AddHook(h.name, h.phase, h.fn, 100); err != nil {
			log.Printf("Failed to register default hook %s: %v", h.name, err)
		}
	}
}

func (app *App) GetComponent(name string) (core.Component, error) {
	return app.container.Resolve(name)
}

func (app *App) GetConfig() *config.AppConfig {
	return app.configManager.GetConfig()
}

func (app *App) AddHook(name string, phase hooks.Phase, fn hooks.HookFunc, priority int) error {
	return app.lifecycleManager.AddHook(name, phase, fn, priority)
}

// Run serves until SIGINT or SIGTERM. A second signal during shutdown exits
// the process immediately.
func (app *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		stop()
		second := make(chan os.Signal, 1)
		signal.Notify(second, os.Interrupt, syscall.SIGTERM)
		<-second
		log.Printf("second signal received, forcing exit")
		os.Exit(1)
	}()

	return app.RunWithContext(ctx)
}

// RunWithContext starts components and blocks until ctx is done, then shuts
// everything down in reverse start order.
func (app *App) RunWithContext(ctx context.Context) error {
	if err := app.boot(); err != nil {
		return err
	}

	if err := app.lifecycleManager.StartAll(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
	defer cancel()
	app.lifecycleManager.StopAll(stopCtx)
	return nil
}

func (app *App) Shutdown(ctx context.Context) {
	app.lifecycleManager.StopAll(ctx)
}

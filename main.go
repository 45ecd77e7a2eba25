// Package main provides the entry point for the Gunpla Colorizer application.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"gunpla-colorizer/internal/app"
	"gunpla-colorizer/internal/config"
	imgpkg "gunpla-colorizer/internal/image"
	"gunpla-colorizer/internal/logging"
	"gunpla-colorizer/internal/service"
	"gunpla-colorizer/internal/version"
	"gunpla-colorizer/ui/mainwindow"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal("failed to load config", err)
	}
	logger, err := logging.New(cfg.LoggerConfig())
	if err != nil {
		logging.Fatal("failed to build logger", err)
	}
	defer logging.Sync(logger)
	logger.Info("starting Gunpla Colorizer", version.Fields()...)

	client := service.NewClient(cfg.ClientConfig(), logger)
	state := app.NewState(
		app.Services{Store: client, Segmenter: client, Recolorer: client},
		app.WithLogger(logger),
		app.WithPalette(cfg.Palette()),
		app.WithGlobalColor(cfg.DefaultColor()),
	)

	fyneApp := fyneapp.NewWithID("io.github.gunpla-colorizer")
	fyneApp.Settings().SetTheme(&mainwindow.ColorizerTheme{})

	style := imgpkg.DefaultMarkerStyle()
	style.Radius = float64(cfg.Overlay.MarkerRadius)
	win := mainwindow.New(fyneApp, state, style, logger)
	win.Resize(fyne.NewSize(cfg.UI.WindowWidth, cfg.UI.WindowHeight))

	// An image path on the command line is uploaded right away.
	if path := flag.Arg(0); path != "" {
		go openImage(state, path, logger)
	}

	if cfg.UI.HotReload {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		setupHotReload(ctx, win, logger)
	}

	win.ShowAndRun()
}

func openImage(state *app.State, path string, logger *zap.Logger) {
	f, err := os.Open(path)
	if err != nil {
		logger.Error("failed to open image", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()
	if err := state.LoadImage(context.Background(), path, f); err != nil {
		logger.Error("failed to load image", zap.String("path", path), zap.Error(err))
	}
}

// setupHotReload offers a restart when the binary is rebuilt.
func setupHotReload(ctx context.Context, win *mainwindow.MainWindow, logger *zap.Logger) {
	reloader := app.NewHotReloader(2*time.Second, logger)
	if reloader == nil {
		logger.Warn("hot reload: unable to determine executable path")
		return
	}
	logger.Info("hot reload: watching", zap.String("path", reloader.ExecPath()))

	var watch func()
	watch = func() {
		go reloader.Watch(ctx, func() {
			dialog.ShowConfirm("New Version Available",
				"The application binary has been updated.\nRestart now?",
				func(restart bool) {
					if !restart {
						reloader.ResetBaseline()
						watch()
						return
					}
					if err := reloader.Restart(); err != nil {
						logger.Error("hot reload: restart failed", zap.Error(err))
					}
				}, win.Window)
		})
	}
	watch()
}

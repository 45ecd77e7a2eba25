// Command colorize runs one segmentation round against the backend from the
// command line: upload, prompt, pick a proposal, recolor, and export the result.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	goimage "image"
	"image/color"
	"image/png"
	"os"

	"gunpla-colorizer/internal/app"
	"gunpla-colorizer/internal/config"
	imgpkg "gunpla-colorizer/internal/image"
	"gunpla-colorizer/internal/logging"
	"gunpla-colorizer/internal/mask"
	"gunpla-colorizer/internal/service"
	"gunpla-colorizer/internal/version"
	"gunpla-colorizer/pkg/colorutil"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	imagePath := flag.String("image", "", "image to upload")
	pointsArg := flag.String("points", "", `point prompts in native pixels, "x,y,fg;x,y,bg"`)
	pick := flag.Int("pick", 1, "proposal to keep (1-based)")
	colorArg := flag.String("color", "", "recolor the kept part, #RRGGBB")
	out := flag.String("out", "overlay.png", "overlay output file")
	displayArg := flag.String("display", "", "scale the overlay into a WxH display box")
	preview := flag.Bool("preview", false, "also recolor a local copy for comparison")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("colorize", version.String())
		return
	}
	if *imagePath == "" || *pointsArg == "" {
		fmt.Println(`Usage: colorize -image <file> -points "x,y,fg;..." [-pick N] [-color #hex] [-out overlay.png] [-display WxH] [-preview]`)
		os.Exit(1)
	}

	points, err := parsePoints(*pointsArg)
	if err != nil {
		fail("Bad -points", err)
	}
	boxW, boxH, err := parseSize(*displayArg)
	if err != nil {
		fail("Bad -display", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("Failed to load config", err)
	}
	logger, err := logging.New(cfg.LoggerConfig())
	if err != nil {
		fail("Failed to build logger", err)
	}
	defer logging.Sync(logger)

	client := service.NewClient(cfg.ClientConfig(), logger)
	state := app.NewState(
		app.Services{Store: client, Segmenter: client, Recolorer: client},
		app.WithLogger(logger),
		app.WithPalette(cfg.Palette()),
		app.WithGlobalColor(cfg.DefaultColor()),
	)
	ctx := context.Background()

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		fail("Failed to read image", err)
	}
	fmt.Printf("=== Uploading %s ===\n", *imagePath)
	if err := state.LoadImage(ctx, *imagePath, bytes.NewReader(data)); err != nil {
		fail("Upload failed", err)
	}
	base := state.Image()
	fmt.Printf("Image %s: %dx%d\n", base.ID, base.Width(), base.Height())

	var local *service.Local
	if *preview {
		local = service.NewLocal(logger)
		local.Put(base.ID, base.Image)
	}

	for _, p := range points {
		if err := state.AddPoint(p); err != nil {
			fail("Bad point", err)
		}
	}

	fmt.Printf("\n=== Segmenting with %d point(s) ===\n", len(points))
	if err := state.Submit(ctx); err != nil {
		fail("Segmentation failed", err)
	}
	proposals := state.Proposals()
	for i, m := range proposals {
		fmt.Printf("  %d: area=%d bbox=(%d,%d %dx%d) centroid=(%.1f,%.1f)\n",
			i+1, m.Area, m.BBox.X, m.BBox.Y, m.BBox.Width, m.BBox.Height, m.Centroid.X, m.Centroid.Y)
	}
	if *pick < 1 || *pick > len(proposals) {
		fail("Bad -pick", fmt.Errorf("%d not in 1..%d", *pick, len(proposals)))
	}
	entry, err := state.Select(proposals[*pick-1].ID)
	if err != nil {
		fail("Select failed", err)
	}
	fmt.Printf("Kept proposal %d as %s\n", *pick, entry.ID)

	if *colorArg != "" {
		c, err := colorutil.ParseHex(*colorArg)
		if err != nil {
			fail("Bad -color", err)
		}
		fmt.Printf("\n=== Recoloring %s to %s ===\n", entry.ID, colorutil.Hex(c))
		if err := state.Recolor(ctx, entry.ID, c); err != nil {
			fail("Recolor failed", err)
		}
		fmt.Printf("Base image revision %d\n", state.Image().Revision)

		if local != nil {
			writePreview(ctx, local, base.ID, entry, c, sibling(*out, "preview"), logger)
		}
	}

	var overlay goimage.Image = state.Overlay()
	if boxW > 0 {
		overlay, err = imgpkg.Present(overlay, boxW, boxH)
		if err != nil {
			fail("Present failed", err)
		}
	}
	if err := writePNG(*out, overlay); err != nil {
		fail("Failed to write overlay", err)
	}
	basePath := sibling(*out, "base")
	if err := writePNG(basePath, state.Image().Image); err != nil {
		fail("Failed to write base image", err)
	}
	fmt.Printf("\nWrote %s and %s\n", *out, basePath)
}

func writePreview(ctx context.Context, local *service.Local, id string, entry *mask.Mask, c color.RGBA, path string, logger *zap.Logger) {
	if err := local.Recolor(ctx, service.RecolorRequest{ImageID: id, Mask: entry.Grid, Color: c}); err != nil {
		logger.Warn("preview recolor failed", zap.Error(err))
		return
	}
	img, err := local.Fetch(ctx, id, 0)
	if err != nil {
		logger.Warn("preview fetch failed", zap.Error(err))
		return
	}
	if err := writePNG(path, img); err != nil {
		logger.Warn("preview write failed", zap.Error(err))
		return
	}
	fmt.Printf("Local preview written to %s\n", path)
}

func writePNG(path string, img goimage.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gunpla-colorizer/internal/prompt"
)

var errFormat = errors.New("bad format")

// parsePoints reads "x,y,fg;x,y,bg" into point prompts. Labels may be written
// fg/bg, 1/0 or +/-.
func parsePoints(s string) ([]prompt.Point, error) {
	var points []prompt.Point
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("point %q: want x,y,label: %w", item, errFormat)
		}
		x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("point %q: x: %w", item, errFormat)
		}
		y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("point %q: y: %w", item, errFormat)
		}
		if x < 0 || y < 0 {
			return nil, fmt.Errorf("point %q: negative coordinate: %w", item, errFormat)
		}
		var label prompt.Label
		switch strings.ToLower(strings.TrimSpace(parts[2])) {
		case "fg", "1", "+":
			label = prompt.Foreground
		case "bg", "0", "-":
			label = prompt.Background
		default:
			return nil, fmt.Errorf("point %q: label %q: %w", item, parts[2], errFormat)
		}
		points = append(points, prompt.Point{X: x, Y: y, Label: label})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no points: %w", errFormat)
	}
	return points, nil
}

// parseSize reads "WxH". An empty string means no display scaling.
func parseSize(s string) (w, h int, err error) {
	if s == "" {
		return 0, 0, nil
	}
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WxH: %w", s, errFormat)
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size %q: %w", s, errFormat)
	}
	return w, h, nil
}

// sibling names a file next to path: overlay.png + "base" -> overlay-base.png.
func sibling(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + suffix + ext
}

// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"path/filepath"

	"gunpla-colorizer/internal/app"
	imgpkg "gunpla-colorizer/internal/image"
	"gunpla-colorizer/internal/mask"
	"gunpla-colorizer/internal/prompt"
	"gunpla-colorizer/internal/version"
	"gunpla-colorizer/pkg/colorutil"
	"gunpla-colorizer/ui/canvas"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"
)

const (
	prefKeyLastDir   = "lastDirectory"
	prefKeyLastColor = "lastColor"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app    fyne.App
	state  *app.State
	log    *zap.Logger
	canvas *canvas.MaskCanvas

	statusBar  *widget.Label
	segmentBtn *widget.Button
	swatch     *fynecanvas.Rectangle
	proposals  *widget.List
	masks      *widget.List

	// snapshots backing the lists, refreshed on events
	proposalItems []*mask.Mask
	maskItems     []*mask.Mask
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, style imgpkg.MarkerStyle, log *zap.Logger) *MainWindow {
	if log == nil {
		log = zap.NewNop()
	}
	mw := &MainWindow{
		Window: fyneApp.NewWindow("Gunpla Colorizer"),
		app:    fyneApp,
		state:  state,
		log:    log.Named("ui"),
	}
	mw.canvas = canvas.NewMaskCanvas(state, style)
	mw.canvas.OnError(mw.showError)

	if hex := fyneApp.Preferences().String(prefKeyLastColor); hex != "" {
		if c, err := colorutil.ParseHex(hex); err == nil {
			state.SetGlobalColor(c)
		}
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.statusBar = widget.NewLabel("Open an image to start")

	mw.proposals = widget.NewList(
		func() int { return len(mw.proposalItems) },
		func() fyne.CanvasObject { return widget.NewLabel("proposal") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i < len(mw.proposalItems) {
				m := mw.proposalItems[i]
				o.(*widget.Label).SetText(fmt.Sprintf("Proposal %d  (%d px)", i+1, m.Area))
			}
		},
	)
	mw.proposals.OnSelected = func(i widget.ListItemID) {
		mw.proposals.UnselectAll()
		if i < len(mw.proposalItems) {
			mw.onSelectProposal(mw.proposalItems[i].ID)
		}
	}

	mw.masks = widget.NewList(
		func() int { return len(mw.maskItems) },
		func() fyne.CanvasObject {
			sw := fynecanvas.NewRectangle(color.Transparent)
			sw.SetMinSize(fyne.NewSize(16, 16))
			return container.NewHBox(sw, widget.NewLabel("mask"))
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= len(mw.maskItems) {
				return
			}
			m := mw.maskItems[i]
			row := o.(*fyne.Container)
			sw := row.Objects[0].(*fynecanvas.Rectangle)
			c := mw.state.GlobalColor()
			if m.Color != nil {
				c = *m.Color
			}
			sw.FillColor = c
			sw.Refresh()
			row.Objects[1].(*widget.Label).SetText(fmt.Sprintf("Part %d  %s", i+1, colorutil.Hex(c)))
		},
	)
	mw.masks.OnSelected = func(i widget.ListItemID) {
		mw.masks.UnselectAll()
		if i < len(mw.maskItems) {
			mw.onRecolorMask(mw.maskItems[i].ID)
		}
	}

	side := container.NewVSplit(
		container.NewBorder(widget.NewLabelWithStyle("Proposals", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			widget.NewButton("Discard All", mw.onDiscardAll), nil, nil, mw.proposals),
		container.NewBorder(widget.NewLabelWithStyle("Parts", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			widget.NewButton("Remove All", mw.onRemoveAll), nil, nil, mw.masks),
	)

	split := container.NewHSplit(mw.canvas, side)
	split.SetOffset(0.75)

	content := container.NewBorder(
		mw.createToolbar(),
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		split,
	)
	mw.SetContent(content)
}

// createToolbar creates the toolbar with the round and color controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	mw.segmentBtn = widget.NewButtonWithIcon("Segment", theme.ConfirmIcon(), mw.onSegment)
	mw.swatch = fynecanvas.NewRectangle(mw.state.GlobalColor())
	mw.swatch.SetMinSize(fyne.NewSize(24, 24))

	return container.NewHBox(
		widget.NewButtonWithIcon("Open", theme.FolderOpenIcon(), mw.onOpenImage),
		widget.NewSeparator(),
		mw.segmentBtn,
		widget.NewButtonWithIcon("Clear Points", theme.ContentClearIcon(), mw.onClearPoints),
		widget.NewSeparator(),
		widget.NewButtonWithIcon("Color", theme.ColorPaletteIcon(), mw.onPickGlobalColor),
		mw.swatch,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Segment", mw.onSegment),
		fyne.NewMenuItem("Clear Points", mw.onClearPoints),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Discard Proposals", mw.onDiscardAll),
		fyne.NewMenuItem("Remove All Parts", mw.onRemoveAll),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, helpMenu))
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventImageLoaded, func(data interface{}) {
		mw.refreshLists()
		mw.canvas.Sync()
		if b, ok := data.(*imgpkg.Base); ok && b != nil {
			mw.SetTitle("Gunpla Colorizer - " + b.ID)
			mw.updateStatus(fmt.Sprintf("Loaded %s (%dx%d). Click to add points, right-click for background.", b.ID, b.Width(), b.Height()))
		}
	})
	mw.state.On(app.EventPointsChanged, func(data interface{}) {
		mw.canvas.SyncMarkers()
		if n, ok := data.(int); ok && n > 0 {
			mw.updateStatus(fmt.Sprintf("%d point(s)", n))
		}
	})
	mw.state.On(app.EventProposalsChanged, func(interface{}) {
		mw.refreshLists()
		mw.canvas.Sync()
	})
	mw.state.On(app.EventRegistryChanged, func(interface{}) {
		mw.refreshLists()
		mw.canvas.Sync()
	})
	mw.state.On(app.EventHoverChanged, func(interface{}) {
		mw.canvas.Sync()
	})
	mw.state.On(app.EventColorChanged, func(data interface{}) {
		if c, ok := data.(color.RGBA); ok {
			mw.swatch.FillColor = c
			mw.swatch.Refresh()
		}
		mw.masks.Refresh()
		mw.canvas.Sync()
	})
	mw.state.On(app.EventBaseImageRefreshed, func(interface{}) {
		mw.canvas.Sync()
		mw.updateStatus("Recolor applied")
	})
}

func (mw *MainWindow) refreshLists() {
	mw.proposalItems = mw.state.Proposals()
	mw.maskItems = mw.state.Masks()
	mw.proposals.Refresh()
	mw.masks.Refresh()
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) showError(err error) {
	mw.log.Warn("operation failed", zap.Error(err))
	dialog.ShowError(err, mw.Window)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mw.showError(err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		mw.app.Preferences().SetString(prefKeyLastDir, filepath.Dir(path))
		mw.updateStatus("Uploading " + filepath.Base(path) + "...")

		go func() {
			defer reader.Close()
			if err := mw.state.LoadImage(context.Background(), path, reader); err != nil {
				mw.showError(err)
				mw.updateStatus("Upload failed")
			}
		}()
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(imgpkg.SupportedFormats()))
	if dir := mw.getLastDir(); dir != nil {
		fd.SetLocation(dir)
	}
	fd.Show()
}

func (mw *MainWindow) onSegment() {
	if mw.state.Busy() {
		return
	}
	mw.segmentBtn.Disable()
	mw.updateStatus("Segmenting...")
	go func() {
		defer mw.segmentBtn.Enable()
		err := mw.state.Submit(context.Background())
		switch {
		case err == nil:
			mw.updateStatus(fmt.Sprintf("%d proposal(s). Pick one or discard all.", len(mw.state.Proposals())))
		case errors.Is(err, app.ErrNoUsableMasks):
			mw.updateStatus("No usable masks. Adjust the points and try again.")
		case errors.Is(err, prompt.ErrNoPoints), errors.Is(err, prompt.ErrNoImage):
			mw.updateStatus(err.Error())
		default:
			mw.showError(err)
			mw.updateStatus("Segmentation failed")
		}
	}()
}

func (mw *MainWindow) onClearPoints() {
	if err := mw.state.ClearPoints(); err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onSelectProposal(id string) {
	entry, err := mw.state.Select(id)
	if err != nil {
		mw.showError(err)
		return
	}
	mw.updateStatus(fmt.Sprintf("Added part (%d px)", entry.Area))
}

func (mw *MainWindow) onDiscardAll() {
	if mw.state.DiscardAll() {
		mw.updateStatus("Proposals discarded. Points kept for refinement.")
	}
}

func (mw *MainWindow) onRemoveAll() {
	mw.state.RemoveAll()
}

func (mw *MainWindow) onPickGlobalColor() {
	picker := dialog.NewColorPicker("Part Color", "Default color for new parts", func(c color.Color) {
		rgba, err := colorutil.ParseHex(colorutil.Hex(c))
		if err != nil {
			return
		}
		mw.app.Preferences().SetString(prefKeyLastColor, colorutil.Hex(rgba))
		mw.state.SetGlobalColor(rgba)
	}, mw.Window)
	picker.Advanced = true
	picker.SetColor(mw.state.GlobalColor())
	picker.Show()
}

func (mw *MainWindow) onRecolorMask(id string) {
	if mw.state.RecolorPending() {
		mw.updateStatus("A recolor is still in progress")
		return
	}
	picker := dialog.NewColorPicker("Recolor Part", "Color applied to this part", func(c color.Color) {
		rgba, err := colorutil.ParseHex(colorutil.Hex(c))
		if err != nil {
			return
		}
		// the picker may have been open while another recolor started
		if mw.state.RecolorPending() {
			mw.updateStatus("A recolor is still in progress")
			return
		}
		mw.updateStatus("Recoloring...")
		go func() {
			if err := mw.state.Recolor(context.Background(), id, rgba); err != nil {
				mw.showError(err)
				mw.updateStatus("Recolor failed; the part keeps its new color locally")
			}
		}()
	}, mw.Window)
	picker.Advanced = true
	picker.Show()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Gunpla Colorizer",
		fmt.Sprintf("Gunpla Colorizer %s\nBuilt %s (%s)\n\nPoint-prompted part segmentation and recoloring.",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}

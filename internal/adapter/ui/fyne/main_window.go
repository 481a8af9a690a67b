package fyne

import (
	"fmt"
	"strings"
	"sync"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/res"
)

// APPNAME is the window title prefix.
const APPNAME = "ACE-Step Visualizer"

// PreviewWindow is the live preview window implementing PreviewView.
// It is a "dumb view": user actions are forwarded to the Presenter.
type PreviewWindow struct {
	app    fyneapp.App
	window fyneapp.Window
	frames *FrameView

	playButton   *widget.Button
	exportButton *widget.Button
	resetButton  *widget.Button
	presetSelect *widget.Select
	effectChecks map[domain.EffectKind]*widget.Check
	songInfo     *widget.Label
	status       *widget.Label
	progress     *widget.ProgressBar
	progressText *widget.Label

	// updating suppresses presenter callbacks while the view is set programmatically
	updating bool

	closeOnce sync.Once
	presenter *Presenter
}

// NewPreviewWindow creates the window. width and height size the frame area.
func NewPreviewWindow(app fyneapp.App, frames *FrameView, width, height float32) *PreviewWindow {
	w := &PreviewWindow{
		app:          app,
		frames:       frames,
		effectChecks: make(map[domain.EffectKind]*widget.Check),
	}
	w.window = app.NewWindow(APPNAME)
	w.buildUI()
	w.window.Resize(fyneapp.NewSize(width, height))
	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *PreviewWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter
	w.wirePresenterHandlers()
}

func (w *PreviewWindow) buildUI() {
	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), nil)
	w.exportButton = widget.NewButtonWithIcon("Export", theme.DownloadIcon(), nil)
	w.resetButton = widget.NewButtonWithIcon("", theme.CancelIcon(), nil)
	w.resetButton.Disable()

	w.presetSelect = widget.NewSelect(nil, nil)
	w.songInfo = widget.NewLabel("")
	w.songInfo.Truncation = fyneapp.TextTruncateEllipsis
	w.songInfo.TextStyle = fyneapp.TextStyle{Bold: true}

	w.status = widget.NewLabel("")
	w.status.Truncation = fyneapp.TextTruncateEllipsis
	w.progress = widget.NewProgressBar()
	w.progressText = widget.NewLabel("")

	effects := container.NewGridWithColumns(7)
	for _, kind := range domain.EffectKinds() {
		check := widget.NewCheck(effectLabel(kind), nil)
		w.effectChecks[kind] = check
		effects.Add(check)
	}

	toolbar := container.NewBorder(nil, nil,
		container.NewHBox(w.playButton, w.presetSelect),
		container.NewHBox(w.exportButton, w.resetButton),
		w.songInfo)
	exportRow := container.NewBorder(nil, nil, w.progressText, nil, w.progress)
	controls := container.NewVBox(toolbar, effects, exportRow, w.status)

	w.window.SetContent(container.NewBorder(nil, controls, nil, nil, w.frames.CanvasObject()))
	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

func effectLabel(kind domain.EffectKind) string {
	switch kind {
	case domain.EffectVHS, domain.EffectCCTV:
		return strings.ToUpper(string(kind))
	case domain.EffectHueShift:
		return "Hue shift"
	default:
		return strings.ToUpper(string(kind[:1])) + string(kind[1:])
	}
}

func (w *PreviewWindow) wirePresenterHandlers() {
	if w.presenter == nil {
		return
	}

	w.playButton.OnTapped = func() {
		w.presenter.OnPlayClicked()
	}
	w.exportButton.OnTapped = func() {
		w.presenter.OnExportClicked()
	}
	w.resetButton.OnTapped = func() {
		w.presenter.OnResetClicked()
	}
	w.presetSelect.OnChanged = func(name string) {
		if !w.updating {
			w.presenter.OnPresetSelected(name)
		}
	}
	for kind, check := range w.effectChecks {
		check.OnChanged = func(on bool) {
			if !w.updating {
				w.presenter.OnEffectToggled(kind, on)
			}
		}
	}
}

func (w *PreviewWindow) createMenu() []*fyneapp.Menu {
	openBackground := fyneapp.NewMenuItem("Open Background…", func() {
		NewFileDialog(w.window, backgroundExtensions, func(path string) {
			if w.presenter != nil {
				w.presenter.OnBackgroundOpened(path)
			}
		}, nil).Show()
	})
	openArt := fyneapp.NewMenuItem("Open Album Art…", func() {
		NewFileDialog(w.window, imageExtensions, func(path string) {
			if w.presenter != nil {
				w.presenter.OnAlbumArtOpened(path)
			}
		}, nil).Show()
	})
	export := fyneapp.NewMenuItem("Export Video", func() {
		if w.presenter != nil {
			w.presenter.OnExportClicked()
		}
	})
	exit := fyneapp.NewMenuItem("Exit", func() {
		w.window.Close()
	})
	about := fyneapp.NewMenuItem("About", w.showAbout)

	return []*fyneapp.Menu{
		fyneapp.NewMenu("File", openBackground, openArt, fyneapp.NewMenuItemSeparator(), export,
			fyneapp.NewMenuItemSeparator(), exit),
		fyneapp.NewMenu("Help", about),
	}
}

func (w *PreviewWindow) showAbout() {
	content := widget.NewRichTextFromMarkdown(res.AboutContent)
	content.Wrapping = fyneapp.TextWrapWord
	d := dialog.NewCustom("About "+APPNAME, "Close", content, w.window)
	d.Resize(fyneapp.NewSize(420, 260))
	d.Show()
}

// ShowAndRun shows the window and runs the application.
func (w *PreviewWindow) ShowAndRun() {
	w.window.ShowAndRun()
}

// SetOnClosed registers a callback run when the window closes.
func (w *PreviewWindow) SetOnClosed(fn func()) {
	w.window.SetOnClosed(fn)
}

// Close closes the window. It's safe to call multiple times.
func (w *PreviewWindow) Close() {
	w.closeOnce.Do(func() {
		fyneapp.Do(w.window.Close)
	})
}

// PreviewView implementation. Updates are marshalled onto the UI thread.

// SetPresets fills the preset picker.
func (w *PreviewWindow) SetPresets(presets []domain.PresetInfo, selected domain.Preset) {
	names := make([]string, len(presets))
	for i, info := range presets {
		names[i] = info.Name
	}
	fyneapp.Do(func() {
		w.updating = true
		defer func() { w.updating = false }()
		w.presetSelect.SetOptions(names)
		w.presetSelect.SetSelected(presetName(selected))
	})
}

// SelectPreset shows p as selected.
func (w *PreviewWindow) SelectPreset(p domain.Preset) {
	fyneapp.Do(func() {
		w.updating = true
		defer func() { w.updating = false }()
		w.presetSelect.SetSelected(presetName(p))
	})
}

func presetName(p domain.Preset) string {
	for _, info := range domain.Presets() {
		if info.Preset == p {
			return info.Name
		}
	}
	return string(p)
}

// SetEffects shows the toggle state of every effect.
func (w *PreviewWindow) SetEffects(effects domain.Effects) {
	fyneapp.Do(func() {
		w.updating = true
		defer func() { w.updating = false }()
		for kind, check := range w.effectChecks {
			check.SetChecked(effects.On(kind))
		}
	})
}

// SetPlayState updates the play/pause button.
func (w *PreviewWindow) SetPlayState(playing bool) {
	fyneapp.Do(func() {
		if playing {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}
	})
}

// SetSongInfo shows "Artist - Title".
func (w *PreviewWindow) SetSongInfo(song domain.Song) {
	text := song.Title
	if song.Artist != "" && song.Title != "" {
		text = fmt.Sprintf("%s - %s", song.Artist, song.Title)
	}
	fyneapp.Do(func() {
		w.songInfo.SetText(text)
		w.window.SetTitle(strings.TrimSuffix(APPNAME+" - "+text, " - "))
	})
}

// SetExportProgress updates the export progress bar.
func (w *PreviewWindow) SetExportProgress(fraction float64, status string) {
	fyneapp.Do(func() {
		w.progress.SetValue(fraction)
		w.progressText.SetText(status)
	})
}

// SetExportBusy enables the reset button while an export runs.
func (w *PreviewWindow) SetExportBusy(busy bool) {
	fyneapp.Do(func() {
		if busy {
			w.exportButton.Disable()
			w.resetButton.Enable()
		} else {
			w.exportButton.Enable()
			w.resetButton.Disable()
		}
	})
}

// SetStatus shows a one-line status message.
func (w *PreviewWindow) SetStatus(message string) {
	fyneapp.Do(func() {
		w.status.SetText(message)
	})
}

// ShowNotification displays a system notification.
func (w *PreviewWindow) ShowNotification(title, message string) {
	w.app.SendNotification(fyneapp.NewNotification(title, message))
}

var _ PreviewView = (*PreviewWindow)(nil)

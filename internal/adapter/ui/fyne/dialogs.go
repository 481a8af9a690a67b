package fyne

import (
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

var (
	imageExtensions      = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}
	backgroundExtensions = append([]string{".mp4", ".webm", ".mov", ".mkv"}, imageExtensions...)
)

// FileDialog is a helper for creating file open dialogs filtered by extension.
type FileDialog struct {
	window     fyne.Window
	extensions []string
	callback   func(string)
	logger     *slog.Logger
}

// NewFileDialog creates a new file dialog. A nil logger discards dialog errors.
func NewFileDialog(window fyne.Window, extensions []string, callback func(string), logger *slog.Logger) *FileDialog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileDialog{
		window:     window,
		extensions: extensions,
		callback:   callback,
		logger:     logger,
	}
}

// Show displays the file dialog.
func (d *FileDialog) Show() {
	open := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			d.logger.Error("file dialog error", slog.Any("error", err))
			return
		}
		if reader == nil {
			return // User cancelled
		}
		defer reader.Close()

		if d.callback != nil {
			d.callback(reader.URI().Path())
		}
	}, d.window)
	if len(d.extensions) > 0 {
		open.SetFilter(storage.NewExtensionFileFilter(d.extensions))
	}
	open.Show()
}

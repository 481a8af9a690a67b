package ffmpeg

import (
	"bytes"
	"strconv"
	"strings"
)

// progressWriter parses ffmpeg's -progress stream into completion fractions.
type progressWriter struct {
	total  float64 // Seconds of output expected
	report func(float64)
	buf    []byte
	last   float64
}

func newProgressWriter(totalSeconds float64, report func(float64)) *progressWriter {
	return &progressWriter{total: totalSeconds, report: report, last: -1}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.line(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *progressWriter) line(s string) {
	key, val, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return
	}
	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds.
		us, err := strconv.ParseInt(val, 10, 64)
		if err != nil || us < 0 || w.total <= 0 {
			return
		}
		w.emit(float64(us) / 1e6 / w.total)
	case "progress":
		if val == "end" {
			w.emit(1)
		}
	}
}

func (w *progressWriter) finish() {
	w.emit(1)
}

func (w *progressWriter) emit(f float64) {
	f = max(0, min(1, f))
	if f <= w.last {
		return
	}
	w.last = f
	if w.report != nil {
		w.report(f)
	}
}

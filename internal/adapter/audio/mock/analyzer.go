// Package mock provides a scriptable LiveAnalyzer.
// It is used for testing the live loop without an audio device.
package mock

import (
	"sync"
	"time"

	"github.com/fspecii/ace-step-ui/internal/ports"
)

// Analyzer is a mock implementation of ports.LiveAnalyzer.
// It returns whatever spectrum and waveform were last set, and a position that either
// stays fixed or advances with a wall clock.
//
// Thread-safety: This implementation is thread-safe.
type Analyzer struct {
	mu        sync.RWMutex
	frequency []uint8
	waveform  []uint8
	position  time.Duration

	// startedAt is set by Start; zero means the position is fixed
	startedAt time.Time
	now       func() time.Time

	frequencyReads int
}

// NewAnalyzer creates a silent analyser at position zero.
func NewAnalyzer() *Analyzer {
	return &Analyzer{now: time.Now}
}

// SetFrequency sets the spectrum returned by FrequencyData.
func (m *Analyzer) SetFrequency(frame []uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frequency = append(m.frequency[:0], frame...)
}

// SetLevel fills the whole spectrum with v.
func (m *Analyzer) SetLevel(v uint8, bins int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frequency = m.frequency[:0]
	for range bins {
		m.frequency = append(m.frequency, v)
	}
}

// SetWaveform sets the waveform returned by TimeDomainData.
func (m *Analyzer) SetWaveform(wave []uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waveform = append(m.waveform[:0], wave...)
}

// SetPosition fixes the reported position and stops the clock.
func (m *Analyzer) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
	m.startedAt = time.Time{}
}

// Start makes the position advance in real time from its current value.
func (m *Analyzer) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startedAt = m.now()
}

// FrequencyReads returns how many times FrequencyData was called.
func (m *Analyzer) FrequencyReads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frequencyReads
}

// FrequencyData copies the configured spectrum into dst, zero-filling the rest.
func (m *Analyzer) FrequencyData(dst []uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frequencyReads++
	n := copy(dst, m.frequency)
	clear(dst[n:])
}

// TimeDomainData copies the configured waveform into dst, padding with silence.
func (m *Analyzer) TimeDomainData(dst []uint8) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := copy(dst, m.waveform)
	for i := n; i < len(dst); i++ {
		dst[i] = 128
	}
}

// Position returns the fixed position, or the running one after Start.
func (m *Analyzer) Position() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.startedAt.IsZero() {
		return m.position
	}
	return m.position + m.now().Sub(m.startedAt)
}

var _ ports.LiveAnalyzer = (*Analyzer)(nil)

package app

import (
	"sync"

	"mediaserve/internal/domain"
)

type TranscodeSettings struct {
	Backend domain.TranscodeBackend `json:"backend"`
}

// TranscodeSettingsManager holds the runtime-tunable streaming settings
// behind a lock so the streaming handler can read them per request while
// the settings endpoint swaps them.
type TranscodeSettingsManager struct {
	mu       sync.RWMutex
	settings TranscodeSettings
}

func NewTranscodeSettingsManager(backend string) *TranscodeSettingsManager {
	return &TranscodeSettingsManager{
		settings: TranscodeSettings{Backend: domain.ParseBackend(backend)},
	}
}

func (m *TranscodeSettingsManager) Get() TranscodeSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Backend is a convenience accessor for the streaming path.
func (m *TranscodeSettingsManager) Backend() domain.TranscodeBackend {
	return m.Get().Backend
}

func (m *TranscodeSettingsManager) Update(settings TranscodeSettings) {
	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()
}

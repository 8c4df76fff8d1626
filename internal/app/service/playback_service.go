package service

import (
	"context"
	"log"
	"sync"
)

// PlaybackController: a lo sumo un stream activo por guild. Sin cola:
// el último pedido gana, lo anterior se frena primero.
type PlaybackController struct {
	mu       sync.Mutex
	tr       VoiceTransport
	voice    *VoiceSessionManager
	settings SettingsProvider
	current  map[string]string // guild -> url sonando (informativo)
}

func NewPlaybackController(tr VoiceTransport, voice *VoiceSessionManager, settings SettingsProvider) *PlaybackController {
	return &PlaybackController{
		tr:       tr,
		voice:    voice,
		settings: settings,
		current:  make(map[string]string),
	}
}

// Play exige una sesión ya conectada (el caller pasó por EnsureConnected).
func (p *PlaybackController) Play(ctx context.Context, guildID, url string) error {
	if cfg, err := p.settings.Get(ctx, guildID); err == nil && !cfg.VoiceEnabled {
		return &VoiceDisabledError{URL: url}
	}
	if url == "" {
		// hueco de configuración, no un crash: se le muestra al usuario
		return ErrNoURL
	}
	if !p.voice.Connected(guildID) {
		return ErrNotConnected
	}

	// stop-then-start bajo el lock: dos pedidos concurrentes se
	// serializan y el último sigue ganando
	p.mu.Lock()
	if p.tr.Playing(guildID) {
		p.tr.Stop(guildID)
	}
	p.current[guildID] = url

	// onFinished llega desde la goroutine del streamer; solo toca estado
	// compartido a través de métodos con lock propio.
	err := p.tr.Play(guildID, url, func(serr error) {
		if serr != nil {
			log.Printf("[playback] stream ended with error guild=%s url=%s: %v", guildID, url, serr)
		} else {
			log.Printf("[playback] stream finished guild=%s url=%s", guildID, url)
		}
		p.mu.Lock()
		delete(p.current, guildID)
		p.mu.Unlock()
		p.voice.OnPlaybackFinished(guildID)
	})
	if err != nil {
		delete(p.current, guildID)
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	p.voice.TouchActivity(guildID)
	return nil
}

func (p *PlaybackController) Stop(guildID string) {
	p.tr.Stop(guildID)
}

// Current: URL sonando ahora mismo, si hay.
func (p *PlaybackController) Current(guildID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.current[guildID]
	return u, ok
}

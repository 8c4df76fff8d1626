package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jose-valero/rally-bot/internal/infra/storage"
)

type connStatus int

const (
	statusDisconnected connStatus = iota
	statusConnecting
	statusConnected
)

// Duraciones por defecto; la fila de guild_settings puede pisarlas.
type VoiceDurations struct {
	Idle           time.Duration
	PostPlayback   time.Duration
	Cooldown       time.Duration
	ConnectTimeout time.Duration
}

func DefaultVoiceDurations() VoiceDurations {
	return VoiceDurations{
		Idle:           5 * time.Minute,
		PostPlayback:   30 * time.Second,
		Cooldown:       60 * time.Second,
		ConnectTimeout: 20 * time.Second,
	}
}

// Estado transitorio de la sesión de voz de UN guild. Los timers son
// handles guardados junto al estado que protegen: siempre se frenan antes
// de re-armar y se re-validan contra el estado vivo al disparar.
type voiceSession struct {
	status        connStatus
	channelID     string
	stay          bool
	cooldownUntil time.Time
	lastActivity  time.Time
	inFlight      bool

	// gen sube en cada disconnect; un connect en vuelo lo compara al
	// volver para detectar que alguien desmontó la sesión en el medio
	gen int

	idleTimer *time.Timer
	postTimer *time.Timer

	d VoiceDurations
}

// VoiceSessionManager es el único dueño de la conexión de voz por guild:
// nadie más llama connect/move/disconnect sobre el transporte.
type VoiceSessionManager struct {
	mu       sync.Mutex
	tr       VoiceTransport
	gw       Gateway
	settings SettingsProvider
	defaults VoiceDurations
	sessions map[string]*voiceSession
}

func NewVoiceSessionManager(tr VoiceTransport, gw Gateway, settings SettingsProvider, d VoiceDurations) *VoiceSessionManager {
	return &VoiceSessionManager{
		tr:       tr,
		gw:       gw,
		settings: settings,
		defaults: d,
		sessions: make(map[string]*voiceSession),
	}
}

func (m *VoiceSessionManager) sessionLocked(guildID string) *voiceSession {
	s, ok := m.sessions[guildID]
	if !ok {
		s = &voiceSession{d: m.defaults}
		m.sessions[guildID] = s
	}
	return s
}

func (s *voiceSession) applySettings(cfg storage.GuildSettings) {
	if cfg.IdleSeconds > 0 {
		s.d.Idle = time.Duration(cfg.IdleSeconds) * time.Second
	}
	if cfg.PostPlaybackSeconds > 0 {
		s.d.PostPlayback = time.Duration(cfg.PostPlaybackSeconds) * time.Second
	}
	if cfg.CooldownSeconds > 0 {
		s.d.Cooldown = time.Duration(cfg.CooldownSeconds) * time.Second
	}
	if cfg.ConnectTimeoutSeconds > 0 {
		s.d.ConnectTimeout = time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	}
}

// EnsureConnected deja la sesión del guild conectada al canal target.
// Nunca es fatal: todo fallo vuelve como error tipado y deja al guild en
// cooldown para no martillar reconexiones contra una red rota.
func (m *VoiceSessionManager) EnsureConnected(ctx context.Context, guildID, targetChannelID string) error {
	cfg, err := m.settings.Get(ctx, guildID)
	if err == nil && !cfg.VoiceEnabled {
		return &VoiceDisabledError{}
	}

	m.mu.Lock()
	s := m.sessionLocked(guildID)
	if err == nil {
		s.applySettings(cfg)
	}

	if remain := time.Until(s.cooldownUntil); remain > 0 {
		m.mu.Unlock()
		return &CooldownError{Remaining: remain}
	}
	if s.inFlight {
		// ya hay un connect/move en vuelo para este guild
		m.mu.Unlock()
		return ErrBusy
	}
	if s.status == statusConnected && s.channelID == targetChannelID {
		m.touchLocked(guildID, s)
		m.mu.Unlock()
		return nil
	}

	s.inFlight = true
	wasConnected := s.status == statusConnected
	if !wasConnected {
		s.status = statusConnecting
	}
	gen := s.gen
	connectTimeout := s.d.ConnectTimeout
	m.mu.Unlock()

	// I/O fuera del lock: el handshake puede tardar decenas de segundos
	var cerr error
	if wasConnected {
		cerr = m.tr.Move(ctx, guildID, targetChannelID)
		if cerr != nil {
			// fallback: desconectar y reconectar de cero, una sola vez
			log.Printf("[voice] move failed guild=%s ch=%s: %v (reconnect)", guildID, targetChannelID, cerr)
			_ = m.tr.Disconnect(guildID)
			cctx, cancel := context.WithTimeout(ctx, connectTimeout)
			cerr = m.tr.Connect(cctx, guildID, targetChannelID)
			cancel()
		}
	} else {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		cerr = m.tr.Connect(cctx, guildID, targetChannelID)
		cancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s.inFlight = false
	if cerr != nil {
		s.status = statusDisconnected
		s.channelID = ""
		s.cooldownUntil = time.Now().Add(s.d.Cooldown)
		s.stopTimersLocked()
		log.Printf("[voice] connect failed guild=%s ch=%s cooldown=%s: %v",
			guildID, targetChannelID, s.d.Cooldown, cerr)
		if errors.Is(cerr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, cerr)
		}
		return fmt.Errorf("%w: %v", ErrConnectFailed, cerr)
	}

	if s.gen != gen {
		// un Disconnect externo ganó mientras el connect estaba en vuelo;
		// el estado manda, la conexión recién creada se suelta
		_ = m.tr.Disconnect(guildID)
		s.status = statusDisconnected
		s.channelID = ""
		return fmt.Errorf("%w: session closed while connecting", ErrConnectFailed)
	}
	s.status = statusConnected
	s.channelID = targetChannelID
	s.cooldownUntil = time.Time{}
	m.touchLocked(guildID, s)
	return nil
}

// TouchActivity: cualquier señal relevante (join/leave en el canal,
// playback arrancando) re-arma el idle timer y cancela el de post-playback.
func (m *VoiceSessionManager) TouchActivity(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	if !ok || s.status != statusConnected {
		return
	}
	m.touchLocked(guildID, s)
}

func (m *VoiceSessionManager) touchLocked(guildID string, s *voiceSession) {
	s.lastActivity = time.Now()
	s.cooldownUntil = time.Time{} // actividad limpia cooldowns viejos
	s.stopTimersLocked()
	if s.stay {
		return
	}
	idle := s.d.Idle
	s.idleTimer = time.AfterFunc(idle, func() { m.onIdleFire(guildID, idle) })
}

func (s *voiceSession) stopTimersLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if s.postTimer != nil {
		s.postTimer.Stop()
		s.postTimer = nil
	}
}

func (m *VoiceSessionManager) onIdleFire(guildID string, idle time.Duration) {
	defer timerRecover("voice.idle", guildID)
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	// con un connect/move en vuelo el timer es viejo por definición
	if !ok || s.status != statusConnected || s.stay || s.inFlight {
		m.mu.Unlock()
		return
	}
	// timer viejo: hubo actividad después de armarlo
	if time.Now().Before(s.lastActivity.Add(idle)) {
		m.mu.Unlock()
		return
	}
	ch := s.channelID
	m.mu.Unlock()

	if m.tr.Playing(guildID) {
		// el stream cuenta como actividad; re-armamos
		m.TouchActivity(guildID)
		return
	}
	// gente en el canal tampoco es idle
	if members, err := m.gw.VoiceChannelMembers(guildID, ch); err == nil && len(members) > 0 {
		m.TouchActivity(guildID)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s.status != statusConnected || s.channelID != ch || s.stay || s.inFlight {
		return
	}
	m.disconnectLocked(guildID, s, "idle timeout")
}

// OnPlaybackFinished arma el segundo timer, independiente del de idle.
// Al disparar se re-valida contra el estado vivo: nada sonando, canal sin
// humanos y stay apagado.
func (m *VoiceSessionManager) OnPlaybackFinished(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	if !ok || s.status != statusConnected {
		return
	}
	if s.postTimer != nil {
		s.postTimer.Stop()
	}
	s.postTimer = time.AfterFunc(s.d.PostPlayback, func() { m.onPostFire(guildID) })
}

func (m *VoiceSessionManager) onPostFire(guildID string) {
	defer timerRecover("voice.post", guildID)
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	if !ok || s.status != statusConnected || s.stay || s.inFlight {
		m.mu.Unlock()
		return
	}
	ch := s.channelID
	m.mu.Unlock()

	if m.tr.Playing(guildID) {
		return
	}
	members, err := m.gw.VoiceChannelMembers(guildID, ch)
	if err != nil {
		log.Printf("[voice] post-playback member check guild=%s ch=%s: %v", guildID, ch, err)
		return
	}
	if len(members) > 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s.status != statusConnected || s.channelID != ch || s.stay || s.inFlight {
		return
	}
	m.disconnectLocked(guildID, s, "post-playback")
}

// SetStayMode: override de operador; on frena los auto-disconnect, off
// re-arma el idle timer desde ahora.
func (m *VoiceSessionManager) SetStayMode(guildID string, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessionLocked(guildID)
	s.stay = on
	if on {
		s.stopTimersLocked()
		return
	}
	if s.status == statusConnected {
		m.touchLocked(guildID, s)
	}
}

func (m *VoiceSessionManager) StayMode(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	return ok && s.stay
}

// Disconnect es idempotente: sin sesión conectada, no-op.
func (m *VoiceSessionManager) Disconnect(guildID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	if !ok || s.status == statusDisconnected {
		return
	}
	m.disconnectLocked(guildID, s, reason)
}

func (m *VoiceSessionManager) disconnectLocked(guildID string, s *voiceSession, reason string) {
	s.gen++
	s.stopTimersLocked()
	if err := m.tr.Disconnect(guildID); err != nil {
		log.Printf("[voice] disconnect guild=%s: %v", guildID, err)
	}
	s.status = statusDisconnected
	s.channelID = ""
	log.Printf("[voice] disconnected guild=%s reason=%s", guildID, reason)
}

func (m *VoiceSessionManager) Connected(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	return ok && s.status == statusConnected
}

// ConnectedChannel: a qué canal está atada la sesión, si hay.
func (m *VoiceSessionManager) ConnectedChannel(guildID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	if !ok || s.status != statusConnected {
		return "", false
	}
	return s.channelID, true
}

// Un panic dentro de un timer nunca puede tumbar el proceso: un guild
// roto no frena a los demás.
func timerRecover(label, guildID string) {
	if rec := recover(); rec != nil {
		log.Printf("[%s] panic guild=%s: %v", label, guildID, rec)
	}
}

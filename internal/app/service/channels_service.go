package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ChannelLifecycle es el único dueño de los canales de voz efímeros:
// los crea con su invite y los borra cuando quedan vacíos o el rally
// termina. Nadie más llama DeleteChannel.
type ChannelLifecycle struct {
	mu       sync.Mutex
	gw       Gateway
	store    *RosterStore
	voice    *VoiceSessionManager
	settings SettingsProvider

	defaultGrace time.Duration
	// a lo sumo UNA tarea de borrado pendiente por canal
	pending map[string]*time.Timer
}

func NewChannelLifecycle(gw Gateway, store *RosterStore, voice *VoiceSessionManager, settings SettingsProvider, defaultGrace time.Duration) *ChannelLifecycle {
	if defaultGrace <= 0 {
		defaultGrace = 5 * time.Minute
	}
	return &ChannelLifecycle{
		gw:           gw,
		store:        store,
		voice:        voice,
		settings:     settings,
		defaultGrace: defaultGrace,
		pending:      make(map[string]*time.Timer),
	}
}

// Provision crea el canal de voz del rally y un invite público (el del
// botón; los invites de DM son aparte, de un solo uso).
func (c *ChannelLifecycle) Provision(ctx context.Context, guildID, ownerID, ownerName, originChannelID string) (channelID, inviteURL string, err error) {
	parentID := c.resolveCategory(ctx, guildID, ownerID, originChannelID)

	name := fmt.Sprintf("%s's Rally", ownerName)
	channelID, err = c.gw.CreateVoiceChannel(guildID, name, parentID)
	if err != nil && parentID != "" {
		// la categoría pudo habérsenos ido de las manos; un intento sin padre
		log.Printf("[channels] create under category %s failed: %v (retry parentless)", parentID, err)
		channelID, err = c.gw.CreateVoiceChannel(guildID, name, "")
	}
	if err != nil {
		// ErrNoCategory queda reservado para permisos denegados; un
		// fallo transitorio (rate limit, red) sube crudo
		if errors.Is(err, ErrPermission) {
			return "", "", fmt.Errorf("%w: %v", ErrNoCategory, err)
		}
		return "", "", err
	}

	inviteURL, err = c.gw.CreateInvite(channelID, 0, 0)
	if err != nil {
		// canal sin invite no sirve para el post; lo devolvemos
		_ = c.gw.DeleteChannel(channelID)
		return "", "", err
	}
	return channelID, inviteURL, nil
}

// Precedencia documentada (fixeada en revisiones tardías, no tocar):
// 1) categoría configurada si todavía resuelve a una categoría del guild
// 2) categoría del canal desde donde se invocó el comando
// 3) categoría del canal de voz actual del owner
// 4) crear una categoría nueva como último recurso
func (c *ChannelLifecycle) resolveCategory(ctx context.Context, guildID, ownerID, originChannelID string) string {
	if cfg, err := c.settings.Get(ctx, guildID); err == nil && cfg.CategoryID != "" {
		if info, err := c.gw.ChannelInfo(cfg.CategoryID); err == nil && info.IsCategory && info.GuildID == guildID {
			return info.ID
		}
		log.Printf("[channels] configured category invalid guild=%s", guildID)
	}
	if originChannelID != "" {
		if info, err := c.gw.ChannelInfo(originChannelID); err == nil && info.ParentID != "" {
			return info.ParentID
		}
	}
	if vcID, err := c.gw.UserVoiceChannel(guildID, ownerID); err == nil && vcID != "" {
		if info, err := c.gw.ChannelInfo(vcID); err == nil && info.ParentID != "" {
			return info.ParentID
		}
	}
	catID, err := c.gw.CreateCategory(guildID, "Rallies")
	if err != nil {
		log.Printf("[channels] create category guild=%s: %v", guildID, err)
		return ""
	}
	return catID
}

// ScheduleEmptyCheck arma (o re-confirma) el timer de gracia del canal.
// Scheduling duplicado se suprime: un solo timer pendiente por canal.
func (c *ChannelLifecycle) ScheduleEmptyCheck(ctx context.Context, guildID, channelID string) {
	grace := c.defaultGrace
	if cfg, err := c.settings.Get(ctx, guildID); err == nil && cfg.GraceSeconds > 0 {
		grace = time.Duration(cfg.GraceSeconds) * time.Second
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[channelID]; ok {
		return
	}
	c.pending[channelID] = time.AfterFunc(grace, func() { c.onGraceFire(guildID, channelID) })
}

func (c *ChannelLifecycle) cancelPending(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.pending[channelID]; ok {
		t.Stop()
		delete(c.pending, channelID)
	}
}

// OnVoiceMembership: el router nos pasa cada canal tocado por un
// voice-state update. Solo nos importan los canales indexados a un rally.
func (c *ChannelLifecycle) OnVoiceMembership(ctx context.Context, guildID, channelID string) {
	rallyID, err := c.store.LookupByChannel(channelID)
	if err != nil {
		return
	}

	members, err := c.gw.VoiceChannelMembers(guildID, channelID)
	if err != nil {
		log.Printf("[channels] member snapshot guild=%s ch=%s rally=%s: %v", guildID, channelID, rallyID, err)
		return
	}
	if len(members) == 0 {
		c.ScheduleEmptyCheck(ctx, guildID, channelID)
		return
	}
	// volvió a haber gente: el borrado pendiente muere acá
	c.cancelPending(channelID)
	c.voice.TouchActivity(guildID)
}

// El timer no confía en el estado que lo armó: re-chequea la membresía
// viva justo antes de actuar. Si alguien volvió, es un no-op.
func (c *ChannelLifecycle) onGraceFire(guildID, channelID string) {
	defer timerRecover("channels.grace", channelID)

	c.mu.Lock()
	delete(c.pending, channelID)
	c.mu.Unlock()

	rallyID, err := c.store.LookupByChannel(channelID)
	if err != nil {
		return // ya desmontado por otro camino
	}
	members, err := c.gw.VoiceChannelMembers(guildID, channelID)
	if err == nil && len(members) > 0 {
		return
	}
	if err != nil {
		log.Printf("[channels] grace re-check guild=%s ch=%s: %v (teardown anyway)", guildID, channelID, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Teardown(ctx, rallyID, "empty after grace period"); err != nil {
		log.Printf("[channels] grace teardown rally=%s: %v", rallyID, err)
	}
}

// Teardown es idempotente: dos llamadas seguidas terminan en el mismo
// estado que una, sin errores dobles. El delete externo que falla se
// loguea y se traga (un canal huérfano es el mal menor); el estado en
// memoria se limpia igual.
func (c *ChannelLifecycle) Teardown(ctx context.Context, rallyID, reason string) error {
	r, err := c.store.Get(rallyID)
	if err != nil {
		return nil // rally ya no existe; nada que desmontar
	}
	if !r.HasVoice() {
		return nil
	}
	channelID := r.VoiceChannelID
	c.cancelPending(channelID)

	// si la sesión sigue atada al canal, soltarla antes de borrarlo
	if cur, ok := c.voice.ConnectedChannel(r.GuildID); ok && cur == channelID {
		c.voice.Disconnect(r.GuildID, "teardown: "+reason)
	}

	if err := c.gw.DeleteChannel(channelID); err != nil {
		log.Printf("[channels] delete guild=%s ch=%s rally=%s: %v (leaked, reconcile by hand)",
			r.GuildID, channelID, rallyID, err)
	}
	if r.ThreadID != "" {
		if err := c.gw.ArchiveThread(r.ThreadID); err != nil {
			log.Printf("[channels] archive thread=%s rally=%s: %v", r.ThreadID, rallyID, err)
		}
	}

	c.store.ClearVoiceChannel(rallyID)
	log.Printf("[channels] teardown guild=%s ch=%s rally=%s reason=%s", r.GuildID, channelID, rallyID, reason)

	// refresca el post público sin los botones de voz
	if updated, err := c.store.Get(rallyID); err == nil {
		if err := c.gw.UpdateRallyCard(updated); err != nil {
			log.Printf("[channels] card refresh rally=%s: %v", rallyID, err)
		}
	}
	return nil
}

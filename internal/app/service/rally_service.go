package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jose-valero/rally-bot/internal/domain"
	"github.com/jose-valero/rally-bot/internal/infra/storage"
)

// RallyCoordinator es la capa de orquestación: cada operación de usuario
// entra por acá y se traduce en pasos sobre el store, el lifecycle de
// canales, la sesión de voz y el playback. Las fallas parciales degradan
// (rally sin voz, join sin DM), nunca tumban la operación entera salvo
// que el post público no se pueda crear.
type RallyCoordinator struct {
	store    *RosterStore
	gw       Gateway
	channels *ChannelLifecycle
	voice    *VoiceSessionManager
	playback *PlaybackController
	settings SettingsProvider
	cues     CueProvider

	// fallback de URLs de audio cuando el guild no cargó las suyas
	defaultCues map[string]string
}

func NewRallyCoordinator(
	store *RosterStore,
	gw Gateway,
	channels *ChannelLifecycle,
	voice *VoiceSessionManager,
	playback *PlaybackController,
	settings SettingsProvider,
	cues CueProvider,
	defaultCues map[string]string,
) *RallyCoordinator {
	return &RallyCoordinator{
		store:       store,
		gw:          gw,
		channels:    channels,
		voice:       voice,
		playback:    playback,
		settings:    settings,
		cues:        cues,
		defaultCues: defaultCues,
	}
}

type CreateRallyInput struct {
	GuildID   string
	ChannelID string // canal de texto donde se invocó el comando
	HostID    string
	HostName  string
	Kind      domain.RallyKind
	Keep      domain.KeepDetails
}

// CreateRally monta el paquete completo: canal de voz + invite, post
// público, thread privado y la entrada en el store. El ID del rally es
// el ID del mensaje de anuncio, así que el post va primero que el store.
func (rc *RallyCoordinator) CreateRally(ctx context.Context, in CreateRallyInput) (domain.Rally, error) {
	cfg, err := rc.settings.Get(ctx, in.GuildID)
	if err != nil {
		log.Printf("[rally] settings guild=%s: %v (using defaults)", in.GuildID, err)
		cfg = storage.GuildSettings{VoiceEnabled: true, AutoEnrollHost: true, AllowLeave: true}
	}

	var vcID, inviteURL string
	if cfg.VoiceEnabled {
		vcID, inviteURL, err = rc.channels.Provision(ctx, in.GuildID, in.HostID, in.HostName, in.ChannelID)
		if err != nil {
			// rally sin voz antes que nada de rally
			log.Printf("[rally] voice provision guild=%s host=%s: %v (continuing without voice)",
				in.GuildID, in.HostID, err)
			vcID, inviteURL = "", ""
		}
	}

	announce := fmt.Sprintf("⚔️ %s is forming a rally!", in.HostName)
	if cfg.RallyRoleName != "" {
		if mention := rc.gw.RoleMentionByName(in.GuildID, cfg.RallyRoleName); mention != "" {
			announce = mention + " " + announce
		}
	}
	msgID, err := rc.gw.PublishRallyCard(in.ChannelID, announce)
	if err != nil {
		// sin post no hay rally; el canal recién creado se devuelve
		if vcID != "" {
			_ = rc.gw.DeleteChannel(vcID)
		}
		return domain.Rally{}, fmt.Errorf("publish rally card: %w", err)
	}

	threadID := ""
	if tid, terr := rc.gw.CreateThread(in.ChannelID, fmt.Sprintf("%s's rally crew", in.HostName)); terr != nil {
		log.Printf("[rally] create thread guild=%s: %v", in.GuildID, terr)
	} else {
		threadID = tid
		if aerr := rc.gw.AddThreadMember(threadID, in.HostID); aerr != nil {
			log.Printf("[rally] add host to thread=%s: %v", threadID, aerr)
		}
	}

	r := domain.Rally{
		MessageID:      msgID,
		GuildID:        in.GuildID,
		ChannelID:      in.ChannelID,
		HostID:         in.HostID,
		Kind:           in.Kind,
		Keep:           in.Keep,
		VoiceChannelID: vcID,
		VoiceInviteURL: inviteURL,
		ThreadID:       threadID,
		CreatedAt:      time.Now(),
		Participants:   make(map[string]domain.Participant),
	}
	if cfg.AutoEnrollHost {
		// placeholder del host; lo corrige cuando llena el form de join
		r.Participants[in.HostID] = domain.Participant{
			UserID: in.HostID,
			Type:   domain.TroopCavalry,
			Tier:   domain.TierT10,
		}
	}

	if err := rc.store.Create(r); err != nil {
		// mismo cleanup que el publish fallido, más el anuncio huérfano
		if vcID != "" {
			_ = rc.gw.DeleteChannel(vcID)
		}
		_ = rc.gw.DeleteMessage(in.ChannelID, msgID)
		if threadID != "" {
			_ = rc.gw.ArchiveThread(threadID)
		}
		return domain.Rally{}, err
	}
	if vcID != "" {
		rc.store.IndexChannel(vcID, msgID)
		// canal recién nacido y vacío: si nadie entra, se borra solo
		rc.channels.ScheduleEmptyCheck(ctx, in.GuildID, vcID)
	}

	if err := rc.gw.UpdateRallyCard(r); err != nil {
		log.Printf("[rally] initial card render rally=%s: %v", msgID, err)
	}
	log.Printf("[rally] created guild=%s rally=%s kind=%s host=%s voice=%t",
		in.GuildID, msgID, r.Kind, in.HostID, vcID != "")
	return r, nil
}

// JoinInput trae los campos crudos del modal; acá se parsean y validan.
type JoinInput struct {
	RallyID   string
	GuildID   string
	UserID    string
	TroopType string
	TroopTier string
	Dragon    string
	Capacity  string
}

// JoinRally valida el form, pisa la entrada previa del usuario si la
// había y reparte los extras (thread + DM con invite de un solo uso).
// Los extras son best-effort: DMs cerrados no rompen el join.
func (rc *RallyCoordinator) JoinRally(ctx context.Context, in JoinInput) (domain.Rally, error) {
	tt, ok := domain.ParseTroopType(in.TroopType)
	if !ok {
		return domain.Rally{}, &ValidationError{Field: "troop_type", Msg: "use Cavalry, Infantry or Range"}
	}
	tier, ok := domain.ParseTroopTier(in.TroopTier)
	if !ok {
		return domain.Rally{}, &ValidationError{Field: "troop_tier", Msg: "use T8 through T12"}
	}
	p := domain.Participant{
		UserID:   in.UserID,
		Type:     tt,
		Tier:     tier,
		Dragon:   domain.ParseYesNo(in.Dragon),
		Capacity: domain.ParseCapacity(in.Capacity),
	}

	r, err := rc.store.UpsertParticipant(in.RallyID, p)
	if err != nil {
		return domain.Rally{}, err
	}

	if r.ThreadID != "" {
		if err := rc.gw.AddThreadMember(r.ThreadID, in.UserID); err != nil {
			log.Printf("[rally] thread add user=%s rally=%s: %v", in.UserID, in.RallyID, err)
		}
	}
	if r.HasVoice() {
		rc.sendVoiceDM(ctx, r, in.UserID)
	}

	if err := rc.gw.UpdateRallyCard(r); err != nil {
		log.Printf("[rally] card render rally=%s: %v", in.RallyID, err)
	}
	return r, nil
}

// DM con un invite propio, de un solo uso y con vencimiento, para que el
// link del DM no circule. El del post público es otro.
func (rc *RallyCoordinator) sendVoiceDM(ctx context.Context, r domain.Rally, userID string) {
	maxAge, maxUses := 3600, 1
	if cfg, err := rc.settings.Get(ctx, r.GuildID); err == nil {
		if cfg.InviteMaxAgeSeconds > 0 {
			maxAge = cfg.InviteMaxAgeSeconds
		}
		if cfg.InviteMaxUses > 0 {
			maxUses = cfg.InviteMaxUses
		}
	}
	url, err := rc.gw.CreateInvite(r.VoiceChannelID, maxAge, maxUses)
	if err != nil {
		log.Printf("[rally] dm invite rally=%s user=%s: %v", r.MessageID, userID, err)
		return
	}
	msg := fmt.Sprintf("🎙️ You joined the rally! Hop in voice here (single-use link): %s", url)
	if err := rc.gw.SendDM(userID, msg); err != nil {
		// DMs cerrados; el botón del post sigue funcionando
		log.Printf("[rally] dm user=%s rally=%s: %v", userID, r.MessageID, err)
	}
}

// LeaveRally saca al usuario del roster si la config del guild lo permite.
func (rc *RallyCoordinator) LeaveRally(ctx context.Context, guildID, rallyID, userID string) (domain.Rally, error) {
	if cfg, err := rc.settings.Get(ctx, guildID); err == nil && !cfg.AllowLeave {
		return domain.Rally{}, ErrLeaveDisabled
	}
	r, err := rc.store.RemoveParticipant(rallyID, userID)
	if err != nil {
		return domain.Rally{}, err
	}
	if err := rc.gw.UpdateRallyCard(r); err != nil {
		log.Printf("[rally] card render rally=%s: %v", rallyID, err)
	}
	return r, nil
}

// EndRally: solo el host. Desmonta la voz y saca el rally del estado
// vivo; el post queda editado como cerrado por el teardown.
func (rc *RallyCoordinator) EndRally(ctx context.Context, rallyID, requestedBy string) error {
	r, err := rc.store.Get(rallyID)
	if err != nil {
		return err
	}
	if r.HostID != requestedBy {
		return ErrNotHost
	}
	if err := rc.channels.Teardown(ctx, rallyID, "ended by host"); err != nil {
		log.Printf("[rally] teardown rally=%s: %v", rallyID, err)
	}
	rc.store.Delete(rallyID)
	log.Printf("[rally] ended guild=%s rally=%s by=%s", r.GuildID, rallyID, requestedBy)
	return nil
}

// RequestPlayback resuelve el cue, asegura la conexión de voz y arranca
// el stream. El orden importa: con la voz apagada por config se corta
// ANTES de tocar la red, devolviendo la URL cruda para que el usuario la
// escuche por su cuenta.
func (rc *RallyCoordinator) RequestPlayback(ctx context.Context, guildID, userID, rallyID, cueKey string) error {
	url := rc.resolveCueURL(ctx, guildID, cueKey)
	if cfg, err := rc.settings.Get(ctx, guildID); err == nil && !cfg.VoiceEnabled {
		return &VoiceDisabledError{URL: url}
	}
	if url == "" {
		return ErrNoURL
	}

	target := ""
	if r, err := rc.store.Get(rallyID); err == nil && r.HasVoice() {
		target = r.VoiceChannelID
	}
	if target == "" {
		// sin canal de rally, lo seguimos a donde esté el que pidió
		ch, err := rc.gw.UserVoiceChannel(guildID, userID)
		if err != nil || ch == "" {
			return ErrNotConnected
		}
		target = ch
	}

	if err := rc.voice.EnsureConnected(ctx, guildID, target); err != nil {
		return err
	}
	return rc.playback.Play(ctx, guildID, url)
}

// resolveCueURL: primero la fila del guild, después el default de env.
func (rc *RallyCoordinator) resolveCueURL(ctx context.Context, guildID, cueKey string) string {
	cue, err := rc.cues.Get(ctx, guildID, cueKey)
	if err == nil && cue.URL != "" {
		return cue.URL
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("[rally] cue lookup guild=%s key=%s: %v", guildID, cueKey, err)
	}
	return rc.defaultCues[cueKey]
}

package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/rally-bot/internal/app/service"
	"github.com/jose-valero/rally-bot/internal/infra/storage"
)

// Interfaces angostas de lo que el router necesita de la capa de infra;
// las implementan los repos de storage.
type SettingsStore interface {
	Get(ctx context.Context, guildID string) (storage.GuildSettings, error)
	Update(ctx context.Context, guildID string, p storage.GuildSettingsPatch) (storage.GuildSettings, error)
}

type CueStore interface {
	Upsert(ctx context.Context, c storage.AudioCue) error
	GetMany(ctx context.Context, guildID string, keys []string) (map[string]storage.AudioCue, error)
}

type Router struct {
	s            *discordgo.Session
	guildID      string
	adminRoleIDs []string

	rallies   *service.RallyCoordinator
	voice     *service.VoiceSessionManager
	lifecycle *service.ChannelLifecycle
	exporter  *service.Exporter
	settings  SettingsStore
	cues      CueStore

	clickLimiter *userLimiter
}

func NewRouter(
	s *discordgo.Session,
	guildID string,
	adminRoleIDs []string,
	rallies *service.RallyCoordinator,
	voice *service.VoiceSessionManager,
	lifecycle *service.ChannelLifecycle,
	exporter *service.Exporter,
	settings SettingsStore,
	cues CueStore,
) *Router {
	return &Router{
		s:            s,
		guildID:      guildID,
		adminRoleIDs: adminRoleIDs,
		rallies:      rallies,
		voice:        voice,
		lifecycle:    lifecycle,
		exporter:     exporter,
		settings:     settings,
		cues:         cues,
		clickLimiter: newUserLimiter(1500 * time.Millisecond),
	}
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		switch ic.Type {
		case discordgo.InteractionApplicationCommand:
			r.handleSlashCommand(s, ic)
		case discordgo.InteractionMessageComponent:
			r.handleMessageComponent(s, ic)
		case discordgo.InteractionModalSubmit:
			r.handleModalSubmit(s, ic)
		}
	})

	// Cada voice-state update toca hasta dos canales (el que dejó y el
	// que entró); el lifecycle decide si alguno era de un rally.
	r.s.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		if r.guildID != "" && vs.GuildID != r.guildID {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()

		if vs.BeforeUpdate != nil && vs.BeforeUpdate.ChannelID != "" && vs.BeforeUpdate.ChannelID != vs.ChannelID {
			r.lifecycle.OnVoiceMembership(ctx, vs.GuildID, vs.BeforeUpdate.ChannelID)
		}
		if vs.ChannelID != "" {
			r.lifecycle.OnVoiceMembership(ctx, vs.GuildID, vs.ChannelID)
		}
	})
}

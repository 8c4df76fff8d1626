package service

import (
	"context"

	"github.com/jose-valero/rally-bot/internal/domain"
	"github.com/jose-valero/rally-bot/internal/infra/storage"
)

type ChannelInfo struct {
	ID         string
	GuildID    string
	ParentID   string
	IsCategory bool
	IsVoice    bool
}

// Lo implementa internal/adapters/discord.Gateway
// Todas las llamadas pueden fallar (permisos, not-found, rate limit).
type Gateway interface {
	CreateVoiceChannel(guildID, name, parentID string) (channelID string, err error)
	CreateCategory(guildID, name string) (categoryID string, err error)
	DeleteChannel(channelID string) error
	ChannelInfo(channelID string) (ChannelInfo, error)
	CreateInvite(channelID string, maxAgeSeconds, maxUses int) (url string, err error)

	// VoiceChannelMembers excluye bots; es el snapshot vivo que se
	// re-chequea antes de borrar un canal.
	VoiceChannelMembers(guildID, channelID string) ([]string, error)
	UserVoiceChannel(guildID, userID string) (string, error)

	// MemberDisplayName nunca falla: si el member no resuelve devuelve
	// el ID crudo.
	MemberDisplayName(guildID, userID string) string

	// RoleMentionByName: "" si el rol no existe en el guild.
	RoleMentionByName(guildID, name string) string

	// PublishRallyCard manda el anuncio (content incluye la mención del
	// rol de rally); el embed llega con el primer UpdateRallyCard.
	PublishRallyCard(channelID, content string) (messageID string, err error)
	UpdateRallyCard(r domain.Rally) error
	DeleteMessage(channelID, messageID string) error
	SendDM(userID, content string) error

	CreateThread(channelID, name string) (threadID string, err error)
	ArchiveThread(threadID string) error
	AddThreadMember(threadID, userID string) error
}

// Lo implementa internal/adapters/voice.Transport
type VoiceTransport interface {
	// Connect espera readiness del handshake bajo el deadline del ctx.
	Connect(ctx context.Context, guildID, channelID string) error
	Move(ctx context.Context, guildID, channelID string) error
	Disconnect(guildID string) error

	// Play arranca un stream; onFinished llega desde la goroutine del
	// streamer (fin normal o error a mitad).
	Play(guildID, url string, onFinished func(err error)) error
	Stop(guildID string)
	Playing(guildID string) bool
}

// Lo implementa internal/infra/storage.SettingsRepo
type SettingsProvider interface {
	Get(ctx context.Context, guildID string) (storage.GuildSettings, error)
}

// Lo implementa internal/infra/storage.CueRepo
type CueProvider interface {
	Get(ctx context.Context, guildID, key string) (storage.AudioCue, error)
}

// Lo implementa internal/infra/storage.ExportRepo
type ExportAudit interface {
	Insert(ctx context.Context, e storage.RosterExport) error
}

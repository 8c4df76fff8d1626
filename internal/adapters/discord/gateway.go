package discord

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/rally-bot/internal/app/service"
	"github.com/jose-valero/rally-bot/internal/domain"
)

// Gateway implementa service.Gateway sobre la sesión de discordgo.
// Lee del State cache primero y cae a la REST API solo en miss.
type Gateway struct {
	s *discordgo.Session
}

func NewGateway(s *discordgo.Session) *Gateway { return &Gateway{s: s} }

func (g *Gateway) safeGetChannel(id string) (*discordgo.Channel, error) {
	if ch, err := g.s.State.Channel(id); err == nil && ch != nil {
		return ch, nil
	}
	ch, err := g.s.Channel(id)
	if err != nil {
		return nil, err
	}
	_ = g.s.State.ChannelAdd(ch)
	return ch, nil
}

// Discord responde 50013/403 cuando al bot le faltan permisos; se marca
// con el sentinel para que la capa de servicio lo distinga de una falla
// transitoria (rate limit, red).
func markPermissionErr(err error) error {
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) {
		if (rerr.Message != nil && rerr.Message.Code == discordgo.ErrCodeMissingPermissions) ||
			(rerr.Response != nil && rerr.Response.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: %v", service.ErrPermission, err)
		}
	}
	return err
}

func (g *Gateway) CreateVoiceChannel(guildID, name, parentID string) (string, error) {
	ch, err := g.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: parentID,
	})
	if err != nil {
		return "", markPermissionErr(err)
	}
	return ch.ID, nil
}

func (g *Gateway) CreateCategory(guildID, name string) (string, error) {
	ch, err := g.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
	})
	if err != nil {
		return "", markPermissionErr(err)
	}
	return ch.ID, nil
}

func (g *Gateway) DeleteChannel(channelID string) error {
	_, err := g.s.ChannelDelete(channelID)
	return err
}

func (g *Gateway) ChannelInfo(channelID string) (service.ChannelInfo, error) {
	ch, err := g.safeGetChannel(channelID)
	if err != nil {
		return service.ChannelInfo{}, err
	}
	return service.ChannelInfo{
		ID:         ch.ID,
		GuildID:    ch.GuildID,
		ParentID:   ch.ParentID,
		IsCategory: ch.Type == discordgo.ChannelTypeGuildCategory,
		IsVoice:    ch.Type == discordgo.ChannelTypeGuildVoice,
	}, nil
}

func (g *Gateway) CreateInvite(channelID string, maxAgeSeconds, maxUses int) (string, error) {
	inv, err := g.s.ChannelInviteCreate(channelID, discordgo.Invite{
		MaxAge:  maxAgeSeconds,
		MaxUses: maxUses,
		Unique:  true,
	})
	if err != nil {
		return "", err
	}
	return "https://discord.gg/" + inv.Code, nil
}

// VoiceChannelMembers: snapshot desde el State; bots excluidos (el bot
// mismo contando como "ocupante" dejaría canales inmortales).
func (g *Gateway) VoiceChannelMembers(guildID, channelID string) ([]string, error) {
	guild, err := g.s.State.Guild(guildID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if g.isBot(guildID, vs.UserID) {
			continue
		}
		out = append(out, vs.UserID)
	}
	return out, nil
}

func (g *Gateway) isBot(guildID, userID string) bool {
	if userID == g.s.State.User.ID {
		return true
	}
	m, err := g.s.State.Member(guildID, userID)
	if err != nil || m == nil || m.User == nil {
		return false // member desconocido: lo contamos como humano
	}
	return m.User.Bot
}

func (g *Gateway) UserVoiceChannel(guildID, userID string) (string, error) {
	vs, err := g.s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return "", nil
	}
	return vs.ChannelID, nil
}

func (g *Gateway) MemberDisplayName(guildID, userID string) string {
	m, err := g.s.State.Member(guildID, userID)
	if err != nil || m == nil {
		if m, err = g.s.GuildMember(guildID, userID); err != nil || m == nil {
			return userID
		}
		_ = g.s.State.MemberAdd(m)
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User != nil {
		if m.User.GlobalName != "" {
			return m.User.GlobalName
		}
		return m.User.Username
	}
	return userID
}

func (g *Gateway) RoleMentionByName(guildID, name string) string {
	guild, err := g.s.State.Guild(guildID)
	if err != nil || guild == nil {
		return ""
	}
	for _, role := range guild.Roles {
		if strings.EqualFold(role.Name, name) {
			return role.Mention()
		}
	}
	return ""
}

// El ID del mensaje de anuncio pasa a ser la identidad del rally; el
// embed con el roster llega con el primer UpdateRallyCard.
func (g *Gateway) PublishRallyCard(channelID, content string) (string, error) {
	msg, err := g.s.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *Gateway) UpdateRallyCard(r domain.Rally) error {
	embed := renderRallyEmbed(g, r)
	components := rallyCardComponents(r)
	// Content se deja como está: ahí vive la mención del rol
	_, err := g.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         r.MessageID,
		Channel:    r.ChannelID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	return err
}

func (g *Gateway) DeleteMessage(channelID, messageID string) error {
	return g.s.ChannelMessageDelete(channelID, messageID)
}

func (g *Gateway) SendDM(userID, content string) error {
	dm, err := g.s.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = g.s.ChannelMessageSend(dm.ID, content)
	return err
}

func (g *Gateway) CreateThread(channelID, name string) (string, error) {
	th, err := g.s.ThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:                name,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		AutoArchiveDuration: 1440,
		Invitable:           true,
	})
	if err != nil {
		return "", err
	}
	return th.ID, nil
}

func (g *Gateway) ArchiveThread(threadID string) error {
	archived := true
	_, err := g.s.ChannelEditComplex(threadID, &discordgo.ChannelEdit{Archived: &archived})
	return err
}

func (g *Gateway) AddThreadMember(threadID, userID string) error {
	return g.s.ThreadMemberAdd(threadID, userID)
}

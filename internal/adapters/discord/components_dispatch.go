package discord

import (
	"bytes"
	"context"
	"errors"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/rally-bot/internal/app/service"
)

func (r *Router) handleMessageComponent(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.MessageComponentData()

	// una sola decodificación; de acá en adelante nadie vuelve a
	// parsear el custom ID
	action, ok := DecodeAction(data.CustomID)
	if !ok {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic in component %s: %v", data.CustomID, rec)
			ReplyEphemeral(s, ic, "❌ Something went wrong.")
		}
	}()

	// Join abre el modal del form: tiene que ser la respuesta inmediata
	if action.Kind == ActionJoin {
		r.showJoinForm(s, ic, action.RallyID)
		return
	}

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uid := ic.Member.User.ID

	switch action.Kind {

	case ActionLeave:
		if !r.clickLimiter.Allow(uid) {
			ReplyEphemeral(s, ic, "⏳ Easy, one click at a time…")
			return
		}
		_, err := r.rallies.LeaveRally(ctx, ic.GuildID, action.RallyID, uid)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ "+userMessage(err))
			return
		}
		ReplyEphemeral(s, ic, "👋 You left the rally.")

	case ActionEnd:
		if err := r.rallies.EndRally(ctx, action.RallyID, uid); err != nil {
			ReplyEphemeral(s, ic, "⚠️ "+userMessage(err))
			return
		}
		ReplyEphemeral(s, ic, "🏁 Rally ended, voice channel cleaned up.")

	case ActionExportCSV:
		out, err := r.exporter.CSV(ctx, action.RallyID, uid)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Export failed: "+userMessage(err))
			return
		}
		r.sendExportFile(s, ic, "rally_roster.csv", out)

	case ActionExportTXT:
		out, err := r.exporter.Text(ctx, action.RallyID, uid)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Export failed: "+userMessage(err))
			return
		}
		r.sendExportFile(s, ic, "rally_roster.txt", out)

	case ActionPlay:
		if !r.clickLimiter.Allow(uid) {
			ReplyEphemeral(s, ic, "⏳ Easy, one click at a time…")
			return
		}
		err := r.rallies.RequestPlayback(ctx, ic.GuildID, uid, action.RallyID, action.CueKey)
		var disabled *service.VoiceDisabledError
		if errors.As(err, &disabled) {
			msg := "🔇 Voice is disabled on this server."
			if disabled.URL != "" {
				msg += " You can play it yourself: " + disabled.URL
			}
			ReplyEphemeral(s, ic, msg)
			return
		}
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ "+userMessage(err))
			return
		}
		ReplyEphemeral(s, ic, "🔊 Playing the countdown.")
	}
}

func (r *Router) sendExportFile(s *discordgo.Session, ic *discordgo.InteractionCreate, name string, data []byte) {
	_, err := s.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
		Content: "📋 Here's the roster:",
		Files: []*discordgo.File{{
			Name:   name,
			Reader: bytes.NewReader(data),
		}},
	})
	if err != nil {
		log.Printf("export followup: %v", err)
		ReplyEphemeral(s, ic, "⚠️ Could not attach the export file.")
	}
}

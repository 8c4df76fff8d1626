// logica de InteractionApplicationCommand: solo interaccion de usuario,
// todo lo demas se despacha a los servicios
package discord

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/rally-bot/internal/app/service"
	"github.com/jose-valero/rally-bot/internal/domain"
	"github.com/jose-valero/rally-bot/internal/infra/storage"
)

func (r *Router) handleSlashCommand(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	cmd := ic.ApplicationCommandData()
	log.Printf("cmd: /%s by=%s guild=%s", cmd.Name, ic.Member.User.ID, ic.GuildID)

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic in cmd /%s: %v", cmd.Name, rec)
			ReplyEphemeral(s, ic, "❌ Something went wrong processing the command.")
		}
	}()

	// /rally keep abre un modal: el modal TIENE que ser la respuesta
	// inmediata de la interacción, sin defer previo
	if cmd.Name == "rally" {
		if sub, ok := subcmdName(ic); ok && sub == "keep" {
			r.showKeepForm(s, ic)
			return
		}
	}

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	switch cmd.Name {

	case "ping":
		ReplyEphemeral(s, ic, "🏓 Pong!")

	case "rally":
		// acá solo llega "sop"; keep ya se fue por el modal
		rally, err := r.rallies.CreateRally(ctx, service.CreateRallyInput{
			GuildID:   ic.GuildID,
			ChannelID: ic.ChannelID,
			HostID:    ic.Member.User.ID,
			HostName:  displayName(ic.Member),
			Kind:      domain.RallySOP,
		})
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not start the rally: "+userMessage(err))
			return
		}
		ReplyEphemeral(s, ic, "✅ Rally posted!"+voiceSuffix(rally))

	case "type_of_rally":
		sub, _ := subcmdName(ic)
		cues := bombCues
		title := "💣 **Bomb rally countdowns** - pick one to play in voice:"
		if sub == "rolling" {
			cues = rollCues
			title = "🔄 **Rolling rally countdowns** - pick one to play in voice:"
		}
		_, err := s.FollowupMessageCreate(ic.Interaction, false, &discordgo.WebhookParams{
			Content:    title,
			Components: cuePanelComponents("", r.guildCueLabels(ctx, ic.GuildID, cues)),
		})
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not post the panel: "+err.Error())
		}

	case "voice":
		sub, _ := subcmdName(ic)
		switch sub {
		case "stay":
			r.voice.SetStayMode(ic.GuildID, true)
			ReplyEphemeral(s, ic, "📌 Staying in voice until you run `/voice release`.")
		case "release":
			r.voice.SetStayMode(ic.GuildID, false)
			ReplyEphemeral(s, ic, "👌 Auto-disconnect re-enabled.")
		case "leave":
			r.voice.Disconnect(ic.GuildID, "requested via /voice leave")
			ReplyEphemeral(s, ic, "👋 Left voice.")
		}

	case "rallyset":
		if !r.requireAdminOrRoles(s, ic) {
			return
		}
		r.handleRallySet(ctx, s, ic)
	}
}

func (r *Router) handleRallySet(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	sub, _ := subcmdName(ic)
	switch sub {

	case "show":
		cfg, err := r.settings.Get(ctx, ic.GuildID)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not load settings: "+err.Error())
			return
		}
		ReplyEphemeral(s, ic, formatSettings(cfg))

	case "set":
		cfg, err := r.settings.Update(ctx, ic.GuildID, settingsPatch(ic))
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not update settings: "+err.Error())
			return
		}
		ReplyEphemeral(s, ic, "✅ Settings updated.\n"+formatSettings(cfg))

	case "cue":
		key, _ := optStr(ic, "key")
		url, _ := optStr(ic, "url")
		label, _ := optStr(ic, "label")
		err := r.cues.Upsert(ctx, storage.AudioCue{
			GuildID: ic.GuildID,
			Key:     key,
			Label:   label,
			URL:     url,
		})
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not save the cue: "+err.Error())
			return
		}
		ReplyEphemeral(s, ic, "✅ Cue `"+key+"` saved.")
	}
}

// settingsPatch arma el patch de /rallyset set: solo los campos que el
// admin pasó en la interacción quedan no-nil.
func settingsPatch(ic *discordgo.InteractionCreate) storage.GuildSettingsPatch {
	var patch storage.GuildSettingsPatch
	if v, ok := optChannel(ic, "category"); ok {
		patch.CategoryID = &v
	}
	if v, ok := optStr(ic, "rally_role"); ok {
		patch.RallyRoleName = &v
	}
	if v, ok := optBool(ic, "voice_enabled"); ok {
		patch.VoiceEnabled = &v
	}
	if v, ok := optBool(ic, "auto_enroll_host"); ok {
		patch.AutoEnrollHost = &v
	}
	if v, ok := optBool(ic, "allow_leave"); ok {
		patch.AllowLeave = &v
	}
	if v, ok := optInt(ic, "grace_seconds"); ok {
		patch.GraceSeconds = &v
	}
	if v, ok := optInt(ic, "idle_seconds"); ok {
		patch.IdleSeconds = &v
	}
	if v, ok := optInt(ic, "post_playback_seconds"); ok {
		patch.PostPlaybackSeconds = &v
	}
	if v, ok := optInt(ic, "connect_timeout_seconds"); ok {
		patch.ConnectTimeoutSeconds = &v
	}
	if v, ok := optInt(ic, "cooldown_seconds"); ok {
		patch.CooldownSeconds = &v
	}
	if v, ok := optInt(ic, "invite_max_age_seconds"); ok {
		patch.InviteMaxAgeSeconds = &v
	}
	if v, ok := optInt(ic, "invite_max_uses"); ok {
		patch.InviteMaxUses = &v
	}
	return patch
}

// guildCueLabels pisa las etiquetas default con las que el guild guardó
// via /rallyset cue; si la DB falla, el panel sale con las default.
func (r *Router) guildCueLabels(ctx context.Context, guildID string, base []cueButton) []cueButton {
	keys := make([]string, 0, len(base))
	for _, c := range base {
		keys = append(keys, c.Key)
	}
	stored, err := r.cues.GetMany(ctx, guildID, keys)
	if err != nil {
		log.Printf("cue labels guild=%s: %v", guildID, err)
		return base
	}
	out := make([]cueButton, len(base))
	copy(out, base)
	for i, c := range out {
		if s, ok := stored[c.Key]; ok && s.Label != "" {
			out[i].Label = s.Label
		}
	}
	return out
}

func formatSettings(cfg storage.GuildSettings) string {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	return fmt.Sprintf(
		"**Rally settings**\n"+
			"• Voice: %s\n"+
			"• Auto-enroll host: %s\n"+
			"• Allow leave: %s\n"+
			"• VC category: %s\n"+
			"• Announce role: %s\n"+
			"• Empty-channel grace: %ds\n"+
			"• Idle disconnect: %ds\n"+
			"• Post-playback disconnect: %ds\n"+
			"• Connect timeout: %ds\n"+
			"• Connect-failure cooldown: %ds\n"+
			"• DM invite: %ds / %d uses",
		onOff(cfg.VoiceEnabled), onOff(cfg.AutoEnrollHost), onOff(cfg.AllowLeave),
		orDash(cfg.CategoryID),
		orDash(cfg.RallyRoleName),
		cfg.GraceSeconds, cfg.IdleSeconds, cfg.PostPlaybackSeconds,
		cfg.ConnectTimeoutSeconds, cfg.CooldownSeconds,
		cfg.InviteMaxAgeSeconds, cfg.InviteMaxUses,
	)
}

func voiceSuffix(r domain.Rally) string {
	if r.HasVoice() {
		return " Voice channel is up, link is on the card."
	}
	return ""
}

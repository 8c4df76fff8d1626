package discord

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/rally-bot/internal/app/service"
	"github.com/jose-valero/rally-bot/internal/domain"
)

// Modals: el form del keep objetivo (al crear) y el form de join.
// Discord limita los modals a 5 inputs, por eso idle/scouted van juntos.

func (r *Router) showKeepForm(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: Action{Kind: ActionKeepForm}.Encode(),
			Title:    "Keep Rally Target",
			Components: []discordgo.MessageComponent{
				textRow("keep_power", "Keep Power", "e.g. 48M", true),
				textRow("primary_troop", "Primary Troop Type", "Cavalry / Infantry / Range", true),
				textRow("keep_level", "Keep Level", "e.g. 35", true),
				textRow("gear_worn", "Gear Worn", "e.g. full war gear", false),
				textRow("idle_scouted", "Idle time / scouted?", "e.g. 2h idle, scouted yes", false),
			},
		},
	})
	if err != nil {
		log.Printf("keep form: %v", err)
	}
}

func (r *Router) showJoinForm(s *discordgo.Session, ic *discordgo.InteractionCreate, rallyID string) {
	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: Action{Kind: ActionJoinForm, RallyID: rallyID}.Encode(),
			Title:    "Join the Rally",
			Components: []discordgo.MessageComponent{
				textRow("troop_type", "Troop Type", "Cavalry / Infantry / Range", true),
				textRow("troop_tier", "Troop Tier", "T8 - T12", true),
				textRow("rally_dragon", "Do you have a rally dragon?", "yes / no", true),
				textRow("capacity", "March Capacity", "e.g. 150000", true),
			},
		},
	})
	if err != nil {
		log.Printf("join form: %v", err)
	}
}

func textRow(id, label, placeholder string, required bool) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.TextInput{
			CustomID:    id,
			Label:       label,
			Placeholder: placeholder,
			Style:       discordgo.TextInputShort,
			Required:    required,
		},
	}}
}

func (r *Router) handleModalSubmit(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.ModalSubmitData()
	action, ok := DecodeAction(data.CustomID)
	if !ok {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic in modal %s: %v", data.CustomID, rec)
			ReplyEphemeral(s, ic, "❌ Something went wrong.")
		}
	}()

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	fields := modalValues(data)

	switch action.Kind {

	case ActionKeepForm:
		idle, scouted := splitIdleScouted(fields["idle_scouted"])
		rally, err := r.rallies.CreateRally(ctx, service.CreateRallyInput{
			GuildID:   ic.GuildID,
			ChannelID: ic.ChannelID,
			HostID:    ic.Member.User.ID,
			HostName:  displayName(ic.Member),
			Kind:      domain.RallyKeep,
			Keep: domain.KeepDetails{
				KeepPower:    fields["keep_power"],
				PrimaryTroop: fields["primary_troop"],
				KeepLevel:    fields["keep_level"],
				GearWorn:     fields["gear_worn"],
				IdleTime:     idle,
				Scouted:      scouted,
			},
		})
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not start the rally: "+userMessage(err))
			return
		}
		ReplyEphemeral(s, ic, "✅ Rally posted!"+voiceSuffix(rally))

	case ActionJoinForm:
		_, err := r.rallies.JoinRally(ctx, service.JoinInput{
			RallyID:   action.RallyID,
			GuildID:   ic.GuildID,
			UserID:    ic.Member.User.ID,
			TroopType: fields["troop_type"],
			TroopTier: fields["troop_tier"],
			Dragon:    fields["rally_dragon"],
			Capacity:  fields["capacity"],
		})
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			ReplyEphemeral(s, ic, "⚠️ Invalid "+verr.Field+": "+verr.Msg)
			return
		}
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Could not join: "+userMessage(err))
			return
		}
		ReplyEphemeral(s, ic, "✅ You're in! Check your DMs for the voice invite.")
	}
}

func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	out := map[string]string{}
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range ar.Components {
			if ti, ok := comp.(*discordgo.TextInput); ok {
				out[ti.CustomID] = ti.Value
			}
		}
	}
	return out
}

// "2h idle, scouted yes" → ("2h idle", "scouted yes"); sin coma todo
// cae en idle.
func splitIdleScouted(raw string) (idle, scouted string) {
	parts := strings.SplitN(raw, ",", 2)
	idle = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		scouted = strings.TrimSpace(parts[1])
	}
	return idle, scouted
}

package discord

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/rally-bot/internal/domain"
)

// Render del post público del rally. Se re-edita completo en cada
// cambio de roster; Discord hace el diff.

func renderRallyEmbed(g *Gateway, r domain.Rally) *discordgo.MessageEmbed {
	title := "⚔️ Keep Rally"
	color := 0xC0392B
	if r.Kind == domain.RallySOP {
		title = "🏰 Seat of Power Rally"
		color = 0x8E44AD
	}

	desc := fmt.Sprintf("Hosted by <@%s>. Hit **Join** and fill the form to sign up.", r.HostID)
	if r.VoiceTornDown {
		desc += "\n🔇 Voice channel closed."
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       color,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d joined", len(r.Participants)),
		},
		Timestamp: r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}

	if r.Kind == domain.RallyKeep {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Keep Power", Value: orDash(r.Keep.KeepPower), Inline: true},
			&discordgo.MessageEmbedField{Name: "Primary Troop", Value: orDash(r.Keep.PrimaryTroop), Inline: true},
			&discordgo.MessageEmbedField{Name: "Keep Level", Value: orDash(r.Keep.KeepLevel), Inline: true},
			&discordgo.MessageEmbedField{Name: "Gear Worn", Value: orDash(r.Keep.GearWorn), Inline: true},
			&discordgo.MessageEmbedField{Name: "Idle Time", Value: orDash(r.Keep.IdleTime), Inline: true},
			&discordgo.MessageEmbedField{Name: "Scouted", Value: orDash(r.Keep.Scouted), Inline: true},
		)
	}

	if r.HasVoice() && r.VoiceInviteURL != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "🎙️ Voice",
			Value: "Join the rally VC: " + r.VoiceInviteURL,
		})
	}

	for _, tt := range domain.TroopTypes {
		lines := rosterLines(g, r, tt)
		if len(lines) == 0 {
			continue
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s %s (%d)", troopEmoji(tt), tt, len(lines)),
			Value: strings.Join(lines, "\n"),
		})
	}

	return embed
}

func rosterLines(g *Gateway, r domain.Rally, tt domain.TroopType) []string {
	type entry struct {
		name string
		p    domain.Participant
	}
	var es []entry
	for _, p := range r.Participants {
		if p.Type != tt {
			continue
		}
		es = append(es, entry{name: g.MemberDisplayName(r.GuildID, p.UserID), p: p})
	}
	sort.Slice(es, func(i, j int) bool {
		if es[i].p.Capacity != es[j].p.Capacity {
			return es[i].p.Capacity > es[j].p.Capacity
		}
		return es[i].name < es[j].name
	})

	lines := make([]string, 0, len(es))
	for _, e := range es {
		line := fmt.Sprintf("• %s · %s · %d", e.name, e.p.Tier, e.p.Capacity)
		if e.p.Dragon {
			line += " 🐉"
		}
		lines = append(lines, line)
	}
	return lines
}

func troopEmoji(tt domain.TroopType) string {
	switch tt {
	case domain.TroopCavalry:
		return "🐎"
	case domain.TroopInfantry:
		return "🛡️"
	default:
		return "🏹"
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func rallyCardComponents(r domain.Rally) []discordgo.MessageComponent {
	id := r.MessageID
	row := discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Join",
			Style:    discordgo.PrimaryButton,
			CustomID: Action{Kind: ActionJoin, RallyID: id}.Encode(),
		},
		discordgo.Button{
			Label:    "Leave",
			Style:    discordgo.SecondaryButton,
			CustomID: Action{Kind: ActionLeave, RallyID: id}.Encode(),
		},
		discordgo.Button{
			Label:    "Export CSV",
			Style:    discordgo.SecondaryButton,
			CustomID: Action{Kind: ActionExportCSV, RallyID: id}.Encode(),
		},
		discordgo.Button{
			Label:    "Export TXT",
			Style:    discordgo.SecondaryButton,
			CustomID: Action{Kind: ActionExportTXT, RallyID: id}.Encode(),
		},
		discordgo.Button{
			Label:    "End Rally",
			Style:    discordgo.DangerButton,
			CustomID: Action{Kind: ActionEnd, RallyID: id}.Encode(),
		},
	}}

	out := []discordgo.MessageComponent{row}
	if r.HasVoice() && r.VoiceInviteURL != "" {
		out = append(out, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label: "Join Voice",
				Style: discordgo.LinkButton,
				URL:   r.VoiceInviteURL,
			},
		}})
	}
	return out
}

// Panel de cues de /type_of_rally: una fila de botones de playback
// atados (o no) a un rally.
func cuePanelComponents(rallyID string, cues []cueButton) []discordgo.MessageComponent {
	btns := make([]discordgo.MessageComponent, 0, len(cues))
	for _, c := range cues {
		btns = append(btns, discordgo.Button{
			Label:    c.Label,
			Style:    discordgo.SecondaryButton,
			CustomID: Action{Kind: ActionPlay, RallyID: rallyID, CueKey: c.Key}.Encode(),
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: btns}}
}

package discord

import "github.com/bwmarrin/discordgo"

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "rally",
		Description: "Start a rally sign-up post",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "keep", Description: "Rally against a keep (opens the target form)"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "sop", Description: "Rally for the Seat of Power"},
		},
	},
	{
		Name:        "type_of_rally",
		Description: "Post the countdown audio panel for this rally type",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "bomb", Description: "Bomb rally: long countdowns (5m to 1h)"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "rolling", Description: "Rolling rally: short countdowns (5s to 30s)"},
		},
	},
	{
		Name:        "voice",
		Description: "Control the bot's voice session",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "stay", Description: "Keep the bot connected (disable auto-disconnect)"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "release", Description: "Re-enable auto-disconnect"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "leave", Description: "Disconnect the bot from voice now"},
		},
	},
	{
		Name:        "rallyset",
		Description: "View or change rally settings (admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Show current settings"},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Update settings (only what you pass)",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionChannel, Name: "category", Description: "Category for rally voice channels"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "rally_role", Description: "Role name to mention on rally announcements"},
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "voice_enabled", Description: "Create voice channels and play audio"},
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "auto_enroll_host", Description: "Auto-add the host to the roster"},
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "allow_leave", Description: "Allow participants to leave"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "grace_seconds", Description: "Delete empty voice channels after (seconds)"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "idle_seconds", Description: "Disconnect after voice inactivity (seconds)"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "post_playback_seconds", Description: "Disconnect after audio ends (seconds)"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "connect_timeout_seconds", Description: "Give up on a voice connect after (seconds)"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "cooldown_seconds", Description: "Backoff after a failed voice connect (seconds)"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "invite_max_age_seconds", Description: "DM invite expiry (seconds)"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "invite_max_uses", Description: "DM invite max uses"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "cue",
				Description: "Set the audio file for a countdown cue",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "key", Description: "Cue key, e.g. bomb_5m or roll_10s", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "url", Description: "Audio URL or file path", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "label", Description: "Button label override"},
				},
			},
		},
	},
	{
		Name:        "ping",
		Description: "Liveness check",
	},
}

package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/rally-bot/internal/app/service"
)

func displayName(m *discordgo.Member) string {
	if m == nil {
		return "someone"
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
	return "someone"
}

// userMessage traduce los errores tipados de la capa de servicio a algo
// que se le puede mostrar al usuario sin stack ni jerga.
func userMessage(err error) string {
	var cd *service.CooldownError
	if errors.As(err, &cd) {
		return fmt.Sprintf("Voice is cooling down after a failed connect, retry in %ds.", int(cd.Remaining.Seconds())+1)
	}
	switch {
	case errors.Is(err, service.ErrBusy):
		return "Already connecting to voice, give it a second."
	case errors.Is(err, service.ErrTimeout):
		return "Voice connection timed out, try again."
	case errors.Is(err, service.ErrConnectFailed):
		return "Could not connect to voice."
	case errors.Is(err, service.ErrNotConnected):
		return "I'm not in voice and you aren't either. Join a voice channel first."
	case errors.Is(err, service.ErrNoURL):
		return "No audio is configured for that cue. An admin can set it with `/rallyset cue`."
	case errors.Is(err, service.ErrNotFound):
		return "That rally doesn't exist anymore."
	case errors.Is(err, service.ErrLeaveDisabled):
		return "Leaving rallies is disabled on this server."
	case errors.Is(err, service.ErrNotHost):
		return "Only the rally host can do that."
	case errors.Is(err, service.ErrNoCategory):
		return "I couldn't create the voice channel. Check my permissions."
	case errors.Is(err, service.ErrPermission):
		return "I'm missing permissions to do that here."
	}
	return err.Error()
}

// ---------- opciones de slash commands (top-level o subcomando) ----------

func optStr(ic *discordgo.InteractionCreate, name string) (string, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue(), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionString {
					return so.StringValue(), true
				}
			}
		}
	}
	return "", false
}

func optBool(ic *discordgo.InteractionCreate, name string) (bool, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionBoolean {
			return o.BoolValue(), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionBoolean {
					return so.BoolValue(), true
				}
			}
		}
	}
	return false, false
}

func optInt(ic *discordgo.InteractionCreate, name string) (int, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionInteger {
			return int(o.IntValue()), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionInteger {
					return int(so.IntValue()), true
				}
			}
		}
	}
	return 0, false
}

// optChannel devuelve el ID del canal elegido.
func optChannel(ic *discordgo.InteractionCreate, name string) (string, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionChannel {
			return o.Value.(string), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionChannel {
					return so.Value.(string), true
				}
			}
		}
	}
	return "", false
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

package config

import (
	"log"
	"os"
	"strings"
)

type Config struct {
	DatabaseURL  string
	DiscordToken string
	DiscordGuild string
	HTTPAddr     string // opcional, default :8080

	AdminRoleIDs []string // roles con acceso a /rallyset

	// URLs default de los cues de audio; la fila de audio_cues del
	// guild las pisa si existe
	DefaultCues map[string]string
}

func Load() Config {
	get := func(k string, req bool) string {
		v := os.Getenv(k)
		if v == "" && req {
			log.Fatalf("faltante env %s", k)
		}
		return v
	}

	cfg := Config{
		DatabaseURL:  get("DATABASE_URL", true),
		DiscordToken: get("DISCORD_BOT_TOKEN", true),
		DiscordGuild: get("DISCORD_GUILD_ID", false), // vacío = comandos globales
		HTTPAddr:     get("HTTP_ADDR", false),
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	if raw := get("ADMIN_ROLE_IDS", false); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.AdminRoleIDs = append(cfg.AdminRoleIDs, id)
			}
		}
	}

	cfg.DefaultCues = map[string]string{
		"bomb_5m":      get("AUDIO_5M_BOMB", false),
		"bomb_10m":     get("AUDIO_10M_BOMB", false),
		"bomb_30m":     get("AUDIO_30M_BOMB", false),
		"bomb_1h":      get("AUDIO_1H_BOMB", false),
		"roll_5s":      get("AUDIO_5S_ROLL", false),
		"roll_10s":     get("AUDIO_10S_ROLL", false),
		"roll_15s":     get("AUDIO_15S_ROLL", false),
		"roll_30s":     get("AUDIO_30S_ROLL", false),
		"explain_bomb": get("AUDIO_EXPLAIN_BOMB", false),
		"explain_roll": get("AUDIO_EXPLAIN_ROLL", false),
	}
	return cfg
}

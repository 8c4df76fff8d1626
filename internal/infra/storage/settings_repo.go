package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SettingsRepo struct{ db *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

const settingsCols = `guild_id, category_id, rally_role_name,
       grace_seconds, idle_seconds, post_playback_seconds,
       connect_timeout_seconds, cooldown_seconds,
       voice_enabled, auto_enroll_host, allow_leave,
       invite_max_age_seconds, invite_max_uses,
       created_at, updated_at`

func scanSettings(row *sql.Row) (GuildSettings, error) {
	var s GuildSettings
	err := row.Scan(
		&s.GuildID, &s.CategoryID, &s.RallyRoleName,
		&s.GraceSeconds, &s.IdleSeconds, &s.PostPlaybackSeconds,
		&s.ConnectTimeoutSeconds, &s.CooldownSeconds,
		&s.VoiceEnabled, &s.AutoEnrollHost, &s.AllowLeave,
		&s.InviteMaxAgeSeconds, &s.InviteMaxUses,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func (r *SettingsRepo) Get(ctx context.Context, guildID string) (GuildSettings, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx, `
SELECT `+settingsCols+`
  FROM guild_settings
 WHERE guild_id = $1
`, guildID))
	if err == sql.ErrNoRows {
		// crea default
		if _, err := r.db.ExecContext(ctx, `
INSERT INTO guild_settings (guild_id) VALUES ($1) ON CONFLICT (guild_id) DO NOTHING
`, guildID); err != nil {
			return GuildSettings{}, err
		}
		return r.Get(ctx, guildID)
	}
	return s, err
}

func (r *SettingsRepo) Update(ctx context.Context, guildID string, p GuildSettingsPatch) (GuildSettings, error) {
	sets := make([]string, 0, 13)
	args := make([]any, 0, 14)
	i := 1

	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, v)
		i++
	}

	if p.CategoryID != nil {
		add("category_id", *p.CategoryID)
	}
	if p.RallyRoleName != nil {
		add("rally_role_name", *p.RallyRoleName)
	}
	if p.GraceSeconds != nil {
		add("grace_seconds", *p.GraceSeconds)
	}
	if p.IdleSeconds != nil {
		add("idle_seconds", *p.IdleSeconds)
	}
	if p.PostPlaybackSeconds != nil {
		add("post_playback_seconds", *p.PostPlaybackSeconds)
	}
	if p.ConnectTimeoutSeconds != nil {
		add("connect_timeout_seconds", *p.ConnectTimeoutSeconds)
	}
	if p.CooldownSeconds != nil {
		add("cooldown_seconds", *p.CooldownSeconds)
	}
	if p.InviteMaxAgeSeconds != nil {
		add("invite_max_age_seconds", *p.InviteMaxAgeSeconds)
	}
	if p.InviteMaxUses != nil {
		add("invite_max_uses", *p.InviteMaxUses)
	}
	if p.VoiceEnabled != nil {
		add("voice_enabled", *p.VoiceEnabled)
	}
	if p.AutoEnrollHost != nil {
		add("auto_enroll_host", *p.AutoEnrollHost)
	}
	if p.AllowLeave != nil {
		add("allow_leave", *p.AllowLeave)
	}
	if len(sets) == 0 {
		// nada que cambiar
		return r.Get(ctx, guildID)
	}
	add("updated_at", time.Now())

	args = append(args, guildID)
	_, err := r.db.ExecContext(ctx, `
UPDATE guild_settings
   SET `+strings.Join(sets, ", ")+`
 WHERE guild_id = $`+fmt.Sprint(i), args...)
	if err != nil {
		return GuildSettings{}, err
	}
	return r.Get(ctx, guildID)
}

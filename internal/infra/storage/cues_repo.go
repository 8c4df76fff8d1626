package storage

import (
	"context"
	"database/sql"
	"time"

	pq "github.com/lib/pq"
)

type CueRepo struct{ db *sql.DB }

func NewCueRepo(db *sql.DB) *CueRepo { return &CueRepo{db: db} }

func (r *CueRepo) Get(ctx context.Context, guildID, key string) (AudioCue, error) {
	var c AudioCue
	err := r.db.QueryRowContext(ctx, `
SELECT guild_id, cue_key, label, url, updated_at
  FROM audio_cues
 WHERE guild_id = $1 AND cue_key = $2
`, guildID, key).Scan(&c.GuildID, &c.Key, &c.Label, &c.URL, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return AudioCue{}, ErrNotFound
	}
	return c, err
}

// GetMany: lote para armar los menús de cues sin N queries.
func (r *CueRepo) GetMany(ctx context.Context, guildID string, keys []string) (map[string]AudioCue, error) {
	out := map[string]AudioCue{}
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT guild_id, cue_key, label, url, updated_at
  FROM audio_cues
 WHERE guild_id = $1 AND cue_key = ANY($2)
`, guildID, pq.Array(keys))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c AudioCue
		if err := rows.Scan(&c.GuildID, &c.Key, &c.Label, &c.URL, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out[c.Key] = c
	}
	return out, rows.Err()
}

func (r *CueRepo) Upsert(ctx context.Context, c AudioCue) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audio_cues (guild_id, cue_key, label, url, updated_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (guild_id, cue_key) DO UPDATE SET
  label      = EXCLUDED.label,
  url        = EXCLUDED.url,
  updated_at = EXCLUDED.updated_at
`, c.GuildID, c.Key, c.Label, c.URL, time.Now())
	return err
}

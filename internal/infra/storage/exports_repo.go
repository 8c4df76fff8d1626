package storage

import (
	"context"
	"database/sql"
)

type ExportRepo struct{ db *sql.DB }

func NewExportRepo(db *sql.DB) *ExportRepo { return &ExportRepo{db: db} }

// Insert es best-effort desde el servicio: un fallo acá nunca bloquea el
// export en sí.
func (r *ExportRepo) Insert(ctx context.Context, e RosterExport) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO roster_exports (guild_id, rally_id, requested_by, participants)
VALUES ($1,$2,$3,$4)
`, e.GuildID, e.RallyID, e.RequestedBy, e.Participants)
	return err
}

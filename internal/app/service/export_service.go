package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jose-valero/rally-bot/internal/domain"
	"github.com/jose-valero/rally-bot/internal/infra/storage"
)

// Exporter arma los dos dumps del roster (CSV y TXT seccionado) y deja
// un registro de auditoría en Postgres. El registro es best-effort: si
// la DB está caída el host igual se lleva su archivo.
type Exporter struct {
	gw    Gateway
	store *RosterStore
	audit ExportAudit
}

func NewExporter(gw Gateway, store *RosterStore, audit ExportAudit) *Exporter {
	return &Exporter{gw: gw, store: store, audit: audit}
}

type exportRow struct {
	Name string
	P    domain.Participant
}

func (e *Exporter) rows(r domain.Rally) []exportRow {
	out := make([]exportRow, 0, len(r.Participants))
	for _, p := range r.Participants {
		out = append(out, exportRow{Name: e.gw.MemberDisplayName(r.GuildID, p.UserID), P: p})
	}
	// capacidad descendente; a igual capacidad, alfabético para que dos
	// exports seguidos salgan idénticos
	sort.Slice(out, func(i, j int) bool {
		if out[i].P.Capacity != out[j].P.Capacity {
			return out[i].P.Capacity > out[j].P.Capacity
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CSV: una fila por participante, capacidad descendente.
func (e *Exporter) CSV(ctx context.Context, rallyID, requestedBy string) ([]byte, error) {
	r, err := e.store.Get(rallyID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"User", "Troop Type", "Troop Tier", "Rally Dragon", "Capacity"})
	for _, row := range e.rows(r) {
		dragon := "No"
		if row.P.Dragon {
			dragon = "Yes"
		}
		_ = w.Write([]string{
			row.Name,
			string(row.P.Type),
			string(row.P.Tier),
			dragon,
			strconv.Itoa(row.P.Capacity),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	e.recordAudit(ctx, r, requestedBy)
	return buf.Bytes(), nil
}

// Text: el resumen que el host pega en el chat de alianza. Secciones por
// tipo de tropa, por tier (de mayor a menor), dragones y ranking por
// capacidad.
func (e *Exporter) Text(ctx context.Context, rallyID, requestedBy string) ([]byte, error) {
	r, err := e.store.Get(rallyID)
	if err != nil {
		return nil, err
	}
	rows := e.rows(r)

	var b strings.Builder
	fmt.Fprintf(&b, "Rally roster (%d joined)\n", len(rows))
	fmt.Fprintf(&b, "Host: %s\n", e.gw.MemberDisplayName(r.GuildID, r.HostID))
	fmt.Fprintf(&b, "Created: %s\n\n", r.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))

	b.WriteString("== By troop type ==\n")
	for _, tt := range domain.TroopTypes {
		names := []string{}
		for _, row := range rows {
			if row.P.Type == tt {
				names = append(names, row.Name)
			}
		}
		fmt.Fprintf(&b, "%s (%d): %s\n", tt, len(names), joinOrDash(names))
	}

	b.WriteString("\n== By tier ==\n")
	for _, tier := range domain.TroopTiers {
		names := []string{}
		for _, row := range rows {
			if row.P.Tier == tier {
				names = append(names, row.Name)
			}
		}
		fmt.Fprintf(&b, "%s (%d): %s\n", tier, len(names), joinOrDash(names))
	}

	b.WriteString("\n== Rally dragon ==\n")
	dragons := []string{}
	for _, row := range rows {
		if row.P.Dragon {
			dragons = append(dragons, row.Name)
		}
	}
	fmt.Fprintf(&b, "With dragon (%d): %s\n", len(dragons), joinOrDash(dragons))

	b.WriteString("\n== By capacity ==\n")
	for i, row := range rows {
		fmt.Fprintf(&b, "%2d. %s - %d\n", i+1, row.Name, row.P.Capacity)
	}

	e.recordAudit(ctx, r, requestedBy)
	return []byte(b.String()), nil
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func (e *Exporter) recordAudit(ctx context.Context, r domain.Rally, requestedBy string) {
	err := e.audit.Insert(ctx, storage.RosterExport{
		GuildID:      r.GuildID,
		RallyID:      r.MessageID,
		RequestedBy:  requestedBy,
		Participants: len(r.Participants),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		log.Printf("[export] audit insert rally=%s: %v", r.MessageID, err)
	}
}

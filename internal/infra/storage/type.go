package storage

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Config durable por guild. La fila se crea con defaults al primer Get.
type GuildSettings struct {
	GuildID string

	CategoryID    string // override de categoría para los VC efímeros
	RallyRoleName string // rol a mencionar en el anuncio

	GraceSeconds          int // canal vacío → borrar tras esta gracia
	IdleSeconds           int // sin actividad en voz → desconectar
	PostPlaybackSeconds   int // tras terminar el audio → desconectar
	ConnectTimeoutSeconds int
	CooldownSeconds       int // backoff tras connect fallido

	VoiceEnabled   bool
	AutoEnrollHost bool
	AllowLeave     bool

	InviteMaxAgeSeconds int
	InviteMaxUses       int

	CreatedAt, UpdatedAt time.Time
}

// Para updates parciales desde /rallyset
type GuildSettingsPatch struct {
	CategoryID            *string
	RallyRoleName         *string
	GraceSeconds          *int
	IdleSeconds           *int
	PostPlaybackSeconds   *int
	ConnectTimeoutSeconds *int
	CooldownSeconds       *int
	InviteMaxAgeSeconds   *int
	InviteMaxUses         *int
	VoiceEnabled          *bool
	AutoEnrollHost        *bool
	AllowLeave            *bool
}

// Una pista de audio por (guild, clave de cue). Ej: "bomb_5m", "roll_10s".
type AudioCue struct {
	GuildID   string
	Key       string
	Label     string
	URL       string
	UpdatedAt time.Time
}

// Auditoría de exports de roster; el janitor poda las filas viejas.
type RosterExport struct {
	GuildID      string
	RallyID      string
	RequestedBy  string
	Participants int
	CreatedAt    time.Time
}

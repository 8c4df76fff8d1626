package domain

import "time"

type RallyKind string

const (
	RallyKeep RallyKind = "KEEP"
	RallySOP  RallyKind = "SOP"
)

// Detalle del keep objetivo; solo tiene sentido en rallies KEEP.
// Texto libre del host, se valida presencia en el form, no el contenido.
type KeepDetails struct {
	KeepPower    string
	PrimaryTroop string
	KeepLevel    string
	GearWorn     string
	IdleTime     string
	Scouted      string
}

// Rally: un evento con roster, post público y (opcionalmente) un canal de
// voz efímero. La identidad es el ID del mensaje de anuncio.
type Rally struct {
	MessageID string
	GuildID   string
	ChannelID string // canal de texto donde se posteó
	HostID    string
	Kind      RallyKind

	Keep KeepDetails

	// recursos dinámicos; se limpian en teardown, el rally sobrevive
	VoiceChannelID string
	VoiceInviteURL string
	ThreadID       string

	// una vez desmontada la voz no se vuelve a asignar a este rally
	VoiceTornDown bool

	CreatedAt    time.Time
	Participants map[string]Participant
}

func (r *Rally) HasVoice() bool { return r.VoiceChannelID != "" }

// Clone devuelve una copia profunda; los lectores nunca ven el mapa vivo.
func (r *Rally) Clone() Rally {
	out := *r
	out.Participants = make(map[string]Participant, len(r.Participants))
	for k, v := range r.Participants {
		out.Participants[k] = v
	}
	return out
}

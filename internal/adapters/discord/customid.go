package discord

import "strings"

// Los custom IDs de botones y modals llevan una acción tipada, no un
// string que cada handler vuelve a sniffear. Se decodifica UNA vez a la
// entrada del dispatch y de ahí en adelante circula el struct.
//
// Formato: "ra:<kind>:<rallyID>[:<cueKey>]". El rallyID vacío se
// codifica como "-" para que el split no pierda campos.

type ActionKind string

const (
	ActionJoin      ActionKind = "join"
	ActionLeave     ActionKind = "leave"
	ActionEnd       ActionKind = "end"
	ActionExportCSV ActionKind = "csv"
	ActionExportTXT ActionKind = "txt"
	ActionPlay      ActionKind = "play"

	// modals
	ActionKeepForm ActionKind = "kform"
	ActionJoinForm ActionKind = "jform"
)

const actionPrefix = "ra"

type Action struct {
	Kind    ActionKind
	RallyID string
	CueKey  string // solo ActionPlay
}

func (a Action) Encode() string {
	rid := a.RallyID
	if rid == "" {
		rid = "-"
	}
	parts := []string{actionPrefix, string(a.Kind), rid}
	if a.Kind == ActionPlay {
		parts = append(parts, a.CueKey)
	}
	return strings.Join(parts, ":")
}

// DecodeAction: ok=false para custom IDs ajenos o malformados; el
// dispatch los ignora en silencio.
func DecodeAction(raw string) (Action, bool) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 || parts[0] != actionPrefix {
		return Action{}, false
	}
	a := Action{Kind: ActionKind(parts[1]), RallyID: parts[2]}
	if a.RallyID == "-" {
		a.RallyID = ""
	}
	switch a.Kind {
	case ActionJoin, ActionLeave, ActionEnd, ActionExportCSV, ActionExportTXT, ActionKeepForm, ActionJoinForm:
		return a, len(parts) == 3
	case ActionPlay:
		if len(parts) != 4 || parts[3] == "" {
			return Action{}, false
		}
		a.CueKey = parts[3]
		return a, true
	}
	return Action{}, false
}

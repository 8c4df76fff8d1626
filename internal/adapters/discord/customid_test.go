package discord

import "testing"

func TestActionRoundTrip(t *testing.T) {
	cases := []Action{
		{Kind: ActionJoin, RallyID: "123456789"},
		{Kind: ActionLeave, RallyID: "123456789"},
		{Kind: ActionEnd, RallyID: "987"},
		{Kind: ActionExportCSV, RallyID: "987"},
		{Kind: ActionExportTXT, RallyID: "987"},
		{Kind: ActionPlay, RallyID: "987", CueKey: "bomb_5m"},
		{Kind: ActionPlay, RallyID: "", CueKey: "roll_10s"}, // panel sin rally
		{Kind: ActionKeepForm},
		{Kind: ActionJoinForm, RallyID: "42"},
	}
	for _, in := range cases {
		raw := in.Encode()
		out, ok := DecodeAction(raw)
		if !ok {
			t.Errorf("DecodeAction(%q) failed", raw)
			continue
		}
		if out != in {
			t.Errorf("round trip %q: got %+v want %+v", raw, out, in)
		}
	}
}

func TestDecodeActionRejectsGarbage(t *testing.T) {
	bad := []string{
		"",
		"queue_join",          // custom IDs de otros bots
		"ra:join",             // sin rally id
		"ra:play:123",         // play sin cue
		"ra:play:123:",        // cue vacío
		"ra:join:1:extra",     // campos de más
		"xx:join:123",         // prefijo ajeno
		"ra:unknown_kind:123", // kind desconocido
	}
	for _, raw := range bad {
		if a, ok := DecodeAction(raw); ok {
			t.Errorf("DecodeAction(%q) = %+v, expected rejection", raw, a)
		}
	}
}

package discord

// Claves de cue conocidas. La URL de cada una sale de audio_cues (fila
// del guild) o del default de env; las claves son fijas porque los
// botones las llevan en el custom ID.

const (
	CueBomb5m  = "bomb_5m"
	CueBomb10m = "bomb_10m"
	CueBomb30m = "bomb_30m"
	CueBomb1h  = "bomb_1h"

	CueRoll5s  = "roll_5s"
	CueRoll10s = "roll_10s"
	CueRoll15s = "roll_15s"
	CueRoll30s = "roll_30s"

	CueExplainBomb = "explain_bomb"
	CueExplainRoll = "explain_roll"
)

type cueButton struct {
	Key   string
	Label string
}

// Paneles de /type_of_rally: bomb usa cuentas largas, rolling cortas.
var bombCues = []cueButton{
	{CueBomb5m, "5 min"},
	{CueBomb10m, "10 min"},
	{CueBomb30m, "30 min"},
	{CueBomb1h, "1 hour"},
	{CueExplainBomb, "What is this?"},
}

var rollCues = []cueButton{
	{CueRoll5s, "5 sec"},
	{CueRoll10s, "10 sec"},
	{CueRoll15s, "15 sec"},
	{CueRoll30s, "30 sec"},
	{CueExplainRoll, "What is this?"},
}

package domain

import "strings"

type TroopType string

const (
	TroopCavalry  TroopType = "Cavalry"
	TroopInfantry TroopType = "Infantry"
	TroopRange    TroopType = "Range"
)

type TroopTier string

const (
	TierT8  TroopTier = "T8"
	TierT9  TroopTier = "T9"
	TierT10 TroopTier = "T10"
	TierT11 TroopTier = "T11"
	TierT12 TroopTier = "T12"
)

// Orden de render para export/embeds (capacidad de pegada primero)
var TroopTypes = []TroopType{TroopCavalry, TroopInfantry, TroopRange}
var TroopTiers = []TroopTier{TierT12, TierT11, TierT10, TierT9, TierT8}

type Participant struct {
	UserID   string
	Type     TroopType
	Tier     TroopTier
	Dragon   bool
	Capacity int
}

// ParseTroopType normaliza "infantry ", "INFANTRY", etc.
func ParseTroopType(raw string) (TroopType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cavalry", "cav":
		return TroopCavalry, true
	case "infantry", "inf":
		return TroopInfantry, true
	case "range", "ranged", "archer":
		return TroopRange, true
	}
	return "", false
}

func ParseTroopTier(raw string) (TroopTier, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "T8":
		return TierT8, true
	case "T9":
		return TierT9, true
	case "T10":
		return TierT10, true
	case "T11":
		return TierT11, true
	case "T12":
		return TierT12, true
	}
	return "", false
}

// ParseYesNo: cualquier cosa que empiece con y/Y cuenta como sí.
func ParseYesNo(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(s, "y")
}

// ParseCapacity: se queda solo con los dígitos ("12,000" → 12000).
// Sin dígitos → 0.
func ParseCapacity(raw string) int {
	n := 0
	seen := false
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		seen = true
		n = n*10 + int(r-'0')
		if n > 1<<31 {
			// entrada absurda; la recortamos en vez de overflowear
			return 1 << 31
		}
	}
	if !seen {
		return 0
	}
	return n
}

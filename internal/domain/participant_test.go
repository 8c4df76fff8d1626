package domain

import "testing"

func TestParseTroopType(t *testing.T) {
	cases := []struct {
		in   string
		want TroopType
		ok   bool
	}{
		{"Cavalry", TroopCavalry, true},
		{" cav ", TroopCavalry, true},
		{"INFANTRY", TroopInfantry, true},
		{"inf", TroopInfantry, true},
		{"range", TroopRange, true},
		{"ranged", TroopRange, true},
		{"archer", TroopRange, true},
		{"dragons", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseTroopType(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("ParseTroopType(%q) = %q,%v want %q,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseTroopTier(t *testing.T) {
	for _, in := range []string{"T8", "t9", " t10 ", "T11", "t12"} {
		if _, ok := ParseTroopTier(in); !ok {
			t.Errorf("ParseTroopTier(%q) should parse", in)
		}
	}
	for _, in := range []string{"T7", "T13", "ten", ""} {
		if _, ok := ParseTroopTier(in); ok {
			t.Errorf("ParseTroopTier(%q) should fail", in)
		}
	}
}

func TestParseYesNo(t *testing.T) {
	for _, in := range []string{"yes", "Y", " yep ", "YES!"} {
		if !ParseYesNo(in) {
			t.Errorf("ParseYesNo(%q) = false, want true", in)
		}
	}
	for _, in := range []string{"no", "nah", "", "si"} {
		if ParseYesNo(in) {
			t.Errorf("ParseYesNo(%q) = true, want false", in)
		}
	}
}

func TestParseCapacity(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"150000", 150000},
		{"150,000", 150000},
		{"~150k... around 150000", 150150000}, // se queda con todos los dígitos
		{"none", 0},
		{"", 0},
		{"999999999999999999999", 1 << 31}, // clamp
	}
	for _, c := range cases {
		if got := ParseCapacity(c.in); got != c.want {
			t.Errorf("ParseCapacity(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestRallyCloneIsDeep(t *testing.T) {
	r := Rally{
		MessageID:    "m1",
		Participants: map[string]Participant{"u1": {UserID: "u1"}},
	}
	c := r.Clone()
	c.Participants["u2"] = Participant{UserID: "u2"}
	if len(r.Participants) != 1 {
		t.Fatalf("clone shares the participants map")
	}
}

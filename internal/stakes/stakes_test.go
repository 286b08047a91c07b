package stakes

import "testing"

func TestPresetsCoverEveryTier(t *testing.T) {
	for _, name := range Names() {
		table, err := Preset(name)
		if err != nil {
			t.Fatalf("preset %q: %v", name, err)
		}
		for tier := OneTai; tier <= FiveTai; tier++ {
			s, ok := table.Stake(tier)
			if !ok {
				t.Fatalf("preset %q missing tier %d", name, tier)
			}
			if s.Base <= 0 || s.Zimo < s.Base {
				t.Fatalf("preset %q tier %d: unexpected stake %+v", name, tier, s)
			}
		}
	}
}

func TestPresetDoubling(t *testing.T) {
	table, err := Preset("1/2")
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	cases := map[Tier]Stake{
		OneTai:  {Base: 1, Zimo: 2},
		TwoTai:  {Base: 2, Zimo: 4},
		FiveTai: {Base: 16, Zimo: 32},
	}
	for tier, want := range cases {
		got, _ := table.Stake(tier)
		if got != want {
			t.Fatalf("tier %d: expected %+v, got %+v", tier, want, got)
		}
	}
}

func TestPresetUnknown(t *testing.T) {
	if _, err := Preset("7/14"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestNewRequiresAllTiers(t *testing.T) {
	_, err := New("partial", map[Tier]Stake{OneTai: {Base: 1, Zimo: 2}})
	if err == nil {
		t.Fatal("expected error for missing tiers")
	}
}

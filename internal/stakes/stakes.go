// Package stakes holds the bet presets that price each tai tier.
package stakes

import (
	"fmt"
	"sort"
)

// Tier is a tai level from 1 to 5.
type Tier int

const (
	OneTai Tier = iota + 1
	TwoTai
	ThreeTai
	FourTai
	FiveTai
)

// Stake is what a loser pays at a tier: Base on a discard, Zimo on a self-draw.
type Stake struct {
	Base int64
	Zimo int64
}

// Table maps every tier to its stake.
type Table struct {
	Name  string
	tiers map[Tier]Stake
}

// Stake returns the stake for tier.
func (t Table) Stake(tier Tier) (Stake, bool) {
	s, ok := t.tiers[tier]
	return s, ok
}

func doubling(name string, base, zimo int64) Table {
	tiers := make(map[Tier]Stake, 5)
	for tier := OneTai; tier <= FiveTai; tier++ {
		shift := uint(tier - OneTai)
		tiers[tier] = Stake{Base: base << shift, Zimo: zimo << shift}
	}
	return Table{Name: name, tiers: tiers}
}

var presets = map[string]Table{
	"1/2":   doubling("1/2", 1, 2),
	"3/6":   doubling("3/6", 3, 6),
	"10/20": doubling("10/20", 10, 20),
	"20/40": doubling("20/40", 20, 40),
	"50/1":  doubling("50/1", 50, 100),
	// Past three tai the half preset grows linearly instead of doubling.
	"3/6 half": {Name: "3/6 half", tiers: map[Tier]Stake{
		OneTai:   {Base: 3, Zimo: 6},
		TwoTai:   {Base: 6, Zimo: 12},
		ThreeTai: {Base: 12, Zimo: 24},
		FourTai:  {Base: 18, Zimo: 36},
		FiveTai:  {Base: 24, Zimo: 48},
	}},
}

// Preset looks up a named preset.
func Preset(name string) (Table, error) {
	t, ok := presets[name]
	if !ok {
		return Table{}, fmt.Errorf("unknown stake preset %q (known: %v)", name, Names())
	}
	return t, nil
}

// Names lists the known presets in sorted order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a custom table. Every tier from OneTai to FiveTai must be present.
func New(name string, tiers map[Tier]Stake) (Table, error) {
	copied := make(map[Tier]Stake, len(tiers))
	for tier := OneTai; tier <= FiveTai; tier++ {
		s, ok := tiers[tier]
		if !ok {
			return Table{}, fmt.Errorf("stake table %q: missing tier %d", name, tier)
		}
		copied[tier] = s
	}
	return Table{Name: name, tiers: copied}, nil
}

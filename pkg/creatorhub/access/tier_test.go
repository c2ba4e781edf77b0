package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUpgrade(t *testing.T) {
	basic := Tier{ID: "basic", PriceCents: 500, Position: 1, Active: true}
	pro := Tier{ID: "pro", PriceCents: 1500, Position: 2, Active: true}
	proYearly := Tier{ID: "pro-yearly", PriceCents: 1500, Position: 3, Active: true}

	assert.True(t, IsUpgrade(nil, basic), "free to paid")
	assert.False(t, IsUpgrade(nil, Tier{ID: "free", PriceCents: 0}), "free to free")
	assert.True(t, IsUpgrade(&basic, pro))
	assert.False(t, IsUpgrade(&pro, basic), "downgrade")
	assert.False(t, IsUpgrade(&pro, proYearly), "equal price")
	assert.False(t, IsUpgrade(&pro, pro), "same tier")
}

func TestIsUpgrade_IgnoresPosition(t *testing.T) {
	// Cheaper tier configured at a higher position is still not an upgrade.
	current := Tier{ID: "a", PriceCents: 2000, Position: 1}
	misordered := Tier{ID: "b", PriceCents: 1000, Position: 5}
	assert.False(t, IsUpgrade(&current, misordered))
}

func TestUpgradeOptions(t *testing.T) {
	current := &Tier{ID: "basic", PriceCents: 500, Position: 1, Active: true}
	tiers := []Tier{
		{ID: "vip", PriceCents: 5000, Position: 4, Active: true},
		{ID: "basic", PriceCents: 500, Position: 1, Active: true},
		{ID: "retired", PriceCents: 9000, Position: 9, Active: false},
		{ID: "pro", PriceCents: 1500, Position: 2, Active: true},
		{ID: "starter", PriceCents: 100, Position: 0, Active: true},
	}

	got := UpgradeOptions(current, tiers)
	ids := make([]string, len(got))
	for i, t := range got {
		ids[i] = t.ID
	}
	assert.Equal(t, []string{"pro", "vip"}, ids)

	assert.Len(t, UpgradeOptions(nil, tiers), 4)
}

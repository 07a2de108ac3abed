package loyalty

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTier(t *testing.T) {
	th := TierThresholds{SilverMin: 200, GoldMin: 550}

	tests := []struct {
		name    string
		balance int64
		want    Tier
	}{
		{"zero balance is bronze", 0, TierBronze},
		{"below silver threshold", 199, TierBronze},
		{"exactly silver threshold", 200, TierSilver},
		{"between thresholds", 549, TierSilver},
		{"exactly gold threshold", 550, TierGold},
		{"far above gold", 100000, TierGold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTier(tt.balance, th))
		})
	}
}

func TestResolveTier_UsesCurrentThresholds(t *testing.T) {
	// Lowering thresholds changes the resolution for the same balance;
	// the resolver never caches.
	assert.Equal(t, TierBronze, ResolveTier(150, TierThresholds{SilverMin: 200, GoldMin: 550}))
	assert.Equal(t, TierSilver, ResolveTier(150, TierThresholds{SilverMin: 100, GoldMin: 550}))
}

func TestNextThreshold(t *testing.T) {
	th := TierThresholds{SilverMin: 200, GoldMin: 550}

	next, ok := NextThreshold(0, th)
	assert.True(t, ok)
	assert.Equal(t, int64(200), next)

	next, ok = NextThreshold(300, th)
	assert.True(t, ok)
	assert.Equal(t, int64(550), next)

	_, ok = NextThreshold(600, th)
	assert.False(t, ok, "gold has no next tier")
}

func TestTierOrdering(t *testing.T) {
	assert.True(t, TierGold.Above(TierSilver))
	assert.True(t, TierSilver.Above(TierBronze))
	assert.False(t, TierBronze.Above(TierBronze))
	assert.True(t, TierGold.AtLeast(TierGold))
	assert.False(t, TierBronze.AtLeast(TierSilver))
	assert.False(t, Tier("platinum").Valid())
}

func TestTierThresholds_Validate(t *testing.T) {
	assert.NoError(t, TierThresholds{SilverMin: 200, GoldMin: 550}.Validate())
	assert.Error(t, TierThresholds{SilverMin: 0, GoldMin: 550}.Validate())
	assert.Error(t, TierThresholds{SilverMin: 550, GoldMin: 200}.Validate())
	assert.Error(t, TierThresholds{SilverMin: 200, GoldMin: 200}.Validate())
}

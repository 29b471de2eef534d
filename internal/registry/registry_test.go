package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/SocialPulse/internal/config"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
)

func TestNewAppliesDefaults(t *testing.T) {
	r := New([]Platform{{ID: "tiktok"}, {ID: "tiktok", Name: "dup"}, {ID: "x", Name: "X", RateKey: "twitter"}}, nil, nil, nil)

	require.Len(t, r.Platforms(), 2)
	p, ok := r.Platform("tiktok")
	require.True(t, ok)
	assert.Equal(t, "Tiktok", p.Name)
	assert.Equal(t, "tiktok", p.RateKey)
	assert.NotEmpty(t, p.Color)

	assert.Equal(t, map[string]string{"tiktok": "tiktok", "x": "twitter"}, r.RateKeys())
	assert.Equal(t, []string{"tiktok", "x"}, r.PlatformIDs())
}

func TestUnknownLookups(t *testing.T) {
	r := New(nil, []Show{{ID: "s1", Name: "Show"}}, []Talent{{ID: "t1"}}, nil)

	p, ok := r.Platform("threads")
	assert.False(t, ok)
	assert.Equal(t, "Threads", p.Name)

	_, ok = r.Show("nope")
	assert.False(t, ok)
	s, ok := r.Show("s1")
	assert.True(t, ok)
	assert.Equal(t, "Show", s.Name)

	tal, ok := r.TalentByID("t1")
	assert.True(t, ok)
	assert.Equal(t, "T1", tal.Name)
}

func TestFromConfigCalculator(t *testing.T) {
	cfg := &config.Config{
		Platforms: []config.Platform{{ID: "x", RateKey: "twitter"}},
		EMV: config.EMV{
			Currency: "ZAR",
			Rates:    map[string]map[string]float64{"twitter": {"like": 0.5}},
		},
		BrandHashtags: []string{"Brand"},
	}
	r := FromConfig(cfg)
	calc := r.Calculator()

	assert.InDelta(t, 5, calc.Calculate("x", emv.Counts{emv.Likes: 10}), 1e-9)
	assert.Equal(t, "ZAR", calc.Currency())
	assert.Equal(t, []string{"Brand"}, r.BrandHashtags())
}

func TestTalentHasPlatform(t *testing.T) {
	tal := Talent{ID: "t", Accounts: map[string]string{"instagram": "https://instagram.com/t"}}
	assert.True(t, tal.HasPlatform("instagram"))
	assert.False(t, tal.HasPlatform("tiktok"))
}

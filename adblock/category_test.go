package adblock

import (
	"testing"

	"contentblocker/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabledLists(t *testing.T) {
	testCases := []struct {
		name     string
		blocking config.BlockingConfig
		want     []string
	}{{
		name: "defaults",
		blocking: config.BlockingConfig{
			BlockAds:       true,
			BlockAnalytics: true,
			BlockSocial:    true,
		},
		want: []string{"disconnect-advertising", "disconnect-analytics", "disconnect-social"},
	}, {
		name: "strict_with_fonts",
		blocking: config.BlockingConfig{
			BlockAds:       true,
			BlockAnalytics: true,
			BlockSocial:    true,
			BlockOther:     true,
			BlockFonts:     true,
		},
		want: []string{
			"disconnect-advertising",
			"disconnect-analytics",
			"disconnect-social",
			"disconnect-content",
			"web-fonts",
		},
	}, {
		name:     "fonts_only",
		blocking: config.BlockingConfig{BlockFonts: true},
		want:     []string{"web-fonts"},
	}, {
		name:     "none",
		blocking: config.BlockingConfig{},
		want:     nil,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EnabledLists(tc.blocking))
		})
	}
}

func TestParseCategory(t *testing.T) {
	for _, s := range []string{"advertising", "block_ads", "disconnect-advertising"} {
		c, err := ParseCategory(s)
		require.NoError(t, err)
		assert.Equal(t, CategoryAdvertising, c)
	}

	c, err := ParseCategory("block_other")
	require.NoError(t, err)
	assert.Equal(t, CategoryContent, c)
	assert.Equal(t, "disconnect-content", c.ListName())

	_, err = ParseCategory("cookies")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestSetEnabled(t *testing.T) {
	var b config.BlockingConfig

	require.NoError(t, SetEnabled(&b, CategoryFonts, true))
	assert.True(t, b.BlockFonts)
	assert.True(t, CategoryFonts.Enabled(b))

	require.NoError(t, SetEnabled(&b, CategoryFonts, false))
	assert.False(t, b.BlockFonts)

	assert.ErrorIs(t, SetEnabled(&b, Category("cookies"), true), ErrUnknownCategory)
	assert.False(t, Category("cookies").Enabled(b))
}

func TestCategoryForList(t *testing.T) {
	c, ok := CategoryForList("disconnect-social")
	require.True(t, ok)
	assert.Equal(t, CategorySocial, c)
	assert.Equal(t, "block_social", c.Toggle())

	_, ok = CategoryForList("custom")
	assert.False(t, ok)

	assert.Len(t, Categories(), 5)
}

func TestPageStatsAdding(t *testing.T) {
	var s PageStats
	assert.Equal(t, 0, s.Total())

	next := s.Adding(CategoryAdvertising).Adding(CategoryAnalytics).Adding(CategorySocial).Adding(CategoryContent)
	assert.Equal(t, 0, s.Total())
	assert.Equal(t, PageStats{Ads: 1, Analytics: 1, Content: 1, Social: 1}, next)
	assert.Equal(t, 4, next.Total())

	// Fonts aren't part of the page counters.
	assert.Equal(t, next, next.Adding(CategoryFonts))
	assert.Equal(t, next, next.Adding(""))
}

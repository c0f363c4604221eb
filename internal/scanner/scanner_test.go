package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentPipeline/internal/domain"
)

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(Config{
		Name: "ruliweb", ListingURL: "https://bbs.ruliweb.com/best",
		ItemSelector: "tr.item", TitleSelector: "td.subject a",
	}))

	cfg, err := reg.Resolve("ruliweb")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultMaxPostsPerCrawl, cfg.MaxPosts)
	assert.True(t, reg.Has("ruliweb"))
	assert.Equal(t, []string{"ruliweb"}, reg.Names())

	_, err = reg.Resolve("unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRegisterRejectsIncompleteConfig(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	err := reg.Register(Config{Name: "x", ListingURL: "https://x"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.False(t, reg.Has("x"))
}

func TestSelectorJSONRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Name: "fmkorea", ListingURL: "https://www.fmkorea.com/index.php?mid=best", Language: "ko",
		ItemSelector: "div.fm_best_widget ul li", TitleSelector: "h3.title a",
		CategorySelector: "span.category", BaseURL: "https://www.fmkorea.com", MaxPosts: 7,
	}

	restored, err := FromSource(domain.CommunitySource{
		Name: "fmkorea", URL: cfg.ListingURL, Language: "ko",
		SelectorConfig: cfg.SelectorJSON(), MaxPostsPerCrawl: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, cfg, restored)

	_, err = FromSource(domain.CommunitySource{Name: "bad", URL: "https://bad", SelectorConfig: "{not json"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

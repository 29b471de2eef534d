package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

func testMatcher() *Matcher {
	shows := []registry.Show{
		{ID: "morning-live", Hashtags: []string{"MorningLive", "#ML"}, Keywords: []string{"morning live"}},
		{ID: "the-braai", Hashtags: []string{"TheBraai"}, Keywords: []string{"braai master"}},
		{ID: "art", Keywords: []string{"art"}},
	}
	return NewMatcher(shows, []string{"SocialPulse"})
}

func TestAttributeHashtags(t *testing.T) {
	m := testMatcher()

	assert.Equal(t, []string{"morning-live"}, m.AttributePostToShows("Tune in! #morninglive"))
	assert.Equal(t, []string{"morning-live"}, m.AttributePostToShows("#MorningLive, 6am"))
	assert.Equal(t, []string{"morning-live"}, m.AttributePostToShows("back tomorrow #ML."))
	assert.Empty(t, m.AttributePostToShows("#MorningLiveShow is a different tag"))
	assert.Empty(t, m.AttributePostToShows("#MLB scores"))
	assert.Empty(t, m.AttributePostToShows("#MorningLive_Recap"))
	assert.Empty(t, m.AttributePostToShows("Watch #ML_Highlights tonight"))
	assert.Equal(t, []string{"morning-live"}, m.AttributePostToShows("(#ML)"))
}

func TestAttributeMultipleShows(t *testing.T) {
	m := testMatcher()
	ids := m.AttributePostToShows("Crossover day: #TheBraai meets morning live")
	assert.Equal(t, []string{"morning-live", "the-braai"}, ids)
}

func TestKeywordIsWordBoundaryStrict(t *testing.T) {
	m := testMatcher()

	assert.Empty(t, m.AttributePostToShows("The party was great"))
	assert.Empty(t, m.AttributePostToShows("Smart start"))
	assert.Equal(t, []string{"art"}, m.AttributePostToShows("Art, music and food"))
	assert.Equal(t, []string{"the-braai"}, m.AttributePostToShows("Who is the BRAAI MASTER?"))
}

func TestAttributeIsIdempotent(t *testing.T) {
	m := testMatcher()
	content := "Catch #TheBraai tonight and morning live tomorrow"

	first := m.AttributePostToShows(content)
	second := m.AttributePostToShows(content)
	assert.Equal(t, first, second)

	none := m.AttributePostToShows("nothing to see here")
	require.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRegexMetacharactersAreEscaped(t *testing.T) {
	m := NewMatcher([]registry.Show{{ID: "q", Keywords: []string{"c++ (live)"}, Hashtags: []string{"a.b"}}}, nil)

	assert.Equal(t, []string{"q"}, m.AttributePostToShows("#a.b rocks"))
	assert.Empty(t, m.AttributePostToShows("#axb rocks"))
	assert.Empty(t, m.AttributePostToShows("c (live)"))
}

func TestGetAttributedPostsAndCounts(t *testing.T) {
	m := testMatcher()
	posts := []model.Post{
		{ID: "1", Content: "#MorningLive and #TheBraai"},
		{ID: "2", Content: "#TheBraai"},
		{ID: "3", Content: "unrelated"},
	}

	grouped := m.GetAttributedPosts(posts)
	require.Len(t, grouped["morning-live"], 1)
	require.Len(t, grouped["the-braai"], 2)
	assert.Equal(t, "1", grouped["morning-live"][0].ID)
	assert.NotContains(t, grouped, "art")

	assert.Equal(t, Counts{Attributed: 2, Unattributed: 1}, m.CountAttributedPosts(posts))
}

func TestIsBrandPost(t *testing.T) {
	m := testMatcher()
	assert.True(t, m.IsBrandPost("Proud to be part of #socialpulse!"))
	assert.False(t, m.IsBrandPost("#SocialPulseFans"))
	assert.False(t, m.IsBrandPost("#SocialPulse_Archive"))
	assert.False(t, m.IsBrandPost("SocialPulse without a hash"))
}

func TestDedupeTalentPostsKeepsRicherRecord(t *testing.T) {
	posts := []model.Post{
		{ID: "a", TalentID: "t1", Platform: "instagram", Content: "Hello  World", Engagements: 10},
		{ID: "b", TalentID: "t1", Platform: "tiktok", Content: "hello world", Engagements: 5},
		{ID: "c", TalentID: "t1", Platform: "instagram", Content: "hello world ", Engagements: 30},
		{ID: "d", TalentID: "t2", Platform: "instagram", Content: "hello world", Engagements: 1},
		{ID: "e", TalentID: "t1", Platform: "instagram", Content: "HELLO WORLD", Engagements: 30},
	}

	out := DedupeTalentPosts(posts)

	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, "d", out[2].ID)
}

func TestAttributeTalentPosts(t *testing.T) {
	m := testMatcher()
	posts := []model.Post{
		{ID: "1", TalentID: "t1", Platform: "instagram", Content: "Loving #TheBraai #SocialPulse"},
		{ID: "2", Platform: "instagram", Content: "#TheBraai"},
		{ID: "3", TalentID: "t1", Platform: "instagram", Content: "weekend vibes"},
	}

	out := m.AttributeTalentPosts(posts)

	require.Len(t, out, 2)
	assert.Equal(t, []string{"the-braai"}, out[0].Shows)
	assert.True(t, out[0].Brand)
	assert.True(t, out[0].Mentions())
	assert.False(t, out[1].Mentions())
}

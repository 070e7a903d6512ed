package coach

import (
	"strings"
	"testing"

	"sherise/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTrends = []models.Trend{
	{Name: "Millet snacks", Category: "Food", Keywords: []string{"millet", "healthy"}, Momentum: "🔥 Rising"},
	{Name: "Block printing", Category: "Crafts", Keywords: []string{"handmade"}, Momentum: "💎 Popular"},
	{Name: "Ayurvedic skincare", Category: "Beauty", Keywords: []string{"skincare"}, Momentum: "✨ Niche"},
}

func TestRelevantTrends(t *testing.T) {
	tests := []struct {
		name     string
		business string
		message  string
		want     []string
	}{
		{"business category", "food", "", []string{"Millet snacks"}},
		{"category in message", "", "I sell CRAFTS online", []string{"Block printing"}},
		{"keyword in message", "", "new skincare line", []string{"Ayurvedic skincare"}},
		{"several", "beauty", "also some millet bars", []string{"Millet snacks", "Ayurvedic skincare"}},
		{"none", "tech", "hello", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, tr := range RelevantTrends(testTrends, tt.business, tt.message) {
				got = append(got, tr.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := models.Profile{Name: "Asha", Business: "Food", Bio: "Home baker"}

	prompt := BuildPrompt(p, testTrends, "How do I price cookies?")
	assert.Contains(t, prompt, "- Business type: Food")
	assert.Contains(t, prompt, "- Bio: Home baker")
	assert.Contains(t, prompt, "Relevant trends: Millet snacks\n")
	assert.Contains(t, prompt, `User query: "How do I price cookies?"`)
	assert.Contains(t, prompt, "under 120 words")
	assert.Equal(t, prompt, BuildPrompt(p, testTrends, "How do I price cookies?"), "prompt must be deterministic")

	none := BuildPrompt(models.Profile{Business: "Tech"}, testTrends, "hi")
	assert.Contains(t, none, "Relevant trends: None found")
}

func TestBuildPrompt_QueryIsVerbatim(t *testing.T) {
	msg := "Is \"handmade\" worth it?\nअगला कदम क्या है?"

	prompt := BuildPrompt(models.Profile{Business: "Food"}, testTrends, msg)
	assert.Contains(t, prompt, "User query: \""+msg+"\"\n\n")
	assert.NotContains(t, prompt, `\n`, "newlines reach the model as newlines")
	assert.NotContains(t, prompt, `\"handmade\"`)
}

func TestIsCollaborationRequest(t *testing.T) {
	for _, msg := range []string{"I want to PARTNER with someone", "should I hire help?", "let's team up", "Can I join a group"} {
		assert.True(t, IsCollaborationRequest(msg), msg)
	}
	assert.False(t, IsCollaborationRequest("how do I price my cakes"))
}

func TestPartnerReply(t *testing.T) {
	community := []models.CommunityMember{
		{Name: "Asha", City: "Pune", Product: "Cookies"},
		{Name: "Meera", City: "Jaipur", Product: "Block prints"},
		{Name: "Lata", City: "Kochi", Product: "Spices"},
		{Name: "Rina", City: "Delhi", Product: "Candles"},
		{Name: "Zoya", City: "Agra", Product: "Rugs"},
	}

	reply := PartnerReply(community, "Asha")
	assert.NotContains(t, reply, "Asha")
	assert.Contains(t, reply, "• Meera from Jaipur - Block prints")
	assert.Contains(t, reply, "• Rina from Delhi - Candles")
	assert.NotContains(t, reply, "Zoya")
	assert.Equal(t, 3, strings.Count(reply, "• "))
}

func TestGreeting(t *testing.T) {
	assert.Equal(t,
		"Hi Asha! I'm your AI business coach. How can I help you grow your Food business today?",
		Greeting(models.Profile{Name: "Asha", Business: "Food"}))
}

func TestSuggestions(t *testing.T) {
	first := func(int) int { return 0 }

	got := Suggestions(testTrends, "Healthy millet and handmade crafts", first)
	require.Len(t, got, 4)
	assert.Equal(t, `I read: "Healthy millet and handmade crafts"`, got[0])
	assert.Equal(t, "Trending insight: Millet snacks (🔥 Rising), Block printing (💎 Popular). Consider aligning your offer or content with these.", got[1])
	assert.Equal(t, "Audience hook: Share your origin story in 3 lines and a photo.", got[2])
	assert.Equal(t, GenericTips[0], got[3])

	got = Suggestions(testTrends, "software", func(n int) int { return n - 1 })
	assert.Equal(t, "No direct trends matched, but you can still ride seasonal moments and local events.", got[1])
	assert.Equal(t, GenericTips[len(GenericTips)-1], got[3])

	assert.Contains(t, GenericTips, Suggestions(nil, "x", nil)[3])
}

package coach

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"sherise/internal/models"
)

const noTrends = "None found"

// BuildPrompt renders the coach prompt for one user message. Only the latest
// message is included; earlier turns are never sent.
func BuildPrompt(profile models.Profile, trends []models.Trend, message string) string {
	names := make([]string, 0, len(trends))
	for _, t := range RelevantTrends(trends, profile.Business, message) {
		names = append(names, t.Name)
	}
	relevant := strings.Join(names, ", ")
	if relevant == "" {
		relevant = noTrends
	}

	var b strings.Builder
	b.WriteString("You are \"Sherise\", an AI mentor for women entrepreneurs.\n")
	b.WriteString("Be concise, empathetic, and motivational.\n")
	b.WriteString("Format your reply using short paragraphs and clear bullet points (use • for bullets).\n\n")
	b.WriteString("User details:\n")
	fmt.Fprintf(&b, "- Business type: %s\n", profile.Business)
	fmt.Fprintf(&b, "- Bio: %s\n\n", profile.Bio)
	fmt.Fprintf(&b, "Relevant trends: %s\n\n", relevant)
	fmt.Fprintf(&b, "User query: \"%s\"\n\n", message)
	b.WriteString("Respond in under 120 words.\n")
	b.WriteString("End with an encouraging line like \"You're doing great, let's build this together 💪\".\n")
	return b.String()
}

// RelevantTrends keeps trends whose category contains the business, or whose
// category or keywords appear in message. Matching ignores case.
func RelevantTrends(trends []models.Trend, business, message string) []models.Trend {
	business = strings.ToLower(strings.TrimSpace(business))
	text := strings.ToLower(message)

	var out []models.Trend
	for _, t := range trends {
		category := strings.ToLower(t.Category)
		switch {
		case business != "" && strings.Contains(category, business):
			out = append(out, t)
		case category != "" && strings.Contains(text, category):
			out = append(out, t)
		case mentionsKeyword(text, t.Keywords):
			out = append(out, t)
		}
	}
	return out
}

func mentionsKeyword(text string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

var collaborationKeywords = []string{"partner", "hire", "collaborate", "team up", "join"}

// IsCollaborationRequest reports whether msg asks for partners or hires.
func IsCollaborationRequest(msg string) bool {
	lower := strings.ToLower(msg)
	for _, k := range collaborationKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

const maxPartners = 3

// PartnerReply lists up to three community members other than the user.
func PartnerReply(community []models.CommunityMember, userName string) string {
	lines := make([]string, 0, maxPartners)
	for _, m := range community {
		if m.Name == userName {
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s from %s - %s", m.Name, m.City, m.Product))
		if len(lines) == maxPartners {
			break
		}
	}

	return "Let me help you find potential collaborators!\n\n" +
		"Here are some entrepreneurs you might want to connect with:\n\n" +
		strings.Join(lines, "\n") +
		"\n\nWould you like specific advice about approaching these potential partners?"
}

// Greeting is the first bot line of a fresh conversation.
func Greeting(profile models.Profile) string {
	business := profile.Business
	if business == "" {
		business = "small"
	}
	return fmt.Sprintf("Hi %s! I'm your AI business coach. How can I help you grow your %s business today?", profile.Name, business)
}

// GenericTips are the rotating closers of the suggestion list.
var GenericTips = []string{
	"Define a simple weekly content plan (1 product post, 1 story, 1 customer quote).",
	"Bundle 2+ items for a limited-time offer to increase average order value.",
	"Ask 3 recent customers for a short testimonial; share with a photo.",
	"Offer local delivery/pickup and mention city name in posts for discovery.",
}

// Suggestions is the offline advice list for a business description: what was read,
// up to two matching trends, an audience hook and one generic tip chosen by pick.
// A nil pick chooses at random.
func Suggestions(trends []models.Trend, businessText string, pick func(n int) int) []string {
	if pick == nil {
		pick = rand.IntN
	}

	matched := RelevantTrends(trends, "", strings.TrimSpace(businessText))
	trendText := "No direct trends matched, but you can still ride seasonal moments and local events."
	if len(matched) > 0 {
		if len(matched) > 2 {
			matched = matched[:2]
		}
		parts := make([]string, 0, len(matched))
		for _, t := range matched {
			parts = append(parts, fmt.Sprintf("%s (%s)", t.Name, t.Momentum))
		}
		trendText = "Trending insight: " + strings.Join(parts, ", ") + ". Consider aligning your offer or content with these."
	}

	return []string{
		fmt.Sprintf("I read: \"%s\"", businessText),
		trendText,
		"Audience hook: Share your origin story in 3 lines and a photo.",
		GenericTips[pick(len(GenericTips))],
	}
}

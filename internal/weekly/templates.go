package weekly

import (
	"strings"
	"unicode/utf8"
)

// Insight template keys.
const (
	TemplateBiggestGrowth  = "biggest_growth"
	TemplateBiggestDecline = "biggest_decline"
	TemplatePostingContext = "decline_posting_context"
	TemplateTopPerformer   = "top_performer"
	TemplateAnomaly        = "anomaly"
	TemplateRecommendation = "recommendation"
)

// Template is a title and body with {name} placeholders.
type Template struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Templates maps insight types to their text.
type Templates map[string]Template

// DefaultTemplates returns the built-in insight texts.
func DefaultTemplates() Templates {
	return Templates{
		TemplateBiggestGrowth: {
			Title: "Biggest Growth: {platform}",
			Body:  "{platform} {metric} grew {change}% week over week ({previous} to {current}).",
		},
		TemplateBiggestDecline: {
			Title: "Biggest Decline: {platform}",
			Body:  "{platform} {metric} fell {change}% week over week ({previous} to {current}).",
		},
		TemplatePostingContext: {
			Body: " Posting frequency also dropped from {posts_previous} to {posts_current} posts.",
		},
		TemplateTopPerformer: {
			Title: "Top Performer",
			Body:  "The top post this week was on {platform} with {engagements} engagements: \"{snippet}\"",
		},
		TemplateAnomaly: {
			Title: "Unusual {direction} on {platform}",
			Body:  "{platform} engagements of {current} are {deviations} standard deviations from the 4-week average of {mean}.",
		},
		TemplateRecommendation: {
			Title: "Recommendation",
			Body:  "{low_platform} had the lowest engagement rate this week ({low_rate}%) while {high_platform} led with {high_rate}%. Consider adapting what works on {high_platform}.",
		},
	}
}

// WithDefaults returns t with missing keys, titles and bodies taken from
// DefaultTemplates.
func (t Templates) WithDefaults() Templates {
	out := DefaultTemplates()
	for key, tmpl := range t {
		base := out[key]
		if tmpl.Title != "" {
			base.Title = tmpl.Title
		}
		if tmpl.Body != "" {
			base.Body = tmpl.Body
		}
		out[key] = base
	}
	return out
}

// Fill replaces every {name} in text with values[name]. Unknown placeholders
// are left in place.
func Fill(text string, values map[string]string) string {
	if len(values) == 0 || !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Snippet shortens content to at most n runes on a single line.
func Snippet(content string, n int) string {
	s := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "..."
}

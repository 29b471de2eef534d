// Package attribution matches post text to configured shows and brand
// hashtags.
package attribution

import (
	"regexp"
	"strings"

	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

type showPatterns struct {
	id       string
	hashtags []*regexp.Regexp
	keywords []*regexp.Regexp
}

// Matcher holds compiled show and brand patterns. It is safe for concurrent
// use.
type Matcher struct {
	shows []showPatterns
	brand []*regexp.Regexp
}

// hashtagPattern matches #tag when the next character cannot extend the tag:
// anything but a letter, digit or underscore, or the end of the text.
func hashtagPattern(tag string) *regexp.Regexp {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)#` + regexp.QuoteMeta(tag) + `(?:[^\w]|$)`)
}

// keywordPattern matches the keyword as a whole word or phrase.
func keywordPattern(keyword string) *regexp.Regexp {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
}

func compileAll(items []string, compile func(string) *regexp.Regexp) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, item := range items {
		if re := compile(item); re != nil {
			out = append(out, re)
		}
	}
	return out
}

// NewMatcher compiles the patterns of every show and brand hashtag.
func NewMatcher(shows []registry.Show, brandHashtags []string) *Matcher {
	m := &Matcher{brand: compileAll(brandHashtags, hashtagPattern)}
	for _, s := range shows {
		m.shows = append(m.shows, showPatterns{
			id:       s.ID,
			hashtags: compileAll(s.Hashtags, hashtagPattern),
			keywords: compileAll(s.Keywords, keywordPattern),
		})
	}
	return m
}

// FromRegistry builds a matcher over the registry's shows and brand hashtags.
func FromRegistry(r *registry.Registry) *Matcher {
	return NewMatcher(r.Shows(), r.BrandHashtags())
}

func anyMatch(patterns []*regexp.Regexp, content string) bool {
	for _, re := range patterns {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// AttributePostToShows returns the ids of every show whose hashtags or, failing
// those, keywords appear in content. Ids follow configuration order. No match
// yields an empty, non-nil slice.
func (m *Matcher) AttributePostToShows(content string) []string {
	ids := []string{}
	if content == "" {
		return ids
	}
	for _, s := range m.shows {
		if anyMatch(s.hashtags, content) || anyMatch(s.keywords, content) {
			ids = append(ids, s.id)
		}
	}
	return ids
}

// GetAttributedPosts groups posts by matched show. A post matching several
// shows appears under each of them.
func (m *Matcher) GetAttributedPosts(posts []model.Post) map[string][]model.Post {
	out := make(map[string][]model.Post)
	for _, p := range posts {
		for _, id := range m.AttributePostToShows(p.Content) {
			out[id] = append(out[id], p)
		}
	}
	return out
}

// Counts splits posts into those matching at least one show and the rest.
type Counts struct {
	Attributed   int `json:"attributed"`
	Unattributed int `json:"unattributed"`
}

// CountAttributedPosts counts attributed and unattributed posts.
func (m *Matcher) CountAttributedPosts(posts []model.Post) Counts {
	var c Counts
	for _, p := range posts {
		if len(m.AttributePostToShows(p.Content)) > 0 {
			c.Attributed++
		} else {
			c.Unattributed++
		}
	}
	return c
}

// IsBrandPost reports whether content carries a brand hashtag.
func (m *Matcher) IsBrandPost(content string) bool {
	return anyMatch(m.brand, content)
}

// TalentPost is a talent-authored post with its attribution.
type TalentPost struct {
	model.Post
	Shows []string `json:"shows"`
	Brand bool     `json:"brand"`
}

// Mentions reports whether the post advocates the brand or any show.
func (tp TalentPost) Mentions() bool {
	return tp.Brand || len(tp.Shows) > 0
}

// AttributeTalentPosts dedupes posts carrying a talent id and tags each with
// its shows and brand flag. Posts without a talent id are ignored.
func (m *Matcher) AttributeTalentPosts(posts []model.Post) []TalentPost {
	var talentPosts []model.Post
	for _, p := range posts {
		if p.TalentID != "" {
			talentPosts = append(talentPosts, p)
		}
	}
	deduped := DedupeTalentPosts(talentPosts)
	out := make([]TalentPost, len(deduped))
	for i, p := range deduped {
		out[i] = TalentPost{
			Post:  p,
			Shows: m.AttributePostToShows(p.Content),
			Brand: m.IsBrandPost(p.Content),
		}
	}
	return out
}

// Fingerprint identifies a talent post by author, platform and normalized
// content.
func Fingerprint(p model.Post) string {
	return p.TalentID + "|" + p.Platform + "|" + normalizeContent(p.Content)
}

func normalizeContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DedupeTalentPosts drops re-ingested copies of the same talent post, keeping
// the copy with more engagements. Ties keep the first seen. Output order
// follows first occurrence.
func DedupeTalentPosts(posts []model.Post) []model.Post {
	index := make(map[string]int, len(posts))
	var out []model.Post
	for _, p := range posts {
		key := Fingerprint(p)
		if i, ok := index[key]; ok {
			if p.Engagements > out[i].Engagements {
				out[i] = p
			}
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

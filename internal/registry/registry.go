// Package registry provides read-only lookup of platform metadata and
// show/talent configuration.
package registry

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/TobiSchelling/SocialPulse/internal/config"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
)

const defaultColor = "#94A3B8"

// titleCase builds a fresh caser per call; a cases.Caser must not be shared
// between goroutines.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// Platform describes a social platform the dashboard tracks.
type Platform struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Handle  string `json:"handle"`
	RateKey string `json:"rate_key"`
}

// Show is a programme whose posts are matched by hashtags and keywords.
type Show struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Hashtags []string `json:"hashtags"`
	Keywords []string `json:"keywords"`
}

// Talent is a person whose own accounts are tracked for advocacy.
type Talent struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Color    string            `json:"color"`
	Accounts map[string]string `json:"accounts"`
}

// HasPlatform reports whether the talent has an account on platform.
func (t Talent) HasPlatform(platform string) bool {
	_, ok := t.Accounts[platform]
	return ok
}

// Registry is an immutable index over configured entities.
type Registry struct {
	platforms     []Platform
	platformIndex map[string]int
	shows         []Show
	showIndex     map[string]int
	talent        []Talent
	talentIndex   map[string]int
	brandHashtags []string
	rates         emv.RateTable
	currency      string
}

// New builds a registry from entity lists. Order is preserved.
func New(platforms []Platform, shows []Show, talent []Talent, brandHashtags []string) *Registry {
	r := &Registry{
		platformIndex: make(map[string]int, len(platforms)),
		showIndex:     make(map[string]int, len(shows)),
		talentIndex:   make(map[string]int, len(talent)),
		brandHashtags: brandHashtags,
	}
	for _, p := range platforms {
		if _, dup := r.platformIndex[p.ID]; dup || p.ID == "" {
			continue
		}
		if p.Name == "" {
			p.Name = titleCase(p.ID)
		}
		if p.Color == "" {
			p.Color = defaultColor
		}
		if p.RateKey == "" {
			p.RateKey = p.ID
		}
		r.platformIndex[p.ID] = len(r.platforms)
		r.platforms = append(r.platforms, p)
	}
	for _, s := range shows {
		if _, dup := r.showIndex[s.ID]; dup || s.ID == "" {
			continue
		}
		if s.Name == "" {
			s.Name = titleCase(s.ID)
		}
		r.showIndex[s.ID] = len(r.shows)
		r.shows = append(r.shows, s)
	}
	for _, t := range talent {
		if _, dup := r.talentIndex[t.ID]; dup || t.ID == "" {
			continue
		}
		if t.Name == "" {
			t.Name = titleCase(t.ID)
		}
		r.talentIndex[t.ID] = len(r.talent)
		r.talent = append(r.talent, t)
	}
	return r
}

// FromConfig builds a registry and its rate table from the loaded config.
func FromConfig(cfg *config.Config) *Registry {
	platforms := make([]Platform, len(cfg.Platforms))
	for i, p := range cfg.Platforms {
		platforms[i] = Platform{ID: p.ID, Name: p.Name, Color: p.Color, Handle: p.Handle, RateKey: p.RateKey}
	}
	shows := make([]Show, len(cfg.Shows))
	for i, s := range cfg.Shows {
		shows[i] = Show{ID: s.ID, Name: s.Name, Color: s.Color, Hashtags: s.Hashtags, Keywords: s.Keywords}
	}
	talent := make([]Talent, len(cfg.Talent))
	for i, t := range cfg.Talent {
		talent[i] = Talent{ID: t.ID, Name: t.Name, Color: t.Color, Accounts: t.Accounts}
	}
	r := New(platforms, shows, talent, cfg.BrandHashtags)
	r.rates = emv.RateTable(cfg.EMV.Rates)
	r.currency = cfg.EMV.Currency
	return r
}

// Calculator returns an EMV calculator bound to the registry's rate table and
// platform rate keys.
func (r *Registry) Calculator() *emv.Calculator {
	return emv.NewCalculator(r.rates, r.RateKeys(), r.currency)
}

// Platforms returns all configured platforms in configuration order.
func (r *Registry) Platforms() []Platform {
	return r.platforms
}

// PlatformIDs returns the configured platform ids in order.
func (r *Registry) PlatformIDs() []string {
	ids := make([]string, len(r.platforms))
	for i, p := range r.platforms {
		ids[i] = p.ID
	}
	return ids
}

// Platform looks up a platform. Unknown ids yield a placeholder entry and false.
func (r *Registry) Platform(id string) (Platform, bool) {
	if i, ok := r.platformIndex[id]; ok {
		return r.platforms[i], true
	}
	return Platform{ID: id, Name: titleCase(id), Color: defaultColor, RateKey: id}, false
}

// PlatformName returns the display name for id.
func (r *Registry) PlatformName(id string) string {
	p, _ := r.Platform(id)
	return p.Name
}

// RateKeys maps platform ids to their EMV rate table keys.
func (r *Registry) RateKeys() map[string]string {
	keys := make(map[string]string, len(r.platforms))
	for _, p := range r.platforms {
		keys[p.ID] = p.RateKey
	}
	return keys
}

// Shows returns all configured shows.
func (r *Registry) Shows() []Show {
	return r.shows
}

// Show looks up a show by id.
func (r *Registry) Show(id string) (Show, bool) {
	if i, ok := r.showIndex[id]; ok {
		return r.shows[i], true
	}
	return Show{}, false
}

// Talent returns all configured talent.
func (r *Registry) Talent() []Talent {
	return r.talent
}

// TalentByID looks up a talent entry by id.
func (r *Registry) TalentByID(id string) (Talent, bool) {
	if i, ok := r.talentIndex[id]; ok {
		return r.talent[i], true
	}
	return Talent{}, false
}

// BrandHashtags returns the hashtags that mark a post as brand advocacy.
func (r *Registry) BrandHashtags() []string {
	return r.brandHashtags
}

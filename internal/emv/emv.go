// Package emv converts engagement counts into Earned Media Value using
// per-platform rate tables.
package emv

import (
	"github.com/shopspring/decimal"

	"github.com/TobiSchelling/SocialPulse/internal/model"
)

// Action is a countable engagement action.
type Action string

const (
	Views       Action = "views"
	Impressions Action = "impressions"
	Likes       Action = "likes"
	Comments    Action = "comments"
	Shares      Action = "shares"
	Saves       Action = "saves"
	Clicks      Action = "clicks"
	Retweets    Action = "retweets"
	Replies     Action = "replies"
	Subscribes  Action = "subscribes"
	StoryViews  Action = "storyViews"
	ReelViews   Action = "reelViews"
)

// Counts is a sparse record of action counts. Absent actions count as zero.
type Counts map[Action]float64

// RateTable maps a platform rate key to rate name to currency units per action.
type RateTable map[string]map[string]float64

type bucket int

const (
	bucketViews bucket = iota
	bucketLikes
	bucketComments
	bucketShares
	bucketOther
)

type actionSpec struct {
	action Action
	rate   string
	bucket bucket
}

// actions lists every valued action with its rate name and breakdown bucket.
var actions = []actionSpec{
	{Views, "view", bucketViews},
	{Impressions, "impression", bucketViews},
	{StoryViews, "story_view", bucketViews},
	{ReelViews, "reel_view", bucketViews},
	{Likes, "like", bucketLikes},
	{Comments, "comment", bucketComments},
	{Shares, "share", bucketShares},
	{Retweets, "retweet", bucketShares},
	{Saves, "save", bucketOther},
	{Clicks, "click", bucketOther},
	{Replies, "reply", bucketOther},
	{Subscribes, "subscribe", bucketOther},
}

// Breakdown splits an EMV total into the five canonical categories.
type Breakdown struct {
	Views    float64 `json:"views"`
	Likes    float64 `json:"likes"`
	Comments float64 `json:"comments"`
	Shares   float64 `json:"shares"`
	Other    float64 `json:"other"`
}

// Total returns the sum of all categories.
func (b Breakdown) Total() float64 {
	return b.Views + b.Likes + b.Comments + b.Shares + b.Other
}

// Add returns the category-wise sum of b and o.
func (b Breakdown) Add(o Breakdown) Breakdown {
	return Breakdown{
		Views:    b.Views + o.Views,
		Likes:    b.Likes + o.Likes,
		Comments: b.Comments + o.Comments,
		Shares:   b.Shares + o.Shares,
		Other:    b.Other + o.Other,
	}
}

// Calculator values engagement counts with a rate table.
type Calculator struct {
	rates    RateTable
	keys     map[string]string
	currency string
}

// NewCalculator creates a calculator. keys maps platform ids to rate table
// keys; platforms without an entry use their own id.
func NewCalculator(rates RateTable, keys map[string]string, currency string) *Calculator {
	if rates == nil {
		rates = RateTable{}
	}
	return &Calculator{rates: rates, keys: keys, currency: currency}
}

// Currency returns the currency code the rates are expressed in.
func (c *Calculator) Currency() string {
	return c.currency
}

func (c *Calculator) rateKey(platform string) string {
	if k, ok := c.keys[platform]; ok && k != "" {
		return k
	}
	return platform
}

func (c *Calculator) buckets(platform string, counts Counts) [5]decimal.Decimal {
	var sums [5]decimal.Decimal
	rates := c.rates[c.rateKey(platform)]
	for _, spec := range actions {
		count, ok := counts[spec.action]
		if !ok || count == 0 {
			continue
		}
		rate, ok := rates[spec.rate]
		if !ok || rate == 0 {
			continue
		}
		value := decimal.NewFromFloat(count).Mul(decimal.NewFromFloat(rate))
		sums[spec.bucket] = sums[spec.bucket].Add(value)
	}
	return sums
}

// Calculate returns the flat EMV of counts on platform.
func (c *Calculator) Calculate(platform string, counts Counts) float64 {
	var total decimal.Decimal
	for _, v := range c.buckets(platform, counts) {
		total = total.Add(v)
	}
	return total.InexactFloat64()
}

// Breakdown returns the EMV of counts on platform split into categories.
// The categories sum to Calculate for the same input.
func (c *Calculator) Breakdown(platform string, counts Counts) Breakdown {
	sums := c.buckets(platform, counts)
	return Breakdown{
		Views:    sums[bucketViews].InexactFloat64(),
		Likes:    sums[bucketLikes].InexactFloat64(),
		Comments: sums[bucketComments].InexactFloat64(),
		Shares:   sums[bucketShares].InexactFloat64(),
		Other:    sums[bucketOther].InexactFloat64(),
	}
}

// PostEMV returns the stored EMV of a post, re-deriving it from raw counts
// when none was stored.
func (c *Calculator) PostEMV(p model.Post) float64 {
	if p.EMV != 0 {
		return p.EMV
	}
	return c.Calculate(p.Platform, PostCounts(p))
}

// DailyCounts maps a daily metric row onto action counts.
func DailyCounts(r model.DailyMetricRow) Counts {
	return Counts{
		Views:       float64(r.VideoViews),
		Impressions: float64(r.Impressions),
		Likes:       float64(r.Reactions),
		Comments:    float64(r.Comments),
		Shares:      float64(r.Shares),
		Saves:       float64(r.Saves),
		Clicks:      float64(r.Clicks),
	}
}

// PostCounts maps a post onto action counts.
func PostCounts(p model.Post) Counts {
	return Counts{
		Views:       float64(p.VideoViews),
		Impressions: float64(p.Impressions),
		Likes:       float64(p.Reactions),
		Comments:    float64(p.Comments),
		Shares:      float64(p.Shares),
		Saves:       float64(p.Saves),
		Clicks:      float64(p.Clicks),
	}
}

// Merge adds every count of o into c.
func (c Counts) Merge(o Counts) {
	for k, v := range o {
		c[k] += v
	}
}

// FormatMoney renders an amount with two decimals and the currency code,
// e.g. "ZAR 1234.50".
func FormatMoney(amount float64, currency string) string {
	s := decimal.NewFromFloat(amount).StringFixed(2)
	if currency == "" {
		return s
	}
	return currency + " " + s
}

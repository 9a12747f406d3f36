package entity

import (
	"strings"
	"time"
)

// MinChunkLength is the minimal trimmed chunk length accepted into the corpus.
const MinChunkLength = 100

// Chunk is a contiguous span of a source document together with its embedding.
type Chunk struct {
	ID            string    `json:"id,omitempty"`
	Source        string    `json:"source"`
	County        string    `json:"county"`
	ChunkIndex    int       `json:"chunkIndex"`
	Text          string    `json:"text"`
	WordCount     int       `json:"wordCount,omitempty"`
	Page          *int      `json:"page,omitempty"`
	Embedding     []float32 `json:"embedding"`
	TokenEstimate int       `json:"tokenEstimate,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}

// ScoredResult is a chunk paired with its similarity to a query.
type ScoredResult struct {
	Chunk
	Score float64 `json:"score"`
}

// SourceSummary describes one ingested source document.
type SourceSummary struct {
	Source     string    `json:"source"`
	County     string    `json:"county"`
	ChunkCount int       `json:"chunkCount"`
	IngestedAt time.Time `json:"ingestedAt"`
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionNone     SubscriptionStatus = "none"
)

// Profile is the subscription and usage state of a user.
type Profile struct {
	UserID             string             `json:"userId"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	Plan               string             `json:"plan"`
	RequestsUsed       int                `json:"requestsUsed"`
	RequestsLimit      int                `json:"requestsLimit"`
	UsagePeriodEnd     time.Time          `json:"usagePeriodEnd"`
}

func (p *Profile) HasActiveSubscription() bool {
	return p.SubscriptionStatus == SubscriptionActive || p.SubscriptionStatus == SubscriptionTrialing
}

// UsageExhausted reports whether the user spent the allowance of the current period.
// A zero limit means the plan is unlimited. An ended period counts as fresh because
// the next IncrementUsage rolls it over.
func (p *Profile) UsageExhausted(now time.Time) bool {
	if p.RequestsLimit <= 0 {
		return false
	}
	if !p.UsagePeriodEnd.IsZero() && now.After(p.UsagePeriodEnd) {
		return false
	}
	return p.RequestsUsed >= p.RequestsLimit
}

// RollUsagePeriod starts a fresh monthly allowance once the current period has ended.
// It reports whether the period moved. Profiles without a period end are left alone.
func (p *Profile) RollUsagePeriod(now time.Time) bool {
	if p.UsagePeriodEnd.IsZero() || !now.After(p.UsagePeriodEnd) {
		return false
	}
	end := p.UsagePeriodEnd
	for !end.After(now) {
		end = end.AddDate(0, 1, 0)
	}
	p.UsagePeriodEnd = end
	p.RequestsUsed = 0
	return true
}

// County is an entry of the supported jurisdictions catalog.
type County struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	State string `json:"state" yaml:"state"`
}

// NormalizeCounty maps user input onto the catalog tag format.
func NormalizeCounty(county string) string {
	return strings.ToLower(strings.TrimSpace(county))
}

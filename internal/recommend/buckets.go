package recommend

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/catalog"
	"github.com/bloemhof/grocer-cli/internal/config"
	"github.com/bloemhof/grocer-cli/internal/matcher"
	"github.com/bloemhof/grocer-cli/pkg/anthropic"
)

// Classifier groups catalog entries into named buckets by keyword, the
// model-free path used for offline inspection and as a fallback when the
// model output cannot be parsed.
type Classifier struct {
	cfg config.BucketsConfig
}

// NewClassifier creates a Classifier from the configured keyword map.
func NewClassifier(cfg config.BucketsConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Bucket is one named group of catalog titles.
type Bucket struct {
	Name   string   `json:"name"`
	Titles []string `json:"titles"`
}

// Classify assigns every entry whose title contains a bucket keyword to that
// bucket, capped at MaxPerBucket per bucket. An entry can land in multiple
// buckets; unmatched entries are dropped. Buckets come back sorted by name
// so output is stable.
func (c *Classifier) Classify(ix *catalog.Index) []Bucket {
	byName := make(map[string][]string, len(c.cfg.Keywords))

	for _, entry := range ix.Candidates() {
		title := matcher.Normalize(entry.Title)
		for name, keywords := range c.cfg.Keywords {
			if c.cfg.MaxPerBucket > 0 && len(byName[name]) >= c.cfg.MaxPerBucket {
				continue
			}
			if containsAny(title, keywords) {
				byName[name] = append(byName[name], entry.Title)
			}
		}
	}

	buckets := make([]Bucket, 0, len(byName))
	for name, titles := range byName {
		buckets = append(buckets, Bucket{Name: name, Titles: titles})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets
}

func containsAny(title string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(title, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

const bucketSystemPrompt = `You are a grocery catalog organizer for a Dutch supermarket.
Group the provided products into meal-planning buckets (zuivel, vlees, groente, fruit, brood, voorraad, ...).
Respond with ONLY a valid JSON array, no other text:
[{"name": "bucket name", "titles": ["exact catalog title"]}]`

// GenerateBuckets asks the model to group the catalog into buckets. On a
// request or parse failure the keyword classifier takes over, so callers
// always get a usable grouping.
func (r *Recommender) GenerateBuckets(ctx context.Context, fallback *Classifier) []Bucket {
	resp, err := r.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.cfg.Model,
		MaxTokens: int64(r.cfg.MaxTokens),
		System:    bucketSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: "Catalog:\n" + catalogPrompt(r.index)}},
	})
	if err != nil {
		zap.L().Warn("bucket generation failed, using keyword classifier", zap.Error(err))
		return fallback.Classify(r.index)
	}
	resp.Usage.LogCost(r.cfg.Model, "buckets")

	buckets, err := parseBuckets(resp.Text())
	if err != nil {
		zap.L().Warn("bucket response unparsable, using keyword classifier", zap.Error(err))
		return fallback.Classify(r.index)
	}
	return buckets
}

func parseBuckets(text string) ([]Bucket, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, eris.Errorf("recommend: no JSON array in bucket response: %.120s", text)
	}

	var buckets []Bucket
	if err := json.Unmarshal([]byte(text[start:end+1]), &buckets); err != nil {
		return nil, eris.Wrap(err, "recommend: decode buckets")
	}

	out := buckets[:0]
	for _, b := range buckets {
		if strings.TrimSpace(b.Name) != "" && len(b.Titles) > 0 {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, eris.New("recommend: bucket response held no buckets")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

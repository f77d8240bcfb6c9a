// Package recommend produces desired-item lists: an LLM proposes items from
// the loaded catalog for a textual requirement, and a keyword bucket
// classifier serves as the model-free fallback.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/catalog"
	"github.com/bloemhof/grocer-cli/internal/config"
	"github.com/bloemhof/grocer-cli/internal/model"
	"github.com/bloemhof/grocer-cli/pkg/anthropic"
)

// maxPromptProducts bounds how much of the catalog is shown to the model.
const maxPromptProducts = 150

const systemPrompt = `You are a grocery shopping assistant for a Dutch supermarket.
You select products from the provided catalog to satisfy the user's requirement.
Prefer discounted (bonus) products. Respond with ONLY a valid JSON array, no other text:
[{"title": "exact catalog title", "quantity": 1, "reason": "why"}]`

// Recommender asks the model for shopping suggestions grounded in the
// catalog index. It implements reconcile.Recommender.
type Recommender struct {
	client anthropic.Client
	cfg    config.AnthropicConfig
	index  *catalog.Index
}

// New creates a Recommender over the given client and catalog index.
func New(client anthropic.Client, cfg config.AnthropicConfig, index *catalog.Index) *Recommender {
	return &Recommender{client: client, cfg: cfg, index: index}
}

// Suggest produces the initial desired-item list for a requirement and a
// monetary target.
func (r *Recommender) Suggest(ctx context.Context, requirement string, target float64) ([]model.DesiredItem, error) {
	user := fmt.Sprintf(
		"Requirement: %s\nBudget target: at least €%.2f in total.\n\nCatalog:\n%s",
		requirement, target, catalogPrompt(r.index))
	return r.ask(ctx, user)
}

// Refine produces a fresh list given the current cart state and the gap
// still to close. Items already in the cart are listed so the model avoids
// proposing them again.
func (r *Recommender) Refine(ctx context.Context, requirement string, snap model.CartSnapshot, gap float64) ([]model.DesiredItem, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Requirement: %s\n", requirement)
	fmt.Fprintf(&sb, "The cart currently totals €%.2f and needs about €%.2f more.\n", snap.TotalAmount, gap)
	if snap.Partial {
		sb.WriteString("The cart already holds items that could not be listed; prefer staples that tolerate duplication.\n")
	} else if len(snap.Titles) > 0 {
		sb.WriteString("Already in the cart, do not propose again:\n")
		for _, title := range snap.Titles {
			fmt.Fprintf(&sb, "- %s\n", title)
		}
	}
	fmt.Fprintf(&sb, "\nCatalog:\n%s", catalogPrompt(r.index))

	return r.ask(ctx, sb.String())
}

func (r *Recommender) ask(ctx context.Context, user string) ([]model.DesiredItem, error) {
	resp, err := r.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.cfg.Model,
		MaxTokens: int64(r.cfg.MaxTokens),
		System:    systemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "recommend: claude request")
	}
	resp.Usage.LogCost(r.cfg.Model, "recommend")

	items, err := parseItems(resp.Text())
	if err != nil {
		return nil, err
	}
	zap.L().Info("recommendations received", zap.Int("items", len(items)))
	return items, nil
}

// parseItems extracts the JSON array from the model's reply, which may carry
// surrounding prose.
func parseItems(text string) ([]model.DesiredItem, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, eris.Errorf("recommend: no JSON array in response: %.120s", text)
	}

	var items []model.DesiredItem
	if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
		return nil, eris.Wrap(err, "recommend: decode items")
	}

	// Untitled lines are model noise, not actionable items.
	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Title) != "" {
			out = append(out, it)
		}
	}
	return out, nil
}

// catalogPrompt renders the index for the prompt, bonus entries first,
// truncated to keep token usage bounded.
func catalogPrompt(ix *catalog.Index) string {
	var sb strings.Builder
	count := 0
	for _, e := range ix.Candidates() {
		if count >= maxPromptProducts {
			break
		}
		fmt.Fprintf(&sb, "- %s", e.Title)
		if e.Price != "" {
			fmt.Fprintf(&sb, " (€%s)", e.Price)
		}
		if e.DiscountPercent > 0 {
			fmt.Fprintf(&sb, " [%d%% off]", e.DiscountPercent)
		}
		if e.PromotionQuantity > 1 {
			fmt.Fprintf(&sb, " [buy %d]", e.PromotionQuantity)
		}
		sb.WriteString("\n")
		count++
	}
	return sb.String()
}

// Package discovery implements the Discovery Agent (spec.md §4.8):
// browsing categories, the subcategories under a category, the rate
// cards under a subcategory, service details for a rate card, catalog
// search with filters, and keyword-based recommendations.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/converge-ai/convergeai/agent"
	"github.com/converge-ai/convergeai/intent"
	"github.com/converge-ai/convergeai/store"
)

// searchLimit and recommendLimit are spec.md §4.8's result caps.
const (
	searchLimit    = 20
	recommendLimit = 5
)

// Agent implements agent.Handler for service_inquiry and price_inquiry.
type Agent struct {
	Store *store.Store
}

var _ agent.Handler = (*Agent)(nil)

// Execute dispatches on the entities the classifier extracted: a
// rate_card_id drills into service details, a search-shaped utterance
// (pincode/max_price/min_price present) runs a catalog search, a
// subcategory_id or category_id browses one level down, and anything
// else lists the top-level categories (spec.md §4.8).
func (a *Agent) Execute(ctx context.Context, in agent.Input) agent.Outcome {
	if raw, ok := in.Entities["rate_card_id"]; ok {
		if id, ok := parseID(raw); ok {
			return a.serviceDetails(ctx, id)
		}
	}

	if in.Intent == intent.IntentPriceInquiry || looksLikeSearch(in.Entities) {
		return a.search(ctx, in)
	}

	if raw, ok := in.Entities["subcategory_id"]; ok {
		if id, ok := parseID(raw); ok {
			return a.browseRateCards(ctx, id)
		}
	}
	if raw, ok := in.Entities["category_id"]; ok {
		if id, ok := parseID(raw); ok {
			return a.browseSubcategories(ctx, id)
		}
	}
	return a.browseCategories(ctx)
}

func looksLikeSearch(entities map[string]string) bool {
	_, hasPincode := entities["pincode"]
	_, hasMax := entities["max_price"]
	_, hasMin := entities["min_price"]
	return hasPincode || hasMax || hasMin
}

func parseID(s string) (uint64, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parsePrice(s string) (store.Money, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return store.NewMoney(f), true
}

func (a *Agent) browseCategories(ctx context.Context) agent.Outcome {
	cats, err := a.Store.Categories(ctx, true)
	if err != nil {
		return agent.Outcome{ReplyText: "I couldn't load our services right now.", Err: err}
	}
	if len(cats) == 0 {
		return agent.Outcome{ReplyText: "We don't have any active service categories at the moment."}
	}
	var sb strings.Builder
	sb.WriteString("Here's what we offer:\n")
	for _, c := range cats {
		fmt.Fprintf(&sb, "- %s (category #%d)\n", c.Name, c.ID)
	}
	return agent.Outcome{ReplyText: sb.String(), ActionTaken: "browse_categories"}
}

func (a *Agent) browseSubcategories(ctx context.Context, categoryID uint64) agent.Outcome {
	subs, err := a.Store.Driver.ListSubcategories(ctx, store.FindSubcategories{CategoryID: &categoryID, ActiveOnly: true})
	if err != nil {
		return agent.Outcome{ReplyText: "I couldn't load that category right now.", Err: err}
	}
	if len(subs) == 0 {
		return agent.Outcome{ReplyText: "That category doesn't have any active subcategories right now.", ActionTaken: "browse_subcategories"}
	}
	var sb strings.Builder
	sb.WriteString("Here's what's under that category:\n")
	for _, s := range subs {
		fmt.Fprintf(&sb, "- %s (subcategory #%d)\n", s.Name, s.ID)
	}
	return agent.Outcome{ReplyText: sb.String(), ActionTaken: "browse_subcategories"}
}

func (a *Agent) browseRateCards(ctx context.Context, subcategoryID uint64) agent.Outcome {
	cards, err := a.Store.Driver.ListRateCards(ctx, store.FindRateCards{SubcategoryID: subcategoryID, ActiveOnly: true})
	if err != nil {
		return agent.Outcome{ReplyText: "I couldn't load that subcategory right now.", Err: err}
	}
	if len(cards) == 0 {
		return agent.Outcome{ReplyText: "That subcategory doesn't have any active services right now.", ActionTaken: "browse_rate_cards"}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Price < cards[j].Price })
	var sb strings.Builder
	sb.WriteString("Here's what's available, starting from the most affordable:\n")
	for _, rc := range cards {
		fmt.Fprintf(&sb, "- %s: %s (rate card #%d)\n", rc.Name, rc.Price, rc.ID)
	}
	return agent.Outcome{ReplyText: sb.String(), ActionTaken: "browse_rate_cards"}
}

func (a *Agent) serviceDetails(ctx context.Context, rateCardID uint64) agent.Outcome {
	rc, err := a.Store.Driver.GetRateCard(ctx, rateCardID)
	if err != nil {
		return agent.Outcome{ReplyText: "I couldn't find that service.", Err: err}
	}
	reply := fmt.Sprintf("%s: %s, takes about %d minutes.", rc.Name, rc.Price, rc.DurationMins)
	return agent.Outcome{ReplyText: reply, ActionTaken: "service_details"}
}

func (a *Agent) search(ctx context.Context, in agent.Input) agent.Outcome {
	q := store.CatalogSearch{Query: in.Entities["query"]}
	if pin, ok := in.Entities["pincode"]; ok {
		q.Pincode = &pin
	}
	if raw, ok := in.Entities["category_id"]; ok {
		if id, ok := parseID(raw); ok {
			q.CategoryID = &id
		}
	}
	if raw, ok := in.Entities["max_price"]; ok {
		if p, ok := parsePrice(raw); ok {
			q.MaxPrice = &p
		}
	}
	if raw, ok := in.Entities["min_price"]; ok {
		if p, ok := parsePrice(raw); ok {
			q.MinPrice = &p
		}
	}

	results, err := a.Store.Driver.Search(ctx, q)
	if err != nil {
		return agent.Outcome{ReplyText: "I couldn't search the catalog right now.", Err: err}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Price < results[j].Price })
	if len(results) > searchLimit {
		results = results[:searchLimit]
	}
	if len(results) == 0 {
		return agent.Outcome{ReplyText: "I couldn't find a matching service. Could you describe what you need differently?", ActionTaken: "search_empty"}
	}

	var sb strings.Builder
	sb.WriteString("Here's what I found, starting from the most affordable:\n")
	for _, rc := range results {
		fmt.Fprintf(&sb, "- %s: %s\n", rc.Name, rc.Price)
	}
	return agent.Outcome{ReplyText: sb.String(), ActionTaken: "search"}
}

// Recommend matches query as a case-insensitive substring against each
// active subcategory's name and description (spec.md §4.8), then
// returns up to recommendLimit rate cards drawn from the matched
// subcategories, ordered by ascending price.
func (a *Agent) Recommend(ctx context.Context, query string) ([]store.RateCard, error) {
	subs, err := a.Store.Driver.ListSubcategories(ctx, store.FindSubcategories{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	var matched []store.Subcategory
	for _, s := range subs {
		if needle == "" || strings.Contains(strings.ToLower(s.Name), needle) || strings.Contains(strings.ToLower(s.Description), needle) {
			matched = append(matched, s)
		}
	}

	var cards []store.RateCard
	for _, s := range matched {
		cs, err := a.Store.Driver.ListRateCards(ctx, store.FindRateCards{SubcategoryID: s.ID, ActiveOnly: true})
		if err != nil {
			return nil, err
		}
		cards = append(cards, cs...)
	}

	sort.Slice(cards, func(i, j int) bool { return cards[i].Price < cards[j].Price })
	if len(cards) > recommendLimit {
		cards = cards[:recommendLimit]
	}
	return cards, nil
}

package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converge-ai/convergeai/agent"
	"github.com/converge-ai/convergeai/intent"
	"github.com/converge-ai/convergeai/store"
)

type fakeDriver struct {
	store.Driver
	categories    []store.Category
	subcategories []store.Subcategory
	rateCards     map[uint64][]store.RateCard
	rateCardByID  map[uint64]store.RateCard
	searchQuery   store.CatalogSearch
	searchResults []store.RateCard
}

func (f *fakeDriver) ListCategories(ctx context.Context, activeOnly bool) ([]store.Category, error) {
	return f.categories, nil
}

func (f *fakeDriver) ListSubcategories(ctx context.Context, q store.FindSubcategories) ([]store.Subcategory, error) {
	if q.CategoryID == nil {
		return f.subcategories, nil
	}
	var out []store.Subcategory
	for _, s := range f.subcategories {
		if s.CategoryID == *q.CategoryID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeDriver) ListRateCards(ctx context.Context, q store.FindRateCards) ([]store.RateCard, error) {
	return f.rateCards[q.SubcategoryID], nil
}

func (f *fakeDriver) GetRateCard(ctx context.Context, id uint64) (store.RateCard, error) {
	rc, ok := f.rateCardByID[id]
	if !ok {
		return store.RateCard{}, assert.AnError
	}
	return rc, nil
}

func (f *fakeDriver) Search(ctx context.Context, q store.CatalogSearch) ([]store.RateCard, error) {
	f.searchQuery = q
	return f.searchResults, nil
}

func newTestAgent(d *fakeDriver) *Agent {
	return &Agent{Store: store.New(d, nil)}
}

func TestExecute_BrowseCategories(t *testing.T) {
	d := &fakeDriver{categories: []store.Category{{ID: 1, Name: "Cleaning", Active: true}}}
	a := newTestAgent(d)

	out := a.Execute(context.Background(), agent.Input{Intent: intent.IntentServiceInquiry, Entities: map[string]string{}})
	assert.Equal(t, "browse_categories", out.ActionTaken)
	assert.Contains(t, out.ReplyText, "Cleaning")
}

func TestExecute_BrowseSubcategoriesUnderCategory(t *testing.T) {
	d := &fakeDriver{subcategories: []store.Subcategory{{ID: 10, CategoryID: 1, Name: "Deep Cleaning", Active: true}}}
	a := newTestAgent(d)

	out := a.Execute(context.Background(), agent.Input{
		Intent:   intent.IntentServiceInquiry,
		Entities: map[string]string{"category_id": "1"},
	})
	assert.Equal(t, "browse_subcategories", out.ActionTaken)
	assert.Contains(t, out.ReplyText, "Deep Cleaning")
}

func TestExecute_BrowseRateCardsUnderSubcategory(t *testing.T) {
	d := &fakeDriver{rateCards: map[uint64][]store.RateCard{
		10: {{ID: 100, SubcategoryID: 10, Name: "Standard Clean", Price: store.NewMoney(40)}},
	}}
	a := newTestAgent(d)

	out := a.Execute(context.Background(), agent.Input{
		Intent:   intent.IntentServiceInquiry,
		Entities: map[string]string{"subcategory_id": "10"},
	})
	assert.Equal(t, "browse_rate_cards", out.ActionTaken)
	assert.Contains(t, out.ReplyText, "Standard Clean")
}

func TestExecute_ServiceDetailsForRateCard(t *testing.T) {
	d := &fakeDriver{rateCardByID: map[uint64]store.RateCard{
		100: {ID: 100, Name: "Standard Clean", Price: store.NewMoney(40), DurationMins: 90},
	}}
	a := newTestAgent(d)

	out := a.Execute(context.Background(), agent.Input{
		Intent:   intent.IntentServiceInquiry,
		Entities: map[string]string{"rate_card_id": "100"},
	})
	assert.Equal(t, "service_details", out.ActionTaken)
	assert.Contains(t, out.ReplyText, "Standard Clean")
	assert.Contains(t, out.ReplyText, "90")
}

func TestExecute_SearchWiresCategoryAndPriceFilters(t *testing.T) {
	d := &fakeDriver{searchResults: []store.RateCard{{ID: 1, Name: "Plumbing Fix", Price: store.NewMoney(60)}}}
	a := newTestAgent(d)

	out := a.Execute(context.Background(), agent.Input{
		Intent: intent.IntentServiceInquiry,
		Text:   "show me plumbing under 100 near 560001",
		Entities: map[string]string{
			"query":       "show me plumbing under 100 near 560001",
			"pincode":     "560001",
			"category_id": "3",
			"max_price":   "100",
			"min_price":   "20",
		},
	})

	assert.Equal(t, "search", out.ActionTaken)
	require.NotNil(t, d.searchQuery.CategoryID)
	assert.Equal(t, uint64(3), *d.searchQuery.CategoryID)
	require.NotNil(t, d.searchQuery.MaxPrice)
	assert.Equal(t, store.NewMoney(100), *d.searchQuery.MaxPrice)
	require.NotNil(t, d.searchQuery.MinPrice)
	assert.Equal(t, store.NewMoney(20), *d.searchQuery.MinPrice)
	require.NotNil(t, d.searchQuery.Pincode)
	assert.Equal(t, "560001", *d.searchQuery.Pincode)
}

func TestExecute_PriceInquiryAlwaysSearches(t *testing.T) {
	d := &fakeDriver{searchResults: []store.RateCard{{ID: 1, Name: "AC Repair", Price: store.NewMoney(80)}}}
	a := newTestAgent(d)

	out := a.Execute(context.Background(), agent.Input{Intent: intent.IntentPriceInquiry, Entities: map[string]string{"query": "how much for ac repair"}})
	assert.Equal(t, "search", out.ActionTaken)
}

func TestRecommend_KeywordMatchesSubcategoryNameOrDescription(t *testing.T) {
	d := &fakeDriver{
		subcategories: []store.Subcategory{
			{ID: 10, Name: "Deep Cleaning", Description: "Thorough home cleaning", Active: true},
			{ID: 11, Name: "Pest Control", Description: "Termite and rodent treatment", Active: true},
		},
		rateCards: map[uint64][]store.RateCard{
			10: {{ID: 100, SubcategoryID: 10, Name: "Full Home Clean", Price: store.NewMoney(70)}},
			11: {{ID: 101, SubcategoryID: 11, Name: "Termite Treatment", Price: store.NewMoney(90)}},
		},
	}
	a := newTestAgent(d)

	got, err := a.Recommend(context.Background(), "termite")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Termite Treatment", got[0].Name)
}

func TestRecommend_CapsAtRecommendLimitOrderedByPrice(t *testing.T) {
	var cards []store.RateCard
	for i := 0; i < recommendLimit+3; i++ {
		cards = append(cards, store.RateCard{ID: uint64(i + 1), SubcategoryID: 10, Name: "Clean", Price: store.NewMoney(float64(100 - i))})
	}
	d := &fakeDriver{
		subcategories: []store.Subcategory{{ID: 10, Name: "Cleaning", Active: true}},
		rateCards:     map[uint64][]store.RateCard{10: cards},
	}
	a := newTestAgent(d)

	got, err := a.Recommend(context.Background(), "clean")
	require.NoError(t, err)
	require.Len(t, got, recommendLimit)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Price, got[i].Price)
	}
}

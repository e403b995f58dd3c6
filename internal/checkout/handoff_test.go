package checkout

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kynaruniverse/storefront/internal/selection"
)

func TestBuild_CanonicalShape(t *testing.T) {
	sut := NewURLBuilder("")

	got := sut.Build("ls_p_456", "ada@example.com", CustomData{UserID: "user-1"})

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "kynar.lemonsqueezy.com", u.Host)
	assert.Equal(t, "/checkout/buy/ls_p_456", u.Path)
	assert.Equal(t, "user-1", u.Query().Get("checkout[custom][user_id]"))
	assert.Equal(t, "ada@example.com", u.Query().Get("checkout[email]"))
}

func TestBuild_CarriesFulfillmentCustomData(t *testing.T) {
	sut := NewURLBuilder("")

	got := sut.Build("ls_p_456", "", CustomData{
		UserID:     "user-1",
		CheckoutID: "chk-1",
		ProductIDs: []string{"prod-a", "prod-b"},
	})

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "chk-1", u.Query().Get("checkout[custom][checkout_id]"))
	assert.Equal(t, "prod-a,prod-b", u.Query().Get("checkout[custom][product_ids]"))
}

func TestBuild_OmitsEmptyIdentity(t *testing.T) {
	sut := NewURLBuilder("")

	got := sut.Build("ls_p_456", "", CustomData{})

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Empty(t, u.RawQuery)
}

func TestBuild_AbsoluteURLPassesThrough(t *testing.T) {
	sut := NewURLBuilder("")

	got := sut.Build("https://other.lemonsqueezy.com/checkout/buy/abc", "", CustomData{UserID: "user-1"})

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "other.lemonsqueezy.com", u.Host)
	assert.Equal(t, "user-1", u.Query().Get("checkout[custom][user_id]"))
}

func TestBuild_CustomHost(t *testing.T) {
	sut := NewURLBuilder("teststore.lemonsqueezy.com")

	got := sut.Build("ls_p_123", "", CustomData{})
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "teststore.lemonsqueezy.com", u.Host)
}

func TestLinks_OnePerLineItem(t *testing.T) {
	sut := NewURLBuilder("")

	items := []selection.Item{
		{ID: "prod-a", Title: "Planner", PriceID: "ls_p_456"},
		{ID: "prod-b", Title: "Tracker", PriceID: "ls_p_789"},
	}

	links := sut.Links(items, "", CustomData{UserID: "user-1", CheckoutID: "chk-1"})
	require.Len(t, links, 2)
	assert.Equal(t, "prod-a", links[0].ProductID)
	assert.Contains(t, links[0].URL, "ls_p_456")
	assert.Contains(t, links[1].URL, "ls_p_789")
}

func TestLinks_EachLineCarriesOwnProductID(t *testing.T) {
	sut := NewURLBuilder("")

	items := []selection.Item{
		{ID: "prod-a", Title: "Planner", PriceID: "ls_p_456"},
		{ID: "prod-b", Title: "Tracker", PriceID: "ls_p_789"},
	}

	links := sut.Links(items, "", CustomData{CheckoutID: "chk-1"})
	require.Len(t, links, 2)

	for i, wantProduct := range []string{"prod-a", "prod-b"} {
		u, err := url.Parse(links[i].URL)
		require.NoError(t, err)
		assert.Equal(t, wantProduct, u.Query().Get("checkout[custom][product_ids]"))
		assert.Equal(t, "chk-1", u.Query().Get("checkout[custom][checkout_id]"))
	}
}

func TestLinks_FallsBackToProductID(t *testing.T) {
	sut := NewURLBuilder("")

	links := sut.Links([]selection.Item{{ID: "prod-a", Title: "Planner"}}, "", CustomData{})
	require.Len(t, links, 1)
	assert.Contains(t, links[0].URL, "/checkout/buy/prod-a")
}

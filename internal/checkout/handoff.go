package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kynaruniverse/storefront/internal/selection"
)

// DefaultStoreHost is the payment provider storefront that hosts the actual
// payment flow. Our responsibility ends at handing the visitor a URL into it.
const DefaultStoreHost = "kynar.lemonsqueezy.com"

// HandoffLink is one per-product checkout URL. The provider has no bundle
// checkout, so a multi-item selection produces one link per line.
type HandoffLink struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
}

// CustomData rides in checkout[custom][...] params. The provider echoes it
// back verbatim in the webhook, which is the only way fulfillment can tie a
// provider order back to our user, session and products.
type CustomData struct {
	UserID     string
	CheckoutID string
	ProductIDs []string
}

// URLBuilder constructs provider checkout URLs carrying the user identity,
// which the provider echoes back through the webhook so the sale can be
// attributed.
type URLBuilder struct {
	host string
}

func NewURLBuilder(host string) *URLBuilder {
	if host == "" {
		host = DefaultStoreHost
	}
	return &URLBuilder{host: host}
}

// Build returns the checkout URL for one variant. Price identifiers that are
// already absolute URLs pass through with the identity params appended.
func (b *URLBuilder) Build(priceID, email string, custom CustomData) string {
	base := priceID
	if !strings.HasPrefix(priceID, "http") {
		base = fmt.Sprintf("https://%s/checkout/buy/%s", b.host, priceID)
	}

	u, err := url.Parse(base)
	if err != nil {
		// A price id that cannot form a URL still gets the canonical shape;
		// the provider rejects it with its own error page.
		u = &url.URL{Scheme: "https", Host: b.host, Path: "/checkout/buy/" + priceID}
	}

	q := u.Query()
	if custom.UserID != "" {
		q.Set("checkout[custom][user_id]", custom.UserID)
	}
	if custom.CheckoutID != "" {
		q.Set("checkout[custom][checkout_id]", custom.CheckoutID)
	}
	if len(custom.ProductIDs) > 0 {
		q.Set("checkout[custom][product_ids]", strings.Join(custom.ProductIDs, ","))
	}
	if email != "" {
		q.Set("checkout[email]", email)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Links produces one hand-off URL per selection line, each carrying that
// line's product id in its custom data.
func (b *URLBuilder) Links(items []selection.Item, email string, custom CustomData) []HandoffLink {
	links := make([]HandoffLink, 0, len(items))
	for _, item := range items {
		priceID := item.PriceID
		if priceID == "" {
			priceID = item.ID
		}
		lineCustom := custom
		lineCustom.ProductIDs = []string{item.ID}
		links = append(links, HandoffLink{
			ProductID: item.ID,
			Title:     item.Title,
			URL:       b.Build(priceID, email, lineCustom),
		})
	}
	return links
}

func (b *URLBuilder) linksFromSnapshot(snap *Snapshot, email string, custom CustomData) []HandoffLink {
	items := make([]selection.Item, len(snap.Items))
	for i, si := range snap.Items {
		items[i] = selection.Item{ID: si.ProductID, Title: si.Title, PriceID: si.PriceID}
	}
	return b.Links(items, email, custom)
}

package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Worlds are the three storefront realms a product can live in.
const (
	WorldHome      = "home"
	WorldLifestyle = "lifestyle"
	WorldTools     = "tools"
)

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ID               string
	Title            string
	Slug             string
	World            string
	Category         string
	PriceID          string
	ShortDescription string
	Description      string
	ContentURL       string
	PreviewImage     string
	Tags             []string
	FileTypes        []string
	Published        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate enforces the admin form contract before anything touches the
// database.
func (p *Product) Validate() error {
	var problems []string

	if len(strings.TrimSpace(p.Title)) < 3 {
		problems = append(problems, "title must be at least 3 characters")
	}
	if len(strings.TrimSpace(p.Slug)) < 3 {
		problems = append(problems, "slug must be at least 3 characters")
	}
	switch p.World {
	case WorldHome, WorldLifestyle, WorldTools:
	default:
		problems = append(problems, fmt.Sprintf("world %q is not one of home, lifestyle, tools", p.World))
	}
	if len(strings.TrimSpace(p.Category)) < 2 {
		problems = append(problems, "category must be at least 2 characters")
	}
	if len(strings.TrimSpace(p.PriceID)) < 3 {
		problems = append(problems, "price_id must be at least 3 characters")
	}
	if len(strings.TrimSpace(p.ShortDescription)) < 10 {
		problems = append(problems, "short_description must be at least 10 characters")
	}
	if len(strings.TrimSpace(p.Description)) < 20 {
		problems = append(problems, "description must be at least 20 characters")
	}
	if len(p.Tags) == 0 {
		problems = append(problems, "at least one tag is required")
	}
	if len(p.FileTypes) == 0 {
		problems = append(problems, "at least one file type is required")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, ", "))
	}
	return nil
}

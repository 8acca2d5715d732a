// Package catalog serves the bakery's products and FAQ from embedded seed data.
package catalog

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/norun9/bakery-storefront/cartstore"
	"github.com/norun9/bakery-storefront/format"
	"github.com/norun9/bakery-storefront/validation"
)

//go:embed data/*.yaml
var seed embed.FS

type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type FAQEntry struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Catalog is read-only after Load and safe for concurrent use.
type Catalog struct {
	products   []cartstore.Product
	byID       map[string]cartstore.Product
	categories []Category
	faq        []FAQEntry
}

// Load parses the embedded products and FAQ.
func Load() (*Catalog, error) {
	products, err := seed.ReadFile("data/products.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read product seed: %w", err)
	}
	faq, err := seed.ReadFile("data/faq.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read faq seed: %w", err)
	}
	return Parse(products, faq)
}

// Parse builds a Catalog from YAML documents. Every product must pass
// validation.ValidateProduct and IDs must be unique.
func Parse(productsYAML, faqYAML []byte) (*Catalog, error) {
	var productDoc struct {
		Products []cartstore.Product `yaml:"products"`
	}
	if err := yaml.Unmarshal(productsYAML, &productDoc); err != nil {
		return nil, fmt.Errorf("failed to parse products: %w", err)
	}
	var faqDoc struct {
		FAQ []FAQEntry `yaml:"faq"`
	}
	if err := yaml.Unmarshal(faqYAML, &faqDoc); err != nil {
		return nil, fmt.Errorf("failed to parse faq: %w", err)
	}

	c := &Catalog{
		byID: make(map[string]cartstore.Product, len(productDoc.Products)),
		faq:  faqDoc.FAQ,
	}
	seen := make(map[string]bool)
	for i, p := range productDoc.Products {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("product %d has no id", i)
		}
		if res := validation.ValidateProduct(p); !res.IsValid {
			return nil, fmt.Errorf("product %q is invalid: %s", p.ID, strings.Join(res.Errors, "; "))
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = p
		c.products = append(c.products, p)

		slug := format.Slugify(p.Category)
		if !seen[slug] {
			seen[slug] = true
			c.categories = append(c.categories, Category{Slug: slug, Name: p.Category})
		}
	}
	sort.Slice(c.categories, func(i, j int) bool { return c.categories[i].Name < c.categories[j].Name })
	return c, nil
}

// Products returns every product in seed order.
func (c *Catalog) Products() []cartstore.Product {
	out := make([]cartstore.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Product(id string) (cartstore.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// ByCategory returns the products whose category slugifies to slug.
func (c *Catalog) ByCategory(slug string) []cartstore.Product {
	var out []cartstore.Product
	for _, p := range c.products {
		if format.Slugify(p.Category) == slug {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

func (c *Catalog) FAQ() []FAQEntry {
	out := make([]FAQEntry, len(c.faq))
	copy(out, c.faq)
	return out
}

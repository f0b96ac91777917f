// Package content loads operator overrides for canned replies and prompts.
package content

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/usecases"
)

// File is the on-disk override layout. Every section is optional and is
// merged over the built-in catalog.
type File struct {
	ChatFallbacks          map[string]map[string]string `yaml:"chatFallbacks" json:"chatFallbacks"`
	ChatContexts           map[string]string            `yaml:"chatContexts" json:"chatContexts"`
	RecommendationContexts map[string]string            `yaml:"recommendationContexts" json:"recommendationContexts"`
	FallbackProducts       map[string][]Product         `yaml:"fallbackProducts" json:"fallbackProducts"`
}

// Product mirrors entities.Product with YAML keys.
type Product struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description"`
	Price         float64  `yaml:"price" json:"price"`
	OriginalPrice *float64 `yaml:"originalPrice" json:"originalPrice"`
	Image         string   `yaml:"image" json:"image"`
	Rating        float64  `yaml:"rating" json:"rating"`
	ReviewCount   int      `yaml:"reviewCount" json:"reviewCount"`
	Tags          []string `yaml:"tags" json:"tags"`
	InStock       *bool    `yaml:"inStock" json:"inStock"`
	ProductURL    string   `yaml:"productUrl" json:"productUrl"`
}

// Loaded is a parsed override file.
type Loaded struct {
	Catalog  *usecases.Catalog
	Checksum string
}

// Load reads path and merges it over the default catalog. YAML is assumed
// unless the extension is .json.
func Load(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&f)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&f)
		if err != nil && len(bytes.TrimSpace(data)) == 0 {
			err = nil // an empty file means "no overrides"
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	catalog, err := f.Apply(usecases.DefaultCatalog())
	if err != nil {
		return nil, fmt.Errorf("applying %s: %w", filepath.Base(path), err)
	}
	return &Loaded{Catalog: catalog, Checksum: checksum(data)}, nil
}

// Apply returns a copy of base with the overrides merged in. Unknown
// categories and reasons are rejected so typos do not go unnoticed.
func (f *File) Apply(base *usecases.Catalog) (*usecases.Catalog, error) {
	out := base.Clone()

	for rawCat, reasons := range f.ChatFallbacks {
		cat, err := category(rawCat)
		if err != nil {
			return nil, err
		}
		for rawReason, text := range reasons {
			reason, err := fallbackReason(rawReason)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(text) == "" {
				return nil, fmt.Errorf("empty fallback for %s/%s", cat, reason)
			}
			if out.ChatFallbacks[cat] == nil {
				out.ChatFallbacks[cat] = make(map[entities.FallbackReason]string)
			}
			out.ChatFallbacks[cat][reason] = text
		}
	}

	for rawCat, text := range f.ChatContexts {
		cat, err := category(rawCat)
		if err != nil {
			return nil, err
		}
		out.ChatContexts[cat] = text
	}
	for rawCat, text := range f.RecommendationContexts {
		cat, err := category(rawCat)
		if err != nil {
			return nil, err
		}
		out.RecommendationContexts[cat] = text
	}

	for rawCat, products := range f.FallbackProducts {
		cat, err := category(rawCat)
		if err != nil {
			return nil, err
		}
		if len(products) == 0 {
			return nil, fmt.Errorf("fallback products for %s must not be empty", cat)
		}
		list := make([]entities.Product, 0, len(products))
		for i, p := range products {
			list = append(list, p.toEntity(cat, i))
		}
		out.FallbackProducts[cat] = list
	}
	return out, nil
}

func (p Product) toEntity(cat entities.Category, i int) entities.Product {
	id := p.ID
	if id == "" {
		id = fmt.Sprintf("%s-%d", cat, i+1)
	}
	inStock := true
	if p.InStock != nil {
		inStock = *p.InStock
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return entities.Product{
		ID:            id,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Image:         p.Image,
		Category:      string(cat),
		Rating:        p.Rating,
		ReviewCount:   p.ReviewCount,
		Tags:          tags,
		InStock:       inStock,
		ProductURL:    p.ProductURL,
	}
}

func category(raw string) (entities.Category, error) {
	cat, ok := entities.ParseCategory(raw)
	if !ok {
		return "", fmt.Errorf("unknown category %q", raw)
	}
	return cat, nil
}

func fallbackReason(raw string) (entities.FallbackReason, error) {
	for _, r := range entities.FallbackReasons {
		if string(r) == raw {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown fallback reason %q", raw)
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

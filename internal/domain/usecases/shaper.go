package usecases

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/ports"
)

// LocalePrefix starts the ID of every shaped product.
const LocalePrefix = "vn"

// priceDivisor turns the source amount into display thousands of the local unit.
const priceDivisor = 1000

type descriptionKind int

const (
	describeDefault descriptionKind = iota
	describeTablet
	describePhone
	describeHeadphone
)

var descriptions = map[entities.Category]map[descriptionKind]string{
	entities.CategoryDigital: {
		describeTablet:    "Máy tính bảng cao cấp với hiệu năng mạnh mẽ và màn hình sắc nét",
		describePhone:     "Điện thoại thông minh với camera chất lượng cao và pin bền bỉ",
		describeHeadphone: "Tai nghe không dây với chất lượng âm thanh tuyệt vời",
		describeDefault:   "Sản phẩm công nghệ chất lượng cao với tính năng hiện đại",
	},
	entities.CategoryClothes: {
		describeDefault: "Sản phẩm thời trang chất lượng cao với thiết kế hiện đại",
	},
	entities.CategoryFood: {
		describeDefault: "Sản phẩm thực phẩm tươi ngon và chất lượng",
	},
	entities.CategoryOrders: {
		describeDefault: "Dịch vụ hỗ trợ đơn hàng chuyên nghiệp",
	},
}

var baseTags = map[entities.Category][]string{
	entities.CategoryDigital: {"Technology", "Electronics"},
	entities.CategoryClothes: {"Fashion", "Style"},
	entities.CategoryFood:    {"Food", "Gourmet"},
	entities.CategoryOrders:  {"Service", "Support"},
}

// keywordTags are appended in this order when the lowercased name contains the keyword.
var keywordTags = []struct {
	keyword string
	tags    []string
}{
	{"samsung", []string{"Samsung"}},
	{"sony", []string{"Sony"}},
	{"google", []string{"Google"}},
	{"tab", []string{"Tablet"}},
	{"pixel", []string{"Smartphone"}},
	{"wf", []string{"Wireless", "Audio"}},
}

// ProductShaper turns raw locale-specific records into display products.
type ProductShaper struct {
	rnd ports.RandomSource
}

// NewProductShaper creates a shaper drawing rating and review count from rnd.
func NewProductShaper(rnd ports.RandomSource) *ProductShaper {
	if rnd == nil {
		rnd = NewLockedSource(0)
	}
	return &ProductShaper{rnd: rnd}
}

// Shape converts every record, in order.
func (s *ProductShaper) Shape(records []entities.RawProduct, category string) []entities.Product {
	products := make([]entities.Product, 0, len(records))
	for i, rec := range records {
		products = append(products, entities.Product{
			ID:          fmt.Sprintf("%s-%s-%d", LocalePrefix, category, i+1),
			Name:        rec.ProductName,
			Description: Describe(rec.ProductName, category),
			Price:       ParsePrice(rec.Price),
			Image:       rec.ImageURL,
			Category:    category,
			Rating:      s.rating(),
			ReviewCount: s.reviewCount(),
			Tags:        Tags(rec.ProductName, category),
			InStock:     true,
			ProductURL:  rec.ProductURL,
		})
	}
	return products
}

func (s *ProductShaper) rating() float64 {
	return roundRating(4.0 + s.rnd.Float64())
}

func (s *ProductShaper) reviewCount() int {
	return s.rnd.Intn(1000) + 100
}

// ParsePrice keeps digits and commas, drops the commas and divides by 1000:
// "1.234.567₫" becomes 1234.567. Unparseable input yields 0.
func ParsePrice(raw string) float64 {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil || math.IsInf(n, 0) {
		return 0
	}
	return n / priceDivisor
}

// Describe picks a description by keyword match on the product name.
// Unknown categories use the digital table.
func Describe(name, category string) string {
	table := descriptionTable(category)
	kind := describeDefault
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "tab"):
		kind = describeTablet
	case strings.Contains(lower, "pixel"), strings.Contains(lower, "phone"):
		kind = describePhone
	case strings.Contains(lower, "wf"), strings.Contains(lower, "headphone"):
		kind = describeHeadphone
	}
	if d, ok := table[kind]; ok {
		return d
	}
	return table[describeDefault]
}

func descriptionTable(category string) map[descriptionKind]string {
	if cat, known := entities.ParseCategory(category); known {
		return descriptions[cat]
	}
	return descriptions[entities.CategoryDigital]
}

// Tags returns the category base tags followed by keyword tags.
func Tags(name, category string) []string {
	base := baseTags[entities.CategoryDigital]
	if cat, known := entities.ParseCategory(category); known {
		base = baseTags[cat]
	}
	tags := append([]string(nil), base...)
	lower := strings.ToLower(name)
	for _, kt := range keywordTags {
		if strings.Contains(lower, kt.keyword) {
			tags = append(tags, kt.tags...)
		}
	}
	return tags
}

func roundRating(r float64) float64 {
	return math.Round(r*10) / 10
}

// LockedSource is a *rand.Rand safe for concurrent requests.
type LockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewLockedSource seeds a source; seed 0 seeds from the process random source.
func NewLockedSource(seed int64) *LockedSource {
	if seed == 0 {
		seed = rand.Int63()
	}
	return &LockedSource{rnd: rand.New(rand.NewSource(seed))}
}

func (l *LockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}

func (l *LockedSource) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(n)
}

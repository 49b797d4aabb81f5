package quote

import (
	"strings"

	"github.com/and161185/stockfolio/internal/model"
)

// UnknownName is returned by Name for codes missing from the catalog.
const UnknownName = "알 수 없는 종목"

// Catalog is a fixed list of listed stocks.
type Catalog struct {
	stocks []model.Stock
	byCode map[string]string
}

// NewCatalog builds a catalog from stocks, keeping their order.
func NewCatalog(stocks []model.Stock) *Catalog {
	c := &Catalog{stocks: append([]model.Stock(nil), stocks...), byCode: make(map[string]string, len(stocks))}
	for _, s := range stocks {
		c.byCode[s.Code] = s.Name
	}
	return c
}

// DefaultCatalog holds the KOSPI names the service ships with.
func DefaultCatalog() *Catalog {
	return NewCatalog([]model.Stock{
		{Code: "005930", Name: "삼성전자"},
		{Code: "035420", Name: "NAVER"},
		{Code: "035720", Name: "카카오"},
		{Code: "000660", Name: "SK하이닉스"},
		{Code: "005380", Name: "현대차"},
	})
}

// Search returns the stocks whose name or code contains query, in catalog order.
// Name matching ignores ASCII case.
func (c *Catalog) Search(query string) []model.Stock {
	q := strings.TrimSpace(query)
	out := []model.Stock{}
	for _, s := range c.stocks {
		if strings.Contains(s.Code, q) || strings.Contains(strings.ToLower(s.Name), strings.ToLower(q)) {
			out = append(out, s)
		}
	}
	return out
}

// Name returns the catalog name for code, or UnknownName.
func (c *Catalog) Name(code string) string {
	if n, ok := c.byCode[code]; ok {
		return n
	}
	return UnknownName
}

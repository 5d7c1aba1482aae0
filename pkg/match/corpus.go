package match

import (
	"sort"

	"github.com/tunogya/subpattern/pkg/model"
)

// Corpus is an immutable snapshot of closed segments and their shapes.
// It is built once per run and shared read-only by every worker.
type Corpus struct {
	byStock map[string][]model.CorpusEntry
	all     []model.CorpusEntry
}

// NewCorpus freezes entries grouped by stock. Within each stock, entries are
// ordered by start date so lookups are deterministic.
func NewCorpus(entries map[string][]model.CorpusEntry) *Corpus {
	c := &Corpus{byStock: make(map[string][]model.CorpusEntry, len(entries))}

	stocks := make([]string, 0, len(entries))
	for stock := range entries {
		stocks = append(stocks, stock)
	}
	sort.Strings(stocks)

	for _, stock := range stocks {
		frozen := make([]model.CorpusEntry, len(entries[stock]))
		copy(frozen, entries[stock])
		sort.SliceStable(frozen, func(i, j int) bool {
			return frozen[i].Segment.StartDate().Before(frozen[j].Segment.StartDate())
		})
		c.byStock[stock] = frozen
		c.all = append(c.all, frozen...)
	}
	return c
}

// ForStock returns the stock's own corpus
func (c *Corpus) ForStock(stockID string) []model.CorpusEntry {
	return c.byStock[stockID]
}

// All returns the corpus across every stock in the snapshot
func (c *Corpus) All() []model.CorpusEntry {
	return c.all
}

// Scope returns the entries a query for stockID is matched against
func (c *Corpus) Scope(stockID string, crossStock bool) []model.CorpusEntry {
	if crossStock {
		return c.all
	}
	return c.ForStock(stockID)
}

// Len returns the number of segments in the snapshot
func (c *Corpus) Len() int {
	return len(c.all)
}

package extract

import (
	"math"

	"go.uber.org/zap"

	"github.com/scontrinidev/scontrini/internal/models"
)

// Registry holds the available layout parsers in fallback order.
type Registry struct {
	parsers []ItemParser
}

func DefaultRegistry() *Registry {
	return &Registry{parsers: []ItemParser{
		iperalParser{},
		mdParser{},
		genericParser{},
	}}
}

// Selection is the winning candidate of one extraction run.
type Selection struct {
	Items  []models.Item
	Format Format
	Score  float64
}

// ordered returns the parsers with the detected format moved to the front,
// keeping the registry order for the rest.
func (r *Registry) ordered(detected Format) []ItemParser {
	out := make([]ItemParser, 0, len(r.parsers))
	for _, p := range r.parsers {
		if p.Format() == detected {
			out = append(out, p)
		}
	}
	for _, p := range r.parsers {
		if p.Format() != detected {
			out = append(out, p)
		}
	}
	return out
}

// tryParse shields the selection loop from a faulty parser: a panic is
// logged and reported as a failed candidate instead of aborting the run.
func tryParse(p ItemParser, doc Document) (items []models.Item, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("item parser faulted",
				zap.String("format", string(p.Format())),
				zap.Any("panic", r))
			items = nil
			ok = false
		}
	}()
	return p.Parse(doc), true
}

// Select runs every registered parser over the document, scores each
// candidate item list and returns the best one. A parser that faults is
// skipped; if all of them fault the selection reports the unknown format
// with no items.
func (r *Registry) Select(doc Document, merchant models.Merchant, totals models.Totals) Selection {
	detected := DetectFormat(merchant)

	best := Selection{Format: FormatUnknown, Score: math.Inf(-1)}
	for _, p := range r.ordered(detected) {
		candidate, ok := tryParse(p, doc)
		if !ok {
			continue
		}
		score := ScoreItems(doc, candidate, totals)
		if score > best.Score {
			best = Selection{Items: candidate, Format: p.Format(), Score: score}
		}
	}
	return best
}

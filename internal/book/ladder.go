package book

import (
	"sort"

	"github.com/dtrask/stinkbot/internal/domain"
)

// ladder is a price-sorted list of levels with the best price at index 0:
// descending for bids, ascending for asks. Binary search keeps upsert and
// remove at O(log n) lookup, best-of-book at O(1), and top-n scans at O(n).
type ladder struct {
	levels     []domain.PriceLevel
	descending bool
}

func newLadder(descending bool) ladder {
	return ladder{descending: descending}
}

// search returns the insertion index for price and whether an exact level
// already exists there.
func (l *ladder) search(price float64) (int, bool) {
	i := sort.Search(len(l.levels), func(i int) bool {
		if l.descending {
			return l.levels[i].Price <= price
		}
		return l.levels[i].Price >= price
	})
	return i, i < len(l.levels) && l.levels[i].Price == price
}

// upsert inserts a level or replaces the size of an existing one.
func (l *ladder) upsert(price, size float64) {
	i, ok := l.search(price)
	if ok {
		l.levels[i].Size = size
		return
	}
	l.levels = append(l.levels, domain.PriceLevel{})
	copy(l.levels[i+1:], l.levels[i:])
	l.levels[i] = domain.PriceLevel{Price: price, Size: size}
}

// remove deletes the level at price. Removing an absent price is a no-op.
func (l *ladder) remove(price float64) bool {
	i, ok := l.search(price)
	if !ok {
		return false
	}
	l.levels = append(l.levels[:i], l.levels[i+1:]...)
	return true
}

// best returns the top-of-book level.
func (l *ladder) best() (domain.PriceLevel, bool) {
	if len(l.levels) == 0 {
		return domain.PriceLevel{}, false
	}
	return l.levels[0], true
}

// top returns a read-only view of the best n levels.
func (l *ladder) top(n int) []domain.PriceLevel {
	if n > len(l.levels) {
		n = len(l.levels)
	}
	return l.levels[:n]
}

func (l *ladder) len() int { return len(l.levels) }

func (l *ladder) clear() { l.levels = l.levels[:0] }

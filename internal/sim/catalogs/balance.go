package catalogs

import (
	"math"
	"strconv"
	"strings"

	"github.com/hszqf/SCP-sub000/internal/sim/catalogs/tables"
)

const (
	balanceKeyColumn    = "key"
	balanceIntColumn    = "p1"
	balanceFloatColumn  = "p2"
	balanceStringColumn = "p3"
)

func (r *Registry) balanceRow(key string) bool {
	if key == "" {
		return false
	}
	_, ok := r.store.Row(TableBalance, key)
	return ok
}

// BalanceInt reads the first int, then the first float (rounded half to
// even), then the first string that parses as an integer.
func (r *Registry) BalanceInt(key string, fallback int) int {
	if !r.balanceRow(key) {
		r.logger.Printf("[WARN] Missing Balance row: %s. Using fallback=%d.", key, fallback)
		return fallback
	}
	if ints := r.BalanceInts(key); len(ints) > 0 {
		return ints[0]
	}
	if floats := r.BalanceFloats(key); len(floats) > 0 {
		return int(math.RoundToEven(floats[0]))
	}
	if strs := r.BalanceStrings(key); len(strs) > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(strs[0])); err == nil {
			return n
		}
	}
	r.logger.Printf("[WARN] Missing Balance value: Balance.%s. Using fallback=%d.", key, fallback)
	return fallback
}

func (r *Registry) BalanceFloat(key string, fallback float64) float64 {
	if !r.balanceRow(key) {
		r.logger.Printf("[WARN] Missing Balance row: %s. Using fallback=%v.", key, fallback)
		return fallback
	}
	if floats := r.BalanceFloats(key); len(floats) > 0 {
		return floats[0]
	}
	if ints := r.BalanceInts(key); len(ints) > 0 {
		return float64(ints[0])
	}
	if strs := r.BalanceStrings(key); len(strs) > 0 {
		if f, err := strconv.ParseFloat(strings.TrimSpace(strs[0]), 64); err == nil {
			return f
		}
	}
	r.logger.Printf("[WARN] Missing Balance value: Balance.%s. Using fallback=%v.", key, fallback)
	return fallback
}

func (r *Registry) BalanceString(key, fallback string) string {
	if !r.balanceRow(key) {
		r.logger.Printf("[WARN] Missing Balance row: %s. Using fallback=%s.", key, fallback)
		return fallback
	}
	if strs := r.BalanceStrings(key); len(strs) > 0 {
		return strs[0]
	}
	r.logger.Printf("[WARN] Missing Balance value: Balance.%s. Using fallback=%s.", key, fallback)
	return fallback
}

func (r *Registry) BalanceInts(key string) []int {
	if !r.balanceRow(key) {
		return []int{}
	}
	return r.store.IntList(TableBalance, key, balanceIntColumn)
}

func (r *Registry) BalanceFloats(key string) []float64 {
	if !r.balanceRow(key) {
		return []float64{}
	}
	return r.store.FloatList(TableBalance, key, balanceFloatColumn)
}

func (r *Registry) BalanceStrings(key string) []string {
	if !r.balanceRow(key) {
		return []string{}
	}
	return r.store.StringList(TableBalance, key, balanceStringColumn)
}

// BalanceValue returns an entry of the document's balance section. It is
// independent of the Balance table.
func (r *Registry) BalanceValue(key string) (BalanceValue, bool) {
	v, ok := r.balance[key]
	return v, ok
}

// BalanceKeys lists the Balance table's keys in source order.
func (r *Registry) BalanceKeys() []string {
	rows := r.store.Rows(TableBalance)
	out := make([]string, 0, len(rows))
	seen := map[string]bool{}
	for _, row := range rows {
		k, ok := tables.RowKey(row, balanceKeyColumn)
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

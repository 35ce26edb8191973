package detector

import (
	"sort"
	"strings"

	"github.com/arbiterx/arbiter/internal/domain"
)

// GeneratePaths derives every closed 3-asset cycle over the venue's active
// spot markets and keeps only cycles touching at least one priority asset.
// Paths are computed once at scanner start; the result is sorted for
// deterministic symbol selection.
func GeneratePaths(markets map[string]domain.Market, priorityAssets []string) []domain.TriangularPath {
	spot := make(map[string]domain.Market, len(markets))
	for symbol, m := range markets {
		if m.Spot && m.Active && strings.Contains(symbol, "/") {
			spot[symbol] = m
		}
	}

	// asset -> symbols it appears in, either side.
	assetPairs := make(map[string][]string)
	for symbol, m := range spot {
		assetPairs[m.Base] = append(assetPairs[m.Base], symbol)
		assetPairs[m.Quote] = append(assetPairs[m.Quote], symbol)
	}

	priority := make(map[string]bool, len(priorityAssets))
	for _, a := range priorityAssets {
		priority[a] = true
	}

	seen := make(map[domain.TriangularPath]bool)
	var paths []domain.TriangularPath

	for pair1, m1 := range spot {
		asset1, asset2 := m1.Base, m1.Quote
		for _, pair2 := range assetPairs[asset2] {
			if pair2 == pair1 {
				continue
			}
			m2 := spot[pair2]
			asset3 := m2.Base
			if asset3 == asset2 {
				asset3 = m2.Quote
			}
			// The closing pair may exist in either orientation.
			for _, pair3 := range []string{asset3 + "/" + asset1, asset1 + "/" + asset3} {
				if _, ok := spot[pair3]; !ok {
					continue
				}
				p := domain.TriangularPath{
					Asset1: asset1, Asset2: asset2, Asset3: asset3,
					Pair1: pair1, Pair2: pair2, Pair3: pair3,
				}
				if !priority[asset1] && !priority[asset2] && !priority[asset3] {
					break
				}
				if !seen[p] {
					seen[p] = true
					paths = append(paths, p)
				}
				break
			}
		}
	}

	sort.Slice(paths, func(i, j int) bool {
		a, b := paths[i], paths[j]
		if a.Pair1 != b.Pair1 {
			return a.Pair1 < b.Pair1
		}
		if a.Pair2 != b.Pair2 {
			return a.Pair2 < b.Pair2
		}
		return a.Pair3 < b.Pair3
	})
	return paths
}

// indexPaths maps each constituent symbol to the paths it participates in,
// so an order-book update re-evaluates only the affected paths.
func indexPaths(paths []domain.TriangularPath) (map[string][]domain.TriangularPath, []string) {
	bySymbol := make(map[string][]domain.TriangularPath)
	for _, p := range paths {
		for _, symbol := range p.Symbols() {
			bySymbol[symbol] = append(bySymbol[symbol], p)
		}
	}
	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return bySymbol, symbols
}

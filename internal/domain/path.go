package domain

// TriangularPath is a precomputed closed trading cycle over three spot
// markets on one venue: Asset1 -> Asset2 via Pair1, Asset2 -> Asset3 via
// Pair2, Asset3 -> Asset1 via Pair3. Paths are computed once at scanner
// start and held immutably for the scanner's lifetime.
type TriangularPath struct {
	Asset1 string
	Asset2 string
	Asset3 string
	Pair1  string
	Pair2  string
	Pair3  string
}

// Symbols returns the three constituent market symbols in leg order.
func (p TriangularPath) Symbols() [3]string {
	return [3]string{p.Pair1, p.Pair2, p.Pair3}
}

// AssetCycle returns the three assets in cycle order.
func (p TriangularPath) AssetCycle() [3]string {
	return [3]string{p.Asset1, p.Asset2, p.Asset3}
}

package matcher

import (
	"math"
	"sort"
)

// PairMatrix holds the eligibility and score of every (invoice item, PO item)
// combination for one candidate. Rows are invoice items, columns PO items,
// both in document order.
type PairMatrix struct {
	Eligible [][]bool
	Scores   [][]float64
}

// Rows returns the number of invoice items.
func (m PairMatrix) Rows() int { return len(m.Eligible) }

// Cols returns the number of PO items.
func (m PairMatrix) Cols() int {
	if len(m.Eligible) == 0 {
		return 0
	}
	return len(m.Eligible[0])
}

// Pairing links invoice item Row to PO item Col.
type Pairing struct {
	Row int
	Col int
}

// PairingStrategy selects which eligible pairs represent the invoice.
// Each PO item may be used at most once. Returned pairings are ordered by Row.
type PairingStrategy interface {
	Pair(m PairMatrix) []Pairing
}

// GreedyPairing gives each invoice item, in order, the first eligible PO
// item not already taken. Unpaired invoice items are skipped.
type GreedyPairing struct{}

// Pair implements PairingStrategy.
func (GreedyPairing) Pair(m PairMatrix) []Pairing {
	used := make(map[int]bool)
	pairs := make([]Pairing, 0, m.Rows())

	for i := 0; i < m.Rows(); i++ {
		for j := 0; j < m.Cols(); j++ {
			if used[j] || !m.Eligible[i][j] {
				continue
			}
			used[j] = true
			pairs = append(pairs, Pairing{Row: i, Col: j})
			break
		}
	}
	return pairs
}

// OptimalPairing solves the assignment problem (Hungarian method): it
// maximises the number of eligible pairs, then their total score.
type OptimalPairing struct{}

// Pair implements PairingStrategy.
func (OptimalPairing) Pair(m PairMatrix) []Pairing {
	rows, cols := m.Rows(), m.Cols()
	if rows == 0 || cols == 0 {
		return nil
	}

	// The bonus makes one extra pair outweigh any difference in scores.
	bonus := float64(max(rows, cols)) + 1
	weight := func(i, j int) float64 {
		if !m.Eligible[i][j] {
			return 0
		}
		return bonus + m.Scores[i][j]
	}

	transposed := rows > cols
	n, k := rows, cols
	if transposed {
		n, k = cols, rows
	}

	cost := make([][]float64, n)
	for a := 0; a < n; a++ {
		cost[a] = make([]float64, k)
		for b := 0; b < k; b++ {
			if transposed {
				cost[a][b] = -weight(b, a)
			} else {
				cost[a][b] = -weight(a, b)
			}
		}
	}

	assignment := minCostAssignment(cost, n, k)

	pairs := make([]Pairing, 0, n)
	for a, b := range assignment {
		if b < 0 {
			continue
		}
		i, j := a, b
		if transposed {
			i, j = b, a
		}
		if m.Eligible[i][j] {
			pairs = append(pairs, Pairing{Row: i, Col: j})
		}
	}
	sort.Slice(pairs, func(x, y int) bool { return pairs[x].Row < pairs[y].Row })
	return pairs
}

// minCostAssignment assigns each of n rows to a distinct column out of k
// (n <= k) minimising total cost. Returns the column per row.
func minCostAssignment(cost [][]float64, n, k int) []int {
	inf := math.Inf(1)
	u := make([]float64, n+1)
	v := make([]float64, k+1)
	p := make([]int, k+1)
	way := make([]int, k+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, k+1)
		used := make([]bool, k+1)
		for j := range minv {
			minv[j] = inf
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := 0
			for j := 1; j <= k; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= k; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
			if j0 == 0 {
				break
			}
		}
	}

	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = -1
	}
	for j := 1; j <= k; j++ {
		if p[j] != 0 {
			assignment[p[j]-1] = j - 1
		}
	}
	return assignment
}

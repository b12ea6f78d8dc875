package diff

type editOp int

const (
	opUnchanged editOp = iota
	opAdded
	opRemoved
)

// edit is one step of an edit script. oldIdx is -1 for additions and newIdx
// is -1 for removals.
type edit struct {
	op     editOp
	oldIdx int
	newIdx int
}

// editScript computes the shortest edit script turning a into b.
// Based on "An O(ND) Difference Algorithm and Its Variations", Myers 1986.
func editScript(a, b []string) []edit {
	n, m := len(a), len(b)
	limit := n + m
	offset := limit + 1
	v := make([]int, 2*limit+3)

	// trace[d] is v as it was before step d.
	var trace [][]int

search:
	for d := 0; d <= limit; d++ {
		trace = append(trace, append([]int(nil), v...))

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k

			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x

			if x >= n && y >= m {
				break search
			}
		}
	}

	return backtrack(trace, a, b, offset)
}

func backtrack(trace [][]int, a, b []string, offset int) []edit {
	x, y := len(a), len(b)
	var rev []edit

	for d := len(trace) - 1; d >= 0; d-- {
		v := trace[d]
		k := x - y

		prevK := k - 1
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		}
		prevX := v[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			rev = append(rev, edit{op: opUnchanged, oldIdx: x, newIdx: y})
		}

		if d == 0 {
			break
		}
		if x == prevX {
			y--
			rev = append(rev, edit{op: opAdded, oldIdx: -1, newIdx: y})
		} else {
			x--
			rev = append(rev, edit{op: opRemoved, oldIdx: x, newIdx: -1})
		}
	}

	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

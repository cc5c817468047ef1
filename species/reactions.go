package species

import "fmt"

// Rule is one authored reaction: when species A meets species B inside the
// repulsion core, A may become OutA and B may become OutB.
type Rule struct {
	A, B       int
	OutA, OutB int
}

// Array returns the rule as the [a, b, outA, outB] tuple used in rules files.
func (r Rule) Array() [4]int {
	return [4]int{r.A, r.B, r.OutA, r.OutB}
}

// RuleFromArray is the inverse of Array.
func RuleFromArray(a [4]int) Rule {
	return Rule{A: a[0], B: a[1], OutA: a[2], OutB: a[3]}
}

// Validate reports whether every index of the rule is a species below m.
func (r Rule) Validate(m int) error {
	for _, idx := range r.Array() {
		if idx < 0 || idx >= m {
			return fmt.Errorf("%w: rule %v with %d species", ErrIndex, r.Array(), m)
		}
	}
	return nil
}

// BuildReactions derives the dense reaction table from a rule list.
// The result has m*m pairs laid out row-major as [outA, outB] for pair (i, j).
// Every pair starts as the identity, then each rule in order writes its
// pair and the role-swapped image. Rules with out-of-range indices are skipped.
func BuildReactions(m int, rules []Rule) []uint32 {
	table := make([]uint32, m*m*2)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			idx := (i*m + j) * 2
			table[idx] = uint32(i)
			table[idx+1] = uint32(j)
		}
	}

	for _, r := range rules {
		if r.Validate(m) != nil {
			continue
		}
		ab := (r.A*m + r.B) * 2
		table[ab] = uint32(r.OutA)
		table[ab+1] = uint32(r.OutB)

		ba := (r.B*m + r.A) * 2
		table[ba] = uint32(r.OutB)
		table[ba+1] = uint32(r.OutA)
	}
	return table
}

// Outcome looks up the (outA, outB) pair for species i meeting species j.
func Outcome(table []uint32, m, i, j int) (outA, outB uint32) {
	idx := (i*m + j) * 2
	return table[idx], table[idx+1]
}

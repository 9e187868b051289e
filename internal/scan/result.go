package scan

import (
	"fmt"
	"sort"
	"strings"
)

// Result accumulates cell counts for one tile or an entire slide.
//
// WBC maps white-cell subtype labels to counts; the key set is whatever
// labels the classifier emitted, including "Unknown". All counts are
// non-negative and only ever grow, through Add or Merge.
type Result struct {
	WBC map[string]int `json:"wbc"`
	RBC int            `json:"rbc"`
}

// NewResult returns an empty result: no subtypes, zero red cells.
func NewResult() Result {
	return Result{WBC: make(map[string]int)}
}

// AddWBC increments the count for one white-cell subtype label.
func (r *Result) AddWBC(label string) {
	if r.WBC == nil {
		r.WBC = make(map[string]int)
	}
	r.WBC[label]++
}

// Merge folds other into r: pointwise sum of subtype counts plus summed red
// cells. Merge is commutative and associative, and the empty result is its
// identity, so tiles may be folded in any order.
func (r *Result) Merge(other Result) {
	if r.WBC == nil && len(other.WBC) > 0 {
		r.WBC = make(map[string]int, len(other.WBC))
	}
	for label, n := range other.WBC {
		r.WBC[label] += n
	}
	r.RBC += other.RBC
}

// TotalWBC returns the sum over all subtype counts.
func (r Result) TotalWBC() int {
	total := 0
	for _, n := range r.WBC {
		total += n
	}
	return total
}

// String renders the summary in a human-readable form, subtype labels in
// sorted order for stable output.
func (r Result) String() string {
	labels := make([]string, 0, len(r.WBC))
	for label := range r.WBC {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var b strings.Builder
	b.WriteString("wbc{")
	for i, label := range labels {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s:%d", label, r.WBC[label])
	}
	fmt.Fprintf(&b, "} rbc=%d", r.RBC)
	return b.String()
}

package retrieval

import (
	"github.com/gyeh/codesuggest/internal/catalog"
)

// Field weights of the per-item term multiset.
const (
	weightTitle        = 3.0
	weightDescription  = 1.5
	weightEligibility  = 2.5
	weightRestrictions = 1.0
)

// docVector is the weighted term multiset of one catalog item.
type docVector struct {
	weights map[string]float64
	total   float64
}

// index holds the term vectors of one bundle, aligned with bundle.Items.
type index struct {
	bundle *catalog.Bundle
	docs   []docVector
}

func buildIndex(b *catalog.Bundle) *index {
	idx := &index{bundle: b, docs: make([]docVector, len(b.Items))}
	for i, it := range b.Items {
		d := docVector{weights: make(map[string]float64)}
		d.add(it.Title, weightTitle)
		d.add(it.Description, weightDescription)
		for _, c := range it.Eligibility {
			d.add(c, weightEligibility)
		}
		for _, c := range it.Restrictions {
			d.add(c, weightRestrictions)
		}
		idx.docs[i] = d
	}
	return idx
}

func (d *docVector) add(text string, w float64) {
	for _, t := range Tokenize(text) {
		d.weights[t] += w
		d.total += w
	}
}

// similarity is the weighted Jaccard between a query term set (each term
// weight 1) and the document: Σmin / Σmax over the union of terms.
func (d *docVector) similarity(query map[string]float64) float64 {
	var num, den float64
	den = d.total
	for t, qw := range query {
		dw := d.weights[t]
		num += min(qw, dw)
		den += max(qw, dw) - dw
	}
	if num == 0 || den == 0 {
		return 0
	}
	return num / den
}

func querySet(terms []string) map[string]float64 {
	q := make(map[string]float64, len(terms))
	for _, t := range terms {
		q[t] = 1
	}
	return q
}

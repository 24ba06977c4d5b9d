// Package retrieval ranks catalog items against a note.
//
// Lexical scoring is a weighted Jaccard over canonical terms. When a
// semantic Searcher is configured it runs concurrently with lexical scoring,
// bounded by a timeout, and its scores are fused in when available.
package retrieval

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/codesuggest/internal/catalog"
	"github.com/gyeh/codesuggest/internal/model"
)

// Pipeline flags describing the semantic leg of a retrieval.
const (
	FlagSemanticDisabled = "semantic:disabled"
	FlagSemanticOK       = "semantic:ok"
	FlagSemanticTimeout  = "semantic:timeout"
	FlagSemanticError    = "semantic:error"
	FlagSemanticEmpty    = "semantic:empty"
)

// Defaults for Options.
const (
	DefaultRerankWeight       = 0.6
	DefaultSemanticTimeout    = 800 * time.Millisecond
	DefaultSemanticCandidates = 20
)

// Options tunes a Retriever.
type Options struct {
	// RerankWeight is the share of the semantic score in the fused score.
	// Nil selects DefaultRerankWeight; zero disables fusion.
	RerankWeight *float64
	// SemanticTimeout bounds the semantic call.
	SemanticTimeout time.Duration
	// SemanticCandidates is the minimum number of hits requested from the
	// semantic service.
	SemanticCandidates int
}

// Result is a ranked candidate list and the semantic outcome flag.
type Result struct {
	Candidates []model.Candidate
	Flag       string
}

// Retriever ranks items of a catalog bundle. It is safe for concurrent use.
type Retriever struct {
	opts     Options
	weight   float64
	searcher Searcher
	log      zerolog.Logger

	idx atomic.Pointer[index]
}

// New creates a Retriever. searcher may be nil for lexical-only retrieval.
func New(opts Options, searcher Searcher, log zerolog.Logger) *Retriever {
	weight := DefaultRerankWeight
	if w := opts.RerankWeight; w != nil && *w >= 0 && *w <= 1 {
		weight = *w
	}
	if opts.SemanticTimeout <= 0 {
		opts.SemanticTimeout = DefaultSemanticTimeout
	}
	if opts.SemanticCandidates <= 0 {
		opts.SemanticCandidates = DefaultSemanticCandidates
	}
	return &Retriever{
		opts:     opts,
		weight:   weight,
		searcher: searcher,
		log:      log.With().Str("component", "retrieval").Logger(),
	}
}

type semanticOutcome struct {
	hits []Hit
	err  error
}

// Retrieve returns up to topK candidates from b for note. It never fails:
// a semantic failure leaves the lexical ranking in place and is reported
// through Result.Flag.
func (r *Retriever) Retrieve(ctx context.Context, b *catalog.Bundle, note string, topK int, ep *model.Episode) Result {
	topK = max(topK, 1)

	var (
		semCh  chan semanticOutcome
		sctx   context.Context
		cancel context.CancelFunc
	)
	if r.searcher != nil {
		sctx, cancel = context.WithTimeout(ctx, r.opts.SemanticTimeout)
		defer cancel()
		semCh = make(chan semanticOutcome, 1)
		k := max(topK, r.opts.SemanticCandidates)
		go func() {
			hits, err := r.searcher.Search(sctx, note, k)
			semCh <- semanticOutcome{hits: hits, err: err}
		}()
	}

	idx := r.index(b)
	query := querySet(append(Tokenize(note), EpisodeTokens(ep)...))
	lexical := make([]float64, len(b.Items))
	order := make([]int, len(b.Items))
	for i := range b.Items {
		lexical[i] = idx.docs[i].similarity(query)
		order[i] = i
	}
	sort.SliceStable(order, func(a, c int) bool {
		return lexical[order[a]] > lexical[order[c]]
	})

	if semCh == nil {
		return Result{Candidates: lexicalOnly(b, lexical, order, topK), Flag: FlagSemanticDisabled}
	}

	var out semanticOutcome
	select {
	case out = <-semCh:
	case <-sctx.Done():
		out = semanticOutcome{err: sctx.Err()}
	}

	flag := semanticFlag(out)
	if flag != FlagSemanticOK {
		if out.err != nil {
			r.log.Warn().Err(out.err).Str("flag", flag).Msg("semantic retrieval unavailable, using lexical only")
		}
		return Result{Candidates: lexicalOnly(b, lexical, order, topK), Flag: flag}
	}
	return Result{Candidates: r.fuse(b, lexical, order, topK, out.hits), Flag: flag}
}

// index returns the term index for b, rebuilding it when the bundle changed.
func (r *Retriever) index(b *catalog.Bundle) *index {
	if idx := r.idx.Load(); idx != nil && idx.bundle == b {
		return idx
	}
	idx := buildIndex(b)
	r.idx.Store(idx)
	return idx
}

func semanticFlag(out semanticOutcome) string {
	switch {
	case errors.Is(out.err, context.DeadlineExceeded):
		return FlagSemanticTimeout
	case out.err != nil:
		return FlagSemanticError
	case len(out.hits) == 0:
		return FlagSemanticEmpty
	}
	return FlagSemanticOK
}

func lexicalOnly(b *catalog.Bundle, lexical []float64, order []int, topK int) []model.Candidate {
	n := min(topK, len(order))
	out := make([]model.Candidate, n)
	for i := 0; i < n; i++ {
		j := order[i]
		out[i] = model.Candidate{
			Item:           b.Items[j],
			BaseSimilarity: lexical[j],
			LexicalScore:   lexical[j],
		}
	}
	return out
}

// fuse merges the lexical top-K with the semantic hits. Items with a
// semantic score get w*semantic + (1-w)*lexical; the rest keep their
// lexical score.
func (r *Retriever) fuse(b *catalog.Bundle, lexical []float64, order []int, topK int, hits []Hit) []model.Candidate {
	w := r.weight

	semantic := make(map[string]float64, len(hits))
	for _, h := range hits {
		if _, ok := b.Item(h.ItemCode); !ok {
			continue
		}
		s := NormalizeScore(h.Score)
		if prev, ok := semantic[h.ItemCode]; !ok || s > prev {
			semantic[h.ItemCode] = s
		}
	}

	pos := make(map[string]int, len(b.Items))
	for i, it := range b.Items {
		pos[it.Code] = i
	}

	var cands []model.Candidate
	seen := make(map[string]bool)
	add := func(j int) {
		it := b.Items[j]
		if seen[it.Code] {
			return
		}
		seen[it.Code] = true
		c := model.Candidate{Item: it, BaseSimilarity: lexical[j], LexicalScore: lexical[j]}
		if s, ok := semantic[it.Code]; ok {
			sv := s
			c.SemanticScore = &sv
			c.BaseSimilarity = clamp01(w*s + (1-w)*lexical[j])
		}
		cands = append(cands, c)
	}
	for i := 0; i < min(topK, len(order)); i++ {
		add(order[i])
	}
	for _, h := range hits {
		if j, ok := pos[h.ItemCode]; ok {
			add(j)
		}
	}

	sort.SliceStable(cands, func(a, c int) bool {
		return cands[a].BaseSimilarity > cands[c].BaseSimilarity
	})
	if len(cands) > topK {
		cands = cands[:topK]
	}
	return cands
}

// Package suggest runs the end-to-end pipeline: extract, retrieve, evaluate,
// score and explain, all against one pinned catalog snapshot.
package suggest

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/codesuggest/internal/audit"
	"github.com/gyeh/codesuggest/internal/catalog"
	"github.com/gyeh/codesuggest/internal/extract"
	"github.com/gyeh/codesuggest/internal/metrics"
	"github.com/gyeh/codesuggest/internal/model"
	"github.com/gyeh/codesuggest/internal/retrieval"
	"github.com/gyeh/codesuggest/internal/rules"
	"github.com/gyeh/codesuggest/internal/scoring"
)

// Pipeline flags raised when a catalog collection is degraded.
const (
	FlagItemsDegraded = "catalog:items_degraded"
	FlagRulesDegraded = "catalog:rules_degraded"
)

// Defaults for Options.
const (
	DefaultTopK        = 5
	MaxTopK            = 20
	DefaultMaxEvidence = 8
)

// Options tunes a Service.
type Options struct {
	DefaultTopK            int
	MaxEvidence            int
	LowConfidenceThreshold float64
}

// Service serves suggestions. It is safe for concurrent use.
type Service struct {
	store     *catalog.Store
	retriever *retrieval.Retriever
	evaluator rules.Evaluator
	sink      audit.Sink
	metrics   *metrics.Recorder
	log       zerolog.Logger
	opts      Options
}

// New creates a Service and subscribes the metrics recorder to catalog
// reloads. sink may be nil.
func New(store *catalog.Store, retriever *retrieval.Retriever, evaluator rules.Evaluator, sink audit.Sink, rec *metrics.Recorder, opts Options, log zerolog.Logger) *Service {
	if opts.DefaultTopK <= 0 || opts.DefaultTopK > MaxTopK {
		opts.DefaultTopK = DefaultTopK
	}
	if opts.MaxEvidence <= 0 {
		opts.MaxEvidence = DefaultMaxEvidence
	}
	if opts.LowConfidenceThreshold <= 0 {
		opts.LowConfidenceThreshold = scoring.LowConfidenceThreshold
	}
	if sink == nil {
		sink = audit.Discard{}
	}
	if rec == nil {
		rec = metrics.NewRecorder(nil)
	}

	s := &Service{
		store:     store,
		retriever: retriever,
		evaluator: evaluator,
		sink:      sink,
		metrics:   rec,
		log:       log.With().Str("component", "suggest").Logger(),
		opts:      opts,
	}
	store.OnReload(func(b *catalog.Bundle) {
		rec.ObserveReload(b.Versions, len(b.Items), len(b.Rules), b.LoadedAt)
	})
	if b := store.Bundle(); !b.LoadedAt.IsZero() {
		rec.ObserveReload(b.Versions, len(b.Items), len(b.Rules), b.LoadedAt)
	}
	return s
}

// ClampTopK maps topK into [1, MaxTopK], substituting the default for
// non-positive values.
func (s *Service) ClampTopK(topK int) int {
	if topK <= 0 {
		return s.opts.DefaultTopK
	}
	return min(topK, MaxTopK)
}

// Suggest ranks billing codes for note. It never fails: degraded
// collaborators are reported in Meta.PipelineFlags.
func (s *Service) Suggest(ctx context.Context, note string, topK int) model.SuggestResponse {
	start := time.Now()
	reqID := uuid.NewString()
	topK = s.ClampTopK(topK)

	b := s.store.Bundle()
	ep := extract.Extract(note)
	res := s.retriever.Retrieve(ctx, b, note, topK, &ep)

	flags := []string{res.Flag}
	if b.Versions.Items == model.UnknownVersion {
		flags = append(flags, FlagItemsDegraded)
	}
	if b.Versions.Rules == model.UnknownVersion {
		flags = append(flags, FlagRulesDegraded)
	}

	items := make([]model.SuggestionItem, 0, len(res.Candidates))
	for _, cand := range res.Candidates {
		items = append(items, s.suggestion(b, &ep, cand))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Confidence > items[j].Confidence
	})

	resp := model.SuggestResponse{
		Items: items,
		Meta: model.SuggestMeta{
			RequestID:     reqID,
			RulesVersion:  b.Versions.Rules,
			ItemsVersion:  b.Versions.Items,
			PipelineFlags: flags,
		},
	}
	if best := maxConfidence(items); best < s.opts.LowConfidenceThreshold {
		resp.LowConfidenceMessage = scoring.LowConfidenceMessage
		s.metrics.Inc(metrics.CounterLowConfidence)
	}

	elapsed := time.Since(start)
	resp.Meta.DurationMS = float64(elapsed.Microseconds()) / 1000
	s.metrics.ObserveRequest(elapsed, flags)

	s.log.Debug().
		Str("request_id", reqID).
		Int("top_k", topK).
		Int("items", len(items)).
		Strs("flags", flags).
		Dur("duration", elapsed).
		Msg("suggest served")

	s.sink.Record(audit.Record{
		RequestID:  reqID,
		ReceivedAt: start.UTC(),
		Note:       note,
		TopK:       topK,
		Response:   resp,
		Duration:   elapsed,
	})
	return resp
}

func (s *Service) suggestion(b *catalog.Bundle, ep *model.Episode, cand model.Candidate) model.SuggestionItem {
	ev := s.evaluator.Evaluate(cand.Item, ep, b.RulesFor(cand.Item.Code))
	required := scoring.RequiredTags(cand.Item)
	sufficiency := scoring.Sufficiency(cand.Item, ep)
	confidence := scoring.Confidence(scoring.FromEvaluation(cand.BaseSimilarity, sufficiency, &ev))

	results := ev.Results
	if results == nil {
		results = []model.RuleResult{}
	}
	return model.SuggestionItem{
		Code:        cand.Item.Code,
		Title:       cand.Item.Title,
		Confidence:  confidence,
		Reasoning:   scoring.Explain(ep, &ev),
		Evidence:    selectEvidence(ep.Evidence, required, s.opts.MaxEvidence),
		RuleResults: results,
	}
}

// selectEvidence returns at most n spans, those tagged with a required
// field first, otherwise in extraction order.
func selectEvidence(spans []model.EvidenceSpan, required []string, n int) []model.EvidenceSpan {
	want := make(map[string]bool, len(required))
	for _, t := range required {
		want[t] = true
	}
	out := make([]model.EvidenceSpan, 0, min(n, len(spans)))
	for _, sp := range spans {
		if len(out) < n && want[sp.Field] {
			out = append(out, sp)
		}
	}
	for _, sp := range spans {
		if len(out) < n && !want[sp.Field] {
			out = append(out, sp)
		}
	}
	return out
}

func maxConfidence(items []model.SuggestionItem) float64 {
	best := 0.0
	for _, it := range items {
		best = max(best, it.Confidence)
	}
	return best
}

// Reload re-reads the catalog source and returns the new versions.
func (s *Service) Reload(ctx context.Context) model.Versions {
	return s.store.Reload(ctx)
}

// MetricsSnapshot returns the current request statistics.
func (s *Service) MetricsSnapshot() model.MetricsSnapshot {
	return s.metrics.Snapshot()
}

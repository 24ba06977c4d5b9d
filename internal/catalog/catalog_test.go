package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"

	"github.com/gyeh/codesuggest/internal/model"
)

const (
	testItems = "../../testdata/catalog/items.yaml"
	testRules = "../../testdata/catalog/rules.yaml"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestFileSource_LoadTestdata(t *testing.T) {
	s := NewStore(&FileSource{ItemsPath: testItems, RulesPath: testRules}, zerolog.Nop())
	v := s.Reload(context.Background())

	if v.Items != "2024-07" || v.Rules != "2024-07-r1" {
		t.Fatalf("versions = %+v", v)
	}
	b := s.Bundle()
	if len(b.Items) != 13 {
		t.Errorf("items = %d, want 13", len(b.Items))
	}
	if len(b.Rules) != 16 {
		t.Errorf("rules = %d, want 16", len(b.Rules))
	}

	it, ok := b.Item("91801")
	if !ok || it.Title != "Video consultation level C" {
		t.Fatalf("Item(91801) = %+v, %v", it, ok)
	}
	if it.ScheduleFee == nil || *it.ScheduleFee != 82.90 {
		t.Errorf("ScheduleFee = %v", it.ScheduleFee)
	}

	var ids []string
	for _, r := range b.RulesFor("91801") {
		ids = append(ids, r.ID)
	}
	want := "min-duration-level-c,video-only,telehealth-not-with-attendance"
	if strings.Join(ids, ",") != want {
		t.Errorf("RulesFor(91801) = %v, want %s", ids, want)
	}

	for _, r := range b.Rules {
		if r.ID == "after-hours-period" {
			if !r.Params.HoursBucket.Contains("public_holiday") || !r.Params.Location.Contains("clinic") {
				t.Errorf("after-hours-period params = %+v", r.Params)
			}
		}
	}
}

func TestStore_EmptyBeforeReload(t *testing.T) {
	s := NewStore(&FileSource{}, zerolog.Nop())
	b := s.Bundle()
	if b == nil || len(b.Items) != 0 || !b.Versions.Degraded() {
		t.Fatalf("unexpected initial bundle %+v", b)
	}
}

func TestStore_MissingRulesDegradesIndependently(t *testing.T) {
	s := NewStore(&FileSource{ItemsPath: testItems, RulesPath: filepath.Join(t.TempDir(), "missing.yaml")}, zerolog.Nop())
	v := s.Reload(context.Background())

	if v.Items != "2024-07" {
		t.Errorf("items version = %q", v.Items)
	}
	if v.Rules != model.UnknownVersion {
		t.Errorf("rules version = %q, want unknown", v.Rules)
	}
	b := s.Bundle()
	if len(b.Items) == 0 || len(b.Rules) != 0 {
		t.Errorf("items=%d rules=%d", len(b.Items), len(b.Rules))
	}
}

func TestStore_CorruptItemsDegrade(t *testing.T) {
	dir := t.TempDir()
	items := writeFile(t, dir, "items.yaml", "items: [this is: not: valid")
	s := NewStore(&FileSource{ItemsPath: items, RulesPath: testRules}, zerolog.Nop())
	v := s.Reload(context.Background())

	if v.Items != model.UnknownVersion || v.Rules != "2024-07-r1" {
		t.Fatalf("versions = %+v", v)
	}
	if len(s.Bundle().Items) != 0 {
		t.Error("expected empty item set")
	}
}

func TestReadItemsFile_VersionFallbackAndNormalize(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "items.yaml", `
items:
  - code: " 91801 "
    title: "  Video   consult "
    eligibility: ["video", "  "]
  - code: "   "
    title: "dropped"
`)
	items, version, err := ReadItemsFile(p)
	if err != nil {
		t.Fatalf("ReadItemsFile: %v", err)
	}
	if !strings.HasPrefix(version, "sha256:") || len(version) != len("sha256:")+12 {
		t.Errorf("version = %q", version)
	}
	if len(items) != 1 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Code != "91801" || items[0].Title != "Video consult" || len(items[0].Eligibility) != 1 {
		t.Errorf("item = %+v", items[0])
	}

	again, version2, _ := ReadItemsFile(p)
	if version2 != version || len(again) != 1 {
		t.Error("hash version must be stable")
	}
}

func TestReadRulesFile_JSON(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "rules.json", `{
  "version": "j1",
  "rules": [
    {"id": "r1", "kind": "location_must_be", "applies_to": ["24"], "parameters": {"location": "home"}, "hard": true},
    {"id": "r2", "kind": "eligibility_required", "applies_to": ["91801"], "parameters": {"mode": ["video", "phone"], "min_age": 18}}
  ]
}`)
	rules, version, err := ReadRulesFile(p)
	if err != nil {
		t.Fatalf("ReadRulesFile: %v", err)
	}
	if version != "j1" || len(rules) != 2 {
		t.Fatalf("version=%q rules=%d", version, len(rules))
	}
	if !rules[0].Params.Location.Contains("home") || !rules[0].Hard {
		t.Errorf("r1 = %+v", rules[0])
	}
	if len(rules[1].Params.Mode) != 2 || rules[1].Params.MinAge == nil || *rules[1].Params.MinAge != 18 {
		t.Errorf("r2 = %+v", rules[1])
	}
}

func TestReadRulesFile_JSONUnknownKindKept(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "rules.json", `{
  "version": "j2",
  "rules": [
    {"id": "min", "kind": "min_duration_by_level", "applies_to": ["91801"], "parameters": {"min": 20}},
    {"id": "custom", "kind": "custom_threshold", "applies_to": ["91801"], "parameters": {"threshold": 3}}
  ]
}`)
	rules, version, err := ReadRulesFile(p)
	if err != nil {
		t.Fatalf("ReadRulesFile: %v", err)
	}
	if version != "j2" || len(rules) != 2 {
		t.Fatalf("version=%q rules=%d", version, len(rules))
	}
	if rules[1].Kind != "custom_threshold" || rules[1].Kind.Known() {
		t.Errorf("custom = %+v", rules[1])
	}

	s := NewStore(&FileSource{ItemsPath: testItems, RulesPath: p}, zerolog.Nop())
	if v := s.Reload(context.Background()); v.Rules != "j2" {
		t.Errorf("rules version = %q, want j2", v.Rules)
	}
}

func TestReadRulesFile_MissingID(t *testing.T) {
	p := writeFile(t, t.TempDir(), "rules.yaml", "rules:\n  - kind: forbid_with\n")
	if _, _, err := ReadRulesFile(p); err == nil {
		t.Fatal("expected error for rule without id")
	}
}

func TestReadItemsFile_Parquet(t *testing.T) {
	p := filepath.Join(t.TempDir(), "items.parquet")
	v := "pq-1"
	elig := "video telehealth\nat least 20 minutes"
	rows := []model.CatalogItemRow{
		{Code: "91801", Title: "Video consultation level C", Eligibility: &elig, Version: &v},
		{Code: "23", Title: "Level B general practice attendance"},
	}
	if err := parquet.WriteFile(p, rows); err != nil {
		t.Fatalf("write parquet: %v", err)
	}

	items, version, err := ReadItemsFile(p)
	if err != nil {
		t.Fatalf("ReadItemsFile: %v", err)
	}
	if version != "pq-1" {
		t.Errorf("version = %q", version)
	}
	if len(items) != 2 || len(items[0].Eligibility) != 2 {
		t.Errorf("items = %+v", items)
	}
}

func TestExportParquet_RoundTrip(t *testing.T) {
	items, _, err := ReadItemsFile(testItems)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBundle(items, nil, model.Versions{Items: "2024-07", Rules: "r"}, time.Now())

	p := filepath.Join(t.TempDir(), "export.parquet")
	n, err := ExportParquet(p, b)
	if err != nil {
		t.Fatalf("ExportParquet: %v", err)
	}
	if n != 13 {
		t.Errorf("wrote %d rows, want 13", n)
	}

	got, version, err := ReadItemsFile(p)
	if err != nil {
		t.Fatalf("ReadItemsFile: %v", err)
	}
	if version != "2024-07" {
		t.Errorf("version = %q", version)
	}
	if !reflect.DeepEqual(got, items) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, items)
	}
}

func TestBundle_DuplicatesKeepFirst(t *testing.T) {
	b := NewBundle(
		[]model.CatalogItem{{Code: "A", Title: "first"}, {Code: "A", Title: "second"}, {Code: "B"}},
		[]model.RuleEntry{
			{ID: "r", Kind: model.KindLocationMustBe, AppliesTo: []string{"A"}},
			{ID: "r", Kind: model.KindForbidWith, AppliesTo: []string{"B"}},
		},
		model.Versions{Items: "1", Rules: "1"}, time.Now(),
	)
	if len(b.Items) != 2 {
		t.Fatalf("items = %d", len(b.Items))
	}
	if it, _ := b.Item("A"); it.Title != "first" {
		t.Errorf("Item(A) = %+v", it)
	}
	if len(b.RulesFor("B")) != 0 {
		t.Error("duplicate rule id must be dropped")
	}
	if len(b.RulesFor("A")) != 1 {
		t.Error("expected rule for A")
	}
}

func TestInspect(t *testing.T) {
	items, iv, err := ReadItemsFile(testItems)
	if err != nil {
		t.Fatal(err)
	}
	rules, rv, err := ReadRulesFile(testRules)
	if err != nil {
		t.Fatal(err)
	}
	rules = append(rules, model.RuleEntry{ID: "ghost", Kind: model.KindLocationMustBe, AppliesTo: []string{"99999"}})

	rep := Inspect(items, rules, model.Versions{Items: iv, Rules: rv})
	if rep.Items != 13 || rep.Rules != 17 {
		t.Errorf("counts = %d/%d", rep.Items, rep.Rules)
	}
	if len(rep.UnknownKinds) != 1 || rep.UnknownKinds[0] != "max_per_year" {
		t.Errorf("UnknownKinds = %v", rep.UnknownKinds)
	}
	if got := rep.DanglingCodes["ghost"]; len(got) != 1 || got[0] != "99999" {
		t.Errorf("DanglingCodes = %v", rep.DanglingCodes)
	}
	if rep.OK(false) {
		t.Error("dangling codes must fail the report")
	}
	if rep.KindCounts[model.KindEligibilityRequired] != 6 {
		t.Errorf("eligibility_required count = %d", rep.KindCounts[model.KindEligibilityRequired])
	}
	kinds := rep.SortedKinds()
	if kinds[0] != model.KindMinDurationByLevel || kinds[len(kinds)-1] != "max_per_year" {
		t.Errorf("SortedKinds = %v", kinds)
	}
}

// flipSource alternates between two internally consistent catalogs.
type flipSource struct {
	n atomic.Int64
}

func (f *flipSource) String() string { return "flip" }

func (f *flipSource) Load(ctx context.Context) Loaded {
	v := fmt.Sprintf("v%d", f.n.Add(1)%2)
	code := "C" + v
	return Loaded{
		Items:        []model.CatalogItem{{Code: code, Title: v}},
		ItemsVersion: v,
		Rules:        []model.RuleEntry{{ID: v, Kind: model.KindLocationMustBe, AppliesTo: []string{code}}},
		RulesVersion: v,
	}
}

func TestStore_ConcurrentReloadNeverTorn(t *testing.T) {
	s := NewStore(&flipSource{}, zerolog.Nop())
	s.Reload(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			s.Reload(ctx)
		}
	}()

	errCh := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				b := s.Bundle()
				v := b.Versions.Items
				if b.Versions.Rules != v || len(b.Items) != 1 || b.Items[0].Title != v || len(b.RulesFor("C"+v)) != 1 {
					errCh <- errors.New("torn bundle: " + v)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatal(err)
	}
}

func TestStore_OnReload(t *testing.T) {
	s := NewStore(&flipSource{}, zerolog.Nop())
	var calls int
	s.OnReload(func(b *Bundle) { calls++ })
	s.Reload(context.Background())
	s.Reload(context.Background())
	if calls != 2 {
		t.Errorf("OnReload calls = %d, want 2", calls)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	items := writeFile(t, dir, "items.yaml", "version: w1\nitems:\n  - code: \"1\"\n    title: one\n")
	rules := writeFile(t, dir, "rules.yaml", "version: r1\nrules: []\n")

	s := NewStore(&FileSource{ItemsPath: items, RulesPath: rules}, zerolog.Nop())
	s.Reload(context.Background())

	w, err := NewWatcher(s, []string{items, rules}, 20*time.Millisecond, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, dir, "unrelated.txt", "ignored")
	writeFile(t, dir, "items.yaml", "version: w2\nitems:\n  - code: \"2\"\n    title: two\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-w.Reloaded():
			if s.Bundle().Versions.Items == "w2" {
				return
			}
		case <-deadline:
			t.Fatalf("watcher did not reload, versions = %+v", s.Bundle().Versions)
		}
	}
}

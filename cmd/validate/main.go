// Command validate performs offline consistency checks across the model
// artifacts and lookup tables the prediction service loads at startup. It
// verifies that manifests and their weights load, that lookup tables decode
// and agree with each other, that every zone has an indicator column in every
// model schema, and that a smoke prediction succeeds for each model and zone.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -manifests models/xgb.json,models/linear.json,models/rf.json \
//	  -zones data/zone_defaults.json \
//	  -global data/global_defaults.json \
//	  -bias data/zone_bias.json \
//	  -fallback data/default_interest.csv \
//	  -levels models/level_cluster.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/imyuanhui/COMP47360/internal/adapter/interestcache"
	"github.com/imyuanhui/COMP47360/internal/adapter/model"
	"github.com/imyuanhui/COMP47360/internal/domain"
	"github.com/imyuanhui/COMP47360/internal/lookup"
	"github.com/imyuanhui/COMP47360/internal/observability"
	"github.com/imyuanhui/COMP47360/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

// smokeTimestamps cover a weekday morning, a weekend evening and midday.
var smokeTimestamps = []string{"2025-06-27 08:00:00", "2025-06-28 18:00:00", "2025-06-30 12:00:00"}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type inputs struct {
	manifests []string
	zones     string
	global    string
	bias      string
	fallback  string
	levels    string
}

// loaded holds whatever loaded successfully; later phases skip what is nil.
type loaded struct {
	artifacts []*model.Artifact
	zones     map[int]domain.Attributes
	global    domain.Attributes
	bias      lookup.BiasTable
	fallback  lookup.FallbackTable
	clusterer *model.CentroidClusterer
}

func main() {
	manifests := flag.String("manifests", "models/xgb.json", "comma-separated model manifest paths")
	zones := flag.String("zones", "data/zone_defaults.json", "zone defaults JSON")
	global := flag.String("global", "data/global_defaults.json", "global defaults JSON")
	bias := flag.String("bias", "", "zone bias JSON (optional)")
	fallback := flag.String("fallback", "data/default_interest.csv", "interest fallback CSV (optional)")
	levels := flag.String("levels", "", "level cluster artifact (optional)")
	flag.Parse()

	in := inputs{
		manifests: splitList(*manifests),
		zones:     *zones,
		global:    *global,
		bias:      *bias,
		fallback:  *fallback,
		levels:    *levels,
	}
	if len(in.manifests) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(in, os.Stdout))
}

func run(in inputs, w io.Writer) int {
	fmt.Fprintln(w, "=== Busyness Artifact Validation ===")
	fmt.Fprintln(w)

	var l loaded
	phases := []*phase{
		loadModels(in, &l),
		loadTables(in, &l),
		validateSchemaCoverage(&l),
		validateSmokePredictions(&l),
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Loaded: %d models, %d zones, %d global fields, %d bias entries, %d fallback keywords\n",
		len(l.artifacts), len(l.zones), len(l.global), len(l.bias), len(l.fallback))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Model artifacts ──

func loadModels(in inputs, l *loaded) *phase {
	p := &phase{name: "Phase 1: Model artifacts"}

	seen := map[string]string{}
	for _, path := range in.manifests {
		a, err := model.LoadManifest(path)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		if prev, dup := seen[a.Name]; dup {
			p.errorf("%s: model name %q already used by %s", path, a.Name, prev)
			continue
		}
		seen[a.Name] = path
		if a.Kind == model.KindRemote {
			// Remote endpoints are not called offline.
			continue
		}
		l.artifacts = append(l.artifacts, a)
	}

	if in.levels != "" {
		c, err := model.LoadClusterer(in.levels)
		if err != nil {
			p.errorf("%v", err)
		} else {
			l.clusterer = c
		}
	}
	return p
}

// ── Phase 2: Lookup tables ──

func loadTables(in inputs, l *loaded) *phase {
	p := &phase{name: "Phase 2: Lookup tables"}

	zones, err := lookup.LoadZoneDefaults(in.zones)
	if err != nil {
		p.errorf("%v", err)
	}
	l.zones = zones

	global, err := lookup.LoadGlobalDefaults(in.global)
	if err != nil {
		p.errorf("%v", err)
	}
	l.global = global

	if in.bias != "" {
		bias, err := lookup.LoadBiasTable(in.bias)
		if err != nil {
			p.errorf("%v", err)
		}
		l.bias = bias
		for _, id := range sortedKeys(bias) {
			if _, ok := zones[id]; !ok && zones != nil {
				p.errorf("bias table: zone %d has no zone defaults", id)
			}
		}
	}

	if in.fallback != "" {
		fallback, err := lookup.LoadFallbackTable(in.fallback)
		if err != nil {
			p.errorf("%v", err)
		}
		l.fallback = fallback
	}

	store := lookup.NewStore(zones, nil, nil)
	for _, id := range sortedKeys(zones) {
		name, ok := store.ZoneName(id)
		if !ok {
			p.errorf("zone %d: missing zone_name, interest lookups will be skipped", id)
			continue
		}
		if l.fallback != nil {
			if _, ok := l.fallback.Lookup(name); !ok {
				p.errorf("zone %d: %q has no interest fallback entry", id, name)
			}
		}
	}
	return p
}

// ── Phase 3: Schema coverage ──
// Every zone must select its own indicator column, or all zones collapse to
// the same baseline.

func validateSchemaCoverage(l *loaded) *phase {
	p := &phase{name: "Phase 3: Schema coverage"}

	for _, a := range l.artifacts {
		if !contains(a.Schema.Categorical, domain.FieldZoneID) {
			continue
		}
		for _, id := range sortedKeys(l.zones) {
			col := domain.IndicatorName(domain.FieldZoneID, strconv.Itoa(id))
			if a.Schema.Index(col) < 0 {
				p.errorf("model %s: no column %q for zone %d", a.Name, col, id)
			}
		}
	}
	return p
}

// ── Phase 4: Smoke predictions ──

func validateSmokePredictions(l *loaded) *phase {
	p := &phase{name: "Phase 4: Smoke predictions"}
	if len(l.artifacts) == 0 || len(l.zones) == 0 {
		p.errorf("nothing to predict: %d models, %d zones", len(l.artifacts), len(l.zones))
		return p
	}

	dir, err := os.MkdirTemp("", "validate-interest-")
	if err != nil {
		p.errorf("temp dir: %v", err)
		return p
	}
	defer os.RemoveAll(dir)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())
	store := lookup.NewStore(l.zones, l.global, l.bias)

	var fallback interestcache.Fallback
	if l.fallback != nil {
		fallback = l.fallback
	}
	deps := pipeline.Deps{
		Models:   catalog(l.artifacts),
		Zones:    store,
		Bias:     store,
		Interest: interestcache.New(interestcache.Options{Path: filepath.Join(dir, "interest_cache.json")}, nil, fallback, metrics, logger),
	}
	if l.clusterer != nil {
		deps.Clusterer = l.clusterer
	}
	svc := pipeline.New(deps, logger, metrics)

	for _, a := range l.artifacts {
		for _, id := range sortedKeys(l.zones) {
			for _, ts := range smokeTimestamps {
				res, err := svc.Predict(context.Background(), a.Name, domain.PredictionRequest{Timestamp: ts, ZoneID: id})
				switch {
				case err != nil:
					p.errorf("model %s zone %d at %s: %v", a.Name, id, ts, err)
				case res.BusynessScore < 0 || math.IsNaN(res.BusynessScore):
					p.errorf("model %s zone %d at %s: score %v", a.Name, id, ts, res.BusynessScore)
				case l.clusterer != nil && res.BusynessLevel == "":
					p.errorf("model %s zone %d at %s: no level (%s)", a.Name, id, ts, strings.Join(res.Degraded, ","))
				}
			}
		}
	}
	return p
}

// catalog resolves by name over the loaded artifacts; the first is the default.
type catalog []*model.Artifact

func (c catalog) Resolve(name string) (domain.ModelArtifact, error) {
	for _, a := range c {
		if name == "" || a.Name == name {
			return a.ModelArtifact, nil
		}
	}
	return domain.ModelArtifact{}, domain.ErrUnknownModel
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

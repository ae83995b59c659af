package detect

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// labelMap translates detector labels into entity types. Labels not in
// the table are upper-cased with underscores as a fallback type name.
var labelMap = map[string]EntityType{
	"person":                 TypePerson,
	"email":                  TypeEmailAddress,
	"phone number":           TypePhoneNumber,
	"social security number": TypeUSSSN,
	"credit card":            TypeCreditCard,
	"bitcoin address":        "BITCOIN_ADDRESS",
	"ethereum address":       "ETHEREUM_ADDRESS",
	"IBAN":                   TypeIBANCode,
	"AWS key":                "AWS_ACCESS_KEY_ID",
	"API key":                TypeAPIKey,
	"password":               TypePassword,
	"JWT token":              TypeJWTToken,
	"address":                TypeLocation,
	"IP address":             TypeIPAddress,
	"medical license":        "MEDICAL_LICENSE",
}

// MapLabel converts a detector label to an entity type.
func MapLabel(label string) EntityType {
	if t, ok := labelMap[label]; ok {
		return t
	}
	return EntityType(strings.ToUpper(strings.ReplaceAll(label, " ", "_")))
}

// Analyzer normalizes the ML detector and the pattern registry into a
// single deduplicated entity list.
type Analyzer struct {
	detector  Detector
	registry  PatternRegistry
	labels    []string
	threshold float64
	logger    *slog.Logger
}

// AnalyzerOption is a functional option for configuring an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithDetector sets the external ML detector. Without one, analysis is
// pattern-only.
func WithDetector(d Detector) AnalyzerOption {
	return func(a *Analyzer) {
		a.detector = d
	}
}

// WithRegistry sets the pattern registry.
func WithRegistry(r PatternRegistry) AnalyzerOption {
	return func(a *Analyzer) {
		a.registry = r
	}
}

// WithLabels sets the label set requested from the detector.
func WithLabels(labels []string) AnalyzerOption {
	return func(a *Analyzer) {
		a.labels = labels
	}
}

// WithThreshold sets the detector confidence floor.
func WithThreshold(threshold float64) AnalyzerOption {
	return func(a *Analyzer) {
		a.threshold = threshold
	}
}

// WithLogger sets the analyzer logger.
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// NewAnalyzer creates an analyzer with the default registry, labels,
// and threshold.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		registry:  NewDefaultRegistry(),
		labels:    DefaultLabels,
		threshold: DefaultThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze detects sensitive entities in text. The ML detector runs
// first; a detector error is logged and demotes the call to
// pattern-only detection. The full pattern registry always runs
// regardless of the detector outcome. Overlapping candidates are
// deduplicated preferring higher confidence. The returned order is not
// guaranteed sorted; callers re-sort as needed.
func (a *Analyzer) Analyze(ctx context.Context, text string) []Entity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var candidates []Entity

	if a.detector != nil {
		spans, err := a.detector.Detect(ctx, text, a.labels, a.threshold)
		if err != nil {
			a.logger.Warn("detector failed, using pattern-only detection", "error", err)
		} else {
			for _, span := range spans {
				if span.Start < 0 || span.End > len(text) || span.Start >= span.End {
					continue
				}
				candidates = append(candidates, Entity{
					Type:  MapLabel(span.Label),
					Start: span.Start,
					End:   span.End,
					Score: span.Score,
					Text:  text[span.Start:span.End],
				})
			}
		}
	}

	for _, matcher := range a.registry.GetAll() {
		candidates = append(candidates, matcher.Match(text)...)
	}

	return Deduplicate(candidates)
}

// Deduplicate collapses overlapping candidate spans, keeping the
// highest-scoring candidate in each overlap cluster. Ties go to the
// candidate appearing first in (start, end) sort order. The result
// contains no two overlapping spans.
func Deduplicate(entities []Entity) []Entity {
	if len(entities) == 0 {
		return nil
	}

	sorted := make([]Entity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	var kept []Entity
	keptIdx := make(map[int]bool)
	skipUntil := -1

	for _, entity := range sorted {
		if entity.Start < skipUntil {
			continue
		}

		// Highest score among all candidates overlapping this span,
		// scanned over the full sorted list so chained overlaps resolve
		// the same way on every pass. A span always overlaps itself.
		best := -1
		for j, other := range sorted {
			if !entity.Overlaps(other) {
				continue
			}
			if best == -1 || other.Score > sorted[best].Score {
				best = j
			}
		}

		if !keptIdx[best] {
			kept = append(kept, sorted[best])
			keptIdx[best] = true
			skipUntil = sorted[best].End
		}
	}

	return kept
}

package dataset

import (
	"math"
	"sort"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"recommender/models"
)

// Encoder turns raw rows into fixed-width numeric feature vectors. It is fit
// on the training split and then applied to both splits, so the test data is
// imputed with training statistics and encoded with training code tables.
type Encoder struct {
	numericMedians []float64        // per numericColumns entry
	segmentIncome  map[string]float64
	globalIncome   float64
	codes          []map[string]int // per categoricalColumns entry
	segmentCol     int              // index of segmento in categoricalColumns
	incomeCol      int              // index of renta in numericColumns
	ageCol         int
	seniorityCol   int
}

// FitEncoder computes imputation statistics and categorical code tables from
// the given rows.
func FitEncoder(rows []*Row) *Encoder {
	e := &Encoder{
		numericMedians: make([]float64, len(numericColumns)),
		segmentIncome:  make(map[string]float64),
		codes:          make([]map[string]int, len(categoricalColumns)),
		segmentCol:     columnIndex(categoricalColumns, segmentColumn),
		incomeCol:      columnIndex(numericColumns, "renta"),
		ageCol:         columnIndex(numericColumns, "age"),
		seniorityCol:   columnIndex(numericColumns, "antiguedad"),
	}

	// Median for every numeric column, over observed (non-missing) values.
	// Age is clamped before the median is taken so outliers do not drag it.
	for c := range numericColumns {
		var observed []float64
		for _, row := range rows {
			v := e.normalizeNumeric(c, row.Numeric[c])
			if !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		e.numericMedians[c] = median(observed)
	}
	e.globalIncome = e.numericMedians[e.incomeCol]

	// Per-segment income medians
	bySegment := make(map[string][]float64)
	for _, row := range rows {
		income := row.Numeric[e.incomeCol]
		if math.IsNaN(income) {
			continue
		}
		bySegment[row.Categorical[e.segmentCol]] = append(bySegment[row.Categorical[e.segmentCol]], income)
	}
	for segment, values := range bySegment {
		e.segmentIncome[segment] = median(values)
	}

	// Code tables from sorted distinct values, so encodings are stable across
	// runs regardless of row order. The empty string (missing) is excluded and
	// maps to UnseenCategory.
	for c := range categoricalColumns {
		distinct := make(map[string]bool)
		for _, row := range rows {
			if row.Categorical[c] != "" {
				distinct[row.Categorical[c]] = true
			}
		}
		values := make([]string, 0, len(distinct))
		for v := range distinct {
			values = append(values, v)
		}
		sort.Strings(values)
		table := make(map[string]int, len(values))
		for code, v := range values {
			table[v] = code
		}
		e.codes[c] = table
	}

	log.WithFields(log.Fields{
		"rows":         len(rows),
		"segments":     len(e.segmentIncome),
		"incomeMedian": e.globalIncome,
	}).Info("Fitted dataset encoder")

	return e
}

// FeatureNames returns the feature vector layout produced by Transform.
func (e *Encoder) FeatureNames() []string {
	names := make([]string, 0, len(numericColumns)+len(categoricalColumns))
	names = append(names, numericColumns...)
	names = append(names, categoricalColumns...)
	return names
}

// Segments returns the segment values observed during fitting, sorted.
func (e *Encoder) Segments() []string {
	segments := make([]string, 0, len(e.segmentIncome))
	for s := range e.segmentIncome {
		segments = append(segments, s)
	}
	sort.Strings(segments)
	return segments
}

// SegmentIncomeMedian returns the imputation value used for missing renta in
// the given segment.
func (e *Encoder) SegmentIncomeMedian(segment string) float64 {
	if m, ok := e.segmentIncome[segment]; ok && !math.IsNaN(m) {
		return m
	}
	return e.globalIncome
}

// Transform encodes rows into customer-month records with imputed numeric
// features and categorical codes.
func (e *Encoder) Transform(rows []*Row) []*models.CustomerMonth {
	out := make([]*models.CustomerMonth, 0, len(rows))
	for _, row := range rows {
		features := make([]float64, 0, len(numericColumns)+len(categoricalColumns))
		for c := range numericColumns {
			v := e.normalizeNumeric(c, row.Numeric[c])
			if math.IsNaN(v) {
				if c == e.incomeCol {
					v = e.SegmentIncomeMedian(row.Categorical[e.segmentCol])
				} else {
					v = e.numericMedians[c]
				}
			}
			features = append(features, v)
		}
		for c := range categoricalColumns {
			code := UnseenCategory
			if row.Categorical[c] != "" {
				if table, ok := e.codes[c][row.Categorical[c]]; ok {
					code = table
				}
			}
			features = append(features, float64(code))
		}
		out = append(out, &models.CustomerMonth{
			Month:      row.Month,
			CustomerID: row.CustomerID,
			Features:   features,
			Products:   row.Products,
		})
	}
	return out
}

// normalizeNumeric applies the column-specific cleanups that happen before
// imputation: age clamping and the seniority sentinel.
func (e *Encoder) normalizeNumeric(col int, v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	switch col {
	case e.ageCol:
		if v < ageMin {
			return ageMin
		}
		if v > ageMax {
			return ageMax
		}
	case e.seniorityCol:
		if v <= senioritySentinel {
			return math.NaN()
		}
		if v < 0 {
			return math.NaN()
		}
	}
	return v
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}

// median returns the middle value of xs, or NaN for an empty slice.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"recommender/models"
)

// Demographic/account columns used as model features, split by how they are
// encoded. The order here fixes the feature vector layout: numeric columns
// first, then categorical codes.
var numericColumns = []string{
	"age",
	"ind_nuevo",
	"antiguedad",
	"indrel",
	"cod_prov",
	"ind_actividad_cliente",
	"renta",
}

var categoricalColumns = []string{
	"ind_empleado",
	"pais_residencia",
	"sexo",
	"indrel_1mes",
	"tiprel_1mes",
	"indresi",
	"indext",
	"canal_entrada",
	"indfall",
	"segmento",
}

const (
	monthColumn    = "fecha_dato"
	customerColumn = "ncodpers"
	segmentColumn  = "segmento"

	// antiguedad carries this sentinel for unknown seniority
	senioritySentinel = -999999

	ageMin = 18
	ageMax = 100
)

// UnseenCategory is the code assigned to missing or unknown categorical values.
const UnseenCategory = -1

// Row is one raw customer-month record as parsed from the CSV, before
// imputation and encoding. Numeric values that failed to parse are NaN.
type Row struct {
	Month       string
	CustomerID  int
	Numeric     []float64 // parallel to numericColumns
	Categorical []string  // parallel to categoricalColumns
	Products    models.ProductVector
	HasProducts bool
}

// LoadSantanderFile reads a Santander-style CSV from disk.
func LoadSantanderFile(path string) ([]*Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadSantanderRows(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	return rows, nil
}

// ReadSantanderRows parses customer-month records. The product ownership
// columns are optional: the test split ships without them.
func ReadSantanderRows(r io.Reader) ([]*Row, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{monthColumn, customerColumn} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	numIdx := make([]int, len(numericColumns))
	for i, name := range numericColumns {
		idx, ok := col[name]
		if !ok {
			return nil, fmt.Errorf("missing feature column %q", name)
		}
		numIdx[i] = idx
	}
	catIdx := make([]int, len(categoricalColumns))
	for i, name := range categoricalColumns {
		idx, ok := col[name]
		if !ok {
			return nil, fmt.Errorf("missing feature column %q", name)
		}
		catIdx[i] = idx
	}

	// Product columns are present on train data only
	prodIdx := make([]int, models.NumProducts)
	hasProducts := true
	for i, code := range models.ProductCodes {
		idx, ok := col[code]
		if !ok {
			hasProducts = false
			break
		}
		prodIdx[i] = idx
	}

	var rows []*Row
	var skipped int
	line := 1
	for {
		record, err := cr.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record at line %d: %w", line, err)
		}

		customerID, err := strconv.Atoi(strings.TrimSpace(record[col[customerColumn]]))
		if err != nil {
			// A record without a usable customer id cannot be joined anywhere
			skipped++
			continue
		}

		row := &Row{
			Month:       strings.TrimSpace(record[col[monthColumn]]),
			CustomerID:  customerID,
			Numeric:     make([]float64, len(numericColumns)),
			Categorical: make([]string, len(categoricalColumns)),
			HasProducts: hasProducts,
		}
		for i, idx := range numIdx {
			row.Numeric[i] = parseNumeric(record[idx])
		}
		for i, idx := range catIdx {
			row.Categorical[i] = parseCategory(record[idx])
		}
		if hasProducts {
			for i, idx := range prodIdx {
				row.Products[i] = parseFlag(record[idx])
			}
		}
		rows = append(rows, row)
	}

	if skipped > 0 {
		log.WithFields(log.Fields{
			"skipped": skipped,
		}).Warn("Dropped records without a parseable customer id")
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset contains no usable records")
	}
	return rows, nil
}

// Months returns the distinct reporting months present in rows, ascending.
// Santander months are YYYY-MM-DD stamps, so lexical order is temporal order.
func Months(rows []*Row) []string {
	seen := make(map[string]bool)
	var months []string
	for _, row := range rows {
		if !seen[row.Month] {
			seen[row.Month] = true
			months = append(months, row.Month)
		}
	}
	sort.Strings(months)
	return months
}

// parseNumeric coerces a CSV cell to float64, returning NaN for anything that
// does not parse. Coercion failures are silent by design of the source data:
// "NA", empty cells and stray text all become missing.
func parseNumeric(cell string) float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "NA" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseCategory(cell string) string {
	cell = strings.TrimSpace(cell)
	if cell == "NA" {
		return ""
	}
	return cell
}

// parseFlag coerces a product ownership cell to {0, 1}.
func parseFlag(cell string) uint8 {
	v := parseNumeric(cell)
	if math.IsNaN(v) || v < 0.5 {
		return 0
	}
	return 1
}

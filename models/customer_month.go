package models

// CustomerMonth is one encoded customer snapshot for a given reporting month.
// Features holds the imputed and label-encoded demographic/account columns in
// a fixed order; the order is described by the feature name list returned by
// the dataset package alongside the rows.
type CustomerMonth struct {
	Month      string // reporting month, YYYY-MM-DD as it appears in the source
	CustomerID int
	Features   []float64
	Products   ProductVector
}

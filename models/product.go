package models

// NumProducts is the number of product ownership flags tracked per customer.
const NumProducts = 24

// ProductCodes lists the product flag column names in dataset order.
// The index of a code in this list is the product's label index everywhere
// in the pipeline.
var ProductCodes = [NumProducts]string{
	"ind_ahor_fin_ult1",
	"ind_aval_fin_ult1",
	"ind_cco_fin_ult1",
	"ind_cder_fin_ult1",
	"ind_cno_fin_ult1",
	"ind_ctju_fin_ult1",
	"ind_ctma_fin_ult1",
	"ind_ctop_fin_ult1",
	"ind_ctpp_fin_ult1",
	"ind_deco_fin_ult1",
	"ind_deme_fin_ult1",
	"ind_dela_fin_ult1",
	"ind_ecue_fin_ult1",
	"ind_fond_fin_ult1",
	"ind_hip_fin_ult1",
	"ind_plan_fin_ult1",
	"ind_pres_fin_ult1",
	"ind_reca_fin_ult1",
	"ind_tjcr_fin_ult1",
	"ind_valo_fin_ult1",
	"ind_viv_fin_ult1",
	"ind_nomina_ult1",
	"ind_nom_pens_ult1",
	"ind_recibo_ult1",
}

// ProductVector holds the binary ownership flags for one customer-month.
type ProductVector [NumProducts]uint8

// Owns reports whether the product at index i is owned.
func (v ProductVector) Owns(i int) bool {
	return v[i] == 1
}

// Count returns the number of owned products.
func (v ProductVector) Count() int {
	n := 0
	for _, f := range v {
		if f == 1 {
			n++
		}
	}
	return n
}

package output

import (
	"encoding/json"
	"io"
	"math"

	"github.com/inodb/tnbc-explorer/internal/query"
)

// CohortJSON is the JSON form of a query.Summary. Undefined statistics are
// null so they cannot be confused with zero.
type CohortJSON struct {
	Mean *float64 `json:"mean"`
	SEM  *float64 `json:"sem"`
	N    int      `json:"n"`
}

// ResultJSON is the JSON form of a query.Result.
type ResultJSON struct {
	Gene           string     `json:"gene"`
	GeneType       string     `json:"gene_type,omitempty"`
	TNBC           CohortJSON `json:"tnbc"`
	Normal         CohortJSON `json:"normal"`
	Log2FoldChange *float64   `json:"log2_fold_change"`
}

// NewResultJSON converts a result for encoding.
func NewResultJSON(r *query.Result) ResultJSON {
	return ResultJSON{
		Gene:           r.Gene,
		GeneType:       r.GeneType,
		TNBC:           cohortJSON(r.TNBC),
		Normal:         cohortJSON(r.Normal),
		Log2FoldChange: finite(r.Log2FoldChange),
	}
}

func cohortJSON(s query.Summary) CohortJSON {
	return CohortJSON{Mean: finite(s.Mean), SEM: finite(s.SEM), N: s.N}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// WriteJSON writes the result as indented JSON followed by a newline.
func WriteJSON(w io.Writer, r *query.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewResultJSON(r))
}

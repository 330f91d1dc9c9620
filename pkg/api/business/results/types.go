package results

// HeaderColumns is written ahead of the exported rows in the spreadsheet.
var HeaderColumns = []string{"Query Image", "Similar Image", "Similarity Score"}

// Row is a single similarity result tuple, written verbatim to a
// spreadsheet row.
type Row struct {
	QueryAsset   string  `json:"query_asset"`
	MatchedAsset string  `json:"matched_asset"`
	Score        float64 `json:"score"`
	Exported     bool    `json:"exported,omitempty"`
}

// Values returns the row in spreadsheet cell order.
func (r Row) Values() []any {
	return []any{r.QueryAsset, r.MatchedAsset, r.Score}
}

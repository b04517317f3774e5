package domain

// MaxBulkDeleteIDs caps a bulk delete request. Each id costs one Admin API
// round trip, there is no multi-delete mutation.
const MaxBulkDeleteIDs = 100

// BulkItemStatus is the outcome of one id in a bulk operation.
type BulkItemStatus string

const (
	BulkItemDeleted  BulkItemStatus = "deleted"
	BulkItemNotFound BulkItemStatus = "not_found"
	BulkItemFailed   BulkItemStatus = "failed"
)

// BulkItemResult is the per-id outcome.
type BulkItemResult struct {
	ID     string         `json:"id"`
	Status BulkItemStatus `json:"status"`
	Error  string         `json:"error,omitempty"`
}

// BulkSummary aggregates a batch. NotFound items are counted as failed and
// also reported separately.
type BulkSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	NotFound  int `json:"notFound"`
}

// BulkDeleteOutcome is returned for every batch that passed validation,
// whatever the per-item results were.
type BulkDeleteOutcome struct {
	Results []BulkItemResult `json:"results"`
	Summary BulkSummary      `json:"summary"`
}

// NewBulkDeleteOutcome builds the summary from results.
func NewBulkDeleteOutcome(results []BulkItemResult) *BulkDeleteOutcome {
	out := &BulkDeleteOutcome{Results: results}
	out.Summary.Total = len(results)
	for _, r := range results {
		switch r.Status {
		case BulkItemDeleted:
			out.Summary.Succeeded++
		case BulkItemNotFound:
			out.Summary.NotFound++
			out.Summary.Failed++
		default:
			out.Summary.Failed++
		}
	}
	return out
}

package models

// BatchRequest is the body of POST /products/batch and
// /products/{id}/variations/batch.
type BatchRequest struct {
	Create interface{} `json:"create,omitempty"`
	Update interface{} `json:"update,omitempty"`
	Delete []int64     `json:"delete,omitempty"`
}

// BatchResult lists one entry per submitted item. Rejected items carry Error.
type BatchResult struct {
	Create []BatchItem `json:"create,omitempty"`
	Update []BatchItem `json:"update,omitempty"`
	Delete []BatchItem `json:"delete,omitempty"`
}

type BatchItem struct {
	ID    int64     `json:"id"`
	Sku   string    `json:"sku,omitempty"`
	Error *ErrorWoo `json:"error,omitempty"`
}

// Failed returns the rejected update entries.
func (r *BatchResult) Failed() []BatchItem {
	var out []BatchItem
	for _, it := range r.Update {
		if it.Error != nil {
			out = append(out, it)
		}
	}
	return out
}

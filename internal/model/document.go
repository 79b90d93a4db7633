package model

// DocumentList pairs ids with document contents; both slices have the same
// length and order.
type DocumentList struct {
	IDs       []string `json:"ids"`
	Documents []string `json:"documents"`
}

func NewDocumentList(ids, documents []string) *DocumentList {
	if ids == nil {
		ids = []string{}
	}
	if documents == nil {
		documents = []string{}
	}
	return &DocumentList{IDs: ids, Documents: documents}
}

package model

type CollectionInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

type CollectionList struct {
	Collections []string `json:"collections"`
}

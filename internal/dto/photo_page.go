package dto

import "camvault/internal/model"

// PhotoPage is one page of the photo listing.
type PhotoPage struct {
	Data    []model.Photo `json:"data"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Skip    int           `json:"skip"`
	HasMore bool          `json:"hasMore"`
}

package dto

// PhotoFilters narrows photo queries. Limit <= 0 means no limit.
type PhotoFilters struct {
	CameraName string
	Limit      int
	Skip       int
}

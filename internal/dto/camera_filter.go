package dto

// CameraFilters narrows camera queries. ActiveOnly keeps records with active = true.
type CameraFilters struct {
	ActiveOnly bool
}

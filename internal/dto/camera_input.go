package dto

import "camvault/internal/model"

// CameraCreate is the payload accepted by camera creation.
type CameraCreate struct {
	Name     string                `json:"name"`
	URL      string                `json:"url"`
	Kind     model.CameraKind      `json:"type,omitempty"`
	Metadata *model.CameraMetadata `json:"metadata,omitempty"`
}

// CameraPatch describes a partial camera update. A nil field is left unchanged.
type CameraPatch struct {
	Name     *string               `json:"name,omitempty"`
	URL      *string               `json:"url,omitempty"`
	Kind     *model.CameraKind     `json:"type,omitempty"`
	Metadata *model.CameraMetadata `json:"metadata,omitempty"`
}

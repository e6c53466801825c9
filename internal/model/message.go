package model

import (
	"errors"
	"strings"
)

// ErrPartialLocation is returned when only one of lat and lon is given
var ErrPartialLocation = errors.New("lat and lon must be given together")

// MessageRequest is the body of POST /api/v1/messages
type MessageRequest struct {
	Message  string   `json:"message" binding:"required"`
	Lat      *float64 `json:"lat,omitempty" binding:"omitempty,gte=-90,lte=90"`
	Lon      *float64 `json:"lon,omitempty" binding:"omitempty,gte=-180,lte=180"`
	IsPoint  *bool    `json:"is_point,omitempty"`
	Language *string  `json:"language,omitempty"` // only used for the not-found message
}

// Validate checks the constraints binding tags cannot express
func (r *MessageRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return errors.New("message must not be blank")
	}
	if (r.Lat == nil) != (r.Lon == nil) {
		return ErrPartialLocation
	}
	return nil
}

// HasLocation reports whether the request carries a geographic point
func (r *MessageRequest) HasLocation() bool {
	return r.Lat != nil && r.Lon != nil
}

// TargetsPoint reports whether the caller asked about an exact point rather than an area
func (r *MessageRequest) TargetsPoint() bool {
	return r.IsPoint != nil && *r.IsPoint
}

// MessageResponse is the answer returned to the caller
type MessageResponse struct {
	Response string `json:"response"`
}

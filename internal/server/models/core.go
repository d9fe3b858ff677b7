package models

import "time"

// Core is a geological sample site. Everything except Name is optional.
type Core struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Lat         *Coordinate `json:"lat"`
	Lon         *Coordinate `json:"lon"`
	WaterDepthM *int        `json:"w_depth_m"`
	LengthCM    *int        `json:"length_cm"`
	Type        *string     `json:"type"`
	CreatedAt   time.Time   `json:"created_at"`
}

package models

import (
	"encoding/json"
	"fmt"
)

// Coordinate validation constants
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Coordinates is an optional WGS84 position of a property.
// It is serialized as a GeoJSON Point, which stores [lon, lat].
type Coordinates struct {
	Lat float64
	Lng float64
}

// Validate checks that the coordinates are within WGS84 bounds.
func (c Coordinates) Validate() error {
	if c.Lat < MinLatitude || c.Lat > MaxLatitude {
		return fmt.Errorf("latitude must be between %f and %f, got %f", MinLatitude, MaxLatitude, c.Lat)
	}
	if c.Lng < MinLongitude || c.Lng > MaxLongitude {
		return fmt.Errorf("longitude must be between %f and %f, got %f", MinLongitude, MaxLongitude, c.Lng)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
// Returns GeoJSON-compliant format for frontend consumption.
func (c Coordinates) MarshalJSON() ([]byte, error) {
	geom := struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}{
		Type:        "Point",
		Coordinates: [2]float64{c.Lng, c.Lat},
	}
	return json.Marshal(geom)
}

// UnmarshalJSON implements json.Unmarshaler for GeoJSON Point input.
// A bare {"lat":..,"lng":..} object is accepted as well.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var geom struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
		Lat         *float64  `json:"lat"`
		Lng         *float64  `json:"lng"`
	}

	if err := json.Unmarshal(data, &geom); err != nil {
		return fmt.Errorf("failed to unmarshal point: %w", err)
	}

	if geom.Lat != nil && geom.Lng != nil {
		c.Lat, c.Lng = *geom.Lat, *geom.Lng
		return nil
	}

	if geom.Type != "" && geom.Type != "Point" {
		return fmt.Errorf("expected Point type, got %s", geom.Type)
	}
	if len(geom.Coordinates) != 2 {
		return fmt.Errorf("point must have exactly 2 coordinates, got %d", len(geom.Coordinates))
	}

	c.Lng = geom.Coordinates[0]
	c.Lat = geom.Coordinates[1]
	return nil
}

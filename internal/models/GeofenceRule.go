package models

import "attendance_gate/internal/location"

// GeofenceRule is an attendance zone. Coordinates are kept as entered by
// admins, which may include a decimal comma ("-6,2001").
type GeofenceRule struct {
	ID           string `json:"id" gorm:"primaryKey;size:64"`
	ZoneName     string `json:"zone_name"`
	Latitude     string `json:"latitude" gorm:"type:text"`
	Longitude    string `json:"longitude" gorm:"type:text"`
	RadiusMeters string `json:"radius_meters" gorm:"type:text"`
}

func (r GeofenceRule) Raw() location.RawRule {
	return location.RawRule{
		ID:           r.ID,
		ZoneName:     r.ZoneName,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		RadiusMeters: r.RadiusMeters,
	}
}

package dashboard

import "time"

type DamageLevel string

const (
	DamageSafe      DamageLevel = "safe"
	DamageDamaged   DamageLevel = "damaged"
	DamageCollapsed DamageLevel = "collapsed"
)

type DetectionStatus string

const (
	StatusConfirmed     DetectionStatus = "confirmed"
	StatusPotential     DetectionStatus = "potential"
	StatusFalsePositive DetectionStatus = "false_positive"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type BoundingBox struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
}

type SurvivorDetection struct {
	ID          string          `json:"id"`
	BBox        BoundingBox     `json:"bbox"`
	Confidence  float64         `json:"confidence"`
	Status      DetectionStatus `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
	Coordinates Coordinates     `json:"coordinates"`
}

type BuildingDamage struct {
	ID          string      `json:"id"`
	Coordinates Coordinates `json:"coordinates"`
	DamageLevel DamageLevel `json:"damage_level"`
	Confidence  float64     `json:"confidence"`
	AreaSqm     float64     `json:"area_sqm"`
	Timestamp   time.Time   `json:"timestamp"`
}

type SegmentationMask struct {
	MaskURL             string  `json:"mask_url"`
	SafePercentage      float64 `json:"safe_percentage"`
	DamagedPercentage   float64 `json:"damaged_percentage"`
	CollapsedPercentage float64 `json:"collapsed_percentage"`
}

type DroneFlightData struct {
	FlightID           string              `json:"flight_id"`
	DroneID            string              `json:"drone_id"`
	Timestamp          time.Time           `json:"timestamp"`
	Coordinates        Coordinates         `json:"coordinates"`
	Altitude           float64             `json:"altitude"`
	ImageURL           string              `json:"image_url"`
	SegmentationMask   *SegmentationMask   `json:"segmentation_mask,omitempty"`
	BuildingDamages    []BuildingDamage    `json:"building_damages"`
	SurvivorDetections []SurvivorDetection `json:"survivor_detections"`
	ProcessingStatus   string              `json:"processing_status"`
}

type DisasterZone struct {
	ZoneID             string        `json:"zone_id"`
	Name               string        `json:"name"`
	CenterCoordinates  Coordinates   `json:"center_coordinates"`
	BoundaryPolygon    []Coordinates `json:"boundary_polygon"`
	SeverityLevel      int           `json:"severity_level"`
	TotalBuildings     int           `json:"total_buildings"`
	SafeBuildings      int           `json:"safe_buildings"`
	DamagedBuildings   int           `json:"damaged_buildings"`
	CollapsedBuildings int           `json:"collapsed_buildings"`
	SurvivorCount      int           `json:"survivor_count"`
	LastUpdated        time.Time     `json:"last_updated"`
}

type AnalyticsSummary struct {
	TotalFlights           int                `json:"total_flights"`
	TotalAreaCoveredSqkm   float64            `json:"total_area_covered_sqkm"`
	TotalBuildingsAssessed int                `json:"total_buildings_assessed"`
	TotalSurvivorsDetected int                `json:"total_survivors_detected"`
	DamageDistribution     map[string]int     `json:"damage_distribution"`
	RecentActivity         []*DroneFlightData `json:"recent_activity"`
	ActiveZones            []DisasterZone     `json:"active_zones"`
}

// Message is the envelope pushed to WebSocket subscribers.
type Message struct {
	Type      string      `json:"type"` // "flight_update", "new_detection", "zone_update"
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

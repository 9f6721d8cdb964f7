package dashboard

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Myanmar earthquake region, roughly around the affected areas.
var regionBounds = struct {
	north, south, east, west float64
}{north: 22.5, south: 21.5, east: 96.5, west: 95.5}

var zoneNames = []string{
	"Mandalay Urban Center",
	"Sagaing Rural District",
	"Myitkyina Township",
	"Lashio Commercial Area",
	"Monywa Residential Zone",
	"Shwebo Agricultural District",
}

var droneIDs = []string{"DRONE_001", "DRONE_002", "DRONE_003", "DRONE_004", "DRONE_005"}

// zoneProximity is the coordinate delta treated as "within the zone"
// when filtering flights, buildings, and survivors.
const zoneProximity = 0.05

// Dataset holds the mock disaster-response data served by the dashboard
// API. Generation is driven by a seeded source so a given seed always
// produces the same dataset.
type Dataset struct {
	mu        sync.RWMutex
	rng       *rand.Rand
	zones     []DisasterZone
	flights   []*DroneFlightData
	buildings []BuildingDamage
	survivors []SurvivorDetection
}

// NewDataset generates a dataset from the given seed and sizes.
func NewDataset(seed int64, flightCount, buildingCount, survivorCount int) *Dataset {
	d := &Dataset{rng: rand.New(rand.NewSource(seed))}
	d.zones = d.generateZones()
	d.flights = d.generateFlights(flightCount)
	d.buildings = d.generateBuildings(buildingCount)
	d.survivors = d.generateSurvivors(survivorCount)
	return d
}

func (d *Dataset) randomCoordinate() Coordinates {
	return Coordinates{
		Latitude:  regionBounds.south + d.rng.Float64()*(regionBounds.north-regionBounds.south),
		Longitude: regionBounds.west + d.rng.Float64()*(regionBounds.east-regionBounds.west),
	}
}

func (d *Dataset) uniform(lo, hi float64) float64 {
	return lo + d.rng.Float64()*(hi-lo)
}

// intn returns a value in [lo, hi].
func (d *Dataset) intn(lo, hi int) int {
	return lo + d.rng.Intn(hi-lo+1)
}

func (d *Dataset) minutesAgo(maxMinutes int) time.Time {
	return time.Now().Add(-time.Duration(d.intn(1, maxMinutes)) * time.Minute)
}

func (d *Dataset) generateZones() []DisasterZone {
	zones := make([]DisasterZone, 0, len(zoneNames))
	for i, name := range zoneNames {
		center := d.randomCoordinate()
		boundary := []Coordinates{
			{Latitude: center.Latitude - 0.02, Longitude: center.Longitude - 0.02},
			{Latitude: center.Latitude - 0.02, Longitude: center.Longitude + 0.02},
			{Latitude: center.Latitude + 0.02, Longitude: center.Longitude + 0.02},
			{Latitude: center.Latitude + 0.02, Longitude: center.Longitude - 0.02},
		}

		total := d.intn(50, 300)
		collapsed := d.intn(5, total/4)
		damaged := d.intn(10, total/3)
		safe := total - collapsed - damaged

		zones = append(zones, DisasterZone{
			ZoneID:             fmt.Sprintf("zone_%d", i+1),
			Name:               name,
			CenterCoordinates:  center,
			BoundaryPolygon:    boundary,
			SeverityLevel:      d.intn(2, 5),
			TotalBuildings:     total,
			SafeBuildings:      safe,
			DamagedBuildings:   damaged,
			CollapsedBuildings: collapsed,
			SurvivorCount:      d.intn(0, 15),
			LastUpdated:        d.minutesAgo(60),
		})
	}
	return zones
}

func (d *Dataset) weightedDamageLevel() DamageLevel {
	switch r := d.rng.Float64(); {
	case r < 0.5:
		return DamageSafe
	case r < 0.85:
		return DamageDamaged
	default:
		return DamageCollapsed
	}
}

func (d *Dataset) weightedDetectionStatus() DetectionStatus {
	switch r := d.rng.Float64(); {
	case r < 0.4:
		return StatusConfirmed
	case r < 0.85:
		return StatusPotential
	default:
		return StatusFalsePositive
	}
}

func (d *Dataset) generateBuildings(n int) []BuildingDamage {
	buildings := make([]BuildingDamage, 0, n)
	for i := 0; i < n; i++ {
		buildings = append(buildings, BuildingDamage{
			ID:          fmt.Sprintf("building_%d", i+1),
			Coordinates: d.randomCoordinate(),
			DamageLevel: d.weightedDamageLevel(),
			Confidence:  d.uniform(0.7, 0.98),
			AreaSqm:     d.uniform(50, 500),
			Timestamp:   d.minutesAgo(120),
		})
	}
	return buildings
}

func (d *Dataset) generateSurvivors(n int) []SurvivorDetection {
	survivors := make([]SurvivorDetection, 0, n)
	for i := 0; i < n; i++ {
		survivors = append(survivors, SurvivorDetection{
			ID: fmt.Sprintf("survivor_%d", i+1),
			BBox: BoundingBox{
				X1:         d.uniform(0.1, 0.6),
				Y1:         d.uniform(0.1, 0.6),
				X2:         d.uniform(0.4, 0.9),
				Y2:         d.uniform(0.4, 0.9),
				Confidence: d.uniform(0.6, 0.95),
			},
			Confidence:  d.uniform(0.6, 0.95),
			Status:      d.weightedDetectionStatus(),
			Timestamp:   d.minutesAgo(180),
			Coordinates: d.randomCoordinate(),
		})
	}
	return survivors
}

func (d *Dataset) generateFlights(n int) []*DroneFlightData {
	flights := make([]*DroneFlightData, 0, n)
	for i := 0; i < n; i++ {
		flights = append(flights, d.generateFlight(len(flights)+1))
	}
	return flights
}

func (d *Dataset) generateFlight(seq int) *DroneFlightData {
	return &DroneFlightData{
		FlightID:    fmt.Sprintf("flight_%03d", seq),
		DroneID:     droneIDs[d.rng.Intn(len(droneIDs))],
		Timestamp:   d.minutesAgo(240),
		Coordinates: d.randomCoordinate(),
		Altitude:    d.uniform(50, 150),
		ImageURL:    fmt.Sprintf("https://storage.googleapis.com/disaster-images/flight_%03d.jpg", seq),
		SegmentationMask: &SegmentationMask{
			MaskURL:             fmt.Sprintf("https://storage.googleapis.com/disaster-masks/mask_%03d.png", seq),
			SafePercentage:      d.uniform(40, 70),
			DamagedPercentage:   d.uniform(20, 40),
			CollapsedPercentage: d.uniform(5, 20),
		},
		BuildingDamages:    d.generateBuildings(d.intn(3, 12)),
		SurvivorDetections: d.generateSurvivors(d.intn(0, 5)),
		ProcessingStatus:   "completed",
	}
}

// Zones returns all disaster zones.
func (d *Dataset) Zones() []DisasterZone {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]DisasterZone, len(d.zones))
	copy(out, d.zones)
	return out
}

// Zone looks up a zone by identifier.
func (d *Dataset) Zone(zoneID string) (DisasterZone, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, z := range d.zones {
		if z.ZoneID == zoneID {
			return z, true
		}
	}
	return DisasterZone{}, false
}

func nearZone(c Coordinates, zone DisasterZone) bool {
	return abs(c.Latitude-zone.CenterCoordinates.Latitude) < zoneProximity &&
		abs(c.Longitude-zone.CenterCoordinates.Longitude) < zoneProximity
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Flights returns up to limit flights, optionally filtered to a zone's
// surroundings. A non-positive limit returns everything.
func (d *Dataset) Flights(limit int, zoneID string) []*DroneFlightData {
	d.mu.RLock()
	defer d.mu.RUnlock()

	flights := d.flights
	if limit > 0 && limit < len(flights) {
		flights = flights[:limit]
	}

	if zoneID != "" {
		zone, ok := d.zoneLocked(zoneID)
		if ok {
			filtered := make([]*DroneFlightData, 0, len(flights))
			for _, f := range flights {
				if nearZone(f.Coordinates, zone) {
					filtered = append(filtered, f)
				}
			}
			flights = filtered
		}
	}

	out := make([]*DroneFlightData, len(flights))
	copy(out, flights)
	return out
}

func (d *Dataset) zoneLocked(zoneID string) (DisasterZone, bool) {
	for _, z := range d.zones {
		if z.ZoneID == zoneID {
			return z, true
		}
	}
	return DisasterZone{}, false
}

// Flight looks up a flight by identifier.
func (d *Dataset) Flight(flightID string) (*DroneFlightData, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, f := range d.flights {
		if f.FlightID == flightID {
			return f, true
		}
	}
	return nil, false
}

// Buildings returns damage assessments filtered by level and zone.
func (d *Dataset) Buildings(level DamageLevel, zoneID string, limit int) []BuildingDamage {
	d.mu.RLock()
	defer d.mu.RUnlock()

	buildings := d.buildings
	if limit > 0 && limit < len(buildings) {
		buildings = buildings[:limit]
	}

	out := make([]BuildingDamage, 0, len(buildings))
	zone, haveZone := d.zoneLocked(zoneID)
	for _, b := range buildings {
		if level != "" && b.DamageLevel != level {
			continue
		}
		if zoneID != "" && haveZone && !nearZone(b.Coordinates, zone) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Survivors returns detections filtered by status and zone.
func (d *Dataset) Survivors(status DetectionStatus, zoneID string, limit int) []SurvivorDetection {
	d.mu.RLock()
	defer d.mu.RUnlock()

	survivors := d.survivors
	if limit > 0 && limit < len(survivors) {
		survivors = survivors[:limit]
	}

	out := make([]SurvivorDetection, 0, len(survivors))
	zone, haveZone := d.zoneLocked(zoneID)
	for _, s := range survivors {
		if status != "" && s.Status != status {
			continue
		}
		if zoneID != "" && haveZone && !nearZone(s.Coordinates, zone) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Analytics builds the summary view over the current dataset. Takes the
// write lock because it draws from the shared random source.
func (d *Dataset) Analytics() AnalyticsSummary {
	d.mu.Lock()
	defer d.mu.Unlock()

	distribution := map[string]int{
		string(DamageSafe):      0,
		string(DamageDamaged):   0,
		string(DamageCollapsed): 0,
	}
	totalBuildings := 0
	totalSurvivors := 0
	for _, z := range d.zones {
		totalBuildings += z.TotalBuildings
		totalSurvivors += z.SurvivorCount
		distribution[string(DamageSafe)] += z.SafeBuildings
		distribution[string(DamageDamaged)] += z.DamagedBuildings
		distribution[string(DamageCollapsed)] += z.CollapsedBuildings
	}

	recent := d.flights
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	recentCopy := make([]*DroneFlightData, len(recent))
	copy(recentCopy, recent)

	zonesCopy := make([]DisasterZone, len(d.zones))
	copy(zonesCopy, d.zones)

	return AnalyticsSummary{
		TotalFlights:           len(d.flights),
		TotalAreaCoveredSqkm:   roundTo2(d.uniform(15, 45)),
		TotalBuildingsAssessed: totalBuildings,
		TotalSurvivorsDetected: totalSurvivors,
		DamageDistribution:     distribution,
		RecentActivity:         recentCopy,
		ActiveZones:            zonesCopy,
	}
}

func roundTo2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// SimulateFlight appends a freshly generated flight and returns it.
func (d *Dataset) SimulateFlight() *DroneFlightData {
	d.mu.Lock()
	defer d.mu.Unlock()
	flight := d.generateFlight(len(d.flights) + 1)
	flight.Timestamp = time.Now()
	d.flights = append(d.flights, flight)
	return flight
}

// SimulateSurvivor appends a freshly generated detection and returns it.
func (d *Dataset) SimulateSurvivor() SurvivorDetection {
	d.mu.Lock()
	defer d.mu.Unlock()
	survivors := d.generateSurvivors(1)
	survivor := survivors[0]
	survivor.ID = fmt.Sprintf("survivor_%d", len(d.survivors)+1)
	survivor.Timestamp = time.Now()
	d.survivors = append(d.survivors, survivor)
	return survivor
}

// RandomUpdate picks a zone or flight update for the periodic push.
func (d *Dataset) RandomUpdate() Message {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rng.Intn(2) == 0 && len(d.zones) > 0 {
		zone := d.zones[d.rng.Intn(len(d.zones))]
		return Message{Type: "zone_update", Data: zone, Timestamp: time.Now()}
	}

	recent := d.flights
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	if len(recent) == 0 {
		return Message{Type: "zone_update", Timestamp: time.Now()}
	}
	flight := recent[d.rng.Intn(len(recent))]
	return Message{Type: "flight_update", Data: flight, Timestamp: time.Now()}
}

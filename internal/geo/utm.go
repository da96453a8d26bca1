package geo

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid and UTM grid constants.
const (
	wgs84A         = 6378137.0
	wgs84F         = 1 / 298.257223563
	utmScale       = 0.9996
	falseEasting   = 500000.0
	falseNorthingS = 10000000.0

	// MinUTMLatitude and MaxUTMLatitude bound the latitudes the UTM grid
	// covers. Polar regions use UPS instead.
	MinUTMLatitude = -80.0
	MaxUTMLatitude = 84.0
)

const latitudeBands = "CDEFGHJKLMNPQRSTUVWXX"

// UTM is a position on the Universal Transverse Mercator grid.
type UTM struct {
	Zone     int
	Band     byte
	Easting  float64
	Northing float64
}

// ZoneLabel returns the zone number followed by the latitude band, e.g. "22J".
func (u UTM) ZoneLabel() string {
	return fmt.Sprintf("%d%c", u.Zone, u.Band)
}

// EastingLabel returns the easting rounded to the metre.
func (u UTM) EastingLabel() string {
	return fmt.Sprintf("%.0f", u.Easting)
}

// NorthingLabel returns the northing rounded to the metre.
func (u UTM) NorthingLabel() string {
	return fmt.Sprintf("%.0f", u.Northing)
}

// ToUTM projects a WGS84 latitude/longitude in degrees onto the UTM grid
// using the transverse Mercator series expansion from Snyder, "Map
// Projections: A Working Manual" (USGS PP 1395), accurate to well under a
// metre within a zone. ok is false outside the grid's latitude range.
func ToUTM(lat, lon float64) (u UTM, ok bool) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < MinUTMLatitude || lat > MaxUTMLatitude {
		return UTM{}, false
	}

	zone := int(math.Floor((lon+180)/6)) + 1
	if zone > 60 {
		zone = 60
	}
	if zone < 1 {
		zone = 1
	}
	centralMeridian := float64((zone-1)*6-180+3) * math.Pi / 180

	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180

	e2 := wgs84F * (2 - wgs84F)
	e4 := e2 * e2
	e6 := e4 * e2
	ep2 := e2 / (1 - e2)

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := wgs84A / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := cosPhi * (lambda - centralMeridian)

	m := wgs84A * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	easting := utmScale*n*(a+(1-t+c)*a3/6+(5-18*t+t*t+72*c-58*ep2)*a5/120) + falseEasting
	northing := utmScale * (m + n*tanPhi*(a2/2+(5-t+9*c+4*c*c)*a4/24+(61-58*t+t*t+600*c-330*ep2)*a6/720))
	if lat < 0 {
		northing += falseNorthingS
	}

	band := latitudeBands[int(math.Floor((lat+80)/8))]

	return UTM{
		Zone:     zone,
		Band:     band,
		Easting:  easting,
		Northing: northing,
	}, true
}

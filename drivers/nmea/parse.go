package nmea

import (
	nmea "github.com/adrianmo/go-nmea"

	"github.com/multisense-org/sensor-native/api/driver"
)

const (
	metersPerKnot = 0.514444

	// nominalRangeError scales dilution-of-precision values into meters.
	nominalRangeError = 5.0
)

// apply folds one parsed sentence into the current fixes. Fields a sentence
// does not carry stay at their previous value, or at the unreported marker
// when no fix existed yet. Caller holds fixMu.
func (f *Feed) apply(parsed nmea.Sentence) {
	switch m := parsed.(type) {
	case nmea.RMC:
		if m.Validity != "A" {
			return
		}
		geo := f.geoBase()
		geo.Latitude = m.Latitude
		geo.Longitude = m.Longitude
		geo.Speed = m.Speed * metersPerKnot
		geo.Course = m.Course
		f.geo, f.hasGeo = geo, true

	case nmea.GGA:
		if m.FixQuality == "0" {
			return
		}
		geo := f.geoBase()
		geo.Latitude = m.Latitude
		geo.Longitude = m.Longitude
		geo.Altitude = m.Altitude
		if m.HDOP > 0 {
			geo.HorizontalAccuracy = m.HDOP * nominalRangeError
		}
		f.geo, f.hasGeo = geo, true

	case nmea.GLL:
		if m.Validity != "A" {
			return
		}
		geo := f.geoBase()
		geo.Latitude = m.Latitude
		geo.Longitude = m.Longitude
		f.geo, f.hasGeo = geo, true

	case nmea.GSA:
		// Dilution values refine an existing fix, they are not one.
		if !f.hasGeo {
			return
		}
		if m.HDOP > 0 {
			f.geo.HorizontalAccuracy = m.HDOP * nominalRangeError
		}
		if m.VDOP > 0 {
			f.geo.VerticalAccuracy = m.VDOP * nominalRangeError
		}

	case nmea.VTG:
		heading := f.headingBase()
		heading.True = m.TrueTrack
		heading.Magnetic = m.MagneticTrack
		f.heading, f.hasHeading = heading, true
		if f.hasGeo {
			f.geo.Course = m.TrueTrack
			f.geo.Speed = m.GroundSpeedKnots * metersPerKnot
		}

	case nmea.HDT:
		heading := f.headingBase()
		heading.True = m.Heading
		f.heading, f.hasHeading = heading, true
	}
}

func (f *Feed) geoBase() driver.GeoSample {
	if f.hasGeo {
		return f.geo
	}
	return driver.GeoSample{
		HorizontalAccuracy: -1,
		VerticalAccuracy:   -1,
		Speed:              -1,
		Course:             -1,
	}
}

func (f *Feed) headingBase() driver.HeadingSample {
	if f.hasHeading {
		return f.heading
	}
	return driver.HeadingSample{Magnetic: -1, True: -1, Accuracy: -1}
}

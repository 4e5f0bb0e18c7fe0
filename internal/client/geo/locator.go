// Package geo supplies one-shot position fixes to the publisher.
package geo

import (
	"context"
	"errors"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrLocationUnavailable covers a denied permission, a failed fix and a
// device without geolocation.
var ErrLocationUnavailable = errors.New("location unavailable")

type Location struct {
	Latitude  float64
	Longitude float64
}

// Locator returns the device's current position.
type Locator interface {
	CurrentLocation(ctx context.Context) (Location, error)
}

// StaticLocator always answers with the same position.
type StaticLocator struct {
	Lat float64
	Lng float64
}

func NewStaticLocator(lat, lng float64) *StaticLocator {
	return &StaticLocator{Lat: lat, Lng: lng}
}

func (s *StaticLocator) CurrentLocation(ctx context.Context) (Location, error) {
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}
	return Location{Latitude: s.Lat, Longitude: s.Lng}, nil
}

// Unavailable is the locator of a device without geolocation.
type Unavailable struct{}

func (Unavailable) CurrentLocation(context.Context) (Location, error) {
	return Location{}, ErrLocationUnavailable
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Location, error)

func (f LocatorFunc) CurrentLocation(ctx context.Context) (Location, error) {
	return f(ctx)
}

// FromStrings builds a StaticLocator from textual coordinates, falling back to
// the FRIENDMAP_LAT and FRIENDMAP_LNG environment variables. Missing or
// unparsable input yields Unavailable.
func FromStrings(lat, lng string) Locator {
	if strings.TrimSpace(lat) == "" {
		lat = os.Getenv("FRIENDMAP_LAT")
	}
	if strings.TrimSpace(lng) == "" {
		lng = os.Getenv("FRIENDMAP_LNG")
	}

	la, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	ln, err2 := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err1 != nil || err2 != nil || math.IsNaN(la) || math.IsNaN(ln) {
		return Unavailable{}
	}
	return NewStaticLocator(la, ln)
}

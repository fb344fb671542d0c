// Package territory captures and resolves project territory boundaries.
//
// A territory is a single closed polygon drawn on a map surface. The package
// turns pointer interaction into a validated ring (ManualEngine, GuidedEngine),
// encodes it as a GeoJSON Feature for persistence, and resolves stored location
// values back into a displayable ring (Resolver). Geometry is modelled with
// paulmach/orb; territories and place registries can be exchanged as FlatGeobuf.
package territory

import (
	"errors"
)

// Common errors returned by this package.
var (
	ErrInvalidRing      = errors.New("territory: ring must be closed with at least 3 distinct points")
	ErrSelfIntersection = errors.New("territory: edge crosses an existing edge")
	ErrVertexOutOfRange = errors.New("territory: vertex index out of range")
	ErrNilGeometry      = errors.New("territory: nil geometry")
	ErrUnsupportedType  = errors.New("territory: unsupported geometry type")
	ErrInvalidData      = errors.New("territory: invalid data")
	ErrNoIndex          = errors.New("territory: file has no spatial index")
	ErrNilSurface       = errors.New("territory: nil surface")
	ErrNilSubscription  = errors.New("territory: surface returned no subscription")
)

// CRS represents a coordinate reference system.
type CRS struct {
	Code        int    // EPSG code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}

// Options configures FlatGeobuf writing.
type Options struct {
	Name         string // Layer name
	Description  string // Layer description
	IncludeIndex bool   // Include spatial index (default: true)
	CRS          *CRS   // Coordinate reference system (optional)
}

// DefaultOptions returns default options for writing FlatGeobuf files.
func DefaultOptions() *Options {
	return &Options{
		IncludeIndex: true,
		CRS:          WGS84(),
	}
}

// ColumnInfo describes a property column in a FlatGeobuf file.
type ColumnInfo struct {
	Name     string // Column name
	Type     string // Column type ("Int", "String", ...)
	Nullable bool   // Whether the column can contain null values
}

// Header contains metadata about a FlatGeobuf file.
type Header struct {
	Name          string       // Layer name
	Description   string       // Layer description
	GeometryType  string       // Geometry type ("Polygon", "Unknown", ...)
	FeaturesCount uint64       // Number of features in the file
	Envelope      [4]float64   // Bounding box [minX, minY, maxX, maxY]
	CRS           *CRS         // Coordinate reference system
	HasIndex      bool         // Whether the file has a spatial index
	Columns       []ColumnInfo // Property column schema
}

package territory

import (
	"fmt"
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Territory is a stored project territory: the committed feature plus the
// project it belongs to.
type Territory struct {
	ProjectID string
	Status    Status
	Feature   *geojson.Feature // interchange order
}

// Name returns the feature's name property, if any.
func (t Territory) Name() string {
	if t.Feature == nil {
		return ""
	}
	return t.Feature.Properties.MustString(PropertyName, "")
}

// WriteTerritories writes territories as FlatGeobuf polygons with name,
// project and status columns. Territories without a feature are skipped and
// any geometry other than a polygon fails with ErrUnsupportedType.
func WriteTerritories(w io.Writer, territories []Territory, opts *Options) error {
	records := make([]record, 0, len(territories))
	for _, t := range territories {
		if t.Feature == nil || t.Feature.Geometry == nil {
			continue
		}
		if orbToFGBGeometryType(t.Feature.Geometry) != flattypes.GeometryTypePolygon {
			return fmt.Errorf("%w: project %q has %s geometry",
				ErrUnsupportedType, t.ProjectID, t.Feature.Geometry.GeoJSONType())
		}
		records = append(records, record{
			geom: t.Feature.Geometry,
			props: geojson.Properties{
				columnName:    t.Name(),
				columnProject: t.ProjectID,
				columnStatus:  string(t.Status),
			},
		})
	}
	return writeRecords(w, records, territorySchema, opts)
}

// WritePlaces writes a registry as FlatGeobuf polygons with name and rank
// columns. The rank keeps lookup order, which the spatial index does not.
func WritePlaces(w io.Writer, reg *Registry, opts *Options) error {
	places := reg.Places()
	records := make([]record, 0, len(places))
	for i, p := range places {
		records = append(records, record{
			geom: p.Ring,
			props: geojson.Properties{
				columnName: p.Name,
				columnRank: i,
			},
		})
	}
	return writeRecords(w, records, placeSchema, opts)
}

// record is one feature ready to be written.
type record struct {
	geom  orb.Geometry
	props geojson.Properties
}

// writeRecords encodes all properties up front so a bad value fails the
// write before anything reaches w.
func writeRecords(w io.Writer, records []record, schema []column, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if len(records) == 0 {
		return ErrNilGeometry
	}

	encoded := make([][]byte, len(records))
	for i, r := range records {
		b, err := encodeProperties(r.props, schema)
		if err != nil {
			return err
		}
		encoded[i] = b
	}

	gen := &recordGenerator{records: records, props: encoded}
	return writeWithGenerator(w, gen, schema, opts)
}

// writeWithGenerator handles the common writing logic.
func writeWithGenerator(w io.Writer, gen writer.FeatureGenerator, schema []column, opts *Options) error {
	builder := flatbuffers.NewBuilder(4096)

	header := writer.NewHeader(builder)
	header.SetGeometryType(flattypes.GeometryTypePolygon)
	if opts.Name != "" {
		header.SetName(opts.Name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}
	header.SetColumns(buildColumns(schema, builder))

	if opts.CRS != nil {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG")
		if opts.CRS.Code > 0 {
			crs.SetCode(int32(opts.CRS.Code))
		}
		if opts.CRS.Name != "" {
			crs.SetName(opts.CRS.Name)
		}
		if opts.CRS.Description != "" {
			crs.SetDescription(opts.CRS.Description)
		}
		header.SetCrs(crs)
	}

	fgbWriter := writer.NewWriter(header, opts.IncludeIndex, gen, nil)
	_, err := fgbWriter.Write(w)
	return err
}

// recordGenerator feeds records to the FlatGeobuf writer.
type recordGenerator struct {
	records []record
	props   [][]byte
	index   int
}

func (g *recordGenerator) Generate() *writer.Feature {
	for g.index < len(g.records) {
		r, props := g.records[g.index], g.props[g.index]
		g.index++

		builder := flatbuffers.NewBuilder(1024)
		fgbGeom := geometryToFGB(r.geom, builder)
		if fgbGeom == nil {
			continue
		}

		feature := writer.NewFeature(builder)
		feature.SetGeometry(fgbGeom)
		if len(props) > 0 {
			feature.SetProperties(props)
		}
		return feature
	}
	return nil
}

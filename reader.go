package territory

import (
	"fmt"
	"sort"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Reader provides read access to a territory or place FlatGeobuf file.
type Reader struct {
	fgb *flatgeobuf.FlatGeoBuf
}

// NewReader opens the file at path. The file is memory-mapped.
func NewReader(path string) (*Reader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, fmt.Errorf("territory: open %s: %w", path, err)
	}
	return &Reader{fgb: fgb}, nil
}

// NewReaderFromData creates a reader over data.
func NewReaderFromData(data []byte) (*Reader, error) {
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &Reader{fgb: fgb}, nil
}

// Header returns metadata about the file.
func (r *Reader) Header() *Header {
	h := r.fgb.Header()
	if h == nil {
		return nil
	}

	header := &Header{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
	}

	if h.EnvelopeLength() >= 4 {
		header.Envelope = [4]float64{h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
		}
	}

	if n := h.ColumnsLength(); n > 0 {
		header.Columns = make([]ColumnInfo, 0, n)
		for i := 0; i < n; i++ {
			var col flattypes.Column
			if h.Columns(&col, i) {
				header.Columns = append(header.Columns, ColumnInfo{
					Name:     string(col.Name()),
					Type:     flattypes.EnumNamesColumnType[col.Type()],
					Nullable: col.Nullable(),
				})
			}
		}
	}

	return header
}

// ReadAll reads every feature. Features come back in index order, not in the
// order they were written. Files written without an index cannot be iterated
// by the underlying library and return ErrNoIndex.
func (r *Reader) ReadAll() (*geojson.FeatureCollection, error) {
	h := r.fgb.Header()
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}
	if h.FeaturesCount() == 0 || h.EnvelopeLength() < 4 {
		return geojson.NewFeatureCollection(), nil
	}

	return r.search(h, orb.Bound{
		Min: orb.Point{h.Envelope(0), h.Envelope(1)},
		Max: orb.Point{h.Envelope(2), h.Envelope(3)},
	})
}

// Search returns the features whose bounding boxes intersect b, given in
// interchange order.
func (r *Reader) Search(b orb.Bound) (*geojson.FeatureCollection, error) {
	h := r.fgb.Header()
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}
	return r.search(h, b)
}

func (r *Reader) search(h *flattypes.Header, b orb.Bound) (*geojson.FeatureCollection, error) {
	features, err := r.fgb.Search(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	if err != nil {
		return nil, fmt.Errorf("territory: search: %w", err)
	}

	fc := geojson.NewFeatureCollection()
	for _, fgbFeature := range features {
		if f := convertFeature(fgbFeature, h); f != nil {
			fc.Append(f)
		}
	}
	return fc, nil
}

// Territories reads a file written by WriteTerritories.
func (r *Reader) Territories() ([]Territory, error) {
	fc, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make([]Territory, 0, len(fc.Features))
	for _, f := range fc.Features {
		t := Territory{
			ProjectID: f.Properties.MustString(columnProject, ""),
			Status:    Status(f.Properties.MustString(columnStatus, "")),
			Feature:   geojson.NewFeature(f.Geometry),
		}
		t.Feature.Properties[PropertyName] = f.Properties.MustString(columnName, "")
		out = append(out, t)
	}
	return out, nil
}

// Close releases the reader. The underlying library has no explicit close;
// dropping the reference lets the mapping be collected.
func (r *Reader) Close() error {
	r.fgb = nil
	return nil
}

// LoadRegistry builds a registry from a file written by WritePlaces, in rank
// order.
func LoadRegistry(r *Reader) (*Registry, error) {
	fc, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	type ranked struct {
		rank  int64
		place Place
	}
	entries := make([]ranked, 0, len(fc.Features))
	for _, f := range fc.Features {
		ring, ok := OuterRing(f)
		if !ok {
			continue
		}
		rank, ok := toInt64(f.Properties[columnRank])
		if !ok {
			rank = int64(len(fc.Features)) // unranked entries go last
		}
		entries = append(entries, ranked{
			rank:  rank,
			place: Place{Name: f.Properties.MustString(columnName, ""), Ring: ring},
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].rank < entries[j].rank })

	places := make([]Place, 0, len(entries))
	for _, e := range entries {
		places = append(places, e.place)
	}
	reg := NewRegistry(places...)
	if reg.Len() == 0 {
		return nil, fmt.Errorf("%w: no usable places", ErrInvalidData)
	}
	return reg, nil
}

// LoadRegistryFile opens path and loads the registry it holds.
func LoadRegistryFile(path string) (*Registry, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return LoadRegistry(r)
}

// convertFeature converts a FlatGeobuf feature to a geojson.Feature.
func convertFeature(fgbFeature *flattypes.Feature, header *flattypes.Header) *geojson.Feature {
	if fgbFeature == nil {
		return nil
	}

	var geomObj flattypes.Geometry
	geom := fgbFeature.Geometry(&geomObj)
	polygon, ok := polygonFromFGB(geom)
	if !ok {
		return nil
	}

	feature := geojson.NewFeature(polygon)
	if n := fgbFeature.PropertiesLength(); n > 0 && header.ColumnsLength() > 0 {
		data := make([]byte, n)
		for i := 0; i < n; i++ {
			data[i] = byte(fgbFeature.Properties(i))
		}
		if props := decodeProperties(data, header); props != nil {
			feature.Properties = props
		}
	}
	return feature
}

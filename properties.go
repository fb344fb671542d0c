package territory

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb/geojson"
)

// column is one entry of a fixed property schema.
type column struct {
	name string
	typ  flattypes.ColumnType
}

// Property columns of the files written by this package.
const (
	columnName    = PropertyName
	columnProject = "project"
	columnStatus  = "status"
	columnRank    = "rank"
)

var territorySchema = []column{
	{columnName, flattypes.ColumnTypeString},
	{columnProject, flattypes.ColumnTypeString},
	{columnStatus, flattypes.ColumnTypeString},
}

var placeSchema = []column{
	{columnName, flattypes.ColumnTypeString},
	{columnRank, flattypes.ColumnTypeInt},
}

// buildColumns creates the header columns for schema.
func buildColumns(schema []column, builder *flatbuffers.Builder) []*writer.Column {
	columns := make([]*writer.Column, 0, len(schema))
	for _, c := range schema {
		col := writer.NewColumn(builder)
		col.SetName(c.name)
		col.SetTitle(c.name) // title mirrors name for the JS reader
		col.SetType(c.typ)
		col.SetNullable(true)
		columns = append(columns, col)
	}
	return columns
}

// encodeProperties encodes props following schema. Each present value is
// written as [uint16 column index][value]; strings are length-prefixed.
func encodeProperties(props geojson.Properties, schema []column) ([]byte, error) {
	var buf bytes.Buffer
	for i, c := range schema {
		value, ok := props[c.name]
		if !ok || value == nil {
			continue
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint16(i)); err != nil {
			return nil, err
		}
		if err := writePropertyValue(&buf, value, c); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writePropertyValue(buf *bytes.Buffer, value any, c column) error {
	switch c.typ {
	case flattypes.ColumnTypeString:
		s, ok := value.(string)
		if !ok {
			s = fmt.Sprint(value)
		}
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		buf.WriteString(s)
		return nil

	case flattypes.ColumnTypeInt:
		n, ok := toInt64(value)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return fmt.Errorf("%w: column %q wants int32, got %v", ErrInvalidData, c.name, value)
		}
		return binary.Write(buf, binary.LittleEndian, int32(n))

	default:
		return fmt.Errorf("%w: column %q has unsupported type %s",
			ErrInvalidData, c.name, flattypes.EnumNamesColumnType[c.typ])
	}
}

// decodeProperties decodes FlatGeobuf properties against the file header.
// Decoding stops at the first malformed value; what was read so far is kept.
func decodeProperties(data []byte, header *flattypes.Header) geojson.Properties {
	if len(data) == 0 || header == nil {
		return nil
	}

	props := make(geojson.Properties)
	offset := 0
	for offset+2 <= len(data) {
		colIndex := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
		offset += 2

		var col flattypes.Column
		if colIndex >= header.ColumnsLength() || !header.Columns(&col, colIndex) {
			break
		}

		value, n := readPropertyValue(data[offset:], col.Type())
		if n == 0 {
			break
		}
		offset += n
		props[string(col.Name())] = value
	}
	return props
}

// readPropertyValue returns the value at the head of data and its size, or
// zero size when the value is truncated or of an unsupported type.
func readPropertyValue(data []byte, colType flattypes.ColumnType) (any, int) {
	switch colType {
	case flattypes.ColumnTypeBool:
		if len(data) < 1 {
			return nil, 0
		}
		return data[0] != 0, 1

	case flattypes.ColumnTypeInt:
		if len(data) < 4 {
			return nil, 0
		}
		return int32(binary.LittleEndian.Uint32(data[:4])), 4

	case flattypes.ColumnTypeLong:
		if len(data) < 8 {
			return nil, 0
		}
		return int64(binary.LittleEndian.Uint64(data[:8])), 8

	case flattypes.ColumnTypeDouble:
		if len(data) < 8 {
			return nil, 0
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data[:8])), 8

	case flattypes.ColumnTypeString, flattypes.ColumnTypeJson, flattypes.ColumnTypeDateTime:
		if len(data) < 4 {
			return nil, 0
		}
		n := int(binary.LittleEndian.Uint32(data[:4]))
		if n < 0 || len(data) < 4+n {
			return nil, 0
		}
		return string(data[4 : 4+n]), 4 + n

	default:
		return nil, 0
	}
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		return int64(val), true
	}
	return 0, false
}

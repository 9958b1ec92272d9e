package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-map/internal/geo"
)

// DefaultGeometryColumn is the column QueryFeatures reads geometry from
// when none is named.
const DefaultGeometryColumn = "geometry"

// QueryFeatures runs query and turns each row into features. The geometry
// column must hold GeoJSON geometry text, for example the output of
// ST_AsGeoJSON; every other column becomes a feature property. Rows with a
// NULL geometry are skipped.
func QueryFeatures(ctx context.Context, conn *sql.DB, query, geometryColumn string, args ...any) ([]geo.Geometry, error) {
	if geometryColumn == "" {
		geometryColumn = DefaultGeometryColumn
	}
	res, err := Query(ctx, conn, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}

	found := false
	for _, c := range res.Columns {
		if c == geometryColumn {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("query features: no %q column in result", geometryColumn)
	}

	var out []geo.Geometry
	for i, row := range res.Rows {
		raw, err := geometryText(row[geometryColumn])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if raw == nil {
			continue
		}
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		f := geojson.NewFeature(g.Geometry())
		for col, v := range row {
			if col == geometryColumn {
				continue
			}
			if pv, ok := propertyValue(v); ok {
				f.Properties[col] = pv
			}
		}
		gs, err := geo.FromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, gs...)
	}
	return out, nil
}

func geometryText(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	case map[string]any:
		// DuckDB's JSON type may arrive decoded.
		return json.Marshal(t)
	default:
		return nil, fmt.Errorf("geometry column holds %T, want GeoJSON text", v)
	}
}

// propertyValue narrows driver values to what features can carry.
func propertyValue(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string, bool, float64:
		return t, true
	case float32:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case *big.Int:
		f, _ := new(big.Float).SetInt(t).Float64()
		return f, true
	case time.Time:
		return t.Format(time.RFC3339), true
	case []byte:
		return string(t), true
	default:
		return fmt.Sprint(t), true
	}
}

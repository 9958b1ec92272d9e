package pmtiles

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := HeaderV3{
		RootOffset:      127,
		RootLength:      40,
		TileType:        Mvt,
		TileCompression: Gzip,
		MinZoom:         2,
		MaxZoom:         12,
		MinLonE7:        -1_800_000_000,
		MinLatE7:        -850_000_000,
		MaxLonE7:        1_800_000_000,
		MaxLatE7:        850_000_000,
		CenterZoom:      5,
		CenterLonE7:     130_000_000,
		CenterLatE7:     524_000_000,
	}
	got, err := ReadHeader(bytes.NewReader(SerializeHeader(h)))
	require.NoError(t, err)

	h.SpecVersion = 3
	require.Equal(t, h, got)
	require.True(t, got.IsVector())

	sw, ne := got.Bounds()
	require.InDelta(t, -180, sw.Lon, 1e-9)
	require.InDelta(t, 85, ne.Lat, 1e-9)
	require.InDelta(t, 13, got.Center().Lon, 1e-9)
	require.InDelta(t, 52.4, got.Center().Lat, 1e-9)
}

func TestReadHeaderErrors(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte("PMTiles")))
	require.ErrorIs(t, err, ErrShortHeader)

	_, err = ReadHeader(bytes.NewReader(make([]byte, HeaderV3LenBytes)))
	require.ErrorIs(t, err, ErrMagic)
}

func TestReadFileHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roads.pmtiles")
	require.NoError(t, os.WriteFile(path, SerializeHeader(HeaderV3{MinZoom: 4, MaxZoom: 9, TileType: Png}), 0644))

	h, err := ReadFileHeader(path)
	require.NoError(t, err)
	require.Equal(t, uint8(9), h.MaxZoom)
	require.False(t, h.IsVector())

	_, err = ReadFileHeader(filepath.Join(t.TempDir(), "missing.pmtiles"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

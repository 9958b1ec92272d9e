package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeblew999/plat-map/internal/mapview"
	"github.com/joeblew999/plat-map/internal/pmtiles"
)

// TileService manages PMTiles files served under /tiles/.
type TileService struct {
	tilesDir string
}

// NewTileService creates a new tile service.
func NewTileService(dataDir string) *TileService {
	return &TileService{
		tilesDir: filepath.Join(dataDir, "tiles"),
	}
}

// List returns all available PMTiles files.
func (s *TileService) List() ([]TileFile, error) {
	entries, err := os.ReadDir(s.tilesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []TileFile{}, nil
		}
		return nil, err
	}

	files := []TileFile{}
	for _, entry := range entries {
		if entry.IsDir() || !IsTileFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		file := TileFile{
			Name: entry.Name(),
			Size: formatSize(info.Size()),
		}
		if h, err := pmtiles.ReadFileHeader(filepath.Join(s.tilesDir, entry.Name())); err == nil {
			file.MinZoom, file.MaxZoom = int(h.MinZoom), int(h.MaxZoom)
			file.TileType = h.TileType.String()
			if h.HasBounds() {
				c := h.Center()
				file.Center = &c
			}
		}
		files = append(files, file)
	}
	return files, nil
}

// ErrRasterTiles is returned by VectorSource for archives holding image
// tiles.
var ErrRasterTiles = errors.New("archive holds raster tiles")

// VectorSource creates a source reading name through the pmtiles protocol
// from baseURL/tiles/. The zoom range and bounds come from the archive
// header. Archives whose header declares image tiles are refused.
func (s *TileService) VectorSource(id, name, baseURL string) (*mapview.VectorSource, error) {
	path, err := safeJoin(s.tilesDir, name)
	if err != nil {
		return nil, err
	}
	if !IsTileFile(name) {
		return nil, fmt.Errorf("%w: %q is not a PMTiles file", ErrBadFileName, name)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("tile file %q: %w", name, err)
	}
	src := mapview.NewVectorSource(id, "pmtiles://"+strings.TrimSuffix(baseURL, "/")+"/tiles/"+name)
	h, err := pmtiles.ReadFileHeader(path)
	if err != nil {
		// archives without a readable header keep the source defaults
		return src, nil
	}
	if h.TileType != pmtiles.UnknownTileType && !h.IsVector() {
		return nil, fmt.Errorf("tile file %q: %w (%s)", name, ErrRasterTiles, h.TileType)
	}
	if h.MaxZoom > 0 {
		src.MinZoom, src.MaxZoom = int(h.MinZoom), int(h.MaxZoom)
	}
	if h.HasBounds() {
		sw, ne := h.Bounds()
		src.Bounds = []float64{sw.Lon, sw.Lat, ne.Lon, ne.Lat}
	}
	return src, nil
}

// TilesDir returns the path to the tiles directory.
func (s *TileService) TilesDir() string {
	return s.tilesDir
}

// IsTileFile reports whether name is a PMTiles archive.
func IsTileFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pmtiles")
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

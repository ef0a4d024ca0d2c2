package location

import (
	"strings"
)

const (
	DefaultTileStyle = "streets"
	flyToZoom        = 16
	flyToDurationMs  = 1500
)

type TileStyle struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

var tileStyles = []TileStyle{
	{
		Key:         "streets",
		Label:       "Streets",
		URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "&copy; OpenStreetMap contributors",
	},
	{
		Key:         "satellite",
		Label:       "Satellite",
		URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Attribution: "Tiles &copy; Esri",
	},
	{
		Key:         "dark",
		Label:       "Dark",
		URL:         "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
		Attribution: "&copy; OpenStreetMap contributors &copy; CARTO",
	},
	{
		Key:         "terrain",
		Label:       "Terrain",
		URL:         "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
		Attribution: "&copy; OpenTopoMap (CC-BY-SA)",
	},
}

func TileStyles() []TileStyle {
	out := make([]TileStyle, len(tileStyles))
	copy(out, tileStyles)
	return out
}

func LookupTileStyle(key string) (TileStyle, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range tileStyles {
		if s.Key == key {
			return s, true
		}
	}
	return TileStyle{}, false
}

// CameraTarget tells the map where to fly.
type CameraTarget struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Zoom       int     `json:"zoom"`
	DurationMs int     `json:"durationMs"`
}

func FlyTo(t Technician) CameraTarget {
	return CameraTarget{Lat: t.Lat, Lng: t.Lng, Zoom: flyToZoom, DurationMs: flyToDurationMs}
}

package mapview

import (
	"github.com/joeblew999/plat-map/internal/style"
)

// Script handles on the hosted page: the SDK wrapper, the underlying
// renderer it exposes, and the callback object the page uses to reach the
// host.
const (
	control  = "map"
	renderer = "map.map"
	callback = "window.hostBridge"
)

func addSourceScript(id, definition string) string {
	q := style.Quote(id)
	return "if(!" + renderer + ".getSource(" + q + ")){" + renderer + ".addSource(" + q + "," + definition + ")}"
}

func removeSourceScript(id string) string {
	q := style.Quote(id)
	return "if(" + renderer + ".getSource(" + q + ")){" + renderer + ".removeSource(" + q + ")}"
}

func setDataScript(id, data string) string {
	return renderer + ".getSource(" + style.Quote(id) + ").setData(" + data + ")"
}

func setCoordinatesScript(sourceID, corners string) string {
	return renderer + ".getSource(" + style.Quote(sourceID) + ").setCoordinates(" + corners + ")"
}

func addLayerScript(id, definition string) string {
	return "if(!" + renderer + ".getLayer(" + style.Quote(id) + ")){" + renderer + ".addLayer(" + definition + ")}"
}

func removeLayerScript(id string) string {
	q := style.Quote(id)
	return "if(" + renderer + ".getLayer(" + q + ")){" + renderer + ".removeLayer(" + q + ")}"
}

func propertyScript(kind propKind, layerID, name, value string) string {
	switch kind {
	case filterProp:
		return renderer + ".setFilter(" + style.Quote(layerID) + "," + value + ")"
	case paintProp:
		return renderer + ".setPaintProperty(" + style.Quote(layerID) + "," + style.Quote(name) + "," + value + ")"
	default:
		return renderer + ".setLayoutProperty(" + style.Quote(layerID) + "," + style.Quote(name) + "," + value + ")"
	}
}

func initMapScript(accessKey, camera string) string {
	return "GetMap(" + style.Quote(accessKey) + "," + camera + ")"
}

// cameraListenerScript is sent on every map-ready. The handler is kept on
// the renderer so a page answering a later session keeps one listener; a
// recreated renderer starts without it.
func cameraListenerScript() string {
	report := callback + ".viewChanged(" + control + ".getCamera())"
	handler := renderer + ".__hostMove"
	return "if(!" + handler + "){" + handler + "=function(){" + report + "};" +
		renderer + ".on('move'," + handler + ")}" + report + ";"
}

func setCameraScript(camera string) string {
	return control + ".setCamera(" + camera + ");"
}

func setCenterScript(center string) string {
	return renderer + ".setCenter(" + center + ");"
}

func setZoomScript(zoom float64) string {
	return renderer + ".setZoom(" + style.Number(zoom) + ");"
}

func projectScript(position string) string {
	return renderer + ".project(" + position + ")"
}

func unprojectScript(x, y float64) string {
	return renderer + ".unproject([" + style.Number(x) + "," + style.Number(y) + "])"
}

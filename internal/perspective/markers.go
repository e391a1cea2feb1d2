package perspective

// DefaultMarker is shown for models missing from the marker table.
const DefaultMarker = "⚪"

// Markers is a read-only model name to display marker table.
type Markers struct {
	table map[string]string
}

// NewMarkers copies table so later changes by the caller are not observed.
func NewMarkers(table map[string]string) Markers {
	copied := make(map[string]string, len(table))
	for k, v := range table {
		copied[k] = v
	}
	return Markers{table: copied}
}

// Resolve returns the marker for model, or DefaultMarker.
func (m Markers) Resolve(model string) string {
	if marker, ok := m.table[model]; ok && marker != "" {
		return marker
	}
	return DefaultMarker
}

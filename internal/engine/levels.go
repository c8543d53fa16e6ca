package engine

// Level is an ordinal risk label attached to a single indicator or an aggregate assessment
type Level string

const (
	Low      Level = "Low"
	Moderate Level = "Moderate"
	Medium   Level = "Medium"
	High     Level = "High"
	VeryHigh Level = "Very High"
)

// Indicator names one of the four environmental readings
type Indicator string

const (
	NDRE         Indicator = "NDRE"
	SoilMoisture Indicator = "Soil Moisture"
	Temperature  Indicator = "Temperature"
	Humidity     Indicator = "Humidity"
)

// Indicators lists the indicators in report order
var Indicators = []Indicator{NDRE, SoilMoisture, Temperature, Humidity}

// Priority maps a level to its numeric rank. Moderate and Medium are the same rank;
// unknown labels rank as Low.
func (l Level) Priority() int {
	switch l {
	case Moderate, Medium:
		return 2
	case High:
		return 3
	case VeryHigh:
		return 4
	default:
		return 1
	}
}

// AtLeast reports whether l ranks at or above other
func (l Level) AtLeast(other Level) bool {
	return l.Priority() >= other.Priority()
}

var riskColors = map[Level]string{
	Low:      "#10B981",
	Moderate: "#F59E0B",
	Medium:   "#F59E0B",
	High:     "#EF4444",
	VeryHigh: "#991B1B",
}

// RiskColor returns the dashboard hex color for a level, gray for unknown labels
func RiskColor(l Level) string {
	if c, ok := riskColors[l]; ok {
		return c
	}
	return "#6B7280"
}

package engine

// Classification is one labeled bucket of an indicator's numeric domain.
// MinValue and MaxValue describe the nominal span for display; classification itself
// is decided by the classifier ladders, which cover every real number.
// Records are shared reference data; treat them as read-only.
type Classification struct {
	Bucket               string   `json:"bucket"`
	Range                string   `json:"range"`
	MinValue             float64  `json:"minValue"`
	MaxValue             float64  `json:"maxValue"`
	RiskLevel            Level    `json:"riskLevel"`
	Description          string   `json:"description"`
	TraditionalIndicator string   `json:"traditionalIndicator"`
	Explanation          string   `json:"explanation"`
	PestsAtRisk          []string `json:"pestsAtRisk"`
}

// NDRE buckets
var (
	ndreSevereStress = Classification{
		Bucket:               "SEVERE_STRESS",
		Range:                "<0.05",
		MinValue:             0,
		MaxValue:             0.05,
		RiskLevel:            VeryHigh,
		Description:          "Severe Stress",
		TraditionalIndicator: "Rapid discoloration and plant weakening",
		Explanation:          "Heavy feeding pressure and plant collapse risk",
		PestsAtRisk:          []string{"Fall Armyworm", "Aphids"},
	}
	ndreModerateStress = Classification{
		Bucket:               "MODERATE_STRESS",
		Range:                "0.05–0.15",
		MinValue:             0.05,
		MaxValue:             0.15,
		RiskLevel:            High,
		Description:          "Moderate Stress",
		TraditionalIndicator: "Visible leaf curling without holes",
		Explanation:          "Active sap-feeding pests weakening plant defenses",
		PestsAtRisk:          []string{"Aphids", "Leafhoppers"},
	}
	ndreMildStress = Classification{
		Bucket:               "MILD_STRESS",
		Range:                "0.15–0.25",
		MinValue:             0.15,
		MaxValue:             0.25,
		RiskLevel:            Moderate,
		Description:          "Mild Stress",
		TraditionalIndicator: "Leaves slightly pale; early curling",
		Explanation:          "Early sap extraction stress before visible damage",
		PestsAtRisk:          []string{"Aphids", "Thrips"},
	}
	ndreHealthy = Classification{
		Bucket:               "HEALTHY",
		Range:                "0.25–0.45",
		MinValue:             0.25,
		MaxValue:             0.45,
		RiskLevel:            Low,
		Description:          "Healthy",
		TraditionalIndicator: "Normal leaf color and growth",
		Explanation:          "Crop growth balanced; pests unlikely to establish",
		PestsAtRisk:          []string{},
	}
	ndreVeryHealthy = Classification{
		Bucket:               "VERY_HEALTHY",
		Range:                "≥0.45",
		MinValue:             0.45,
		MaxValue:             1.0,
		RiskLevel:            Low,
		Description:          "Very Healthy",
		TraditionalIndicator: "Lush green leaves; vigorous crop",
		Explanation:          "Crop tissues are strong and unattractive to early pest feeding",
		PestsAtRisk:          []string{},
	}
)

// Soil moisture buckets (percent)
var (
	moistureLow = Classification{
		Bucket:               "LOW_MOISTURE",
		Range:                "<40%",
		MinValue:             0,
		MaxValue:             40,
		RiskLevel:            VeryHigh,
		Description:          "Low Moisture",
		TraditionalIndicator: "Dry cracked soil; increased termite activity",
		Explanation:          "Dry soils favor termites and root-feeding pests",
		PestsAtRisk:          []string{"Termites", "Cutworms", "Root beetles"},
	}
	moistureModerate = Classification{
		Bucket:               "MODERATE_MOISTURE",
		Range:                "40–70%",
		MinValue:             40,
		MaxValue:             70,
		RiskLevel:            Medium,
		Description:          "Moderate Moisture",
		TraditionalIndicator: "Soil moist but surface drying",
		Explanation:          "Optimal conditions for egg hatching and larval survival",
		PestsAtRisk:          []string{"Armyworms", "FAW"},
	}
	moistureHigh = Classification{
		Bucket:               "HIGH_MOISTURE",
		Range:                "≥70%",
		MinValue:             70,
		MaxValue:             100,
		RiskLevel:            Low,
		Description:          "High Moisture",
		TraditionalIndicator: "Consistently moist soil",
		Explanation:          "Excess moisture limits soil pest survival",
		PestsAtRisk:          []string{},
	}
)

// Temperature buckets (celsius). VERY_HIGH starts at 30°C, the cut used by ClassifyTemperature.
var (
	temperatureLow = Classification{
		Bucket:               "LOW",
		Range:                "<15°C",
		MinValue:             -273,
		MaxValue:             15,
		RiskLevel:            Low,
		Description:          "Low",
		TraditionalIndicator: "Cool nights; dew present",
		Explanation:          "Low insect metabolism slows reproduction",
		PestsAtRisk:          []string{},
	}
	temperatureModerate = Classification{
		Bucket:               "MODERATE",
		Range:                "15–25°C",
		MinValue:             15,
		MaxValue:             25,
		RiskLevel:            Medium,
		Description:          "Moderate",
		TraditionalIndicator: "Warm days and mild nights",
		Explanation:          "Favorable conditions for gradual pest buildup",
		PestsAtRisk:          []string{"Aphids", "Thrips"},
	}
	temperatureHigh = Classification{
		Bucket:               "HIGH",
		Range:                "25–30°C",
		MinValue:             25,
		MaxValue:             30,
		RiskLevel:            High,
		Description:          "High",
		TraditionalIndicator: "Hot days; warm nights",
		Explanation:          "Accelerated pest life cycles and feeding",
		PestsAtRisk:          []string{"Fall Armyworm", "Leafhoppers"},
	}
	temperatureVeryHigh = Classification{
		Bucket:               "VERY_HIGH",
		Range:                "≥30°C",
		MinValue:             30,
		MaxValue:             60,
		RiskLevel:            VeryHigh,
		Description:          "Very High",
		TraditionalIndicator: "Extreme heat; plant stress visible",
		Explanation:          "Heat-stressed crops lose defense capacity",
		PestsAtRisk:          []string{"Thrips", "Aphids", "FAW"},
	}
)

// Humidity buckets (percent)
var (
	humidityLow = Classification{
		Bucket:               "LOW",
		Range:                "<50%",
		MinValue:             0,
		MaxValue:             50,
		RiskLevel:            High,
		Description:          "Low",
		TraditionalIndicator: "Dry air; leaf curling",
		Explanation:          "Dry conditions favor sap-feeding insects",
		PestsAtRisk:          []string{"Aphids", "Thrips"},
	}
	humidityMedium = Classification{
		Bucket:               "MEDIUM",
		Range:                "50–70%",
		MinValue:             50,
		MaxValue:             70,
		RiskLevel:            Medium,
		Description:          "Medium",
		TraditionalIndicator: "Balanced air moisture",
		Explanation:          "Supports moderate pest development",
		PestsAtRisk:          []string{"Stem borers", "FAW"},
	}
	humidityHigh = Classification{
		Bucket:               "HIGH",
		Range:                "≥70%",
		MinValue:             70,
		MaxValue:             100,
		RiskLevel:            Low,
		Description:          "High",
		TraditionalIndicator: "Humid mornings; dew formation",
		Explanation:          "High humidity suppresses some pests",
		PestsAtRisk:          []string{},
	}
)

var tables = map[Indicator][]Classification{
	NDRE:         {ndreSevereStress, ndreModerateStress, ndreMildStress, ndreHealthy, ndreVeryHealthy},
	SoilMoisture: {moistureLow, moistureModerate, moistureHigh},
	Temperature:  {temperatureLow, temperatureModerate, temperatureHigh, temperatureVeryHigh},
	Humidity:     {humidityLow, humidityMedium, humidityHigh},
}

// Table returns a copy of the indicator's buckets ordered from the lowest range up.
// Returns nil for unknown indicators.
func Table(ind Indicator) []Classification {
	buckets, ok := tables[ind]
	if !ok {
		return nil
	}
	out := make([]Classification, len(buckets))
	copy(out, buckets)
	return out
}

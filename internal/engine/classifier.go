package engine

// ClassifyNDRE maps an NDRE value to its stress bucket
func ClassifyNDRE(v float64) Classification {
	if v < 0.05 {
		return ndreSevereStress
	} else if v < 0.15 {
		return ndreModerateStress
	} else if v < 0.25 {
		return ndreMildStress
	} else if v < 0.45 {
		return ndreHealthy
	}
	return ndreVeryHealthy
}

// ClassifySoilMoisture maps a soil moisture percentage to its bucket
func ClassifySoilMoisture(percent float64) Classification {
	if percent < 40 {
		return moistureLow
	} else if percent < 70 {
		return moistureModerate
	}
	return moistureHigh
}

// ClassifyTemperature maps a temperature in celsius to its bucket
func ClassifyTemperature(celsius float64) Classification {
	if celsius < 15 {
		return temperatureLow
	} else if celsius < 25 {
		return temperatureModerate
	} else if celsius < 30 {
		return temperatureHigh
	}
	return temperatureVeryHigh
}

// ClassifyHumidity maps a relative humidity percentage to its bucket
func ClassifyHumidity(percent float64) Classification {
	if percent < 50 {
		return humidityLow
	} else if percent < 70 {
		return humidityMedium
	}
	return humidityHigh
}

// Classify dispatches on the indicator name. ok is false for an unknown indicator.
func Classify(ind Indicator, v float64) (c Classification, ok bool) {
	switch ind {
	case NDRE:
		return ClassifyNDRE(v), true
	case SoilMoisture:
		return ClassifySoilMoisture(v), true
	case Temperature:
		return ClassifyTemperature(v), true
	case Humidity:
		return ClassifyHumidity(v), true
	}
	return Classification{}, false
}

// CropHealth summarizes the NDRE reading for the farm overview card
type CropHealth struct {
	Status      string  `json:"status"`
	RiskLevel   Level   `json:"riskLevel"`
	NDREValue   float64 `json:"ndreValue"`
	Color       string  `json:"color"`
	Explanation string  `json:"explanation"`
}

// CalculateCropHealth classifies the NDRE value and labels it with a traffic-light color
func CalculateCropHealth(ndre float64) CropHealth {
	c := ClassifyNDRE(ndre)
	return CropHealth{
		Status:      c.Description,
		RiskLevel:   c.RiskLevel,
		NDREValue:   ndre,
		Color:       trafficLight(c.RiskLevel),
		Explanation: c.Explanation,
	}
}

func trafficLight(l Level) string {
	switch l {
	case Low:
		return "Green"
	case Moderate:
		return "Yellow"
	}
	return "Red"
}

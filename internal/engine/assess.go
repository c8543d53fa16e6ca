// Package engine classifies environmental readings into pest and disease risk.
//
// Every function is a pure computation over the reading and the package's static
// tables, so it may be called concurrently without coordination.
package engine

import (
	"math"
	"sort"
	"strings"
)

// Minimum probability (exclusive) for a pest to appear in a report
const minPestProbability = 20.0

// PestRiskAssessment is the aggregate pest risk of one reading
type PestRiskAssessment struct {
	Level      Level                     `json:"overallRiskLevel"`
	RiskColor  string                    `json:"riskColor"`
	Confidence int                       `json:"confidence"`
	Indicators map[string]Classification `json:"indicators"`
	RawValues  Reading                   `json:"rawValues"`
}

// RiskSummary is a level with its confidence
type RiskSummary struct {
	Level      Level `json:"level"`
	Confidence int   `json:"confidence"`
}

// DiseaseRisk is the outcome of the disease heuristic
type DiseaseRisk struct {
	Level      Level  `json:"level"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// PestThreat is one ranked candidate pest
type PestThreat struct {
	PestKey          string `json:"pestKey"`
	PestName         string `json:"pestName"`
	RiskLevel        Level  `json:"riskLevel"`
	Probability      int    `json:"probability"`
	TimeWindow       string `json:"timeWindow"`
	ScoutingAdvice   string `json:"scoutingAdvice"`
	PreventionSteps  string `json:"preventionSteps"`
	ControlReadiness string `json:"controlReadiness"`
}

// Report is the full risk report for one reading
type Report struct {
	OverallPestRisk    RiskSummary  `json:"overallPestRisk"`
	OverallDiseaseRisk DiseaseRisk  `json:"overallDiseaseRisk"`
	ActivePests        []PestThreat `json:"activePests"`
}

// AssessPestRisk averages the risk priorities of the four indicators.
//
// The mean is banded into Low (<2), Moderate (<3) and High; the aggregate never
// reports Very High. Confidence drops by 15 points per unit of population standard
// deviation between the priorities and is floored at 50.
func AssessPestRisk(r Reading) PestRiskAssessment {
	classes := [...]Classification{
		ClassifyNDRE(r.NDRE),
		ClassifySoilMoisture(r.SoilMoisture),
		ClassifyTemperature(r.Temperature),
		ClassifyHumidity(r.Humidity),
	}

	priorities := make([]float64, len(classes))
	for i, c := range classes {
		priorities[i] = float64(c.RiskLevel.Priority())
	}

	mean := calculateMean(priorities)

	level, color := Low, "Green"
	if mean >= 3 {
		level, color = High, "Red"
	} else if mean >= 2 {
		level, color = Moderate, "Yellow"
	}

	stdDev := calculatePopulationStdDev(priorities, mean)
	confidence := math.Max(50, 100-stdDev*15)

	return PestRiskAssessment{
		Level:      level,
		RiskColor:  color,
		Confidence: int(math.Round(confidence)),
		Indicators: map[string]Classification{
			"ndre":         classes[0],
			"soilMoisture": classes[1],
			"temperature":  classes[2],
			"humidity":     classes[3],
		},
		RawValues: r,
	}
}

// CalculateDiseaseRisk applies the fungal/root disease heuristic to raw values.
// Rules run in a fixed order and the last one that matches sets the result.
func CalculateDiseaseRisk(r Reading) DiseaseRisk {
	level, confidence := Low, 60

	// humid and mild: fungal pressure
	if r.Humidity > 70 && r.Temperature > 15 && r.Temperature < 28 {
		level, confidence = Moderate, 75
	}

	if r.Humidity >= 70 && r.SoilMoisture >= 40 && r.SoilMoisture <= 70 {
		level, confidence = High, 85
	}

	if r.Humidity < 50 && r.SoilMoisture < 40 {
		level, confidence = Low, 80
	}

	return DiseaseRisk{
		Level:      level,
		Confidence: confidence,
		Reason:     diseaseReason(r),
	}
}

func diseaseReason(r Reading) string {
	var factors []string
	if r.Humidity > 70 {
		factors = append(factors, "High humidity favors fungal diseases")
	}
	if r.Humidity < 50 {
		factors = append(factors, "Low humidity reduces disease pressure")
	}
	if r.Temperature > 20 && r.Temperature < 28 {
		factors = append(factors, "Moderate temperature supports disease development")
	}
	if r.SoilMoisture > 70 {
		factors = append(factors, "Excess soil moisture increases root disease risk")
	}

	if len(factors) == 0 {
		return "Conditions are neutral for disease development"
	}
	return strings.Join(factors, "; ")
}

// PredictActivePests scores every pest model against the raw reading and returns
// those above 20% probability, most likely first. Ties keep declaration order.
func PredictActivePests(r Reading) []PestThreat {
	type scored struct {
		threat      PestThreat
		probability float64
	}

	var candidates []scored
	for _, m := range pestModels {
		match, rules := m.score(r)
		if rules == 0 {
			continue
		}

		probability := match / (float64(rules) * 2) * 100
		if probability <= minPestProbability {
			continue
		}

		candidates = append(candidates, scored{
			probability: probability,
			threat: PestThreat{
				PestKey:          m.Key,
				PestName:         m.Name,
				RiskLevel:        levelFromProbability(probability),
				Probability:      int(math.Round(probability)),
				TimeWindow:       m.TimeWindow,
				ScoutingAdvice:   m.ScoutingAdvice,
				PreventionSteps:  m.PreventionSteps,
				ControlReadiness: m.ControlReadiness,
			},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].probability > candidates[j].probability
	})

	threats := make([]PestThreat, len(candidates))
	for i, c := range candidates {
		threats[i] = c.threat
	}
	return threats
}

func levelFromProbability(p float64) Level {
	if p > 70 {
		return VeryHigh
	} else if p > 55 {
		return High
	} else if p > 35 {
		return Moderate
	}
	return Low
}

// Assess builds the full report for a reading
func Assess(r Reading) Report {
	pest := AssessPestRisk(r)
	return Report{
		OverallPestRisk: RiskSummary{
			Level:      pest.Level,
			Confidence: pest.Confidence,
		},
		OverallDiseaseRisk: CalculateDiseaseRisk(r),
		ActivePests:        PredictActivePests(r),
	}
}

func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculatePopulationStdDev divides by n, not n-1
func calculatePopulationStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

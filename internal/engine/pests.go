package engine

// Band is one severity band of a match rule. Weight is added to a pest's match
// score when Test holds for the raw indicator value.
type Band struct {
	Name   string
	Test   func(v float64) bool
	Weight float64
}

// MatchRule scores one indicator for a pest. Bands are tried in order and only the
// first matching band counts.
type MatchRule struct {
	Indicator Indicator
	Bands     []Band
}

// PestModel is the static detection profile of one pest species
type PestModel struct {
	Key              string
	Name             string
	TimeWindow       string
	ScoutingAdvice   string
	PreventionSteps  string
	ControlReadiness string
	Rules            []MatchRule
}

var (
	ndreSevere   = Band{Name: "severeStress", Weight: 2, Test: func(v float64) bool { return v < 0.05 }}
	ndreModerate = Band{Name: "moderateStress", Weight: 1.5, Test: func(v float64) bool { return v >= 0.05 && v < 0.15 }}
	ndreMild     = Band{Name: "mildStress", Weight: 1, Test: func(v float64) bool { return v >= 0.15 && v < 0.25 }}

	soilLow      = Band{Name: "lowMoisture", Weight: 2, Test: func(v float64) bool { return v < 40 }}
	soilModerate = Band{Name: "moderateMoisture", Weight: 1, Test: func(v float64) bool { return v >= 40 && v < 70 }}

	heatVeryHigh = Band{Name: "veryHigh", Weight: 2, Test: func(v float64) bool { return v > 35 }}
	heatHigh     = Band{Name: "high", Weight: 1.5, Test: func(v float64) bool { return v >= 25 && v < 30 }}
	heatModerate = Band{Name: "moderate", Weight: 1, Test: func(v float64) bool { return v >= 15 && v < 25 }}

	airLow    = Band{Name: "low", Weight: 1, Test: func(v float64) bool { return v < 50 }}
	airMedium = Band{Name: "medium", Weight: 1, Test: func(v float64) bool { return v >= 50 && v < 70 }}
)

func rule(ind Indicator, bands ...Band) MatchRule {
	return MatchRule{Indicator: ind, Bands: bands}
}

var pestModels = []PestModel{
	{
		Key:              "FAW",
		Name:             "Fall Armyworm (FAW)",
		TimeWindow:       "7–10 days",
		ScoutingAdvice:   "Check leaf whorls for FAW eggs and early larvae. Look for light tan-colored masses and small holes on leaves.",
		PreventionSteps:  "Remove crop residues, practice crop rotation, early scouting critical.",
		ControlReadiness: "Prepare bio-pesticides (Bt) or approved chemical controls. Ensure spraying equipment ready.",
		Rules: []MatchRule{
			rule(NDRE, ndreSevere, ndreModerate),
			rule(SoilMoisture, soilLow, soilModerate),
			rule(Temperature, heatVeryHigh, heatHigh),
			rule(Humidity, airMedium),
		},
	},
	{
		Key:              "APHIDS",
		Name:             "Aphids",
		TimeWindow:       "5–7 days",
		ScoutingAdvice:   "Check undersides of leaves for aphid colonies. Look for curled leaves and sticky honeydew.",
		PreventionSteps:  "Encourage natural predators. Use reflective mulches. Manage nitrogen fertilizer.",
		ControlReadiness: "Insecticidal soap or neem oil. Prepare for spray application.",
		Rules: []MatchRule{
			rule(NDRE, ndreModerate, ndreMild),
			rule(Temperature, heatHigh, heatModerate),
			rule(Humidity, airLow),
		},
	},
	{
		Key:              "STEM_BORERS",
		Name:             "Stem Borers",
		TimeWindow:       "10–14 days",
		ScoutingAdvice:   "Look for sawdust-like frass at stem entry holes. Check for uneven crop growth and wilting.",
		PreventionSteps:  "Use resistant varieties. Practice good field sanitation. Remove infested plant parts.",
		ControlReadiness: "Stem borers inside plants are hard to control. Focus on prevention and early detection.",
		Rules: []MatchRule{
			rule(NDRE, ndreSevere, ndreModerate),
			rule(Humidity, airMedium),
			rule(Temperature, heatModerate),
		},
	},
	{
		Key:              "THRIPS",
		Name:             "Thrips",
		TimeWindow:       "5–8 days",
		ScoutingAdvice:   "Look for silvering of leaves. Check for fine webbing and small holes.",
		PreventionSteps:  "Maintain adequate soil moisture. Use yellow sticky traps. Spray water to increase humidity.",
		ControlReadiness: "Insecticidal sprays. Regular scouting and timely intervention critical.",
		Rules: []MatchRule{
			rule(NDRE, ndreMild),
			rule(Temperature, heatVeryHigh, heatHigh),
			rule(Humidity, airLow),
		},
	},
	{
		Key:              "TERMITES",
		Name:             "Termites",
		TimeWindow:       "14–21 days",
		ScoutingAdvice:   "Look for termite mounds and hollowed stalks. Check for termite tunnels.",
		PreventionSteps:  "Remove termite mounds pre-season. Plant barrier crops. Manage soil moisture.",
		ControlReadiness: "Limited in-season control. Focus on prevention and field preparation.",
		Rules: []MatchRule{
			rule(SoilMoisture, soilLow),
			rule(Temperature, heatHigh),
		},
	},
	{
		Key:              "CUTWORMS",
		Name:             "Cutworms",
		TimeWindow:       "7–10 days",
		ScoutingAdvice:   "Look for cut plants at soil level. Search for cutworm larvae in soil during early morning.",
		PreventionSteps:  "Remove field residues. Dig barrier trenches. Use cardboard collars around seedlings.",
		ControlReadiness: "Apply granular insecticides. Hand-pick larvae if infestation small.",
		Rules: []MatchRule{
			rule(SoilMoisture, soilLow),
			rule(Temperature, heatModerate),
		},
	},
}

// PestModels returns the pest profiles in declaration order
func PestModels() []PestModel {
	out := make([]PestModel, len(pestModels))
	copy(out, pestModels)
	return out
}

// value picks the raw reading for an indicator
func (r Reading) value(ind Indicator) float64 {
	switch ind {
	case NDRE:
		return r.NDRE
	case SoilMoisture:
		return r.SoilMoisture
	case Temperature:
		return r.Temperature
	default:
		return r.Humidity
	}
}

// score returns the summed band weights and the number of rules evaluated
func (m PestModel) score(r Reading) (match float64, rules int) {
	for _, rl := range m.Rules {
		rules++
		v := r.value(rl.Indicator)
		for _, b := range rl.Bands {
			if b.Test(v) {
				match += b.Weight
				break
			}
		}
	}
	return match, rules
}

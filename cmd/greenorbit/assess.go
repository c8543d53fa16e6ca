package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"greenorbit/internal/engine"
)

var (
	assessNDRE     float64
	assessSoil     float64
	assessTemp     float64
	assessHumidity float64
	assessJSON     bool
)

var (
	labelColor  = color.New(color.Bold)
	levelColors = map[engine.Level]*color.Color{
		engine.Low:      color.New(color.FgGreen, color.Bold),
		engine.Moderate: color.New(color.FgYellow, color.Bold),
		engine.High:     color.New(color.FgHiRed, color.Bold),
		engine.VeryHigh: color.New(color.FgRed, color.Bold, color.Underline),
	}
)

var assessCmd = &cobra.Command{
	Use:         "assess",
	Short:       "Assess one reading and print its risk report",
	Annotations: map[string]string{standalone: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var p engine.PartialReading
		flags := cmd.Flags()
		if flags.Changed("ndre") {
			p.NDRE = &assessNDRE
		}
		if flags.Changed("soil-moisture") {
			p.SoilMoisture = &assessSoil
		}
		if flags.Changed("temperature") {
			p.Temperature = &assessTemp
		}
		if flags.Changed("humidity") {
			p.Humidity = &assessHumidity
		}

		r := p.Resolve()
		if assessJSON {
			return writeAssessmentJSON(cmd.OutOrStdout(), r)
		}
		renderAssessment(cmd.OutOrStdout(), r)
		return nil
	},
}

func init() {
	f := assessCmd.Flags()
	f.Float64Var(&assessNDRE, "ndre", engine.DefaultNDRE, "red-edge vegetation index")
	f.Float64Var(&assessSoil, "soil-moisture", engine.DefaultSoilMoisture, "soil moisture (%)")
	f.Float64Var(&assessTemp, "temperature", engine.DefaultTemperature, "air temperature (°C)")
	f.Float64Var(&assessHumidity, "humidity", engine.DefaultHumidity, "relative humidity (%)")
	f.BoolVar(&assessJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(assessCmd)
}

func writeAssessmentJSON(w io.Writer, r engine.Reading) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	err := enc.Encode(map[string]any{
		"report":     engine.Assess(r),
		"pestRisk":   engine.AssessPestRisk(r),
		"cropHealth": engine.CalculateCropHealth(r.NDRE),
	})
	return eris.Wrap(err, "assess: encode report")
}

func levelString(l engine.Level) string {
	if c, ok := levelColors[l]; ok {
		return c.Sprint(string(l))
	}
	return string(l)
}

func renderAssessment(w io.Writer, r engine.Reading) {
	pest := engine.AssessPestRisk(r)
	rep := engine.Assess(r)
	health := engine.CalculateCropHealth(r.NDRE)

	labelColor.Fprintln(w, "Reading")
	fmt.Fprintf(w, "  NDRE %.3f  soil moisture %.1f%%  temperature %.1f°C  humidity %.1f%%\n",
		r.NDRE, r.SoilMoisture, r.Temperature, r.Humidity)

	labelColor.Fprintln(w, "Indicators")
	for _, name := range []string{"ndre", "soilMoisture", "temperature", "humidity"} {
		c := pest.Indicators[name]
		fmt.Fprintf(w, "  %-13s %-22s %s\n", name, c.Description, levelString(c.RiskLevel))
	}

	labelColor.Fprintln(w, "Summary")
	fmt.Fprintf(w, "  crop health   %s (%s)\n", health.Status, health.Color)
	fmt.Fprintf(w, "  pest risk     %s, %d%% confidence\n", levelString(rep.OverallPestRisk.Level), rep.OverallPestRisk.Confidence)
	fmt.Fprintf(w, "  disease risk  %s, %d%% confidence: %s\n",
		levelString(rep.OverallDiseaseRisk.Level), rep.OverallDiseaseRisk.Confidence, rep.OverallDiseaseRisk.Reason)

	if len(rep.ActivePests) == 0 {
		fmt.Fprintln(w, "  no active pests")
		return
	}
	labelColor.Fprintln(w, "Active pests")
	for _, p := range rep.ActivePests {
		fmt.Fprintf(w, "  %-28s %s %3d%%  window %s\n", p.PestName, levelString(p.RiskLevel), p.Probability, p.TimeWindow)
		fmt.Fprintf(w, "    scout: %s\n", p.ScoutingAdvice)
	}
}

// Package report exports farm risk and alert data as an Excel workbook.
package report

import (
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"greenorbit/internal/engine"
	"greenorbit/internal/models"
)

const (
	FarmsSheet  = "Farms"
	AlertsSheet = "Alerts"
)

var (
	farmHeader = []interface{}{
		"Farm ID", "Name", "Crop", "Stage", "Area", "Latitude", "Longitude",
		"NDRE", "Soil Moisture (%)", "Temperature (°C)", "Humidity (%)",
		"Crop Health", "Pest Risk", "Pest Confidence", "Disease Risk", "Top Pest",
	}
	alertHeader = []interface{}{
		"Alert ID", "Farm ID", "Pest", "Risk Level", "Confidence", "Time Window", "Detected", "Status",
	}
)

// FarmRow is one farm with the assessment of its latest sample
type FarmRow struct {
	Farm       models.Farm
	Reading    engine.Reading
	Report     engine.Report
	CropHealth engine.CropHealth
}

// Write builds the workbook and writes it to w
func Write(w io.Writer, farms []FarmRow, alerts []models.Alert) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", FarmsSheet); err != nil {
		return eris.Wrap(err, "report: rename sheet")
	}
	if _, err := f.NewSheet(AlertsSheet); err != nil {
		return eris.Wrap(err, "report: create alerts sheet")
	}

	b := &builder{f: f, fills: make(map[engine.Level]int)}
	if err := b.farms(farms); err != nil {
		return err
	}
	if err := b.alerts(alerts); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}

type builder struct {
	f      *excelize.File
	header int
	fills  map[engine.Level]int
}

func (b *builder) headerStyle() (int, error) {
	if b.header != 0 {
		return b.header, nil
	}
	id, err := b.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"166534"}},
	})
	if err != nil {
		return 0, eris.Wrap(err, "report: header style")
	}
	b.header = id
	return id, nil
}

// levelStyle fills the cell with the level's risk color
func (b *builder) levelStyle(l engine.Level) (int, error) {
	if id, ok := b.fills[l]; ok {
		return id, nil
	}
	id, err := b.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{strings.TrimPrefix(engine.RiskColor(l), "#")}},
	})
	if err != nil {
		return 0, eris.Wrap(err, "report: level style")
	}
	b.fills[l] = id
	return id, nil
}

func (b *builder) writeHeader(sheet string, header []interface{}) error {
	if err := b.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return eris.Wrapf(err, "report: write %s header", sheet)
	}
	style, err := b.headerStyle()
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return eris.Wrap(err, "report: header range")
	}
	if err := b.f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return eris.Wrapf(err, "report: style %s header", sheet)
	}
	lastCol := strings.TrimRight(last, "0123456789")
	if err := b.f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return eris.Wrapf(err, "report: size %s columns", sheet)
	}
	return nil
}

func (b *builder) styleLevel(sheet string, col, row int, l engine.Level) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return eris.Wrap(err, "report: level cell")
	}
	style, err := b.levelStyle(l)
	if err != nil {
		return err
	}
	return b.f.SetCellStyle(sheet, cell, cell, style)
}

func (b *builder) farms(rows []FarmRow) error {
	if err := b.writeHeader(FarmsSheet, farmHeader); err != nil {
		return err
	}

	for i, r := range rows {
		topPest := ""
		if len(r.Report.ActivePests) > 0 {
			topPest = r.Report.ActivePests[0].PestName
		}

		values := []interface{}{
			r.Farm.ID, r.Farm.Name, r.Farm.CropType, r.Farm.CropStage, r.Farm.AreaMeasure,
			r.Farm.Location.Latitude, r.Farm.Location.Longitude,
			r.Reading.NDRE, r.Reading.SoilMoisture, r.Reading.Temperature, r.Reading.Humidity,
			r.CropHealth.Status,
			string(r.Report.OverallPestRisk.Level), r.Report.OverallPestRisk.Confidence,
			string(r.Report.OverallDiseaseRisk.Level),
			topPest,
		}

		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := b.f.SetSheetRow(FarmsSheet, cell, &values); err != nil {
			return eris.Wrapf(err, "report: write farm %s", r.Farm.ID)
		}
		if err := b.styleLevel(FarmsSheet, 13, row, r.Report.OverallPestRisk.Level); err != nil {
			return eris.Wrapf(err, "report: style farm %s", r.Farm.ID)
		}
	}
	return nil
}

func (b *builder) alerts(alerts []models.Alert) error {
	if err := b.writeHeader(AlertsSheet, alertHeader); err != nil {
		return err
	}

	for i, a := range alerts {
		values := []interface{}{
			a.ID, a.FarmID, a.PestName, string(a.RiskLevel), a.Confidence, a.TimeWindow,
			a.DetectedDate.UTC().Format(time.RFC3339), a.Status,
		}

		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := b.f.SetSheetRow(AlertsSheet, cell, &values); err != nil {
			return eris.Wrapf(err, "report: write alert %s", a.ID)
		}
		if err := b.styleLevel(AlertsSheet, 4, row, a.RiskLevel); err != nil {
			return eris.Wrapf(err, "report: style alert %s", a.ID)
		}
	}
	return nil
}

package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"greenorbit/internal/database"
	"greenorbit/internal/models"
)

var seedCmd = &cobra.Command{
	Use:   "seed <farms.csv|farms.xlsx>",
	Short: "Import farms into the configured store",
	Long:  "Reads farms with the columns id,name,latitude,longitude,crop_type,crop_stage,area from a CSV file or the first sheet of a workbook and upserts them.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := zap.L()

		rows, err := readRows(args[0])
		if err != nil {
			return err
		}
		farms, skipped := parseFarms(rows, logger)

		store, err := database.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := database.SeedFarms(ctx, store, farms); err != nil {
			return err
		}
		logger.Info("import complete", zap.Int("inserted", len(farms)), zap.Int("skipped", skipped))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// readRows loads every row, header included
func readRows(path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "seed: open workbook %s", path)
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, eris.Errorf("seed: workbook %s has no sheets", path)
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, eris.Wrapf(err, "seed: read sheet %s", sheets[0])
		}
		return rows, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seed: open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "seed: read %s", path)
	}
	return rows, nil
}

// parseFarms maps rows to farms by header name. Rows without an id or with bad
// coordinates are skipped; missing optional columns stay empty.
func parseFarms(rows [][]string, logger *zap.Logger) ([]models.Farm, int) {
	if len(rows) == 0 {
		return nil, 0
	}

	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var farms []models.Farm
	skipped := 0
	for _, record := range rows[1:] {
		id := field(record, "id")
		if id == "" {
			logger.Warn("skipping record without id", zap.Strings("record", record))
			skipped++
			continue
		}

		lat, err := strconv.ParseFloat(field(record, "latitude"), 64)
		if err != nil || lat < -90 || lat > 90 {
			logger.Warn("skipping record with invalid latitude", zap.String("id", id))
			skipped++
			continue
		}
		lon, err := strconv.ParseFloat(field(record, "longitude"), 64)
		if err != nil || lon < -180 || lon > 180 {
			logger.Warn("skipping record with invalid longitude", zap.String("id", id))
			skipped++
			continue
		}

		farm := models.Farm{
			ID:        id,
			Name:      field(record, "name"),
			Location:  models.Location{Latitude: lat, Longitude: lon},
			CropType:  field(record, "crop_type"),
			CropStage: field(record, "crop_stage"),
		}
		if raw := field(record, "area"); raw != "" {
			area, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				logger.Warn("skipping record with invalid area", zap.String("id", id))
				skipped++
				continue
			}
			farm.AreaMeasure = area
		}
		farms = append(farms, farm)
	}
	return farms, skipped
}

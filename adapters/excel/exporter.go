// Package excel exports audit results as a report workbook. Output-only: the
// workbook is a reporting surface, nothing reads it back.
package excel

import (
	"fmt"
	"log"
	"sort"

	"github.com/xuri/excelize/v2"

	"leakcheck/app"
	"leakcheck/domain/core"
)

// ReportExporter writes one workbook per audit run with a summary sheet,
// per-split score sheets and the stability map.
type ReportExporter struct{}

// NewReportExporter creates an exporter.
func NewReportExporter() *ReportExporter {
	return &ReportExporter{}
}

// Export writes the report workbook to filePath.
func (e *ReportExporter) Export(result *app.AuditResult, filePath string) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("[ReportExporter] workbook close failed: %v", err)
		}
	}()

	if err := e.writeSummarySheet(f, result); err != nil {
		return err
	}
	if err := e.writeScoreSheet(f, "Leaky Scores", result, true); err != nil {
		return err
	}
	if err := e.writeScoreSheet(f, "Clean Scores", result, false); err != nil {
		return err
	}
	if err := e.writeNullSheet(f, result); err != nil {
		return err
	}
	if err := e.writeStabilitySheet(f, result); err != nil {
		return err
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("workbook save failed: %w", err)
	}
	log.Printf("[ReportExporter] run %s exported to %s", result.RunID, filePath)
	return nil
}

func (e *ReportExporter) writeSummarySheet(f *excelize.File, result *app.AuditResult) error {
	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	m := result.Manifest
	rows := [][]interface{}{
		{"Run ID", m.RunID.String()},
		{"Seed", m.Seed},
		{"Config Hash", m.ConfigHash.String()},
		{"Fingerprint", m.Fingerprint.String()},
		{"Samples", m.Samples},
		{"Features", m.Features},
		{"Effect Size", m.EffectSize},
		{"Leaky Mean Score", m.LeakyMean},
		{"Clean Mean Score", m.CleanMean},
		{"Null Mean Score", m.NullMean},
		{"Chance Level", m.ChanceLevel},
		{"Skipped Splits", m.SkippedSplits},
		{"Clean vs Null Z", result.Comparison.Z},
		{"Clean vs Null p", result.Comparison.PValue},
		{"Created At", m.CreatedAt.Time().Format("2006-01-02 15:04:05")},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (e *ReportExporter) writeScoreSheet(f *excelize.File, sheet string, result *app.AuditResult, leaky bool) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	res := result.Clean
	if leaky {
		res = result.Leaky
	}

	header := []interface{}{"Split"}
	keys := make([]core.ModelKey, 0, len(res.Families))
	for key := range res.Families {
		keys = append(keys, key)
	}
	sortModelKeys(keys)
	for _, key := range keys {
		header = append(header, key.String())
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	nRows := 0
	for _, key := range keys {
		if n := len(res.Families[key].Scores); n > nRows {
			nRows = n
		}
	}
	for i := 0; i < nRows; i++ {
		row := []interface{}{i + 1}
		for _, key := range keys {
			scores := res.Families[key].Scores
			if i < len(scores) {
				row = append(row, scores[i])
			} else {
				row = append(row, "")
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (e *ReportExporter) writeNullSheet(f *excelize.File, result *app.AuditResult) error {
	const sheet = "Null Distribution"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if result.Null == nil {
		return f.SetSheetRow(sheet, "A1", &[]interface{}{"No null calibration requested"})
	}

	keys := make([]core.ModelKey, 0, len(result.Null.Families))
	for key := range result.Null.Families {
		keys = append(keys, key)
	}
	sortModelKeys(keys)

	header := []interface{}{"Repetition"}
	for _, key := range keys {
		header = append(header, key.String())
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for r := 0; r < result.Null.Repetitions; r++ {
		row := []interface{}{r + 1}
		for _, key := range keys {
			row = append(row, result.Null.Families[key].Scores[r])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (e *ReportExporter) writeStabilitySheet(f *excelize.File, result *app.AuditResult) error {
	const sheet = "Stability"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if result.Stability == nil || result.Stability.NoData() {
		return f.SetSheetRow(sheet, "A1", &[]interface{}{"No coefficient records available"})
	}

	header := []interface{}{"Feature", "Count", "Mean", "StdErr", "PseudoT", "PValue"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for j, fs := range result.Stability.Features {
		row := []interface{}{j, fs.Count, fs.Mean, fs.StdErr, fs.PseudoT, fs.PValue}
		cell, err := excelize.CoordinatesToCellName(1, j+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func sortModelKeys(keys []core.ModelKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}

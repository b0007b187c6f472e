// Package ingest turns fiscal source documents into models.FiscalYearData.
//
// Two native paths are supported: structured JSON exports (loader.go) and HTML
// statement tables as produced by accounting software (html.go). When the
// native parse fails or yields too little data, extract.go falls back to an
// LLM extraction and merges the results.
package ingest

import (
	"fmt"
	"os"
	"strings"

	"lbo_analyzer/pkg/core/utils"
	"lbo_analyzer/pkg/models"
)

// LoadFiscalFile reads a single-year fiscal JSON file from disk.
func LoadFiscalFile(path string) (*models.FiscalYearData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Impossible de lire le fichier fiscal %s: %w", path, err)
	}
	return ParseFiscalJSON(raw)
}

// LoadFiscalHistory reads a multi-year fiscal JSON file (array of years).
// A file holding a single object is accepted and returned as a one-element
// history.
func LoadFiscalHistory(path string) ([]*models.FiscalYearData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Impossible de lire le fichier fiscal %s: %w", path, err)
	}
	return ParseFiscalHistory(raw)
}

// ParseFiscalJSON decodes one fiscal year from JSON. The decode is lenient
// (trailing commas, comments and unquoted keys are repaired); missing sections
// simply stay at zero so downstream calculations degrade instead of failing.
func ParseFiscalJSON(raw []byte) (*models.FiscalYearData, error) {
	var data models.FiscalYearData
	if _, err := utils.SmartParse(string(raw), &data); err != nil {
		return nil, fmt.Errorf("Document fiscal JSON illisible: %w", err)
	}
	if isEmptyYear(&data) {
		return nil, fmt.Errorf("Aucune donnée extraite du document")
	}
	return &data, nil
}

// ParseFiscalHistory decodes a JSON array of fiscal years, sorted or not.
// Single-object input is wrapped into a one-element slice.
func ParseFiscalHistory(raw []byte) ([]*models.FiscalYearData, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		single, err := ParseFiscalJSON(raw)
		if err != nil {
			return nil, err
		}
		return []*models.FiscalYearData{single}, nil
	}

	var years []*models.FiscalYearData
	if _, err := utils.SmartParse(trimmed, &years); err != nil {
		return nil, fmt.Errorf("Historique fiscal JSON illisible: %w", err)
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("Aucune donnée extraite du document")
	}
	for i, y := range years {
		if y == nil || isEmptyYear(y) {
			return nil, fmt.Errorf("Exercice %d vide dans l'historique fiscal", i+1)
		}
	}
	return years, nil
}

// isEmptyYear reports whether the decode produced nothing usable at all:
// no identity, no income statement, no balance sheet.
func isEmptyYear(d *models.FiscalYearData) bool {
	return d.CompanyName == "" &&
		d.SIREN == "" &&
		d.FiscalYear == 0 &&
		d.IncomeStatement.Revenues.NetRevenue == 0 &&
		d.IncomeStatement.NetIncome == 0 &&
		d.BalanceSheet.Assets.Total == 0 &&
		d.BalanceSheet.Liabilities.Total == 0
}

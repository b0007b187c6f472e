package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// AnalysisRepo persists finished analyses, one row per company.
type AnalysisRepo struct{}

// NewAnalysisRepo creates a new repository instance.
func NewAnalysisRepo() *AnalysisRepo {
	return &AnalysisRepo{}
}

// CompanySummary is one row of the saved-analysis listing.
type CompanySummary struct {
	CompanyName string    `json:"company_name"`
	SIREN       string    `json:"siren"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Save persists an analysis payload for a company, upserting on the name.
// The payload is whatever aggregate the caller produced; it lands in a
// single JSONB column.
//
// Schema assumption:
// CREATE TABLE IF NOT EXISTS lbo_analyses (
//   company_name TEXT PRIMARY KEY,
//   siren TEXT,
//   analysis JSONB,
//   updated_at TIMESTAMPTZ
// );
func (r *AnalysisRepo) Save(ctx context.Context, companyName, siren string, payload interface{}) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis payload: %w", err)
	}

	query := `
		INSERT INTO lbo_analyses (company_name, siren, analysis, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (company_name)
		DO UPDATE SET
			siren = EXCLUDED.siren,
			analysis = EXCLUDED.analysis,
			updated_at = EXCLUDED.updated_at;
	`

	_, err = pool.Exec(ctx, query, companyName, siren, jsonData, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	return nil
}

// Load retrieves the stored analysis JSON for a company. A miss returns
// (nil, nil) so callers can treat absence as "not analyzed yet".
func (r *AnalysisRepo) Load(ctx context.Context, companyName string) (json.RawMessage, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `SELECT analysis FROM lbo_analyses WHERE company_name = $1`

	var jsonData []byte
	err := pool.QueryRow(ctx, query, companyName).Scan(&jsonData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}

	return json.RawMessage(jsonData), nil
}

// ListCompanies returns the companies with a stored analysis, most recently
// updated first.
func (r *AnalysisRepo) ListCompanies(ctx context.Context) ([]CompanySummary, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `
		SELECT company_name, COALESCE(siren, ''), updated_at
		FROM lbo_analyses
		ORDER BY updated_at DESC
	`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var companies []CompanySummary
	for rows.Next() {
		var c CompanySummary
		if err := rows.Scan(&c.CompanyName, &c.SIREN, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		companies = append(companies, c)
	}

	return companies, nil
}

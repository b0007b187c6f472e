package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lbo_analyzer/pkg/core/debt"
	"lbo_analyzer/pkg/core/decision"
	"lbo_analyzer/pkg/core/normalize"
	"lbo_analyzer/pkg/core/projection"
	"lbo_analyzer/pkg/models"
)

// VariantStatus tracks a montage variant through its review lifecycle.
type VariantStatus string

const (
	StatusDraft     VariantStatus = "draft"
	StatusValidated VariantStatus = "validated"
	StatusRejected  VariantStatus = "rejected"
	StatusArchived  VariantStatus = "archived"
)

// Variant is one saved version of a montage: the structure under study, the
// normalization it was priced on, the headline metrics and the committee
// decision, if one was reached.
type Variant struct {
	ID            string                           `json:"id"`
	Name          string                           `json:"name"`
	CompanyName   string                           `json:"company_name"`
	CreatedAt     time.Time                        `json:"created_at"`
	ModifiedAt    time.Time                        `json:"modified_at"`
	Status        VariantStatus                    `json:"status"`
	Description   string                           `json:"description"`
	Structure     *debt.Structure                  `json:"lbo_structure"`
	Normalization *normalize.Result                `json:"norm_data,omitempty"`
	Assumptions   *projection.OperatingAssumptions `json:"assumptions,omitempty"`
	Metrics       map[string]models.Float          `json:"metrics"`
	Decision      *decision.AcquisitionDecision    `json:"decision,omitempty"`
	Tags          []string                         `json:"tags"`
}

// VariantStore persists montage variants.
// Supports Hybrid Vault: DB (Primary) + File System (Fallback/Local)
type VariantStore struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewVariantStore creates a new variant store.
// If pool is nil, it falls back to a file-based store in the specified
// directory. If dir is empty, it defaults to data/variants.
func NewVariantStore(pool *pgxpool.Pool, dir string) *VariantStore {
	if pool == nil && dir == "" {
		dir = filepath.Join("data", "variants")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("[WARNING] Check variant dir: %v\n", err)
		}
	}
	return &VariantStore{pool: pool, fileDir: dir}
}

// NewVariantID builds a collision-safe identifier:
// {company}_{YYYYMMDD_HHMMSS}_{uuid8}, lowercased, spaces replaced.
func NewVariantID(companyName string) string {
	timestamp := time.Now().Format("20060102_150405")
	suffix := uuid.NewString()[:8]
	id := fmt.Sprintf("%s_%s_%s", companyName, timestamp, suffix)
	return strings.ToLower(strings.ReplaceAll(id, " ", "_"))
}

// Save stores a variant, generating an ID for new ones and preserving the
// original creation date on updates.
//
// Schema assumption:
// CREATE TABLE IF NOT EXISTS lbo_variants (
//   id TEXT PRIMARY KEY,
//   company_name TEXT,
//   status TEXT,
//   variant_json JSONB,
//   updated_at TIMESTAMPTZ
// );
func (s *VariantStore) Save(ctx context.Context, v *Variant) error {
	if v == nil {
		return fmt.Errorf("nil variant")
	}
	if v.ID == "" {
		v.ID = NewVariantID(v.CompanyName)
	}
	if v.Status == "" {
		v.Status = StatusDraft
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}

	now := time.Now()
	if existing, err := s.Load(ctx, v.ID); err == nil && existing != nil {
		v.CreatedAt = existing.CreatedAt
	} else if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.ModifiedAt = now

	return s.writeVariant(ctx, v)
}

// writeVariant performs the raw upsert to both backends without touching
// timestamps; Save and Import share it.
func (s *VariantStore) writeVariant(ctx context.Context, v *Variant) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal variant: %w", err)
	}

	// 1. Save to DB
	if s.pool != nil {
		query := `
			INSERT INTO lbo_variants (id, company_name, status, variant_json, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id)
			DO UPDATE SET
				company_name = EXCLUDED.company_name,
				status = EXCLUDED.status,
				variant_json = EXCLUDED.variant_json,
				updated_at = EXCLUDED.updated_at
		`
		_, err = s.pool.Exec(ctx, query, v.ID, v.CompanyName, string(v.Status), jsonData, v.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to save variant to db: %w", err)
		}
	}

	// 2. Save to File (Always if configured, or if pool is nil)
	if s.fileDir != "" {
		if err := os.WriteFile(s.variantPath(v.ID), jsonData, 0644); err != nil {
			return fmt.Errorf("failed to save variant file: %w", err)
		}
	}

	return nil
}

// Load retrieves a variant by ID, DB first then file. A miss returns
// (nil, nil).
func (s *VariantStore) Load(ctx context.Context, id string) (*Variant, error) {
	if s.pool != nil {
		query := `SELECT variant_json FROM lbo_variants WHERE id = $1`
		var jsonData []byte
		err := s.pool.QueryRow(ctx, query, id).Scan(&jsonData)
		if err == nil {
			var v Variant
			if err := json.Unmarshal(jsonData, &v); err != nil {
				return nil, fmt.Errorf("failed to unmarshal db variant: %w", err)
			}
			return &v, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to load variant: %w", err)
		}
		// DB miss falls through to the file copy.
	}

	if s.fileDir != "" {
		return s.loadVariantFile(s.variantPath(id))
	}

	return nil, nil
}

// VariantFilter narrows List results. Zero values mean no filtering on that
// dimension.
type VariantFilter struct {
	CompanyName string
	Status      VariantStatus
	Tag         string
}

// List returns the stored variants matching the filter, most recently
// modified first. Corrupt files are skipped with a warning.
func (s *VariantStore) List(ctx context.Context, filter VariantFilter) ([]*Variant, error) {
	var variants []*Variant

	if s.pool != nil {
		query := `SELECT variant_json FROM lbo_variants ORDER BY updated_at DESC`
		rows, err := s.pool.Query(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to list variants: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var jsonData []byte
			if err := rows.Scan(&jsonData); err != nil {
				return nil, fmt.Errorf("failed to scan variant row: %w", err)
			}
			var v Variant
			if err := json.Unmarshal(jsonData, &v); err != nil {
				fmt.Printf("[WARNING] Variante corrompue ignorée: %v\n", err)
				continue
			}
			if matchesFilter(&v, filter) {
				variants = append(variants, &v)
			}
		}
		return variants, nil
	}

	if s.fileDir != "" {
		files, err := os.ReadDir(s.fileDir)
		if err != nil {
			return nil, nil
		}
		for _, f := range files {
			if filepath.Ext(f.Name()) != ".json" {
				continue
			}
			v, err := s.loadVariantFile(filepath.Join(s.fileDir, f.Name()))
			if err != nil {
				fmt.Printf("[WARNING] Variante corrompue ignorée: %s (%v)\n", f.Name(), err)
				continue
			}
			if v != nil && matchesFilter(v, filter) {
				variants = append(variants, v)
			}
		}
		sort.Slice(variants, func(i, j int) bool {
			return variants[i].ModifiedAt.After(variants[j].ModifiedAt)
		})
	}

	return variants, nil
}

func matchesFilter(v *Variant, filter VariantFilter) bool {
	if filter.CompanyName != "" && v.CompanyName != filter.CompanyName {
		return false
	}
	if filter.Status != "" && v.Status != filter.Status {
		return false
	}
	if filter.Tag != "" {
		found := false
		for _, t := range v.Tags {
			if t == filter.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Delete removes a variant from both backends. Returns whether anything was
// actually deleted.
func (s *VariantStore) Delete(ctx context.Context, id string) (bool, error) {
	deleted := false

	if s.pool != nil {
		tag, err := s.pool.Exec(ctx, `DELETE FROM lbo_variants WHERE id = $1`, id)
		if err != nil {
			return false, fmt.Errorf("failed to delete variant: %w", err)
		}
		deleted = tag.RowsAffected() > 0
	}

	if s.fileDir != "" {
		err := os.Remove(s.variantPath(id))
		if err == nil {
			deleted = true
		} else if !os.IsNotExist(err) {
			return deleted, fmt.Errorf("failed to delete variant file: %w", err)
		}
	}

	return deleted, nil
}

// Exists checks if a variant is already stored
func (s *VariantStore) Exists(ctx context.Context, id string) bool {
	if s.pool != nil {
		query := `SELECT 1 FROM lbo_variants WHERE id = $1 LIMIT 1`
		var exists int
		if err := s.pool.QueryRow(ctx, query, id).Scan(&exists); err == nil {
			return true
		}
	}

	if s.fileDir != "" {
		if _, err := os.Stat(s.variantPath(id)); err == nil {
			return true
		}
	}

	return false
}

// =============================================================================
// COMPARISON
// =============================================================================

// MetricDelta is one side-by-side value with its difference (B minus A).
type MetricDelta struct {
	Metric string       `json:"metric"`
	A      models.Float `json:"a"`
	B      models.Float `json:"b"`
	Delta  models.Float `json:"delta"`
}

// VariantSummary is the header block of a compared variant.
type VariantSummary struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Status     VariantStatus `json:"status"`
	Decision   string        `json:"decision"`
	ModifiedAt time.Time     `json:"modified_at"`
}

// VariantComparison puts two variants side by side.
type VariantComparison struct {
	A         VariantSummary `json:"a"`
	B         VariantSummary `json:"b"`
	Metrics   []MetricDelta  `json:"metrics_comparison"`
	Structure []MetricDelta  `json:"structure_comparison"`
}

// comparedMetrics are the headline figures worth a side-by-side view.
var comparedMetrics = []string{"dscr_min", "leverage", "margin", "equity_pct", "fcf_year3"}

// Compare loads two variants and lines up their metrics, structure and
// decisions.
func (s *VariantStore) Compare(ctx context.Context, idA, idB string) (*VariantComparison, error) {
	a, err := s.Load(ctx, idA)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("Variante introuvable: %s", idA)
	}
	b, err := s.Load(ctx, idB)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("Variante introuvable: %s", idB)
	}

	cmp := &VariantComparison{
		A: summarize(a),
		B: summarize(b),
	}

	for _, name := range comparedMetrics {
		va := a.Metrics[name]
		vb := b.Metrics[name]
		cmp.Metrics = append(cmp.Metrics, MetricDelta{Metric: name, A: va, B: vb, Delta: vb - va})
	}

	cmp.Structure = append(cmp.Structure,
		structureDelta("acquisition_price", a.Structure, b.Structure, func(st *debt.Structure) float64 { return st.AcquisitionPrice }),
		structureDelta("total_debt", a.Structure, b.Structure, func(st *debt.Structure) float64 { return st.TotalDebt() }),
		structureDelta("equity_amount", a.Structure, b.Structure, func(st *debt.Structure) float64 { return st.EquityAmount }),
	)

	return cmp, nil
}

func summarize(v *Variant) VariantSummary {
	dec := "N/A"
	if v.Decision != nil {
		dec = string(v.Decision.Decision)
	}
	return VariantSummary{
		ID:         v.ID,
		Name:       v.Name,
		Status:     v.Status,
		Decision:   dec,
		ModifiedAt: v.ModifiedAt,
	}
}

func structureDelta(name string, a, b *debt.Structure, read func(*debt.Structure) float64) MetricDelta {
	var va, vb float64
	if a != nil {
		va = read(a)
	}
	if b != nil {
		vb = read(b)
	}
	return MetricDelta{Metric: name, A: models.Float(va), B: models.Float(vb), Delta: models.Float(vb - va)}
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

// Export writes the selected variants into a single JSON file.
func (s *VariantStore) Export(ctx context.Context, ids []string, path string) error {
	var variants []*Variant
	for _, id := range ids {
		v, err := s.Load(ctx, id)
		if err != nil {
			return err
		}
		if v != nil {
			variants = append(variants, v)
		}
	}
	if len(variants) == 0 {
		return fmt.Errorf("Aucune variante trouvée")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export dir: %w", err)
		}
	}

	jsonData, err := json.MarshalIndent(variants, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal variants: %w", err)
	}
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// Import reads variants from an export file and stores them, regenerating
// IDs that would collide with existing variants. Returns the number
// imported.
func (s *VariantStore) Import(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read import file: %w", err)
	}

	var variants []*Variant
	if err := json.Unmarshal(data, &variants); err != nil {
		return 0, fmt.Errorf("failed to parse import file: %w", err)
	}

	count := 0
	for _, v := range variants {
		if v == nil || v.ID == "" {
			continue
		}
		if s.Exists(ctx, v.ID) {
			v.ID = NewVariantID(v.CompanyName)
		}
		if err := s.writeVariant(ctx, v); err != nil {
			fmt.Printf("[WARNING] Import variante: %v\n", err)
			continue
		}
		count++
	}

	return count, nil
}

// Internal File Helpers

func (s *VariantStore) variantPath(id string) string {
	return filepath.Join(s.fileDir, id+".json")
}

func (s *VariantStore) loadVariantFile(path string) (*Variant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var v Variant
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

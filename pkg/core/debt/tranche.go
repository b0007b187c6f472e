// Package debt models the financing stack of an acquisition: the individual
// debt tranches (senior, Bpifrance, crédit vendeur...), the structure
// combining them with equity, and the annual debt-service mathematics under
// French banking conventions (annuité constante or linéaire, with an optional
// différé during which only interest is paid).
package debt

import (
	"fmt"
	"math"
)

// AmortizationType selects the repayment profile of a tranche.
type AmortizationType string

const (
	AmortizationConstant AmortizationType = "constant" // annuité constante
	AmortizationLinear   AmortizationType = "linear"   // capital constant
)

// Tranche is one layer of the debt stack.
type Tranche struct {
	Name          string           `json:"name"`
	Amount        float64          `json:"amount"`
	InterestRate  float64          `json:"interest_rate"` // decimal, 0.045 = 4.5%
	DurationYears int              `json:"duration_years"`
	GracePeriod   int              `json:"grace_period"` // différé, in years
	Amortization  AmortizationType `json:"amortization_type"`
}

// Validate checks the tranche bounds at construction time. Messages are in
// French because they surface directly in the analyst UI.
func (t *Tranche) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("Le nom de la tranche est requis")
	}
	if t.Amount < 0 {
		return fmt.Errorf("Montant de la tranche invalide: %.0f (doit être >= 0)", t.Amount)
	}
	if t.InterestRate < 0 || t.InterestRate > 0.20 {
		return fmt.Errorf("Taux d'intérêt invalide: %.1f%% (attendu: 0%%-20%%)", t.InterestRate*100)
	}
	if t.DurationYears < 1 || t.DurationYears > 30 {
		return fmt.Errorf("Durée invalide: %d ans (attendu: 1-30 ans)", t.DurationYears)
	}
	if t.GracePeriod < 0 {
		return fmt.Errorf("Période de différé invalide: %d ans", t.GracePeriod)
	}
	if t.GracePeriod >= t.DurationYears {
		return fmt.Errorf("Période de différé (%d ans) doit être < durée totale (%d ans)",
			t.GracePeriod, t.DurationYears)
	}
	return nil
}

// AnnualService computes the constant yearly payment of the tranche.
//
// The engine treats the service as flat over the amortization period: the
// annuity is computed once per tranche, not re-derived year by year on the
// declining balance. Reports carry a methodology note on the small gap this
// introduces for linear profiles.
func (t *Tranche) AnnualService() float64 {
	// 1. No principal, no service
	if t.Amount <= 0 {
		return 0.0
	}

	// 2. Effective amortization period after the différé
	n := t.DurationYears - t.GracePeriod
	if n <= 0 {
		// Interest-only: the whole life is grace. Validate rejects this,
		// but the formula stays total.
		return t.Amount * t.InterestRate
	}

	switch t.Amortization {
	case AmortizationLinear:
		// 3a. Capital constant + interest approximated on full principal
		return t.Amount/float64(n) + t.Amount*t.InterestRate

	default:
		// 3b. Annuité constante (unknown types fall back here)
		if t.InterestRate == 0 {
			return t.Amount / float64(n)
		}
		r := t.InterestRate
		factor := math.Pow(1+r, float64(n))
		return t.Amount * (r * factor) / (factor - 1)
	}
}

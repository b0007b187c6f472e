package debt

import (
	"fmt"
	"math"
)

// DefaultEquitySplit is the usual owner-buy-back split when none is given.
func DefaultEquitySplit() map[string]float64 {
	return map[string]float64{"entrepreneur": 0.70, "investors": 0.30}
}

// Structure combines the debt tranches and the equity ticket financing an
// acquisition.
type Structure struct {
	AcquisitionPrice float64            `json:"acquisition_price"`
	Tranches         []Tranche          `json:"debt_layers"`
	EquityAmount     float64            `json:"equity_amount"`
	EquitySplit      map[string]float64 `json:"equity_split,omitempty"`
}

// TotalDebt sums the tranche amounts.
func (s *Structure) TotalDebt() float64 {
	var total float64
	for _, t := range s.Tranches {
		total += t.Amount
	}
	return total
}

// TotalFinancing is debt plus equity.
func (s *Structure) TotalFinancing() float64 {
	return s.TotalDebt() + s.EquityAmount
}

// LeverageRatio is debt over total financing (0 when nothing is financed).
func (s *Structure) LeverageRatio() float64 {
	total := s.TotalFinancing()
	if total == 0 {
		return 0.0
	}
	return s.TotalDebt() / total
}

// DebtToEquity follows the ratio convention: +Inf on zero equity.
func (s *Structure) DebtToEquity() float64 {
	if s.EquityAmount == 0 {
		return math.Inf(1)
	}
	return s.TotalDebt() / s.EquityAmount
}

// TotalAnnualService sums the flat annual service of every tranche.
func (s *Structure) TotalAnnualService() float64 {
	var total float64
	for _, t := range s.Tranches {
		total += t.AnnualService()
	}
	return total
}

// ServiceForYear sums the service of the tranches still alive in the given
// year (1-based). A tranche pays its flat service through duration_years,
// then drops out of the stack.
func (s *Structure) ServiceForYear(year int) float64 {
	var total float64
	for _, t := range s.Tranches {
		if year <= t.DurationYears {
			total += t.AnnualService()
		}
	}
	return total
}

// Validate checks the structure and every tranche in it.
func (s *Structure) Validate() error {
	if s.AcquisitionPrice < 0 {
		return fmt.Errorf("Prix d'acquisition invalide: %.0f (doit être >= 0)", s.AcquisitionPrice)
	}
	if s.EquityAmount < 0 {
		return fmt.Errorf("Montant equity invalide: %.0f (doit être >= 0)", s.EquityAmount)
	}
	for i := range s.Tranches {
		if err := s.Tranches[i].Validate(); err != nil {
			return fmt.Errorf("tranche %q: %w", s.Tranches[i].Name, err)
		}
	}
	if len(s.EquitySplit) > 0 {
		var total float64
		for _, share := range s.EquitySplit {
			total += share
		}
		if total < 0.99 || total > 1.01 {
			return fmt.Errorf("La répartition equity doit sommer à 100%% (actuellement %.1f%%)", total*100)
		}
	}
	return nil
}

// Clone deep-copies the structure so stress scenarios can perturb rates
// without touching the baseline.
func (s *Structure) Clone() *Structure {
	c := *s
	c.Tranches = make([]Tranche, len(s.Tranches))
	copy(c.Tranches, s.Tranches)
	if s.EquitySplit != nil {
		c.EquitySplit = make(map[string]float64, len(s.EquitySplit))
		for k, v := range s.EquitySplit {
			c.EquitySplit[k] = v
		}
	}
	return &c
}

// Package ratios is the static metric library: the banker, liquidity,
// profitability and entrepreneur ratios a French credit analyst reads off a
// liasse fiscale, with their benchmark bands and display formats. Metrics are
// plain functions plus one catalog map, no registry indirection.
package ratios

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Metric categories, used to group catalog entries per report section.
type Category string

const (
	CategoryBanker        Category = "banker"
	CategoryEntrepreneur  Category = "entrepreneur"
	CategoryLiquidity     Category = "liquidity"
	CategoryProfitability Category = "profitability"
	CategoryActivity      Category = "activity"
	CategorySolvency      Category = "solvency"
)

// Rating labels shared by every benchmarked metric.
const (
	RatingExcellent  = "Excellent"
	RatingGood       = "Bon"
	RatingAcceptable = "Acceptable"
	RatingRisky      = "Risque"
	RatingCritical   = "Critique"
)

// Benchmarks holds the four rating thresholds. Their meaning depends on the
// metric polarity: for higher-is-better metrics a value at or above Excellent
// rates Excellent; for lower-is-better the comparisons flip.
type Benchmarks struct {
	Excellent  float64 `json:"excellent"`
	Good       float64 `json:"good"`
	Acceptable float64 `json:"acceptable"`
	Risky      float64 `json:"risky"`
}

// Metadata documents one catalog metric.
type Metadata struct {
	Key            string      `json:"key"`
	Name           string      `json:"name"`
	Formula        string      `json:"formula"`
	Description    string      `json:"description"`
	Unit           string      `json:"unit"`
	Category       Category    `json:"category"`
	HigherIsBetter bool        `json:"higher_is_better"`
	Benchmarks     *Benchmarks `json:"benchmarks,omitempty"`
	Interpretation string      `json:"interpretation,omitempty"`
}

// Rating maps a value onto the benchmark bands. Metrics without benchmarks
// (absolute euro amounts) have no rating.
func (m Metadata) Rating(value float64) string {
	b := m.Benchmarks
	if b == nil {
		return ""
	}

	if m.HigherIsBetter {
		switch {
		case value >= b.Excellent:
			return RatingExcellent
		case value >= b.Good:
			return RatingGood
		case value >= b.Acceptable:
			return RatingAcceptable
		case value >= b.Risky:
			return RatingRisky
		default:
			return RatingCritical
		}
	}

	switch {
	case value <= b.Excellent:
		return RatingExcellent
	case value <= b.Good:
		return RatingGood
	case value <= b.Acceptable:
		return RatingAcceptable
	case value <= b.Risky:
		return RatingRisky
	default:
		return RatingCritical
	}
}

// FormatValue renders a value with the unit conventions French analysts
// expect (space-grouped euros, one decimal on multiples, rounded days).
func (m Metadata) FormatValue(value float64) string {
	switch strings.ToLower(m.Unit) {
	case "%":
		return fmt.Sprintf("%.2f %%", value)
	case "euro", "eur", "euros":
		return groupSpaces(value) + " EUR"
	case "ratio":
		return fmt.Sprintf("%.2f", value)
	case "jours", "jour", "days", "day":
		return fmt.Sprintf("%d jours", int(math.Round(value)))
	case "fois", "times", "x":
		return fmt.Sprintf("%.1fx", value)
	case "mois", "month", "months":
		return fmt.Sprintf("%.1f mois", value)
	case "annees", "années", "year", "years", "ans":
		return fmt.Sprintf("%.1f ans", value)
	default:
		return fmt.Sprintf("%.2f %s", value, m.Unit)
	}
}

// groupSpaces formats with two decimals and a space every three digits,
// the French display convention (1 234 567.89).
func groupSpaces(value float64) string {
	s := strconv.FormatFloat(value, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	dot := strings.Index(s, ".")
	intPart, frac := s[:dot], s[dot:]

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(intPart[i : i+3])
	}

	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

func bm(excellent, good, acceptable, risky float64) *Benchmarks {
	return &Benchmarks{Excellent: excellent, Good: good, Acceptable: acceptable, Risky: risky}
}

// Catalog returns the full metric table. The map is rebuilt on each call so
// callers can annotate their copy freely.
func Catalog() map[string]Metadata {
	c := map[string]Metadata{
		// ---- Banker ----
		"dscr": {
			Name:           "Couverture du service de la dette (DSCR)",
			Formula:        "EBITDA / Service annuel de la dette",
			Description:    "Mesure la capacite de l'entreprise a rembourser sa dette avec son excedent brut d'exploitation.",
			Unit:           "ratio",
			Category:       CategoryBanker,
			HigherIsBetter: true,
			Benchmarks:     bm(1.5, 1.25, 1.0, 0.8),
			Interpretation: "DSCR > 1.25 = Bonne couverture | 1.0-1.25 = Acceptable | < 1.0 = Risque de defaut",
		},
		"dscr_french": {
			Name:           "DSCR norme bancaire française",
			Formula:        "CFADS / Service annuel de la dette",
			Description:    "DSCR (norme bancaire française), calcule sur le cash-flow reellement disponible.",
			Unit:           "ratio",
			Category:       CategoryBanker,
			HigherIsBetter: true,
			Benchmarks:     bm(1.5, 1.35, 1.25, 1.0),
			Interpretation: "Covenant standard: DSCR > 1.25. Covenant Bpifrance: souvent DSCR > 1.30.",
		},
		"cfads": {
			Name:           "Cash Flow Available for Debt Service",
			Formula:        "EBITDA - IS cash - Delta BFR - Capex maintenance",
			Description:    "Cash Flow Available for Debt Service",
			Unit:           "euro",
			Category:       CategoryBanker,
			HigherIsBetter: true,
			Benchmarks:     bm(500_000, 300_000, 150_000, 50_000),
			Interpretation: "Cash reellement disponible pour rembourser la dette.",
		},
		"icr": {
			Name:           "Couverture des interets (ICR)",
			Formula:        "Resultat d'exploitation / Charges financieres",
			Description:    "Mesure combien de fois le resultat d'exploitation couvre les charges financieres.",
			Unit:           "ratio",
			Category:       CategoryBanker,
			HigherIsBetter: true,
			Benchmarks:     bm(5.0, 3.0, 1.5, 1.0),
			Interpretation: "ICR > 3 = Sain | 1.5-3 = Acceptable | < 1.5 = Risque",
		},
		"net_debt_to_ebitda": {
			Name:           "Dette nette / EBITDA",
			Formula:        "(Dette totale - Tresorerie) / EBITDA",
			Description:    "Ratio de levier. Mesure le nombre d'annees necessaires pour rembourser la dette nette avec l'EBITDA.",
			Unit:           "ratio",
			Category:       CategoryBanker,
			HigherIsBetter: false,
			Benchmarks:     bm(1.0, 2.0, 3.0, 4.0),
			Interpretation: "< 2x = Bon | 2-3x = Acceptable | 3-4x = Eleve | > 4x = Tres risque",
		},
		"leverage": {
			Name:           "Levier LBO d'entree",
			Formula:        "Dette nette / EBITDA (annee 1)",
			Description:    "Levier d'endettement du montage a l'entree, juge selon les seuils du comite de credit.",
			Unit:           "ratio",
			Category:       CategoryBanker,
			HigherIsBetter: false,
			Benchmarks:     bm(3.5, 4.0, 4.5, 5.5),
			Interpretation: "< 3.5x = Confortable | 4.0-4.5x = Sous surveillance | > 4.5x = Hors norme",
		},
		"gearing": {
			Name:           "Gearing (endettement net)",
			Formula:        "(Dette nette / Capitaux propres) x 100",
			Description:    "Ratio d'endettement net. Mesure le rapport entre la dette nette et les capitaux propres.",
			Unit:           "%",
			Category:       CategoryBanker,
			HigherIsBetter: false,
			Benchmarks:     bm(50.0, 100.0, 150.0, 200.0),
			Interpretation: "< 100% = Bon | 100-150% = Acceptable | > 150% = Risque",
		},
		"ltv": {
			Name:           "Loan-to-Value",
			Formula:        "(Dette totale / Valeur entreprise) x 100",
			Description:    "Mesure le pourcentage de la valeur de l'entreprise financee par dette.",
			Unit:           "%",
			Category:       CategoryBanker,
			HigherIsBetter: false,
			Benchmarks:     bm(40.0, 60.0, 70.0, 80.0),
			Interpretation: "< 60% = Bon | 60-70% = Acceptable | > 70% = Risque",
		},
		"debt_capacity": {
			Name:           "Capacite d'endettement",
			Formula:        "EBITDA x multiple prudentiel",
			Description:    "Dette maximale soutenable estimee a partir de l'EBITDA et d'un multiple prudentiel.",
			Unit:           "euro",
			Category:       CategoryBanker,
			HigherIsBetter: true,
			Interpretation: "Dette maximale soutenable au multiple prudentiel (4x par defaut).",
		},
		"current_ratio": {
			Name:           "Liquidite generale",
			Formula:        "Actif circulant / Passif circulant",
			Description:    "Mesure la capacite a rembourser les dettes a court terme avec les actifs circulants.",
			Unit:           "ratio",
			Category:       CategoryBanker,
			HigherIsBetter: true,
			Benchmarks:     bm(2.0, 1.5, 1.0, 0.8),
			Interpretation: "> 2 = Excellente liquidite | 1-1.5 = Acceptable | < 1 = Risque de liquidite",
		},
		"quick_ratio": {
			Name:           "Liquidite immediate (Acid Test)",
			Formula:        "(Actif circulant - Stocks) / Passif circulant",
			Description:    "Mesure la capacite a rembourser les dettes courantes sans recourir a la vente des stocks.",
			Unit:           "ratio",
			Category:       CategoryBanker,
			HigherIsBetter: true,
			Benchmarks:     bm(1.5, 1.0, 0.8, 0.5),
			Interpretation: "> 1.5 = Excellente | 0.8-1 = Acceptable | < 0.8 = Risque",
		},
		"financial_autonomy": {
			Name:           "Autonomie financiere",
			Formula:        "(Capitaux propres / Total bilan) x 100",
			Description:    "Mesure la part des capitaux propres dans le financement total.",
			Unit:           "%",
			Category:       CategoryBanker,
			HigherIsBetter: true,
			Benchmarks:     bm(50.0, 30.0, 20.0, 10.0),
			Interpretation: "> 50% = Excellent | 30-50% = Bon | 20-30% = Acceptable | < 20% = Faible",
		},
		"debt_to_assets": {
			Name:           "Dette / Actif total",
			Formula:        "(Dette totale / Actif total) x 100",
			Description:    "Mesure la part des actifs financee par de la dette.",
			Unit:           "%",
			Category:       CategoryBanker,
			HigherIsBetter: false,
			Benchmarks:     bm(30.0, 50.0, 70.0, 80.0),
			Interpretation: "< 30% = Excellent | 50-70% = Acceptable | > 70% = Risque eleve",
		},

		// ---- Liquidity / activity ----
		"fonds_de_roulement": {
			Name:           "Fonds de roulement",
			Formula:        "Capitaux permanents - Actif immobilise",
			Description:    "Difference entre les ressources stables et les emplois stables (immobilisations).",
			Unit:           "euro",
			Category:       CategoryLiquidity,
			HigherIsBetter: true,
			Interpretation: "FR > 0 = Les ressources stables couvrent les immobilisations.",
		},
		"bfr": {
			Name:           "Besoin en fonds de roulement",
			Formula:        "(Stocks + Creances) - Dettes d'exploitation",
			Description:    "Mesure le besoin de financement lie au decalage entre encaissements clients et decaissements fournisseurs.",
			Unit:           "euro",
			Category:       CategoryLiquidity,
			HigherIsBetter: false,
			Interpretation: "BFR positif = Besoin de financement | BFR negatif = Ressource de tresorerie.",
		},
		"bfr_days": {
			Name:           "BFR en jours de CA",
			Formula:        "(BFR / CA) x 365",
			Description:    "Exprime le besoin en fonds de roulement en jours de chiffre d'affaires.",
			Unit:           "jours",
			Category:       CategoryActivity,
			HigherIsBetter: false,
			Interpretation: "Nombre de jours de CA immobilises dans le cycle d'exploitation.",
		},

		// ---- Profitability ----
		"ebitda": {
			Name:           "EBITDA comptable",
			Formula:        "Resultat d'exploitation + Dotations aux amortissements",
			Description:    "Mesure la capacite de l'entreprise a generer de la tresorerie a partir de son activite operationnelle.",
			Unit:           "euro",
			Category:       CategoryProfitability,
			HigherIsBetter: true,
			Interpretation: "EBITDA positif = L'exploitation degage de la tresorerie.",
		},
		"marge_brute": {
			Name:           "Marge brute",
			Formula:        "((CA - Achats consommes) / CA) x 100",
			Description:    "Pourcentage du chiffre d'affaires restant apres deduction des achats de marchandises et matieres premieres.",
			Unit:           "%",
			Category:       CategoryProfitability,
			HigherIsBetter: true,
			Benchmarks:     bm(50.0, 30.0, 15.0, 5.0),
			Interpretation: "Marge brute elevee = Bonne valeur ajoutee.",
		},
		"marge_exploitation": {
			Name:           "Marge d'exploitation",
			Formula:        "(Resultat d'exploitation / CA) x 100",
			Description:    "Pourcentage du chiffre d'affaires constituant le resultat d'exploitation.",
			Unit:           "%",
			Category:       CategoryProfitability,
			HigherIsBetter: true,
			Benchmarks:     bm(15.0, 10.0, 5.0, 0.0),
			Interpretation: "> 15% = Excellente marge | 5-10% = Acceptable | < 5% = Marge faible",
		},
		"marge_nette": {
			Name:           "Marge nette",
			Formula:        "(Resultat net / CA) x 100",
			Description:    "Pourcentage du chiffre d'affaires constituant le resultat net final.",
			Unit:           "%",
			Category:       CategoryProfitability,
			HigherIsBetter: true,
			Benchmarks:     bm(10.0, 5.0, 2.0, 0.0),
			Interpretation: "> 10% = Excellente rentabilite | 2-5% = Acceptable | < 2% = Faible",
		},

		// ---- Entrepreneur ----
		"roe": {
			Name:           "Rentabilite des capitaux propres (ROE)",
			Formula:        "(Resultat net / Capitaux propres) x 100",
			Description:    "Mesure le rendement genere pour chaque euro investi par les actionnaires.",
			Unit:           "%",
			Category:       CategoryEntrepreneur,
			HigherIsBetter: true,
			Benchmarks:     bm(20.0, 15.0, 10.0, 5.0),
			Interpretation: "ROE > 15% = Excellente rentabilite | 5-10% = Acceptable | < 5% = Faible",
		},
		"payback_period": {
			Name:           "Delai de recuperation",
			Formula:        "Equity investi / Cash-flow annuel",
			Description:    "Nombre d'annees necessaires pour recuperer l'investissement initial via les cash-flows.",
			Unit:           "annees",
			Category:       CategoryEntrepreneur,
			HigherIsBetter: false,
			Benchmarks:     bm(3.0, 5.0, 7.0, 10.0),
			Interpretation: "< 3 ans = Excellent | 5-7 ans = Acceptable | > 7 ans = Risque eleve",
		},
		"irr": {
			Name:           "Taux de rendement interne (TRI)",
			Formula:        "Taux annulant la VAN des flux equity",
			Description:    "Mesure le rendement annualise de l'investissement sur la periode de holding.",
			Unit:           "%",
			Category:       CategoryEntrepreneur,
			HigherIsBetter: true,
			Benchmarks:     bm(25.0, 20.0, 15.0, 10.0),
			Interpretation: "> 25% = Excellent | 15-20% = Bon | < 10% = Faible",
		},
		"npv": {
			Name:           "Valeur actuelle nette (VAN)",
			Formula:        "(EBITDA x Multiple de sortie) - Investissement total",
			Description:    "Mesure la creation de valeur nette entre la valeur de sortie et l'investissement initial.",
			Unit:           "euro",
			Category:       CategoryEntrepreneur,
			HigherIsBetter: true,
			Interpretation: "> 0 = Creation de valeur | < 0 = Destruction de valeur",
		},
		"exit_multiple": {
			Name:           "Multiple de sortie",
			Formula:        "Valeur de sortie / EBITDA",
			Description:    "Rapport entre la valeur de l'entreprise a la sortie et son EBITDA.",
			Unit:           "fois",
			Category:       CategoryEntrepreneur,
			HigherIsBetter: true,
			Benchmarks:     bm(8.0, 6.0, 4.0, 3.0),
			Interpretation: "> 8x = Excellente valorisation | 4-6x = Correcte | < 4x = Faible",
		},
		"cash_on_cash_return": {
			Name:           "Rendement cash-on-cash",
			Formula:        "(Cash-flow annuel / Equity investi) x 100",
			Description:    "Mesure le rendement annuel en cash par rapport a l'equity investi.",
			Unit:           "%",
			Category:       CategoryEntrepreneur,
			HigherIsBetter: true,
			Benchmarks:     bm(30.0, 20.0, 15.0, 10.0),
			Interpretation: "> 30% = Excellent | 10-15% = Acceptable | < 10% = Faible",
		},
		"equity_multiple": {
			Name:           "Multiple sur equity (MoIC)",
			Formula:        "Valeur finale / Equity investi",
			Description:    "Mesure combien de fois l'investissement initial a ete multiplie.",
			Unit:           "fois",
			Category:       CategoryEntrepreneur,
			HigherIsBetter: true,
			Benchmarks:     bm(3.0, 2.0, 1.5, 1.0),
			Interpretation: "> 3x = Excellent | 1.5-2x = Bon | < 1x = Perte",
		},
		"value_creation": {
			Name:           "Creation de valeur",
			Formula:        "Valeur finale - Investissement total",
			Description:    "Gain absolu en euros entre la valeur finale et l'investissement initial.",
			Unit:           "euro",
			Category:       CategoryEntrepreneur,
			HigherIsBetter: true,
			Interpretation: "> 0 = Creation de valeur | < 0 = Destruction de valeur",
		},
		"cumulative_roi": {
			Name:           "ROI cumule",
			Formula:        "((Valeur finale - Equity investi) / Equity investi) x 100",
			Description:    "Retour total sur l'equity investi sur la periode de holding, exprime en pourcentage.",
			Unit:           "%",
			Category:       CategoryEntrepreneur,
			HigherIsBetter: true,
			Benchmarks:     bm(200.0, 100.0, 50.0, 0.0),
			Interpretation: "> 200% = Excellent | 50-100% = Bon | < 0% = Perte",
		},
	}

	for key, meta := range c {
		meta.Key = key
		c[key] = meta
	}
	return c
}

// MetricNames returns the sorted catalog keys.
func MetricNames() []string {
	catalog := Catalog()
	names := make([]string, 0, len(catalog))
	for key := range catalog {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

// ByCategory filters the catalog, keyed by metric.
func ByCategory(category Category) map[string]Metadata {
	out := make(map[string]Metadata)
	for key, meta := range Catalog() {
		if meta.Category == category {
			out[key] = meta
		}
	}
	return out
}

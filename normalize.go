package main

// Debt input normalization: the plan is fed from three record kinds —
// ledger-signed revolving accounts, debt-classified recurring bills, and
// standalone debt records. Each satisfies DebtSource; the simulator only
// ever sees uniform DebtInput values.

// DebtSource is any record that can stand in as a debt to pay down.
type DebtSource interface {
	NormalizeDebt() DebtInput
}

// NormalizationAnomaly records a source that was skipped instead of failing
// the whole batch.
type NormalizationAnomaly struct {
	DebtID string
	Name   string
	Reason string
}

// NormalizeDebts converts every source and collects anomalies. A source
// whose balance is still negative after its own sign correction is bad data
// (e.g. an over-credited account); it is skipped and reported, and the rest
// of the batch proceeds.
func NormalizeDebts(sources []DebtSource) ([]DebtInput, []NormalizationAnomaly) {
	debts := make([]DebtInput, 0, len(sources))
	var anomalies []NormalizationAnomaly
	for _, s := range sources {
		d := s.NormalizeDebt()
		if d.RemainingBalance.IsNegative() {
			anomalies = append(anomalies, NormalizationAnomaly{
				DebtID: d.ID,
				Name:   d.Name,
				Reason: "negative balance after sign correction: " + d.RemainingBalance.StringFixed(2),
			})
			continue
		}
		if d.Compounding == "" {
			d.Compounding = CompoundMonthly
		}
		debts = append(debts, d)
	}
	return debts, anomalies
}

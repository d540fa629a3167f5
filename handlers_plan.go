package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// gatherDebtSources collects every active record that belongs in the payoff
// plan: standalone debts, accounts carrying a negative ledger balance, and
// bills flagged as debts.
func (a *App) gatherDebtSources(userID int64) ([]DebtSource, error) {
	var sources []DebtSource

	debts, err := listDebts(a.db, userID)
	if err != nil {
		return nil, err
	}
	for _, d := range debts {
		if d.Active && d.BalanceCents > 0 {
			sources = append(sources, d)
		}
	}

	accounts, err := listAccounts(a.db, userID)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		if acc.Active && acc.LedgerBalanceCents < 0 {
			sources = append(sources, acc)
		}
	}

	bills, err := listBills(a.db, userID)
	if err != nil {
		return nil, err
	}
	for _, b := range bills {
		if b.Active && b.IsDebt && b.BalanceCents != 0 {
			sources = append(sources, b)
		}
	}

	return sources, nil
}

// resolvePlanOverrides applies per-request query overrides on top of saved
// settings. An unrecognized override is a problem to report, never silently
// replaced with a default: the caller asked for a specific plan.
func resolvePlanOverrides(settings PlanSettings, methodParam, freqParam string) (StrategyMethod, PaymentFrequency, string) {
	method := StrategyMethod(settings.Method)
	if methodParam != "" {
		method = StrategyMethod(methodParam)
		if method != Avalanche && method != Snowball {
			return "", "", "Unknown payoff strategy: " + methodParam
		}
	}

	frequency := PaymentFrequency(settings.Frequency)
	if freqParam != "" {
		frequency = PaymentFrequency(freqParam)
		if frequency != FrequencyMonthly && frequency != FrequencyBiweekly && frequency != FrequencyWeekly {
			return "", "", "Unknown payment frequency: " + freqParam
		}
	}

	return method, frequency, ""
}

// planParams resolves the settings used by the payoff views. A non-empty
// problem string means a query override was rejected and the caller should
// flash it instead of computing.
func (a *App) planParams(r *http.Request, userID int64) (decimal.Decimal, StrategyMethod, PaymentFrequency, string, error) {
	settings, err := getPlanSettings(a.db, userID)
	if err != nil {
		return decimal.Zero, "", "", "", err
	}

	method, frequency, problem := resolvePlanOverrides(settings,
		r.URL.Query().Get("method"), r.URL.Query().Get("frequency"))
	if problem != "" {
		return decimal.Zero, "", "", problem, nil
	}

	extra := centsToDecimal(settings.ExtraPaymentCents)
	return extra, method, frequency, "", nil
}

func (a *App) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	userID := getUserID(r)

	sources, err := a.gatherDebtSources(userID)
	if err != nil {
		log.Printf("Error gathering debt sources: %v", err)
		http.Error(w, "Internal server error", 500)
		return
	}
	inputs, anomalies := NormalizeDebts(sources)

	extra, method, frequency, problem, err := a.planParams(r, userID)
	if err != nil {
		log.Printf("Error loading plan settings: %v", err)
		http.Error(w, "Internal server error", 500)
		return
	}
	if problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, "/plan", http.StatusSeeOther)
		return
	}

	start := time.Now().UTC()
	result, err := CachedPayoffStrategy(a.planCache, inputs, extra, method, frequency, start)
	diverges := false
	if err != nil {
		if errors.Is(err, ErrNonConvergence) {
			diverges = true
		} else {
			log.Printf("Error computing payoff plan: %v", err)
			a.setFlash(w, "Could not compute a payoff plan from the current debts", true)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	if !diverges && len(inputs) > 0 {
		user, uerr := getUserByID(a.db, userID)
		if uerr == nil {
			a.recordPayoffMilestones(userID, user.Email, result, start)
		}
	}

	minTotal, err := sumOfMinPaymentsForUser(a.db, userID)
	if err != nil {
		log.Printf("Error summing minimum payments: %v", err)
	}

	flash, flashType := a.getFlash(r)
	a.render(w, http.StatusOK, "plan.html", map[string]any{
		"Result":          result,
		"Diverges":        diverges,
		"Inputs":          inputs,
		"Anomalies":       anomalies,
		"ExtraPayment":    extra,
		"Method":          method,
		"Frequency":       frequency,
		"MinPaymentTotal": minTotal,
		"Flash":           flash,
		"FlashType":       flashType,
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "plan_content",
	})
}

func (a *App) handlePlanCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	userID := getUserID(r)

	sources, err := a.gatherDebtSources(userID)
	if err != nil {
		log.Printf("Error gathering debt sources: %v", err)
		http.Error(w, "Internal server error", 500)
		return
	}
	inputs, anomalies := NormalizeDebts(sources)

	extra, method, frequency, problem, err := a.planParams(r, userID)
	if err != nil {
		log.Printf("Error loading plan settings: %v", err)
		http.Error(w, "Internal server error", 500)
		return
	}
	if problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, "/plan", http.StatusSeeOther)
		return
	}

	start := time.Now().UTC()
	comparison, err := ComparePayoffScenarios(inputs, extra, method, frequency, start)
	if err != nil {
		if errors.Is(err, ErrNonConvergence) {
			a.setFlash(w, "The current plan never pays off these debts. Increase the extra payment in Settings.", true)
			http.Redirect(w, r, "/plan", http.StatusSeeOther)
			return
		}
		log.Printf("Error comparing payoff scenarios: %v", err)
		a.setFlash(w, "Could not compare payoff scenarios", true)
		http.Redirect(w, r, "/plan", http.StatusSeeOther)
		return
	}

	flash, flashType := a.getFlash(r)
	a.render(w, http.StatusOK, "plan_compare.html", map[string]any{
		"Comparison":      comparison,
		"Anomalies":       anomalies,
		"ExtraPayment":    extra,
		"Method":          method,
		"Frequency":       frequency,
		"Flash":           flash,
		"FlashType":       flashType,
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "plan_compare_content",
	})
}

func (a *App) handleCountdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	userID := getUserID(r)

	sources, err := a.gatherDebtSources(userID)
	if err != nil {
		log.Printf("Error gathering debt sources: %v", err)
		http.Error(w, "Internal server error", 500)
		return
	}
	inputs, _ := NormalizeDebts(sources)

	extra, method, frequency, problem, err := a.planParams(r, userID)
	if err != nil {
		log.Printf("Error loading plan settings: %v", err)
		http.Error(w, "Internal server error", 500)
		return
	}
	if problem != "" {
		a.setFlash(w, problem, true)
		http.Redirect(w, r, "/plan", http.StatusSeeOther)
		return
	}

	start := time.Now().UTC()
	result, err := CachedPayoffStrategy(a.planCache, inputs, extra, method, frequency, start)
	diverges := errors.Is(err, ErrNonConvergence)
	if err != nil && !diverges {
		log.Printf("Error computing payoff plan: %v", err)
		a.setFlash(w, "Could not compute a payoff plan from the current debts", true)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	daysLeft := 0
	if !diverges && len(inputs) > 0 {
		daysLeft = int(time.Until(result.DebtFreeDate).Hours() / 24)
		if daysLeft < 0 {
			daysLeft = 0
		}
	}

	a.render(w, http.StatusOK, "countdown.html", map[string]any{
		"Result":          result,
		"Diverges":        diverges,
		"HasDebts":        len(inputs) > 0,
		"DaysLeft":        daysLeft,
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "countdown_content",
	})
}

func (a *App) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", 405)
		return
	}
	userID := getUserID(r)
	alerts, err := listPayoffAlerts(a.db, userID)
	if err != nil {
		log.Printf("Error listing alerts: %v", err)
		http.Error(w, "Internal server error", 500)
		return
	}
	flash, flashType := a.getFlash(r)
	a.render(w, http.StatusOK, "alerts.html", map[string]any{
		"Alerts":          alerts,
		"Flash":           flash,
		"FlashType":       flashType,
		"CSRFToken":       a.getCSRFToken(r),
		"ContentTemplate": "alerts_content",
	})
}

package main

import (
	"fmt"
	"log"
	"time"
)

// Milestone threshold ids. One alert row exists per (accountID, thresholdID),
// so each milestone notifies exactly once no matter how often a plan view
// recomputes.
const (
	ThresholdPayoffElapsed = "payoff-elapsed"
	ThresholdDebtFree      = "debt-free"
)

// detectElapsedPayoffs returns plan entries whose projected payoff date has
// already passed as of now. Entries without a payoff date are ignored.
func detectElapsedPayoffs(result StrategyResult, now time.Time) []RolldownPayment {
	var elapsed []RolldownPayment
	for _, rp := range result.RolldownPayments {
		if rp.PayoffMonth == nil || rp.PayoffDate == nil {
			continue
		}
		if *rp.PayoffMonth > 0 && rp.PayoffDate.Before(now) {
			elapsed = append(elapsed, rp)
		}
	}
	return elapsed
}

// recordPayoffMilestones persists newly crossed milestones and emails the
// user about each one. Alert failures only log; the plan view must render
// regardless.
func (a *App) recordPayoffMilestones(userID int64, email string, result StrategyResult, now time.Time) {
	for _, rp := range detectElapsedPayoffs(result, now) {
		inserted, err := insertPayoffAlert(a.db, userID, rp.DebtID, ThresholdPayoffElapsed, now)
		if err != nil {
			log.Printf("recording payoff alert for %s: %v", rp.DebtID, err)
			continue
		}
		if !inserted {
			continue
		}
		body := fmt.Sprintf(`Good news!

Your plan projected one of your debts to be paid off by %s, and that date has arrived.

Log in to record the payoff and watch your rolldown pool grow.

--
Debt Plan`, rp.PayoffDate.Format("January 2, 2006"))
		if err := a.sendEmail(email, "A debt payoff milestone just passed", body); err != nil {
			log.Printf("sending payoff milestone email: %v", err)
		}
	}

	if result.TotalMonths > 0 && result.DebtFreeDate.Before(now) {
		inserted, err := insertPayoffAlert(a.db, userID, "plan", ThresholdDebtFree, now)
		if err != nil {
			log.Printf("recording debt-free alert: %v", err)
			return
		}
		if inserted {
			body := fmt.Sprintf(`Congratulations!

Your plan's debt-free date (%s) has arrived.

--
Debt Plan`, result.DebtFreeDate.Format("January 2, 2006"))
			if err := a.sendEmail(email, "Your debt-free date is here", body); err != nil {
				log.Printf("sending debt-free email: %v", err)
			}
		}
	}
}

package scanner

import (
	"fmt"
	"math"
	"time"

	"optionscope/internal/models"
)

// guidanceFor maps each alert kind onto its fixed response template.
// Templates are deterministic so the same alert always carries the
// same advice.
func guidanceFor(kind models.AlertKind, severity models.AlertSeverity) models.ActionableGuidance {
	switch kind {
	case models.AlertPnLSwing:
		return models.ActionableGuidance{
			Action:    "review the position and re-check the original thesis",
			Rationale: "a fast P&L swing usually means the market disagrees with the entry assumptions",
			Urgency:   "today",
		}
	case models.AlertConcentration:
		return models.ActionableGuidance{
			Action:    "trim the oversized position or add uncorrelated exposure",
			Rationale: "a single symbol dominating the book turns idiosyncratic risk into portfolio risk",
			Urgency:   "this_week",
		}
	case models.AlertProfitTarget:
		return models.ActionableGuidance{
			Action:    "take profit or roll to lock in gains",
			Rationale: "most of the available reward is already captured; the remaining upside no longer pays for the risk",
			Urgency:   "today",
		}
	case models.AlertStopLoss:
		return models.ActionableGuidance{
			Action:    "close the position",
			Rationale: "the loss has passed the predefined exit level; holding further is hoping, not trading",
			Urgency:   "immediate",
		}
	case models.AlertRegimeChange:
		return models.ActionableGuidance{
			Action:    "reassess open structures against the new volatility regime",
			Rationale: "strategies built for the old regime may now be fighting the market",
			Urgency:   "today",
		}
	}
	if severity == models.AlertCritical {
		return models.ActionableGuidance{Action: "review immediately", Urgency: "immediate"}
	}
	return models.ActionableGuidance{Action: "review", Urgency: "this_week"}
}

// buildAlerts evaluates the monitoring rules against active positions.
// Caller holds mu.
func (e *Engine) buildAlerts(positions []models.Position, market map[string]*models.MarketData, health *models.PortfolioHealth) []models.MonitoringAlert {
	cfg := e.cfg.Alerts
	now := time.Now()
	var out []models.MonitoringAlert

	emit := func(kind models.AlertKind, severity models.AlertSeverity, symbol, message string, value float64) {
		out = append(out, models.MonitoringAlert{
			ID:        e.nextAlertID(),
			Kind:      kind,
			Severity:  severity,
			Symbol:    symbol,
			Message:   message,
			Value:     value,
			Guidance:  guidanceFor(kind, severity),
			CreatedAt: now,
		})
	}

	var totalCost float64
	bySymbol := make(map[string]float64)
	for _, p := range positions {
		cost := math.Abs(p.EntryPrice * float64(p.Quantity) * models.ContractMultiplier)
		totalCost += cost
		bySymbol[p.Symbol] += cost

		pnl := p.PnLPercent()
		switch {
		case pnl <= cfg.StopLossPercent:
			emit(models.AlertStopLoss, models.AlertCritical, p.Symbol,
				fmt.Sprintf("%s position %s is down %.1f%%, past the %.0f%% stop", p.Symbol, p.ID, pnl, cfg.StopLossPercent), pnl)
		case pnl >= cfg.ProfitTargetPercent:
			emit(models.AlertProfitTarget, models.AlertInfo, p.Symbol,
				fmt.Sprintf("%s position %s is up %.1f%%, past the %.0f%% target", p.Symbol, p.ID, pnl, cfg.ProfitTargetPercent), pnl)
		case math.Abs(pnl) >= cfg.PnLSwingPercent:
			emit(models.AlertPnLSwing, models.AlertWarning, p.Symbol,
				fmt.Sprintf("%s position %s moved %.1f%% this session", p.Symbol, p.ID, pnl), pnl)
		}
	}

	if totalCost > 0 {
		for sym, cost := range bySymbol {
			pct := cost / totalCost * 100
			if pct > cfg.ConcentrationLimit {
				emit(models.AlertConcentration, models.AlertWarning, sym,
					fmt.Sprintf("%s holds %.0f%% of deployed capital, above the %.0f%% limit", sym, pct, cfg.ConcentrationLimit), pct)
			}
		}
	}

	for sym, md := range market {
		if md.IVRank > cfg.IVSpikeRank || md.IVRank < cfg.IVCrushRank {
			severity := models.AlertWarning
			if md.IVRank > cfg.IVSpikeRank {
				severity = models.AlertCritical
			}
			emit(models.AlertRegimeChange, severity, sym,
				fmt.Sprintf("%s IV rank at %.0f marks a volatility regime shift", sym, md.IVRank), md.IVRank)
		}
	}

	if health != nil && health.Level == models.HealthCritical {
		emit(models.AlertRegimeChange, models.AlertCritical, "",
			fmt.Sprintf("portfolio health is critical at %.0f", health.Overall), health.Overall)
	}

	return out
}

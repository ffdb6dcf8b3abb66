package scanner

import (
	"fmt"
	"math"
	"time"

	"optionscope/internal/config"
	"optionscope/internal/models"
	"optionscope/pkg/utils"
)

// evaluateTriggers advances the per-symbol trigger state machine for one
// cycle. Each condition holds at most one live trigger; a resolved
// trigger re-arms so the condition can fire again later.
func evaluateTriggers(existing []models.SymbolTrigger, symbol string, md *models.MarketData, cfg config.AlertsConfig, now time.Time) []models.SymbolTrigger {
	byCondition := make(map[models.TriggerCondition]models.SymbolTrigger, len(existing))
	for _, t := range existing {
		byCondition[t.Condition] = t
	}

	conditions := []struct {
		cond   models.TriggerCondition
		active bool
		detail string
	}{
		{
			cond:   models.TriggerIVSpike,
			active: md.IVRank > cfg.IVSpikeRank,
			detail: fmt.Sprintf("IV rank %.0f above %.0f", md.IVRank, cfg.IVSpikeRank),
		},
		{
			cond:   models.TriggerIVCrush,
			active: md.IVRank < cfg.IVCrushRank,
			detail: fmt.Sprintf("IV rank %.0f below %.0f", md.IVRank, cfg.IVCrushRank),
		},
		{
			cond:   models.TriggerVolumeSurge,
			active: md.AvgVolume > 0 && md.DayVolume/md.AvgVolume >= cfg.VolumeSurgeRatio,
			detail: fmt.Sprintf("volume %.0fx trailing average", safeRatio(md.DayVolume, md.AvgVolume)),
		},
		{
			cond:   models.TriggerBreakout,
			active: isBreakout(md.Returns),
			detail: "price move beyond two standard deviations of recent returns",
		},
	}

	out := make([]models.SymbolTrigger, 0, len(conditions))
	for _, c := range conditions {
		prev, seen := byCondition[c.cond]
		next := advanceTrigger(prev, seen, symbol, c.cond, c.active, c.detail, now)
		out = append(out, next)
	}
	return out
}

// advanceTrigger applies one state transition. Untriggered fires into
// Triggered; Triggered resolves when the condition clears; Resolved
// re-arms on the next firing.
func advanceTrigger(prev models.SymbolTrigger, seen bool, symbol string, cond models.TriggerCondition, active bool, detail string, now time.Time) models.SymbolTrigger {
	if !seen {
		prev = models.SymbolTrigger{Symbol: symbol, Condition: cond, State: models.Untriggered}
	}

	switch prev.State {
	case models.Untriggered:
		if active {
			ts := now
			prev.State = models.Triggered
			prev.TriggeredAt = &ts
			prev.Detail = detail
		}
	case models.Triggered:
		if !active {
			ts := now
			prev.State = models.Resolved
			prev.ResolvedAt = &ts
		}
	case models.Resolved:
		if active {
			ts := now
			prev.State = models.Triggered
			prev.TriggeredAt = &ts
			prev.ResolvedAt = nil
			prev.Detail = detail
		}
	}
	return prev
}

func safeRatio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// isBreakout flags a latest daily move beyond two standard deviations
// of the trailing return series.
func isBreakout(returns []float64) bool {
	if len(returns) < 20 {
		return false
	}
	latest := returns[len(returns)-1]
	trailing := returns[:len(returns)-1]
	sd := utils.StdDev(trailing)
	if sd == 0 {
		return false
	}
	return math.Abs(latest) > 2*sd
}

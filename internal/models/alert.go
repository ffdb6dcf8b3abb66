package models

import "time"

// TriggerState is the per-symbol condition state machine.
// Transitions: Untriggered -> Triggered -> Resolved. A trigger never
// reverts to Untriggered on its own; resolution is an external action.
type TriggerState string

const (
	Untriggered TriggerState = "untriggered"
	Triggered   TriggerState = "triggered"
	Resolved    TriggerState = "resolved"
)

// TriggerCondition identifies a monitored condition type.
type TriggerCondition string

const (
	TriggerIVSpike     TriggerCondition = "iv_rank_spike"
	TriggerIVCrush     TriggerCondition = "iv_rank_crush"
	TriggerVolumeSurge TriggerCondition = "volume_surge"
	TriggerBreakout    TriggerCondition = "technical_breakout"
)

// SymbolTrigger tracks one condition for one symbol.
type SymbolTrigger struct {
	Symbol      string
	Condition   TriggerCondition
	State       TriggerState
	TriggeredAt *time.Time
	ResolvedAt  *time.Time
	Detail      string
}

// AlertSeverity orders monitoring alert severities.
type AlertSeverity string

const (
	AlertInfo     AlertSeverity = "info"
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// AlertKind identifies the rule that fired.
type AlertKind string

const (
	AlertPnLSwing      AlertKind = "pnl_swing"
	AlertConcentration AlertKind = "concentration"
	AlertProfitTarget  AlertKind = "profit_target"
	AlertStopLoss      AlertKind = "stop_loss"
	AlertRegimeChange  AlertKind = "regime_change"
)

// ActionableGuidance pairs an alert with its recommended response.
type ActionableGuidance struct {
	Action    string
	Rationale string
	Urgency   string // immediate, today, this_week
}

// MonitoringAlert is one fired alert with its guidance.
type MonitoringAlert struct {
	ID        string
	Kind      AlertKind
	Severity  AlertSeverity
	Symbol    string
	Message   string
	Value     float64
	Guidance  ActionableGuidance
	CreatedAt time.Time
}

// HealthLevel buckets the portfolio health score.
type HealthLevel string

const (
	HealthExcellent HealthLevel = "excellent"
	HealthGood      HealthLevel = "good"
	HealthFair      HealthLevel = "fair"
	HealthPoor      HealthLevel = "poor"
	HealthCritical  HealthLevel = "critical"
)

// PortfolioHealth is the dashboard summary produced each cycle.
type PortfolioHealth struct {
	Profitability   float64 // [0,100]
	Diversification float64
	RiskScore       float64
	LiquidityScore  float64
	Overall         float64
	Level           HealthLevel
	RiskFactors     []string
	UpdatedAt       time.Time
}

// WorstCaseScenario is one enumerated downside outcome for the portfolio.
type WorstCaseScenario struct {
	Name          string
	Probability   float64 // [0,1]
	EstimatedLoss float64
	Mitigation    string
}

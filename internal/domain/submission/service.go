package submission

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/audit"
	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/decision"
	"leavedesk/internal/domain/directory"
	"leavedesk/internal/domain/identity"
	"leavedesk/internal/domain/ledger"
	"leavedesk/internal/domain/notify"
	"leavedesk/internal/domain/parse"
	"leavedesk/internal/platform/metrics"
)

type calendarResolver interface {
	Resolve(ctx context.Context, tenantID, countryCode, mode string, start, end time.Time) (*calendar.Resolution, error)
}

type settingsSource interface {
	Settings(ctx context.Context, tenantID string) (*calendar.OrgSettings, error)
}

type decider interface {
	Decide(ctx context.Context, req decision.EvaluatorRequest, advisories []string) (*decision.Outcome, error)
}

type balanceLedger interface {
	Commit(ctx context.Context, p ledger.CommitParams) (*ledger.LeaveRequest, error)
	BalanceFor(ctx context.Context, tenantID, employeeID, category string, year int) (*ledger.Balance, error)
}

type auditRecorder interface {
	Record(ctx context.Context, p audit.RecordParams) (*audit.Entry, error)
}

type teamDirectory interface {
	TeamStatus(ctx context.Context, tenantID, employeeID string, start, end time.Time) (*directory.TeamSnapshot, error)
}

// Service runs one submission through parse, calendar, decision, ledger,
// audit, and notification. All collaborators are injected; the service
// itself holds no mutable state.
type Service struct {
	Settings  settingsSource
	Calendar  calendarResolver
	Decider   decider
	Ledger    balanceLedger
	Directory teamDirectory
	Audit     auditRecorder
	Notify    notify.Publisher
	Metrics   *metrics.Collector
	Logger    *slog.Logger

	DefaultCountry string
	EscalationSLA  time.Duration

	Now func() time.Time
}

type Input struct {
	Text      string
	Reason    string
	RequestID string
	Overrides Overrides
}

// Overrides carries fields the client supplied already structured. A set
// field wins over whatever extraction reads from the text.
type Overrides struct {
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	TotalDays *decimal.Decimal
	IsHalfDay *bool
}

type Result struct {
	Request    *ledger.LeaveRequest    `json:"request"`
	Outcome    *decision.Outcome       `json:"outcome"`
	Intent     parse.Intent            `json:"intent"`
	Team       *directory.TeamSnapshot `json:"team,omitempty"`
	Advisories []string                `json:"advisories,omitempty"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Submit adjudicates one free-text leave request. Errors from any stage
// abort the submission before the ledger commit; only audit and
// notification failures after the commit are non-fatal.
func (s *Service) Submit(ctx context.Context, actor identity.Actor, input Input) (*Result, error) {
	now := s.now()

	intent := applyOverrides(parse.Parse(input.Text, now), input.Overrides)
	if intent.Invalid != nil {
		return nil, intent.Invalid
	}

	countryCode := s.DefaultCountry
	mode := calendar.ModeAuto
	if settings, err := s.Settings.Settings(ctx, actor.TenantID); err != nil {
		return nil, err
	} else if settings != nil {
		countryCode = settings.CountryCode
		mode = settings.HolidayMode
	}

	resolution, err := s.Calendar.Resolve(ctx, actor.TenantID, countryCode, mode, intent.StartDate, intent.EndDate)
	if err != nil {
		return nil, err
	}

	team, err := s.Directory.TeamStatus(ctx, actor.TenantID, actor.EmployeeID, intent.StartDate, intent.EndDate)
	if err != nil {
		return nil, err
	}

	year := intent.StartDate.Year()
	balance, err := s.Ledger.BalanceFor(ctx, actor.TenantID, actor.EmployeeID, string(intent.Category), year)
	if err != nil {
		return nil, err
	}

	reason := input.Reason
	if reason == "" {
		reason = input.Text
	}

	evalReq := decision.EvaluatorRequest{
		EmployeeID:  actor.EmployeeID,
		CountryCode: countryCode,
		LeaveType:   string(intent.Category),
		TotalDays:   intent.DurationDays,
		IsHalfDay:   intent.IsHalfDay,
		StartDate:   intent.StartDate.Format("2006-01-02"),
		EndDate:     intent.EndDate.Format("2006-01-02"),
		TeamState: decision.TeamState{
			Headcount: team.Headcount,
			OnLeave:   len(team.OnLeave),
		},
		Balance: decision.BalanceState{
			Remaining: balance.Remaining(),
			Entitled:  balance.Entitlement.Add(balance.CarriedForward),
		},
		Reason: reason,
	}

	outcome, err := s.Decider.Decide(ctx, evalReq, resolution.Advisories)
	if err != nil {
		if s.Metrics != nil {
			s.Metrics.RecordEvaluatorFailure()
		}
		return nil, err
	}

	analysis, err := json.Marshal(outcome)
	if err != nil {
		return nil, err
	}

	var slaDeadline *time.Time
	if outcome.Disposition == decision.DispositionEscalated {
		deadline := now.Add(s.EscalationSLA)
		slaDeadline = &deadline
	}

	request, err := s.Ledger.Commit(ctx, ledger.CommitParams{
		TenantID:       actor.TenantID,
		EmployeeID:     actor.EmployeeID,
		Category:       string(intent.Category),
		Year:           year,
		RequestedDays:  intent.DurationDays,
		Disposition:    outcome.Disposition,
		StartDate:      intent.StartDate,
		EndDate:        intent.EndDate,
		WorkingDays:    resolution.WorkingDays,
		Reason:         reason,
		IsHalfDay:      intent.IsHalfDay,
		Recommendation: outcome.Recommendation,
		Confidence:     outcome.Confidence,
		DecisionReason: outcome.Reason,
		Analysis:       analysis,
		SLADeadline:    slaDeadline,
	})
	if err != nil {
		return nil, err
	}

	if s.Metrics != nil {
		s.Metrics.RecordSubmission(outcome.Disposition)
	}

	s.recordAudit(ctx, actor, request, outcome, input.RequestID)
	s.publishDecision(ctx, request, outcome)

	return &Result{
		Request:    request,
		Outcome:    outcome,
		Intent:     intent,
		Team:       team,
		Advisories: resolution.Advisories,
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, actor identity.Actor, request *ledger.LeaveRequest, outcome *decision.Outcome, requestID string) {
	entries := []audit.RecordParams{
		{
			TenantID:   actor.TenantID,
			ActorID:    actor.ID,
			ActorType:  actor.Type,
			Action:     "leave.submitted",
			EntityType: "leave_request",
			EntityID:   request.ID,
			NewState:   request,
			RequestID:  requestID,
		},
		{
			TenantID:       actor.TenantID,
			ActorID:        "constraint-engine",
			ActorType:      audit.ActorAI,
			Action:         "leave.decided",
			EntityType:     "leave_request",
			EntityID:       request.ID,
			NewState:       outcome,
			DecisionReason: outcome.Reason,
			RequestID:      requestID,
		},
	}
	for _, entry := range entries {
		if _, err := s.Audit.Record(ctx, entry); err != nil {
			if s.Metrics != nil {
				s.Metrics.RecordAuditWriteError()
			}
			if s.Logger != nil {
				s.Logger.Error("audit write failed", "action", entry.Action, "entityId", entry.EntityID, "error", err)
			}
		}
	}
}

func (s *Service) publishDecision(ctx context.Context, request *ledger.LeaveRequest, outcome *decision.Outcome) {
	if s.Notify == nil {
		return
	}
	event := notify.DecisionEvent{
		RequestID:   request.ID,
		TenantID:    request.TenantID,
		EmployeeID:  request.EmployeeID,
		Category:    request.Category,
		Disposition: outcome.Disposition,
		Reason:      outcome.Reason,
		StartDate:   request.StartDate.Format("2006-01-02"),
		EndDate:     request.EndDate.Format("2006-01-02"),
		OccurredAt:  s.now(),
	}
	if err := s.Notify.PublishDecision(ctx, event); err != nil {
		if s.Metrics != nil {
			s.Metrics.RecordNotifyFailure()
		}
		if s.Logger != nil {
			s.Logger.Error("decision event publish failed", "requestId", request.ID, "error", err)
		}
	}
}

// applyOverrides lays client-supplied fields over the parsed intent. An
// explicit start date rescues a text parse that failed, since the client
// has already said exactly which dates it wants.
func applyOverrides(intent parse.Intent, ov Overrides) parse.Intent {
	if ov.Category != "" {
		intent.Category = parse.Category(ov.Category)
	}
	if ov.StartDate != nil {
		intent.StartDate = dayOf(*ov.StartDate)
		intent.Invalid = nil
		if ov.EndDate == nil && intent.EndDate.Before(intent.StartDate) {
			intent.EndDate = intent.StartDate
		}
	}
	if ov.EndDate != nil {
		intent.EndDate = dayOf(*ov.EndDate)
	}
	if ov.IsHalfDay != nil {
		intent.IsHalfDay = *ov.IsHalfDay
	}
	if intent.IsHalfDay {
		intent.EndDate = intent.StartDate
	}
	switch {
	case ov.TotalDays != nil:
		intent.DurationDays = *ov.TotalDays
	case intent.IsHalfDay:
		intent.DurationDays = decimal.NewFromFloat(0.5)
	case ov.StartDate != nil || ov.EndDate != nil || ov.IsHalfDay != nil:
		intent.DurationDays = parse.Duration(intent.StartDate, intent.EndDate)
	}
	return intent
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Preview parses without committing anything, for the parse endpoint.
func (s *Service) Preview(text string) parse.Intent {
	return parse.Parse(text, s.now())
}

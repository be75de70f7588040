package decision

import (
	"context"
	"strings"
)

type evaluator interface {
	Evaluate(ctx context.Context, req EvaluatorRequest) (*EvaluatorResponse, error)
}

type Orchestrator struct {
	Evaluator evaluator
}

func NewOrchestrator(ev evaluator) *Orchestrator {
	return &Orchestrator{Evaluator: ev}
}

// Decide sends the assembled payload to the policy evaluator and reduces
// the response to a disposition. An unreachable evaluator fails the whole
// submission; no disposition is ever assumed on its behalf.
func (o *Orchestrator) Decide(ctx context.Context, req EvaluatorRequest, advisories []string) (*Outcome, error) {
	resp, err := o.Evaluator.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Recommendation:      resp.Recommendation,
		Confidence:          resp.Confidence,
		Violations:          resp.Violations,
		TotalRulesEvaluated: resp.TotalRulesEvaluated,
		Advisories:          advisories,
	}

	recommended := resp.Recommendation == "approve" || resp.Recommendation == "approved"

	// Half-day requests always go to a human, whatever the evaluator says:
	// the half actually taken needs confirmation before it can be charged.
	if recommended && !req.IsHalfDay {
		outcome.Disposition = DispositionApproved
		outcome.Reason = "all policy checks passed"
		return outcome, nil
	}

	outcome.Disposition = DispositionEscalated
	outcome.Reason = escalationReason(resp.Violations, req.IsHalfDay)
	return outcome, nil
}

// escalationReason composes a stable, human-readable explanation: the top
// violations when the evaluator reported any, the half-day guardrail when
// that is what forced review, a generic policy reason otherwise.
func escalationReason(violations []Violation, isHalfDay bool) string {
	if len(violations) > 0 {
		limit := len(violations)
		if limit > 3 {
			limit = 3
		}
		messages := make([]string, 0, limit)
		for _, v := range violations[:limit] {
			messages = append(messages, v.Message)
		}
		return strings.Join(messages, ", ")
	}
	if isHalfDay {
		return "half-day requests require human review"
	}
	return "policy evaluation requires human review"
}

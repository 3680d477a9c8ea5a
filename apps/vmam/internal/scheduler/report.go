package scheduler

import (
	"errors"

	"github.com/oyaguma3/vmam/apps/vmam/internal/engine"
	"github.com/oyaguma3/vmam/pkg/apperr"
	"github.com/oyaguma3/vmam/pkg/model"
)

// Failure.Kindの値
const (
	FailureValidation = "validation"
	FailurePolicy     = "policy"
	FailureConflict   = "conflict"
	FailureDirectory  = "directory"
	FailureTimeout    = "timeout"
)

// slot はワーカー1件分の結果。ワーカーごとに専用のslotへ書き込み、最後に集計する。
type slot struct {
	mac     string
	outcome *engine.Outcome
	err     error
	skipped bool
}

// merge は全slotをレポートに集計する。
func merge(r *model.BatchReport, slots []slot) {
	r.Total = len(slots)
	for _, s := range slots {
		switch {
		case s.skipped:
			r.Skipped++
		case s.err != nil:
			r.Failed++
			kind, reason := classify(s.err, s.outcome)
			if kind == FailureConflict {
				r.Conflicts++
			}
			r.Failures = append(r.Failures, model.Failure{MAC: s.mac, Kind: kind, Reason: reason})
		case s.outcome != nil:
			switch s.outcome.Kind {
			case engine.KindCreate:
				r.Created++
			case engine.KindUpdateVlan:
				r.Updated++
			case engine.KindDisable:
				r.Disabled++
			case engine.KindDelete:
				r.Deleted++
			default:
				r.NoOp++
			}
		}
	}
}

// classify はエラーをFailure.Kindと理由に分類する。
func classify(err error, out *engine.Outcome) (string, string) {
	reason := err.Error()
	if out != nil && out.Reason != "" {
		reason = out.Reason
	}

	var validation *apperr.ValidationError
	var policyErr *apperr.PolicyError
	var conflict *apperr.ConflictError
	switch {
	case errors.As(err, &validation):
		return FailureValidation, validation.Message
	case errors.As(err, &policyErr):
		return FailurePolicy, reason
	case errors.As(err, &conflict):
		return FailureConflict, string(conflict.Reason)
	case apperr.IsDirectoryKind(err, apperr.DirectoryTimeout):
		return FailureTimeout, reason
	}
	return FailureDirectory, reason
}

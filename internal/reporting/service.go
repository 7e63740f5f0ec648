package reporting

import (
	"context"
	"errors"
	"math"

	"callrecovery/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Service aggregates stored call rows for the dashboard.
// Every read goes through calls.Repository, which scopes by account.
type Service struct {
	repo calls.Repository
}

func NewService(repo calls.Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	rows, err := s.list(ctx, req)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{AccountID: req.AccountID, Range: req.Range}
	confidence := 0.0
	for _, r := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += r.DurationSeconds
		confidence += r.Confidence
		if r.RecordingURL != nil && *r.RecordingURL != "" {
			out.RecordedCalls++
		}
		if r.IsHotLead() {
			out.HotLeads++
		}
		switch r.Outcome {
		case calls.OutcomeBooked:
			out.BookedCalls++
		case calls.OutcomeWaiting:
			out.WaitingCalls++
		case calls.OutcomeDropped:
			out.DroppedCalls++
		case calls.OutcomeSpam:
			out.SpamCalls++
		}
		switch r.Intent {
		case calls.IntentHigh:
			out.HighIntent++
		case calls.IntentMedium:
			out.MediumIntent++
		case calls.IntentLow:
			out.LowIntent++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
		out.AverageConfidence = math.Round(confidence/float64(out.TotalCalls)*1000) / 1000
	}
	if nonSpam := out.TotalCalls - out.SpamCalls; nonSpam > 0 {
		out.BookingRate = float64(out.BookedCalls) / float64(nonSpam)
	}
	return out, nil
}

// HotLeads lists high-intent calls that have not booked yet, newest first.
func (s *Service) HotLeads(ctx context.Context, req CallsSummaryRequest) ([]calls.Record, error) {
	rows, err := s.list(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]calls.Record, 0)
	for _, r := range rows {
		if r.IsHotLead() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) list(ctx context.Context, req CallsSummaryRequest) ([]calls.Record, error) {
	if req.AccountID == "" {
		return nil, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return nil, ErrInvalidRequest
	}
	if s.repo == nil {
		return nil, errors.New("reporting: repository not configured")
	}
	return s.repo.ListRange(ctx, req.AccountID, req.Range.From, req.Range.To)
}

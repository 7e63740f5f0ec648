package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"callrecovery/internal/calls"
)

func seed(t *testing.T, repo *calls.MemoryRepo, rows ...calls.Record) {
	t.Helper()
	for _, r := range rows {
		if r.PhoneNumber == "" {
			r.PhoneNumber = "+15550000000"
		}
		if _, err := repo.Insert(context.Background(), r); err != nil {
			t.Fatalf("seed %s: %v", r.ID, err)
		}
	}
}

func TestReporting_AccountIsolation(t *testing.T) {
	repo := calls.NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	seed(t, repo,
		calls.Record{ID: "c1", UserID: "u1", Intent: calls.IntentLow, Outcome: calls.OutcomeWaiting, DurationSeconds: 30, CreatedAt: now},
		calls.Record{ID: "c2", UserID: "u2", Intent: calls.IntentLow, Outcome: calls.OutcomeWaiting, DurationSeconds: 50, CreatedAt: now},
	)
	svc := NewService(repo)

	out, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{AccountID: "u1", Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 1 || out.TotalDurationSeconds != 30 {
		t.Fatalf("expected only u1's call, got %+v", out)
	}
}

func TestReporting_SummaryAggregates(t *testing.T) {
	repo := calls.NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	rec := "https://storage.vapi.ai/rec.wav"
	seed(t, repo,
		calls.Record{ID: "c1", UserID: "u", Intent: calls.IntentHigh, Outcome: calls.OutcomeWaiting, Confidence: 1, DurationSeconds: 60, RecordingURL: &rec, CreatedAt: now},
		calls.Record{ID: "c2", UserID: "u", Intent: calls.IntentHigh, Outcome: calls.OutcomeBooked, Confidence: 0.8, DurationSeconds: 40, CreatedAt: now.Add(time.Minute)},
		calls.Record{ID: "c3", UserID: "u", Intent: calls.IntentMedium, Outcome: calls.OutcomeDropped, Confidence: 0.3, DurationSeconds: 5, CreatedAt: now.Add(2 * time.Minute)},
		calls.Record{ID: "c4", UserID: "u", Intent: calls.IntentLow, Outcome: calls.OutcomeSpam, Confidence: 0.3, DurationSeconds: 3, CreatedAt: now.Add(3 * time.Minute)},
		// Outside the range.
		calls.Record{ID: "c5", UserID: "u", Intent: calls.IntentHigh, Outcome: calls.OutcomeWaiting, CreatedAt: now.Add(48 * time.Hour)},
	)
	svc := NewService(repo)
	req := CallsSummaryRequest{AccountID: "u", Range: TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}}

	out, err := svc.CallsSummary(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.TotalCalls != 4 || out.HotLeads != 1 {
		t.Fatalf("unexpected totals: %+v", out)
	}
	if out.BookedCalls != 1 || out.WaitingCalls != 1 || out.DroppedCalls != 1 || out.SpamCalls != 1 {
		t.Fatalf("unexpected outcome breakdown: %+v", out)
	}
	if out.HighIntent != 2 || out.MediumIntent != 1 || out.LowIntent != 1 {
		t.Fatalf("unexpected intent breakdown: %+v", out)
	}
	if out.AverageDurationSeconds != 27 || out.RecordedCalls != 1 {
		t.Fatalf("unexpected duration/recordings: %+v", out)
	}
	if out.AverageConfidence != 0.6 {
		t.Fatalf("expected average confidence 0.6, got %v", out.AverageConfidence)
	}
	if out.BookingRate < 0.333 || out.BookingRate > 0.334 {
		t.Fatalf("expected booking rate 1/3, got %v", out.BookingRate)
	}

	hot, err := svc.HotLeads(context.Background(), req)
	if err != nil {
		t.Fatalf("hot leads: %v", err)
	}
	if len(hot) != 1 || hot[0].ID != "c1" {
		t.Fatalf("unexpected hot leads: %+v", hot)
	}
}

func TestReporting_InvalidRequests(t *testing.T) {
	svc := NewService(calls.NewMemoryRepo())
	now := time.Now()
	for _, req := range []CallsSummaryRequest{
		{Range: TimeRange{From: now, To: now.Add(time.Hour)}},
		{AccountID: "u"},
		{AccountID: "u", Range: TimeRange{From: now, To: now}},
	} {
		if _, err := svc.CallsSummary(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
		}
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("PDT", -7*3600)
	r := Day(time.Date(2024, 5, 1, 23, 30, 0, 0, loc))
	if !r.From.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, loc)) || r.To.Sub(r.From) != 24*time.Hour {
		t.Fatalf("unexpected day range %+v", r)
	}
}

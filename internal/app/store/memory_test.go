package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dkeye/Livecast/internal/domain"
)

var offer = domain.Description{SDP: "v=0\r\no=- offer", Type: "offer"}
var answer = domain.Description{SDP: "v=0\r\no=- answer", Type: "answer"}

func TestJoinThenGetOfferReturnsPublishedOffer(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	sid, err := m.StartBroadcast(ctx, "broadcaster-1", offer)
	if err != nil {
		t.Fatal(err)
	}
	if sid != 0 {
		t.Errorf("first session id = %d, want 0", sid)
	}
	if _, err := m.GetOffer(ctx, sid, "viewer-1"); !errors.Is(err, domain.ErrViewerNotFound) {
		t.Errorf("GetOffer before join = %v, want ErrViewerNotFound", err)
	}
	if err := m.JoinAsViewer(ctx, sid, "viewer-1"); err != nil {
		t.Fatal(err)
	}
	got, err := m.GetOffer(ctx, sid, "viewer-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != offer {
		t.Errorf("GetOffer = %+v, want %+v", got, offer)
	}

	next, _ := m.StartBroadcast(ctx, "broadcaster-2", offer)
	if next != 1 {
		t.Errorf("second session id = %d, want 1", next)
	}
}

func TestOneViewerPerSession(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	sid, _ := m.StartBroadcast(ctx, "b", offer)
	if err := m.JoinAsViewer(ctx, sid, "viewer-1"); err != nil {
		t.Fatal(err)
	}
	if err := m.JoinAsViewer(ctx, sid, "viewer-1"); err != nil {
		t.Errorf("rejoin by same viewer = %v, want nil", err)
	}
	if err := m.JoinAsViewer(ctx, sid, "viewer-2"); !errors.Is(err, domain.ErrSessionFull) {
		t.Errorf("second viewer = %v, want ErrSessionFull", err)
	}
	if err := m.JoinAsViewer(ctx, 42, "viewer-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("unknown session = %v, want ErrSessionNotFound", err)
	}
}

func TestAnswerOncePerViewer(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	sid, _ := m.StartBroadcast(ctx, "b", offer)

	if _, _, err := m.GetAnswer(ctx, sid); !errors.Is(err, domain.ErrNoAnswer) {
		t.Errorf("GetAnswer before answer = %v, want ErrNoAnswer", err)
	}
	if err := m.SendAnswer(ctx, sid, "viewer-1", answer); !errors.Is(err, domain.ErrViewerNotFound) {
		t.Errorf("SendAnswer before join = %v, want ErrViewerNotFound", err)
	}
	_ = m.JoinAsViewer(ctx, sid, "viewer-1")
	if err := m.SendAnswer(ctx, sid, "viewer-1", offer); !errors.Is(err, domain.ErrMalformedDescription) {
		t.Errorf("SendAnswer with an offer = %v, want ErrMalformedDescription", err)
	}
	if err := m.SendAnswer(ctx, sid, "viewer-1", answer); err != nil {
		t.Fatal(err)
	}
	if err := m.SendAnswer(ctx, sid, "viewer-1", answer); !errors.Is(err, domain.ErrAnswerExists) {
		t.Errorf("second answer = %v, want ErrAnswerExists", err)
	}
	viewer, got, err := m.GetAnswer(ctx, sid)
	if err != nil {
		t.Fatal(err)
	}
	if viewer != "viewer-1" || got != answer {
		t.Errorf("GetAnswer = %q %+v", viewer, got)
	}
}

func TestCandidatesAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	sid, _ := m.StartBroadcast(ctx, "b", offer)
	_ = m.JoinAsViewer(ctx, sid, "viewer-1")

	var seen []domain.Candidate
	for batch := 0; batch < 4; batch++ {
		var cs []domain.Candidate
		for i := 0; i <= batch; i++ {
			cs = append(cs, domain.Candidate{Candidate: fmt.Sprintf("c-%d-%d", batch, i)})
		}
		if err := m.AddBroadcasterCandidates(ctx, sid, cs); err != nil {
			t.Fatal(err)
		}
		got, err := m.GetBroadcasterCandidates(ctx, sid, "viewer-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) < len(seen) {
			t.Fatalf("list shrank: %d < %d", len(got), len(seen))
		}
		for i := range seen {
			if got[i] != seen[i] {
				t.Fatalf("entry %d reordered: %+v != %+v", i, got[i], seen[i])
			}
		}
		seen = got
	}
	if len(seen) != 10 {
		t.Errorf("total = %d, want 10", len(seen))
	}

	seen[0].Candidate = "mutated"
	again, _ := m.GetBroadcasterCandidates(ctx, sid, "viewer-1")
	if again[0].Candidate == "mutated" {
		t.Error("returned slice aliases store state")
	}
}

func TestAbsentLineIndexSurvives(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	sid, _ := m.StartBroadcast(ctx, "b", offer)
	_ = m.JoinAsViewer(ctx, sid, "viewer-1")

	if err := m.AddViewerCandidates(ctx, sid, "viewer-1", []domain.Candidate{{Candidate: "c"}}); err != nil {
		t.Fatal(err)
	}
	got, err := m.GetViewerCandidates(ctx, sid, "viewer-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].SDPMLineIndex != nil {
		t.Errorf("GetViewerCandidates = %+v, want one candidate with no line index", got)
	}
	if err := m.AddViewerCandidates(ctx, sid, "viewer-1", []domain.Candidate{{}}); !errors.Is(err, domain.ErrMalformedCandidate) {
		t.Errorf("empty candidate = %v, want ErrMalformedCandidate", err)
	}
}

func TestExpiryAndFinish(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	m := NewMemory(WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	sid, _ := m.StartBroadcast(ctx, "b", offer)
	_ = m.JoinAsViewer(ctx, sid, "viewer-1")

	if done, err := m.ShouldFinish(ctx, sid); err != nil || done {
		t.Fatalf("ShouldFinish = %v, %v", done, err)
	}
	now = now.Add(2 * time.Minute)
	if done, _ := m.ShouldFinish(ctx, sid); !done {
		t.Error("ShouldFinish after ttl = false")
	}
	if _, err := m.GetBroadcasterCandidates(ctx, sid, "viewer-1"); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("read after ttl = %v, want ErrSessionExpired", err)
	}

	other, _ := m.StartBroadcast(ctx, "b2", offer)
	if err := m.Finish(other); err != nil {
		t.Fatal(err)
	}
	if done, _ := m.ShouldFinish(ctx, other); !done {
		t.Error("ShouldFinish after Finish = false")
	}
	if err := m.JoinAsViewer(ctx, other, "viewer-1"); !errors.Is(err, domain.ErrSessionFinished) {
		t.Errorf("join finished = %v, want ErrSessionFinished", err)
	}
	if done, err := m.ShouldFinish(ctx, 99); !done || !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("ShouldFinish(unknown) = %v, %v", done, err)
	}

	total, live := m.Stats()
	if total != 2 || live != 0 {
		t.Errorf("Stats = %d, %d; want 2, 0", total, live)
	}
	now = now.Add(time.Hour)
	if n := m.Sweep(time.Minute); n != 2 {
		t.Errorf("Sweep = %d, want 2", n)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory()
	if _, err := m.StartBroadcast(ctx, "b", offer); !errors.Is(err, context.Canceled) {
		t.Errorf("StartBroadcast = %v, want context.Canceled", err)
	}
}

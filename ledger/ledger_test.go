package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/tally"
)

type recordingJournal struct {
	mu    sync.Mutex
	calls []journalCall
	err   error
}

type journalCall struct {
	vote     models.Vote
	previous *models.Vote
}

func (j *recordingJournal) RecordVote(ctx context.Context, vote models.Vote, previous *models.Vote) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.calls = append(j.calls, journalCall{vote: vote, previous: previous})
	return nil
}

// assertConsistent checks that every tally counter matches the ledger.
func assertConsistent(t *testing.T, l *Ledger, ts *tally.Store, pollID string, options ...string) {
	t.Helper()
	for _, o := range options {
		if got, want := ts.Count(pollID, o), l.CountFor(pollID, o); got != want {
			t.Errorf("option %s: tally %d, ledger %d", o, got, want)
		}
	}
}

func TestCastVote_FirstVote(t *testing.T) {
	ts := tally.New()
	l := New(ts, nil)

	out, err := l.CastVote(context.Background(), "x", "p", "A")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Switched() {
		t.Error("First vote must not be a switch")
	}
	if got := out.Affected(); len(got) != 1 || got[0] != "A" {
		t.Errorf("Expected affected [A], got %v", got)
	}
	if ts.Count("p", "A") != 1 {
		t.Errorf("Expected A=1, got %d", ts.Count("p", "A"))
	}

	opt, ok := l.MyVote("x", "p")
	if !ok || opt != "A" {
		t.Errorf("Expected my vote A, got %q (%v)", opt, ok)
	}
}

func TestCastVote_SameOptionTwice(t *testing.T) {
	ts := tally.New()
	l := New(ts, nil)
	ctx := context.Background()

	if _, err := l.CastVote(ctx, "x", "p", "A"); err != nil {
		t.Fatal(err)
	}
	_, err := l.CastVote(ctx, "x", "p", "A")
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("Expected ErrAlreadyVoted, got %v", err)
	}
	if ts.Count("p", "A") != 1 {
		t.Errorf("Resubmission must leave tally unchanged, got %d", ts.Count("p", "A"))
	}
}

func TestCastVote_Switch(t *testing.T) {
	ts := tally.New()
	j := &recordingJournal{}
	l := New(ts, j)
	ctx := context.Background()

	l.CastVote(ctx, "x", "p", "A")
	l.CastVote(ctx, "y", "p", "A")

	out, err := l.CastVote(ctx, "x", "p", "B")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !out.Switched() || out.Previous != "A" {
		t.Errorf("Expected switch from A, got %+v", out)
	}
	if got := out.Affected(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("Expected affected [A B], got %v", got)
	}

	if ts.Count("p", "A") != 1 || ts.Count("p", "B") != 1 {
		t.Errorf("Expected A=1 B=1, got %v", ts.Snapshot("p"))
	}
	if l.Votes("p") != 2 {
		t.Errorf("Net total must be unchanged, got %d votes", l.Votes("p"))
	}

	last := j.calls[len(j.calls)-1]
	if last.previous == nil || last.previous.OptionID != "A" || last.vote.OptionID != "B" {
		t.Errorf("Journal did not receive the switch: %+v", last)
	}
}

func TestCastVote_JournalFailureLeavesNoTrace(t *testing.T) {
	ts := tally.New()
	j := &recordingJournal{err: errors.New("disk full")}
	l := New(ts, j)

	_, err := l.CastVote(context.Background(), "x", "p", "A")
	if err == nil {
		t.Fatal("Expected journal error")
	}
	if _, ok := l.MyVote("x", "p"); ok {
		t.Error("Vote must not be recorded when the journal fails")
	}
	if ts.Count("p", "A") != 0 {
		t.Error("Tally must not change when the journal fails")
	}
}

func TestCastVote_DesyncIsReported(t *testing.T) {
	ts := tally.New()
	l := New(ts, nil)
	ctx := context.Background()

	l.CastVote(ctx, "x", "p", "A")
	ts.Reset("p") // simulate a lost counter

	out, err := l.CastVote(ctx, "x", "p", "B")
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("Expected ErrInconsistent, got %v", err)
	}
	if !errors.Is(err, tally.ErrUnderflow) {
		t.Errorf("Expected wrapped ErrUnderflow, got %v", err)
	}
	if out.Vote.OptionID != "B" {
		t.Errorf("Switch should still be applied, got %+v", out)
	}
	if opt, _ := l.MyVote("x", "p"); opt != "B" {
		t.Errorf("Expected ledger to hold B, got %q", opt)
	}
}

func TestEndToEndScenario(t *testing.T) {
	ts := tally.New()
	l := New(ts, nil)
	ctx := context.Background()

	steps := []struct {
		voter  string
		option string
		want   map[string]int64
	}{
		{"X", "A", map[string]int64{"A": 1, "B": 0}},
		{"Y", "B", map[string]int64{"A": 1, "B": 1}},
		{"X", "B", map[string]int64{"A": 0, "B": 2}},
	}

	for _, s := range steps {
		if _, err := l.CastVote(ctx, s.voter, "P", s.option); err != nil {
			t.Fatalf("%s -> %s: %v", s.voter, s.option, err)
		}
		for opt, want := range s.want {
			if got := ts.Count("P", opt); got != want {
				t.Errorf("after %s -> %s: %s=%d, want %d", s.voter, s.option, opt, got, want)
			}
		}
	}
}

func TestConcurrentSwitchesSameVoter(t *testing.T) {
	ts := tally.New()
	l := New(ts, nil)
	ctx := context.Background()
	options := []string{"A", "B", "C"}

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.CastVote(ctx, "x", "p", options[i%len(options)])
			if err != nil && !errors.Is(err, ErrAlreadyVoted) {
				t.Errorf("Unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if l.Votes("p") != 1 {
		t.Fatalf("Expected exactly one vote, got %d", l.Votes("p"))
	}
	var total int64
	for _, o := range options {
		total += ts.Count("p", o)
	}
	if total != 1 {
		t.Errorf("Expected tally total 1, got %d (%v)", total, ts.Snapshot("p"))
	}
	assertConsistent(t, l, ts, "p", options...)
}

func TestConcurrentVotersSamePoll(t *testing.T) {
	ts := tally.New()
	l := New(ts, nil)
	ctx := context.Background()
	options := []string{"A", "B"}
	const voters = 40

	var wg sync.WaitGroup
	for v := 0; v < voters; v++ {
		for round := 0; round < 5; round++ {
			wg.Add(1)
			go func(v, round int) {
				defer wg.Done()
				id := fmt.Sprintf("voter-%d", v)
				_, err := l.CastVote(ctx, id, "p", options[(v+round)%2])
				if err != nil && !errors.Is(err, ErrAlreadyVoted) {
					t.Errorf("Unexpected error: %v", err)
				}
			}(v, round)
		}
	}
	wg.Wait()

	if l.Votes("p") != voters {
		t.Errorf("Expected %d votes, got %d", voters, l.Votes("p"))
	}
	if got := ts.Count("p", "A") + ts.Count("p", "B"); got != voters {
		t.Errorf("Expected tally total %d, got %d", voters, got)
	}
	assertConsistent(t, l, ts, "p", options...)
}

func TestLoad(t *testing.T) {
	ts := tally.New()
	l := New(ts, nil)

	err := l.Load([]models.Vote{
		{Identity: "x", PollID: "p", OptionID: "A"},
		{Identity: "y", PollID: "p", OptionID: "A"},
		{Identity: "x", PollID: "q", OptionID: "B"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ts.Count("p", "A") != 2 || ts.Count("q", "B") != 1 {
		t.Errorf("Unexpected tally after load: p=%v q=%v", ts.Snapshot("p"), ts.Snapshot("q"))
	}

	err = l.Load([]models.Vote{{Identity: "x", PollID: "p", OptionID: "B"}})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestForgetPoll(t *testing.T) {
	ts := tally.New()
	l := New(ts, nil)
	ctx := context.Background()

	l.CastVote(ctx, "x", "p", "A")
	l.CastVote(ctx, "y", "p", "B")
	l.CastVote(ctx, "x", "q", "A")

	l.ForgetPoll("p")

	if l.Votes("p") != 0 || len(ts.Snapshot("p")) != 0 {
		t.Error("Expected poll p to be empty")
	}
	if l.Votes("q") != 1 || ts.Count("q", "A") != 1 {
		t.Error("ForgetPoll must not touch other polls")
	}

	// x can vote on p again from scratch.
	if _, err := l.CastVote(ctx, "x", "p", "A"); err != nil {
		t.Errorf("Expected fresh vote after ForgetPoll, got %v", err)
	}
}

// gateJournal holds every switch until release is closed.
type gateJournal struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (j *gateJournal) RecordVote(ctx context.Context, vote models.Vote, previous *models.Vote) error {
	if previous != nil {
		j.once.Do(func() { close(j.entered) })
		<-j.release
	}
	return nil
}

func TestForgetPoll_ConcurrentWithNewVoter(t *testing.T) {
	ts := tally.New()
	j := &gateJournal{entered: make(chan struct{}), release: make(chan struct{})}
	l := New(ts, j)
	ctx := context.Background()

	if _, err := l.CastVote(ctx, "x", "p", "A"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(3)

	// x's switch stalls inside the journal
	go func() {
		defer wg.Done()
		l.CastVote(ctx, "x", "p", "B")
	}()
	<-j.entered

	go func() {
		defer wg.Done()
		l.ForgetPoll("p")
	}()
	time.Sleep(20 * time.Millisecond)

	yErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		_, err := l.CastVote(ctx, "y", "p", "A")
		yErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	close(j.release)
	wg.Wait()

	if err := <-yErr; err != nil {
		t.Fatalf("Unexpected error for y: %v", err)
	}
	assertConsistent(t, l, ts, "p", "A", "B")

	// Whatever survived must be switchable without a desync
	if _, ok := l.MyVote("y", "p"); ok {
		if _, err := l.CastVote(ctx, "y", "p", "B"); err != nil {
			t.Errorf("Switch after ForgetPoll failed: %v", err)
		}
		assertConsistent(t, l, ts, "p", "A", "B")
	}
}

func TestReplacePoll(t *testing.T) {
	ts := tally.New()
	l := New(ts, nil)
	ctx := context.Background()

	l.CastVote(ctx, "x", "p", "A")

	t.Run("failure keeps votes", func(t *testing.T) {
		err := l.ReplacePoll("p", func() error { return errors.New("boom") })
		if err == nil {
			t.Fatal("Expected the replace error")
		}
		if l.Votes("p") != 1 || ts.Count("p", "A") != 1 {
			t.Error("A failed replace must not drop votes")
		}
	})

	t.Run("success drops votes", func(t *testing.T) {
		called := false
		err := l.ReplacePoll("p", func() error {
			called = true
			return nil
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !called {
			t.Error("replace was not run")
		}
		if l.Votes("p") != 0 || ts.Count("p", "A") != 0 {
			t.Error("Expected poll p to be empty")
		}
	})

	t.Run("casts wait for replace", func(t *testing.T) {
		inside := make(chan struct{})
		proceed := make(chan struct{})
		done := make(chan error, 1)

		go func() {
			done <- l.ReplacePoll("p", func() error {
				close(inside)
				<-proceed
				return nil
			})
		}()
		<-inside

		cast := make(chan error, 1)
		go func() {
			_, err := l.CastVote(ctx, "y", "p", "B")
			cast <- err
		}()

		select {
		case <-cast:
			t.Fatal("Cast completed while the poll was being replaced")
		case <-time.After(50 * time.Millisecond):
		}

		close(proceed)
		if err := <-done; err != nil {
			t.Fatal(err)
		}
		if err := <-cast; err != nil {
			t.Fatalf("Cast after replace failed: %v", err)
		}
		if opt, ok := l.MyVote("y", "p"); !ok || opt != "B" {
			t.Errorf("Expected y's vote to survive the replace, got %q (%v)", opt, ok)
		}
		assertConsistent(t, l, ts, "p", "A", "B")
	})
}

package coordinator

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"agentcore/internal/store"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), 30*time.Second, 100)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	expertise := map[string]float64{"coder": 0.9, "researcher": 0.3}
	c := New(s, 15*time.Second, 5*time.Second, time.Hour, 0.8, func(agentID, domain string) float64 {
		return expertise[agentID]
	}, nil)
	return c, s
}

type fakePublisher struct {
	published []store.Message
}

func (f *fakePublisher) Publish(m store.Message) (store.Message, error) {
	f.published = append(f.published, m)
	return m, nil
}

func TestAssignTaskPicksHighestExpertiseAndAudits(t *testing.T) {
	c, s := newTestCoordinator(t)
	task := &store.Task{Domain: "coding", Title: "fix bug", Status: store.TaskPending}
	if err := s.SaveTask(task); err != nil {
		t.Fatal(err)
	}

	if err := c.AssignTask(task, []string{"researcher", "coder"}); err != nil {
		t.Fatalf("AssignTask: %v", err)
	}
	if task.AssignedTo != "coder" {
		t.Fatalf("expected coder assigned, got %s", task.AssignedTo)
	}
	if task.Status != store.TaskAssigned {
		t.Fatalf("expected assigned status, got %s", task.Status)
	}

	events, err := s.AuditEvents(store.AuditFilter{TaskID: task.ID})
	if err != nil || len(events) != 1 || events[0].EventType != store.AuditBotSelection {
		t.Fatalf("expected one bot_selection audit event, got %+v err=%v", events, err)
	}
}

func TestStartCompleteLifecycle(t *testing.T) {
	c, s := newTestCoordinator(t)
	task := &store.Task{Domain: "coding", Title: "t", Status: store.TaskPending}
	if err := s.SaveTask(task); err != nil {
		t.Fatal(err)
	}
	if err := c.AssignTask(task, []string{"coder"}); err != nil {
		t.Fatal(err)
	}
	if err := c.StartTask(task.ID, "coder"); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	if err := c.CompleteTask(task.ID, "coder", "done", 0.95); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	got, err := s.GetTask(task.ID)
	if err != nil || got.Status != store.TaskCompleted {
		t.Fatalf("expected completed task, got %+v err=%v", got, err)
	}
}

func TestAssignAndCompleteTaskPublishOverBus(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), 30*time.Second, 100)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	pub := &fakePublisher{}
	c := New(s, 15*time.Second, 5*time.Second, time.Hour, 0.8, nil, pub)

	task := &store.Task{Domain: "coding", Title: "fix bug", Status: store.TaskPending}
	if err := s.SaveTask(task); err != nil {
		t.Fatal(err)
	}
	if err := c.AssignTask(task, []string{"coder"}); err != nil {
		t.Fatalf("AssignTask: %v", err)
	}
	if err := c.CompleteTask(task.ID, "coder", "done", 0.9); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}

	if len(pub.published) != 2 {
		t.Fatalf("expected 2 published messages (assignment + completion), got %d: %+v", len(pub.published), pub.published)
	}
	if pub.published[0].Type != store.MessageRequest || pub.published[0].Recipient != "coder" {
		t.Errorf("expected an assignment request to coder, got %+v", pub.published[0])
	}
	if pub.published[1].Type != store.MessageReport || pub.published[1].Recipient != store.TeamRecipient {
		t.Errorf("expected a team-wide completion report, got %+v", pub.published[1])
	}
}

func TestFailTaskPublishesOverBus(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), 30*time.Second, 100)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	pub := &fakePublisher{}
	c := New(s, 15*time.Second, 5*time.Second, time.Hour, 0.8, nil, pub)

	task := &store.Task{Domain: "coding", Title: "fix bug", Status: store.TaskPending}
	if err := s.SaveTask(task); err != nil {
		t.Fatal(err)
	}
	if err := c.AssignTask(task, []string{"coder"}); err != nil {
		t.Fatalf("AssignTask: %v", err)
	}
	if err := c.FailTask(task.ID, "coder", "network timeout"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}

	if len(pub.published) != 2 {
		t.Fatalf("expected 2 published messages (assignment + failure), got %d", len(pub.published))
	}
	if pub.published[1].Type != store.MessageReport || !strings.Contains(pub.published[1].Content, "network timeout") {
		t.Errorf("expected a failure report mentioning the reason, got %+v", pub.published[1])
	}
}

func TestNilBusDoesNotBlockTaskLifecycle(t *testing.T) {
	c, s := newTestCoordinator(t)
	task := &store.Task{Domain: "coding", Title: "fix bug", Status: store.TaskPending}
	if err := s.SaveTask(task); err != nil {
		t.Fatal(err)
	}
	if err := c.AssignTask(task, []string{"coder"}); err != nil {
		t.Fatalf("AssignTask with nil bus: %v", err)
	}
	if err := c.CompleteTask(task.ID, "coder", "done", 0.9); err != nil {
		t.Fatalf("CompleteTask with nil bus: %v", err)
	}
}

func TestWrongOwnerCannotTransition(t *testing.T) {
	c, s := newTestCoordinator(t)
	task := &store.Task{Domain: "coding", Title: "t", Status: store.TaskPending}
	if err := s.SaveTask(task); err != nil {
		t.Fatal(err)
	}
	if err := c.AssignTask(task, []string{"coder"}); err != nil {
		t.Fatal(err)
	}
	if err := c.StartTask(task.ID, "researcher"); err != ErrWrongOwner {
		t.Fatalf("expected ErrWrongOwner, got %v", err)
	}
}

func TestCanClaimAllowsStealingAfterTimeout(t *testing.T) {
	task := &store.Task{Status: store.TaskAssigned, AssignedTo: "coder"}
	old := time.Now().Add(-time.Minute)
	if CanClaim(task, &old, time.Now(), 15*time.Second) != true {
		t.Fatal("expected stale incumbent to allow stealing")
	}
	recent := time.Now()
	if CanClaim(task, &recent, time.Now(), 15*time.Second) != false {
		t.Fatal("expected live incumbent to block stealing")
	}
}

func TestDecideAndHandleDisputePersist(t *testing.T) {
	c, s := newTestCoordinator(t)
	task := &store.Task{Domain: "coding", Title: "t", Status: store.TaskPending}
	if err := s.SaveTask(task); err != nil {
		t.Fatal(err)
	}

	positions := []store.Position{
		{AgentID: "a", Position: "X", Confidence: 0.9, ExpertiseScore: 0.8, Reasoning: "unrelated"},
		{AgentID: "b", Position: "Y", Confidence: 0.5, ExpertiseScore: 0.2, Reasoning: "also unrelated"},
	}
	decision, err := c.Decide(task.ID, VoteWeighted, positions)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decision.FinalDecision != "X" {
		t.Fatalf("expected X to win, got %s", decision.FinalDecision)
	}

	disputeDecision, err := c.HandleDispute(task.ID, positions)
	if err != nil {
		t.Fatalf("HandleDispute: %v", err)
	}
	if disputeDecision == nil {
		t.Fatal("expected a dispute decision for divergent positions")
	}

	stats, err := s.ComputeAuditStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalsByType[store.AuditVoting] != 1 || stats.TotalsByType[store.AuditDisputeDetected] != 1 {
		t.Fatalf("expected voting and dispute_detected audit events, got %+v", stats.TotalsByType)
	}
}

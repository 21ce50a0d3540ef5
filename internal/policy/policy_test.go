package policy

import (
	"testing"

	"socialite/internal/model"
)

func TestRequiresApproval(t *testing.T) {
	tests := []struct {
		visibility model.Visibility
		want       bool
	}{
		{model.VisibilityPublic, false},
		{model.VisibilityFollowers, true},
		{model.VisibilityPrivate, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.visibility), func(t *testing.T) {
			if got := RequiresApproval(tt.visibility); got != tt.want {
				t.Errorf("RequiresApproval(%s) = %v, want %v", tt.visibility, got, tt.want)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name             string
		visibility       model.Visibility
		isOwner          bool
		acceptedFollower bool
		wantView         bool
		wantApproval     bool
	}{
		{
			name:       "public profile, anonymous viewer",
			visibility: model.VisibilityPublic,
			wantView:   true,
		},
		{
			name:             "public profile, accepted follower",
			visibility:       model.VisibilityPublic,
			acceptedFollower: true,
			wantView:         true,
		},
		{
			name:         "followers-only profile, stranger",
			visibility:   model.VisibilityFollowers,
			wantView:     false,
			wantApproval: true,
		},
		{
			name:             "followers-only profile, accepted follower",
			visibility:       model.VisibilityFollowers,
			acceptedFollower: true,
			wantView:         true,
			wantApproval:     true,
		},
		{
			name:         "followers-only profile, owner",
			visibility:   model.VisibilityFollowers,
			isOwner:      true,
			wantView:     true,
			wantApproval: true,
		},
		{
			name:         "private profile, stranger",
			visibility:   model.VisibilityPrivate,
			wantView:     false,
			wantApproval: true,
		},
		{
			name:             "private profile, accepted follower",
			visibility:       model.VisibilityPrivate,
			acceptedFollower: true,
			wantView:         true,
			wantApproval:     true,
		},
		{
			name:         "private profile, owner",
			visibility:   model.VisibilityPrivate,
			isOwner:      true,
			wantView:     true,
			wantApproval: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.visibility, tt.isOwner, tt.acceptedFollower)
			if got.CanViewContent != tt.wantView {
				t.Errorf("CanViewContent = %v, want %v", got.CanViewContent, tt.wantView)
			}
			if got.RequiresApproval != tt.wantApproval {
				t.Errorf("RequiresApproval = %v, want %v", got.RequiresApproval, tt.wantApproval)
			}
		})
	}
}

// A private account becomes visible to a viewer only after their request is
// approved: denied as a stranger, still denied while pending, allowed once
// the relationship is accepted.
func TestEvaluate_PrivateProfileLifecycle(t *testing.T) {
	if d := Evaluate(model.VisibilityPrivate, false, false); d.CanViewContent {
		t.Error("stranger should not view private content")
	}

	next, state := FollowTransition(StatusAbsent, RequiresApproval(model.VisibilityPrivate))
	if next != model.FollowStatusPending || state != model.FollowStatePending {
		t.Fatalf("follow on private account = (%s, %s), want (pending, pending)", next, state)
	}

	// Pending is not accepted: still no access.
	if d := Evaluate(model.VisibilityPrivate, false, false); d.CanViewContent {
		t.Error("pending requester should not view private content")
	}

	// After approval the viewer is an accepted follower.
	if d := Evaluate(model.VisibilityPrivate, false, true); !d.CanViewContent {
		t.Error("accepted follower should view private content")
	}
}

func TestEvaluate_PublicProfileImmediateFollow(t *testing.T) {
	d := Evaluate(model.VisibilityPublic, false, false)
	if !d.CanViewContent {
		t.Error("anyone should view public content")
	}
	if d.RequiresApproval {
		t.Error("public accounts should not require approval")
	}

	next, state := FollowTransition(StatusAbsent, d.RequiresApproval)
	if next != model.FollowStatusAccepted || state != model.FollowStateAccepted {
		t.Errorf("follow on public account = (%s, %s), want (accepted, accepted)", next, state)
	}
}

func TestFollowTransition(t *testing.T) {
	tests := []struct {
		name             string
		existing         model.FollowStatus
		requiresApproval bool
		wantNext         model.FollowStatus
		wantState        model.FollowState
	}{
		{
			name:      "absent, no approval needed",
			existing:  StatusAbsent,
			wantNext:  model.FollowStatusAccepted,
			wantState: model.FollowStateAccepted,
		},
		{
			name:             "absent, approval needed",
			existing:         StatusAbsent,
			requiresApproval: true,
			wantNext:         model.FollowStatusPending,
			wantState:        model.FollowStatePending,
		},
		{
			name:      "already accepted is a no-op",
			existing:  model.FollowStatusAccepted,
			wantNext:  model.FollowStatusAccepted,
			wantState: model.FollowStateAlreadyAccepted,
		},
		{
			name:             "already accepted stays accepted even if approval now required",
			existing:         model.FollowStatusAccepted,
			requiresApproval: true,
			wantNext:         model.FollowStatusAccepted,
			wantState:        model.FollowStateAlreadyAccepted,
		},
		{
			name:             "already pending is a no-op",
			existing:         model.FollowStatusPending,
			requiresApproval: true,
			wantNext:         model.FollowStatusPending,
			wantState:        model.FollowStateAlreadyPending,
		},
		{
			name:      "declined can be re-requested immediately on public",
			existing:  model.FollowStatusDeclined,
			wantNext:  model.FollowStatusAccepted,
			wantState: model.FollowStateAccepted,
		},
		{
			name:             "declined re-request queues again on non-public",
			existing:         model.FollowStatusDeclined,
			requiresApproval: true,
			wantNext:         model.FollowStatusPending,
			wantState:        model.FollowStatePending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, state := FollowTransition(tt.existing, tt.requiresApproval)
			if next != tt.wantNext {
				t.Errorf("next = %s, want %s", next, tt.wantNext)
			}
			if state != tt.wantState {
				t.Errorf("state = %s, want %s", state, tt.wantState)
			}
		})
	}
}

// Repeating a follow must land in the same terminal state as doing it once.
func TestFollowTransition_Idempotent(t *testing.T) {
	for _, requiresApproval := range []bool{false, true} {
		first, _ := FollowTransition(StatusAbsent, requiresApproval)
		second, state := FollowTransition(first, requiresApproval)

		if second != first {
			t.Errorf("requiresApproval=%v: second follow moved %s -> %s", requiresApproval, first, second)
		}
		if state != model.FollowStateAlreadyAccepted && state != model.FollowStateAlreadyPending {
			t.Errorf("requiresApproval=%v: second follow state = %s, want an already_* state", requiresApproval, state)
		}
	}
}

func TestFollowOutcome(t *testing.T) {
	tests := []struct {
		name         string
		stored       model.FollowStatus
		applied      bool
		wantState    model.FollowState
		wantAccepted bool
	}{
		{
			name:         "fresh edge accepted",
			stored:       model.FollowStatusAccepted,
			applied:      true,
			wantState:    model.FollowStateAccepted,
			wantAccepted: true,
		},
		{
			name:      "fresh edge pending",
			stored:    model.FollowStatusPending,
			applied:   true,
			wantState: model.FollowStatePending,
		},
		{
			name:      "existing accepted edge untouched",
			stored:    model.FollowStatusAccepted,
			wantState: model.FollowStateAlreadyAccepted,
		},
		{
			name:      "existing pending edge untouched",
			stored:    model.FollowStatusPending,
			wantState: model.FollowStateAlreadyPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, becameAccepted := FollowOutcome(tt.stored, tt.applied)
			if state != tt.wantState {
				t.Errorf("state = %s, want %s", state, tt.wantState)
			}
			if becameAccepted != tt.wantAccepted {
				t.Errorf("becameAccepted = %v, want %v", becameAccepted, tt.wantAccepted)
			}
		})
	}
}

// Two follows racing for the same pair: the loser's write is not applied and
// it sees the winner's stored status. It must report "already" and must not
// move counts, no matter that its own pre-write view of the edge was empty.
func TestFollowOutcome_RaceLoserSeesWinnersEdge(t *testing.T) {
	state, becameAccepted := FollowOutcome(model.FollowStatusAccepted, false)
	if state != model.FollowStateAlreadyAccepted {
		t.Errorf("state = %s, want %s", state, model.FollowStateAlreadyAccepted)
	}
	if becameAccepted {
		t.Error("losing a duplicate-follow race must not count as a new accepted edge")
	}

	state, becameAccepted = FollowOutcome(model.FollowStatusPending, false)
	if state != model.FollowStateAlreadyPending {
		t.Errorf("state = %s, want %s", state, model.FollowStateAlreadyPending)
	}
	if becameAccepted {
		t.Error("losing a duplicate-request race must not count as a new accepted edge")
	}
}

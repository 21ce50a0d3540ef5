// Package policy holds the pure access-control rules for profiles and
// follows. Nothing in here does I/O: callers resolve the subject's
// visibility and the viewer's relationship first and pass them in as values.
package policy

import "socialite/internal/model"

// Decision is the outcome of evaluating a viewer against a subject.
type Decision struct {
	// CanViewContent: may the viewer enumerate and read the subject's posts.
	CanViewContent bool

	// RequiresApproval: must a prospective follow be queued as pending.
	RequiresApproval bool
}

// Evaluate computes the access decision for one viewer/subject pair.
//
// Content is visible when the subject is public, the viewer owns the
// profile, or the viewer is an accepted follower. Both followers-only and
// private accounts gate content behind an accepted follow; the same rule
// that makes them require follow approval.
func Evaluate(subject model.Visibility, viewerIsOwner, viewerIsAcceptedFollower bool) Decision {
	return Decision{
		CanViewContent:   subject == model.VisibilityPublic || viewerIsOwner || viewerIsAcceptedFollower,
		RequiresApproval: RequiresApproval(subject),
	}
}

// RequiresApproval reports whether following an account with the given
// visibility needs the owner's approval. Any account that is not fully
// public does.
func RequiresApproval(v model.Visibility) bool {
	return v != model.VisibilityPublic
}

// StatusAbsent marks the absence of a relationship row in transition
// computations.
const StatusAbsent model.FollowStatus = ""

// FollowTransition computes the result of a follow attempt given the
// current edge status (StatusAbsent when no row exists) and whether the
// subject requires approval.
//
// An existing pending or accepted edge is reported as-is rather than
// recreated, so repeating a follow never produces a duplicate edge. A
// declined edge may be re-requested: the attempt runs as if the edge were
// absent and overwrites the old status.
func FollowTransition(existing model.FollowStatus, requiresApproval bool) (next model.FollowStatus, state model.FollowState) {
	switch existing {
	case model.FollowStatusAccepted:
		return model.FollowStatusAccepted, model.FollowStateAlreadyAccepted
	case model.FollowStatusPending:
		return model.FollowStatusPending, model.FollowStateAlreadyPending
	}

	// Absent or declined: create (or re-request) the edge.
	if requiresApproval {
		return model.FollowStatusPending, model.FollowStatePending
	}
	return model.FollowStatusAccepted, model.FollowStateAccepted
}

// FollowOutcome interprets the result of the store's follow upsert: stored
// is the edge's status after the write, applied reports whether the desired
// status was actually written (a fresh edge, or a re-request over a
// declined one). The second result reports whether the edge newly became
// accepted, which is exactly when follower/following counts move.
//
// When applied is false the edge already existed as pending or accepted —
// including the case where a concurrent duplicate follow won the insert, so
// the caller must report "already" rather than a new edge.
func FollowOutcome(stored model.FollowStatus, applied bool) (model.FollowState, bool) {
	if applied {
		if stored == model.FollowStatusAccepted {
			return model.FollowStateAccepted, true
		}
		return model.FollowStatePending, false
	}
	if stored == model.FollowStatusAccepted {
		return model.FollowStateAlreadyAccepted, false
	}
	return model.FollowStateAlreadyPending, false
}

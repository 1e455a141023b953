package task

// Reconcile derives the main task status after a subtask moves from prev to
// next. parent.Subtasks is the snapshot read together with the write; the
// entry matching subtaskID is evaluated with next regardless of its stored
// value. It returns the new parent status and whether it changed.
//
// Rules, first match wins:
//  1. PENDING -> IN_PROGRESS on a subtask starts the parent.
//  2. A subtask reaching COMPLETED completes the parent once every subtask is COMPLETED.
//  3. A subtask leaving COMPLETED for anything but CANCELLED demotes a
//     COMPLETED parent to IN_PROGRESS, whether the parent was completed by
//     rule 2 or set by hand.
//  4. Anything else leaves the parent alone.
func Reconcile(parent MainTask, subtaskID string, prev, next Status) (Status, bool) {
	current := parent.Status

	if prev == StatusPending && next == StatusInProgress {
		if current != StatusInProgress {
			return StatusInProgress, true
		}
		return current, false
	}

	if next == StatusCompleted {
		if current == StatusCompleted {
			return current, false
		}
		if AllCompleted(withStatus(parent.Subtasks, subtaskID, next)) {
			return StatusCompleted, true
		}
		return current, false
	}

	if prev == StatusCompleted && current == StatusCompleted && next != StatusCancelled {
		return StatusInProgress, true
	}

	return current, false
}

func withStatus(subtasks []Subtask, id string, status Status) []Subtask {
	out := make([]Subtask, len(subtasks))
	copy(out, subtasks)
	for i := range out {
		if out[i].ID == id {
			out[i].Status = status
		}
	}
	return out
}

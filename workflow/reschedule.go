package workflow

// RescheduleNotSupportedReply is returned the moment a reschedule
// workflow starts. spec.md §9's open question on reschedule-at-commit
// resolves to: rescheduling is not implemented in this release, so the
// workflow never reaches slot-filling — it starts and ends in the same
// turn with a clear explanation of the supported alternative.
const RescheduleNotSupportedReply = "I'm not able to reschedule an existing booking yet. You're welcome to cancel it and book a new time instead."

// StartReschedule immediately terminates a reschedule workflow, per the
// decision recorded above. Callers should clear the session's workflow
// state on receipt of this result, same as any StatusAborted outcome.
func StartReschedule() Result {
	return Result{Reply: RescheduleNotSupportedReply, Status: StatusAborted}
}

package liveness

// Instruction is the prompt shown to the subject for st.
func Instruction(st State) string {
	switch st.Tag {
	case StateInitializing:
		return "Position your face in the center."
	case StateAwaitingStableFace:
		if st.Mode == ModeRegister {
			return "Look straight at the camera."
		}
		return "Hold still, look straight ahead."
	case StateAwaitingMove:
		c, _ := st.Current()
		return challengeInstruction(c)
	case StateAwaitingReturn:
		return "Good. Now back to the center."
	case StateTransitioning:
		return "Great! Back to the center..."
	case StateVerifying:
		return "Verifying..."
	case StatePassed:
		if st.Mode == ModeRegister {
			return "Face registered."
		}
		return "Verified."
	case StateFailed:
		return failureMessage(st.Reason)
	}
	return ""
}

func challengeInstruction(c Challenge) string {
	switch c {
	case TurnLeft:
		return "Turn your head to the left."
	case TurnRight:
		return "Turn your head to the right."
	case Nod:
		return "Nod slowly."
	case NodUp:
		return "Tilt your head up."
	case NodDown:
		return "Tilt your head down."
	}
	return "Hold still, look straight ahead."
}

func failureMessage(reason string) string {
	switch reason {
	case ReasonTimeout:
		return "Verification failed: time is up."
	case ReasonFaceMismatch:
		return "Face verification failed. The face does not match."
	case ReasonNoEnrolledFace:
		return "No registered face found."
	case ReasonCameraUnavailable:
		return "Camera unavailable. Check the camera permission."
	case ReasonCancelled:
		return "Scan cancelled."
	}
	return "Verification failed."
}

package checkout

// Step is a stage of the checkout flow.
type Step string

const (
	StepCustomer Step = "customer"
	StepShipping Step = "shipping"
	StepPayment  Step = "payment"
	StepReview   Step = "review"
	StepPlacing  Step = "placing"
	StepPlaced   Step = "placed"
	StepFailed   Step = "failed"
)

// collectingSteps are the steps that gather customer input, in order.
var collectingSteps = []Step{StepCustomer, StepShipping, StepPayment}

// String returns the string representation of the step.
func (s Step) String() string {
	return string(s)
}

// IsValid checks if the step is known.
func (s Step) IsValid() bool {
	switch s {
	case StepCustomer, StepShipping, StepPayment, StepReview, StepPlacing, StepPlaced, StepFailed:
		return true
	}
	return false
}

// IsCollecting reports whether the step gathers customer input.
func (s Step) IsCollecting() bool {
	return s == StepCustomer || s == StepShipping || s == StepPayment
}

// IsTerminal returns true if the checkout can no longer change.
func (s Step) IsTerminal() bool {
	return s == StepPlaced
}

// order returns the position of the step in the forward flow.
func (s Step) order() int {
	switch s {
	case StepCustomer:
		return 0
	case StepShipping:
		return 1
	case StepPayment:
		return 2
	case StepReview, StepFailed:
		return 3
	case StepPlacing:
		return 4
	case StepPlaced:
		return 5
	}
	return -1
}

// next returns the step Next advances to.
func (s Step) next() (Step, bool) {
	switch s {
	case StepCustomer:
		return StepShipping, true
	case StepShipping:
		return StepPayment, true
	case StepPayment:
		return StepReview, true
	}
	return "", false
}

// transitions defines valid step transitions.
var transitions = map[Step][]Step{
	StepCustomer: {StepShipping},
	StepShipping: {StepPayment, StepCustomer},
	StepPayment:  {StepReview, StepShipping, StepCustomer},
	StepReview:   {StepPlacing, StepPayment, StepShipping, StepCustomer},
	StepPlacing:  {StepPlaced, StepFailed},
	StepFailed:   {StepReview},
	StepPlaced:   {}, // Terminal state
}

// CanTransitionTo checks if a transition from the current step to target is valid.
func (s Step) CanTransitionTo(target Step) bool {
	for _, a := range transitions[s] {
		if a == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns all allowed transitions from the current step.
func (s Step) AllowedTransitions() []Step {
	allowed := transitions[s]
	result := make([]Step, len(allowed))
	copy(result, allowed)
	return result
}

// RequestState is the lifecycle of an asynchronous lookup.
type RequestState string

const (
	StateIdle      RequestState = "idle"
	StatePending   RequestState = "pending"
	StateSucceeded RequestState = "succeeded"
	StateFailed    RequestState = "failed"
)

// String returns the string representation of the state.
func (s RequestState) String() string {
	return string(s)
}

package cycle

// Phase is the stage a daily cycle is in.
type Phase string

const (
	PhaseSuggesting Phase = "SUGGESTING" // dishes are being proposed
	PhaseVoting     Phase = "VOTING"     // consumers vote on the dishes
	PhaseBidding    Phase = "BIDDING"    // restaurants bid to cook the winner
	PhaseSourcing   Phase = "SOURCING"   // purchase orders go out to suppliers
	PhaseOrdering   Phase = "ORDERING"   // consumers order the dish
	PhaseCompleted  Phase = "COMPLETED"
	PhaseCancelled  Phase = "CANCELLED"
)

// Timeline lists the phases a successful cycle walks through, in order.
var Timeline = []Phase{
	PhaseSuggesting,
	PhaseVoting,
	PhaseBidding,
	PhaseSourcing,
	PhaseOrdering,
	PhaseCompleted,
}

// AllPhases includes CANCELLED, for validators.
var AllPhases = append(append([]Phase{}, Timeline...), PhaseCancelled)

func (p Phase) String() string {
	return string(p)
}

// Index returns the position of p in Timeline, or -1 for CANCELLED and
// unknown values.
func (p Phase) Index() int {
	for i, t := range Timeline {
		if t == p {
			return i
		}
	}
	return -1
}

func (p Phase) Valid() bool {
	return p == PhaseCancelled || p.Index() >= 0
}

func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled
}

// Next returns the phase that follows p, or "" when p is terminal.
func (p Phase) Next() Phase {
	i := p.Index()
	if i < 0 || i == len(Timeline)-1 {
		return ""
	}
	return Timeline[i+1]
}

// Before reports whether p comes strictly before other on the timeline.
func (p Phase) Before(other Phase) bool {
	i, j := p.Index(), other.Index()
	return i >= 0 && j >= 0 && i < j
}

// CanTransitionTo checks if a transition from p to target is valid: one step
// forward, or to CANCELLED from any non-terminal phase.
func (p Phase) CanTransitionTo(target Phase) bool {
	if p.IsTerminal() || !p.Valid() {
		return false
	}
	if target == PhaseCancelled {
		return true
	}
	return p.Next() == target
}

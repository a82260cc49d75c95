package quest

import (
	"fmt"
	"strings"
)

// State is where a POI sits for one user.
type State string

const (
	StateUnresolved State = "unresolved"
	StateInProgress State = "in_progress"
	StateResolved   State = "resolved"
)

// TerminalRecord returns the record that resolved poiID, if any.
func TerminalRecord(history []Record, poiID string) (Record, bool) {
	for _, r := range history {
		if r.POIID == poiID && r.Outcome.Terminal() {
			return r, true
		}
	}
	return Record{}, false
}

// Attempts counts the records a user has for poiID, failed ones included.
func Attempts(history []Record, poiID string) int {
	n := 0
	for _, r := range history {
		if r.POIID == poiID {
			n++
		}
	}
	return n
}

// StateOf derives the POI state from the user's history. A POI that was
// opened in the session or attempted before is in progress.
func StateOf(history []Record, poiID string, opened bool) State {
	if _, ok := TerminalRecord(history, poiID); ok {
		return StateResolved
	}
	if opened || Attempts(history, poiID) > 0 {
		return StateInProgress
	}
	return StateUnresolved
}

// Decision is the result of resolving one interaction.
type Decision struct {
	Outcome  Outcome
	Points   int
	Metadata map[string]string
	// Explanation is set for failed question attempts.
	Explanation string
	// Duplicate is set when the POI was already resolved; Prior holds the
	// stored record and nothing must be appended.
	Duplicate bool
	Prior     *Record
}

func (d Decision) Terminal() bool { return d.Outcome.Terminal() }

// Resolve validates in against the POI's kind contract and decides the
// outcome. history is the user's prior records; once a terminal record exists
// every later call returns it unchanged.
func Resolve(p POI, history []Record, in Interaction) (Decision, error) {
	if prior, ok := TerminalRecord(history, p.ID); ok {
		return Decision{
			Outcome:   prior.Outcome,
			Points:    prior.Points,
			Metadata:  prior.Metadata,
			Duplicate: true,
			Prior:     &prior,
		}, nil
	}

	if err := ValidateContent(p); err != nil {
		return Decision{}, err
	}

	switch p.Kind() {
	case KindQuestion:
		q, ok := p.Content.(QuestionContent)
		if !ok {
			return Decision{}, fmt.Errorf("%w: poi %s is tagged question without a question payload", ErrInvalidContent, p.ID)
		}
		return gradeAnswer(p, q, in)
	case KindMultimedia, KindReview, KindProduct:
		signal := strings.TrimSpace(in.Signal)
		if signal == "" {
			signal = DefaultSignal(p.Kind())
		}
		return Decision{
			Outcome:  OutcomeAcknowledged,
			Points:   p.Points,
			Metadata: map[string]string{"signal": signal},
		}, nil
	default:
		return Decision{}, fmt.Errorf("%w: poi %s has unsupported kind %q", ErrInvalidContent, p.ID, p.Kind())
	}
}

func gradeAnswer(p POI, q QuestionContent, in Interaction) (Decision, error) {
	answer := strings.TrimSpace(in.Answer)
	if answer == "" {
		return Decision{}, fmt.Errorf("%w: answer is required", ErrInvalidInteraction)
	}

	if answer == strings.TrimSpace(q.CorrectAnswer) {
		return Decision{
			Outcome:  OutcomeSucceeded,
			Points:   p.Points,
			Metadata: map[string]string{"answer": answer, "correct": "true"},
		}, nil
	}
	return Decision{
		Outcome:     OutcomeFailed,
		Points:      0,
		Metadata:    map[string]string{"answer": answer, "correct": "false"},
		Explanation: q.Explanation,
	}, nil
}

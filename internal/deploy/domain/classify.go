package domain

import "regexp"

// Outcome is the terminal classification of a single sync or health attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeContention
	OutcomeDegradedTransient
	OutcomeFatal
	OutcomeCancelled
)

var outcomeNames = [...]string{
	OutcomeSuccess:           "Success",
	OutcomeContention:        "Contention",
	OutcomeDegradedTransient: "DegradedTransient",
	OutcomeFatal:             "Fatal",
	OutcomeCancelled:         "Cancelled",
}

// String implements the Stringer interface.
func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "Unknown"
	}
	return outcomeNames[o]
}

// Classifier maps the combined stdout+stderr text captured for one failed
// attempt onto an Outcome. Classification is a heuristic scrape of the
// controller CLI's log wording; keeping it behind this function type lets it
// be swapped for structured error inspection if the controller ever exposes
// machine-readable codes.
type Classifier func(output string) Outcome

// The controller reports a FailedPrecondition when a sync request races an
// operation it is already running. The wording is upstream's and may drift;
// the intent is to retry exactly this condition, nothing broader.
var contentionPattern = regexp.MustCompile(`(?is)another\s+operation\s+is\s+already\s+in\s+progress`)

// A health wait that dies with a fatal log line recording a transition into
// Degraded. Child resources (horizontal autoscalers in particular) can flap
// through Degraded before settling Healthy.
var degradedPattern = regexp.MustCompile(`(?is)level=fatal.*health\s+state\s+has\s+transitioned\s+from\s+\w+\s+to\s+degraded`)

// ClassifySyncFailure classifies the output of a failed sync request.
// Contention (another operation already in progress) is retryable; anything
// else is fatal.
func ClassifySyncFailure(output string) Outcome {
	if contentionPattern.MatchString(output) {
		return OutcomeContention
	}
	return OutcomeFatal
}

// ClassifyHealthFailure classifies the output of a failed health wait.
// A fatal-level transition into Degraded is retryable; anything else,
// including a plain timeout, is fatal.
func ClassifyHealthFailure(output string) Outcome {
	if degradedPattern.MatchString(output) {
		return OutcomeDegradedTransient
	}
	return OutcomeFatal
}

// PruneDisabledHint is appended to fatal sync error messages when the request
// had pruning disabled: extraneous live resources that the controller cannot
// reconcile away are a common root cause in that configuration.
const PruneDisabledHint = " Sync 'prune' option is disabled." +
	" If the sync error reports resources that require pruning, the disabled prune option" +
	" may itself be the root cause; compare the live and desired state" +
	" (argocd app diff) and review the sync options documentation."

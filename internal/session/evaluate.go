package session

import (
	"github.com/ayusman/signvision/internal/prediction"
	"github.com/ayusman/signvision/internal/sign"
)

// SuccessThreshold is the confidence percentage a matching prediction must
// exceed to count as a success.
const SuccessThreshold = 90.0

// Evaluate compares a prediction against the target sign using the default
// threshold.
func Evaluate(target string, p prediction.Prediction) (matched, success bool) {
	return EvaluateWith(target, p, SuccessThreshold)
}

// EvaluateWith compares a prediction against target. The prediction matches
// when its label normalizes to the target identifier, and succeeds when it
// matches with confidence strictly above threshold.
func EvaluateWith(target string, p prediction.Prediction, threshold float64) (matched, success bool) {
	matched = sign.Match(p.Label, target)
	return matched, matched && p.Confidence > threshold
}

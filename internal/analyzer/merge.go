package analyzer

import "fmt"

// mergeLinkFindings folds link-derived classifications into the base text
// result under the escalate-only-upward rule:
//
//   - any RED link forces the final level to RED and appends the link reason,
//   - a YELLOW link raises a GREEN base to YELLOW and appends the link reason,
//   - otherwise the base stands unchanged.
//
// ERROR sub-results carry no signal and never escalate; turning a transient
// oracle failure into an alert would flood clinicians with false REDs. All
// sub-results are kept on the final result for audit.
func mergeLinkFindings(base Result, links []LinkAnalysis) Result {
	final := base
	final.URLAnalyses = links

	for _, link := range links {
		switch link.Analysis.Level {
		case LevelRed:
			final.Level = LevelRed
			final.Reason += fmt.Sprintf(" [from link: %s]", link.Analysis.Reason)
		case LevelYellow:
			if final.Level == LevelGreen {
				final.Level = LevelYellow
				final.Reason += fmt.Sprintf(" [from link: %s]", link.Analysis.Reason)
			}
		}
	}

	return final
}

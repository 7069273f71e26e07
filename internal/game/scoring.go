package game

import (
	"strings"

	"snapquiz-service/internal/domain"
)

// ScoreAnswers derives the final report from the full frame list and the
// answer state accumulated during play. Each input box scores one point on a
// trimmed case-insensitive match, each hit hotspot scores one point, and the
// combined mistake count is deducted with the result floored at zero.
func ScoreAnswers(frames []domain.Frame, answers []domain.AnswerState, mistakes domain.MistakeTally) domain.ScoreReport {
	report := domain.ScoreReport{}
	for i, frame := range frames {
		report.Possible += frame.Boxes()
		if i >= len(answers) {
			continue
		}
		for _, in := range frame.Inputs {
			if textMatches(answers[i].InputValues[in.ID], in.Expected) {
				report.Correct++
			}
		}
		for _, h := range frame.Hotspots {
			if _, hit := answers[i].HotspotsHit[h.ID]; hit {
				report.Correct++
			}
		}
	}
	report.Penalty = mistakes.Total()
	report.Final = report.Correct - report.Penalty
	if report.Final < 0 {
		report.Final = 0
	}
	return report
}

func textMatches(got, want string) bool {
	return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want))
}

package aichat

import (
	"fmt"
	"strconv"

	"github.com/clim-up/wikaya/internal/domain/vitals"
)

const notRecorded = "not recorded"

const promptTemplate = `My latest health measurements are: weight %s, height %s, blood pressure %s, blood sugar %s, BMI %s.

Question: %s`

// BuildPrompt embeds the snapshot's measurements ahead of the user's
// question.
func BuildPrompt(s *vitals.Snapshot, question string) string {
	bp := notRecorded
	if s.BloodPressure != nil && *s.BloodPressure != "" {
		bp = *s.BloodPressure + " mmHg"
	}
	return fmt.Sprintf(promptTemplate,
		measure(s.WeightKg, "kg"),
		measure(s.HeightCm, "cm"),
		bp,
		strconv.Itoa(s.BloodSugar)+" mg/dL",
		measure(s.BodyMassIndex(), ""),
		question,
	)
}

func measure(v *float64, unit string) string {
	if v == nil {
		return notRecorded
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if unit != "" {
		s += " " + unit
	}
	return s
}

package repository

import (
	"fmt"

	"meme-guard-go/internal/model"
)

func sampleRow(id string, harmful int) model.FeatureRow {
	a := model.ErrorAnalysis()
	a.Risks[model.RiskHateSpeech] = model.RiskIndicator{Flag: true, Reason: "contains, \"quoted\" slur"}
	return model.FeatureRow{
		PostID:   id,
		PostText: fmt.Sprintf("text of %s\nwith newline", id),
		Keywords: []string{"hate", "meme"},
		Analysis: a,
		Scores: model.CategoryScores{
			model.HarmfulContent:        0.875,
			model.PoliticalContent:      0.1,
			model.Spam:                  0.05,
			model.CopyrightInfringement: 0,
		},
		Tags: model.TagVector{
			"Is_Harmful_Content":        harmful,
			"Is_Political_Content":      0,
			"Is_Spam":                   0,
			"Is_Copyright_Infringement": 0,
		},
	}
}

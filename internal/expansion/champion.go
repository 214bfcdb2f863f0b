package expansion

import (
	"strings"

	"github.com/prompt-general/cscx/pkg/models"
)

// championPriority is matched in order against each stakeholder's role and title
var championPriority = []string{
	"executive sponsor",
	"decision maker",
	"champion",
	"primary contact",
}

// ResolveChampion selects the stakeholder that should anchor an opportunity.
// Without a role match the first stakeholder is returned as a non-champion.
func ResolveChampion(stakeholders []models.StakeholderRecord) *models.Stakeholder {
	if len(stakeholders) == 0 {
		return nil
	}

	for _, term := range championPriority {
		for _, s := range stakeholders {
			if strings.Contains(strings.ToLower(s.Role), term) || strings.Contains(strings.ToLower(s.Title), term) {
				return toStakeholder(s, true)
			}
		}
	}

	return toStakeholder(stakeholders[0], false)
}

func toStakeholder(s models.StakeholderRecord, isChampion bool) *models.Stakeholder {
	role := s.Role
	if role == "" {
		role = s.Title
	}
	return &models.Stakeholder{
		ID:         s.ID,
		Name:       s.Name,
		Role:       role,
		Email:      s.Email,
		Sentiment:  normalizeSentiment(s.Sentiment),
		IsChampion: isChampion,
	}
}

func normalizeSentiment(raw string) models.Sentiment {
	switch models.Sentiment(strings.ToLower(strings.TrimSpace(raw))) {
	case models.SentimentPositive:
		return models.SentimentPositive
	case models.SentimentNeutral:
		return models.SentimentNeutral
	case models.SentimentNegative:
		return models.SentimentNegative
	default:
		return models.SentimentUnknown
	}
}

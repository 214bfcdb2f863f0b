package expansion

import (
	"fmt"

	"github.com/prompt-general/cscx/pkg/models"
)

// IdentifyBlockers lists conditions that should delay pursuing an opportunity.
// The result is never nil.
func IdentifyBlockers(config Config, healthScore int, daysToRenewal *int, signals []models.ExpansionSignal) []string {
	blockers := []string{}

	if healthScore < config.HealthBlockerBelow {
		blockers = append(blockers,
			fmt.Sprintf("Health score is %d; address product concerns first", healthScore))
	}

	if daysToRenewal != nil && *daysToRenewal < config.RenewalBlockerDays {
		blockers = append(blockers,
			fmt.Sprintf("Renewal imminent (%d days); prioritize the renewal conversation", *daysToRenewal))
	}

	strongChampion := false
	for _, signal := range signals {
		if signal.Category == models.CategoryStakeholder && signal.Strength >= config.ChampionSignalMinimum {
			strongChampion = true
			break
		}
	}
	if !strongChampion {
		blockers = append(blockers, "No strong champion engagement; build stakeholder support before proposing")
	}

	return blockers
}

// internal/leads/funnel.go
package leads

import (
	"context"

	"lead-qualifier/internal/models"
)

type TagCount struct {
	Tag     models.RelevanceTag `json:"tag"`
	Count   int                 `json:"count"`
	Percent int                 `json:"percent"`
}

// StageCount reports how many leads reached a stage and how many are
// currently waiting on it.
type StageCount struct {
	Stage             models.Stage `json:"stage"`
	Reached           int          `json:"reached"`
	Pending           int          `json:"pending"`
	PercentOfBase     int          `json:"percentOfBase"`
	PercentOfPrevious int          `json:"percentOfPrevious"`
}

type FunnelStats struct {
	Total    int          `json:"total"`
	ByTag    []TagCount   `json:"byTag"`
	ByStage  []StageCount `json:"byStage"`
	Calendly int          `json:"calendlyOffered"`
}

// FunnelStats counts leads per relevance tag and per dialogue stage.
func (s *Service) FunnelStats(ctx context.Context) (*FunnelStats, error) {
	leads, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildFunnel(leads), nil
}

func BuildFunnel(leads []*models.Lead) *FunnelStats {
	order := models.Stages()
	position := make(map[models.Stage]int, len(order))
	for i, st := range order {
		position[st] = i
	}

	tags := make(map[models.RelevanceTag]int)
	pending := make(map[models.Stage]int)
	reached := make([]int, len(order))
	stats := &FunnelStats{Total: len(leads)}

	for _, lead := range leads {
		tags[lead.RelevanceTag]++
		st := lead.ConversationState.Pending()
		pending[st]++
		for i := 0; i <= position[st]; i++ {
			reached[i]++
		}
		if lead.ConversationState.HasOfferedCalendly {
			stats.Calendly++
		}
	}

	for _, tag := range models.AllTags() {
		stats.ByTag = append(stats.ByTag, TagCount{Tag: tag, Count: tags[tag], Percent: percent(tags[tag], stats.Total)})
	}

	base := stats.Total
	for i, st := range order {
		sc := StageCount{
			Stage:         st,
			Reached:       reached[i],
			Pending:       pending[st],
			PercentOfBase: percent(reached[i], base),
		}
		if i == 0 {
			sc.PercentOfPrevious = 100
		} else {
			sc.PercentOfPrevious = percent(reached[i], reached[i-1])
		}
		stats.ByStage = append(stats.ByStage, sc)
	}
	return stats
}

func percent(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (100 * a) / b
}

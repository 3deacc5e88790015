// internal/workers/lead-qualification/qualify-message/models.go
package qualifymessage

type Input struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type Output struct {
	Response     string `json:"response"`
	RelevanceTag string `json:"relevanceTag"`
	Score        int    `json:"score"`
	IsHot        bool   `json:"isHot"`
}

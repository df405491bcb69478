package llm

import (
	"strings"

	"docchat/internal/port"
)

// KeywordRouter routes a question to the hosted backend when it
// contains one of the configured keywords (summary- and reasoning-style
// questions), otherwise to the local backend.
type KeywordRouter struct {
	keywords []string
	hosted   port.LLM
	local    port.LLM
}

func NewKeywordRouter(keywords []string, hosted, local port.LLM) *KeywordRouter {
	return &KeywordRouter{
		keywords: keywords,
		hosted:   hosted,
		local:    local,
	}
}

func (r *KeywordRouter) Select(question string) port.LLM {
	for _, kw := range r.keywords {
		if kw != "" && strings.Contains(question, kw) {
			return r.hosted
		}
	}
	return r.local
}

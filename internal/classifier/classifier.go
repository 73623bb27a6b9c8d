// Package classifier defines the suggestion port used at ticket creation.
// The real model runs out of process; the engine only consumes its
// suggestion and must keep working when it is unavailable.
package classifier

import (
	"context"
	"strings"

	"github.com/spec-kit/support-engine/internal/domain"
)

// Suggestion is a proposed classification for free-form ticket text.
type Suggestion struct {
	Category   domain.TicketCategory
	Priority   domain.TicketPriority
	Confidence float64
}

// Classifier suggests a category and priority for a ticket description.
type Classifier interface {
	Classify(ctx context.Context, description string) (Suggestion, error)
}

// KeywordClassifier is the in-process fallback: a keyword heuristic with
// coarse confidence. It stands in when no external model is configured.
type KeywordClassifier struct{}

// NewKeywordClassifier creates the heuristic classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var categoryKeywords = []struct {
	category domain.TicketCategory
	words    []string
}{
	{domain.CategorySecurity, []string{"hacked", "phishing", "stolen", "compromised", "2fa", "breach"}},
	{domain.CategoryBilling, []string{"refund", "charge", "payment", "invoice", "subscription", "billing"}},
	{domain.CategoryAccount, []string{"password", "login", "account", "email change", "username", "locked out"}},
	{domain.CategoryTechnical, []string{"crash", "error", "bug", "lag", "install", "update failed", "disconnect"}},
	{domain.CategoryGameplay, []string{"quest", "level", "item", "match", "character", "progress", "save"}},
}

var urgentKeywords = []string{"hacked", "stolen", "compromised", "cannot access", "urgent", "fraud"}
var highKeywords = []string{"crash", "refund", "charge", "locked out", "broken"}

// Classify scores the description against keyword lists. Confidence scales
// with the number of category hits and never reaches the certainty an
// external model could report.
func (c *KeywordClassifier) Classify(_ context.Context, description string) (Suggestion, error) {
	text := strings.ToLower(description)

	suggestion := Suggestion{
		Category:   domain.CategoryGeneral,
		Priority:   domain.TicketPriorityMedium,
		Confidence: 0.2,
	}

	bestHits := 0
	for _, entry := range categoryKeywords {
		hits := 0
		for _, word := range entry.words {
			if strings.Contains(text, word) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			suggestion.Category = entry.category
		}
	}
	if bestHits > 0 {
		suggestion.Confidence = 0.4 + 0.15*float64(min(bestHits, 3))
	}

	for _, word := range urgentKeywords {
		if strings.Contains(text, word) {
			suggestion.Priority = domain.TicketPriorityUrgent
			return suggestion, nil
		}
	}
	for _, word := range highKeywords {
		if strings.Contains(text, word) {
			suggestion.Priority = domain.TicketPriorityHigh
			return suggestion, nil
		}
	}
	return suggestion, nil
}

package llm

import "fmt"

// SentimentPrompt asks for a one-to-five star rating of a journal entry, the
// same scale the multilingual review-rating models use.
func SentimentPrompt(text string) string {
	return fmt.Sprintf(`Rate the overall feeling of this short personal journal entry on a scale of 1 to 5 stars.
1 = very negative, 2 = negative, 3 = neutral or mixed, 4 = positive, 5 = very positive.
The entry may be in Chinese or English.

ENTRY:
%s

Reply with the single digit only.`, text)
}

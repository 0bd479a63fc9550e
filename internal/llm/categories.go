package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxSuggestedCategories caps how many bootstrap categories one
// suggestion run may produce.
const maxSuggestedCategories = 15

var titleCaser = cases.Title(language.English)

type rawCategoriesResponse struct {
	Categories []string `json:"categories"`
}

const suggestPromptFormat = `Suggest practical spending categories for a budgeting app user.

User profile:
%q

Return JSON only:
{
  "categories": ["string"]
}

Rules:
- Return 8 to 15 category names.
- Use concise title case names.
- Avoid duplicates.
- Focus on everyday personal finance categories.`

// SuggestCategories generates starter category names from a free-text
// description of the user's spending habits. An empty or unparseable
// reply yields an empty slice, the caller then falls back to its
// default category set.
func (c *Client) SuggestCategories(ctx context.Context, profileText string) ([]string, error) {
	content, err := c.complete(ctx, suggestTimeout, fmt.Sprintf(suggestPromptFormat, profileText))
	if err != nil {
		return nil, err
	}

	var raw rawCategoriesResponse
	err = json.Unmarshal([]byte(content), &raw)
	if err != nil {
		return nil, nil
	}

	seen := make(map[string]bool)
	var categories []string
	for _, name := range raw.Categories {
		name = titleCaser.String(strings.Join(strings.Fields(name), " "))
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}

		seen[strings.ToLower(name)] = true
		categories = append(categories, name)
		if len(categories) == maxSuggestedCategories {
			break
		}
	}

	return categories, nil
}

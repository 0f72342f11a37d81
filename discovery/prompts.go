package discovery

import "fmt"

// searchPrompt explains the search surface to a model or user asking
// about a query. Kept here so the copy is easy to edit.
func searchPrompt(query string) string {
	return fmt.Sprintf(`I'll help you find TikTok videos related to: %s

This service supports two types of searches:

1. Single Hashtag Search
   - Simple searches using one hashtag (e.g., #cooking, #fitness)
   - Direct and focused results

2. Multi-word Keyword Search
   - Converts each word into a hashtag
   - Combines and deduplicates results
   Example: "healthy cooking" searches #healthy AND #cooking

For each search, the service returns:

1. Video information: id, description, view/like/comment/share counts,
   direct URL, and the sound used.
2. Creator information: username, TikTok id, profile metrics.
3. Hashtag details: associated hashtags with their ids and metrics.
4. Search metadata: how keywords were transformed into hashtags and
   which searches succeeded or failed.

How would you like to search? You can:
1. Use a single hashtag (start with #)
2. Enter multiple words to search related hashtags
3. Mix and match (e.g., "#fitness workout" searches both #fitness and #workout)`, query)
}

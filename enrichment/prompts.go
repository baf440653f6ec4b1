package enrichment

// System instructions for the two model operations.
const (
	extractionSystemPrompt = "You are an expert podcast analyst. Return only valid JSON."
	mergeSystemPrompt      = "You are an expert at synthesizing information. Return only valid JSON."
)

// extractionPrompt precedes the chunk text in an extraction call.
const extractionPrompt = `Analyze this podcast transcript and extract structured insights.

Return a JSON object with exactly this structure:
{
  "episode_title": "string - the episode title if mentioned, or a descriptive title",
  "summary": "string - 2-3 paragraph summary of the episode",
  "themes": [
    {
      "name": "string - theme name",
      "description": "string - 1-2 sentence description",
      "keywords": ["keyword1", "keyword2"],
      "relevance_score": 0.0-1.0
    }
  ],
  "learnings": [
    {
      "name": "string - learning name",
      "description": "string - 1-2 sentence description of the insight",
      "keywords": ["keyword1", "keyword2"],
      "relevance_score": 0.0-1.0
    }
  ],
  "strategies": [
    {
      "name": "string - strategy name",
      "description": "string - 1-2 sentence description of the actionable strategy",
      "keywords": ["keyword1", "keyword2"],
      "relevance_score": 0.0-1.0
    }
  ]
}

Extract 3-7 items for each category. Be specific and actionable.
Only return valid JSON, no markdown formatting.

TRANSCRIPT:
`

// mergePrompt precedes the serialized per-chunk results in a merge call.
const mergePrompt = `You are given multiple JSON enrichment results extracted from different chunks of the same podcast episode. Merge them into a single coherent result.

Rules:
- Deduplicate: if two themes/learnings/strategies are about the same concept, merge them into one with the better description and combined keywords
- Keep the best episode_title (most descriptive)
- Combine the summaries into one coherent 2-3 paragraph summary
- Keep 3-7 items per category, selecting the highest relevance_score items
- Return valid JSON only, no markdown formatting

Return the same JSON structure:
{
  "episode_title": "string",
  "summary": "string",
  "themes": [...],
  "learnings": [...],
  "strategies": [...]
}

CHUNK RESULTS:
`

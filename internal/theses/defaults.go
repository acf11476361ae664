package theses

import "encoding/json"

// DefaultDocuments returns the built-in thesis set served when the store has
// no documents yet, so the public site never renders an empty research page.
func DefaultDocuments() []Document {
	return []Document{
		{
			ThesisID:    "vertical-ai-operations",
			Title:       "Vertical AI for Industrial Operations",
			Industry:    "Industrial Software",
			PublishDate: "2026-03-02",
			ReadTime:    "12 min",
			Tags:        []string{"ai", "industrials", "vertical-saas"},
			Content: map[string]json.RawMessage{
				"summary": mustSection("I. Executive Summary",
					"Domain-specific models are displacing horizontal tooling across plant operations, QA, and maintenance workflows."),
				"market": mustSection("II. Market Decomposition",
					"We segment the market by deployment surface: control systems, inspection, and workforce scheduling."),
				sectionKeyContact: mustSection("III. Contact",
					"research@moraineventures.com"),
				sectionKeySources: mustSection("IV. Sources",
					"Company filings; operator interviews conducted Q4 2025."),
			},
			Contact: "research@moraineventures.com",
			Sources: "Company filings; operator interviews conducted Q4 2025.",
		},
		{
			ThesisID:    "grid-interconnection",
			Title:       "Software for Grid Interconnection Queues",
			Industry:    "Energy Infrastructure",
			PublishDate: "2026-01-19",
			ReadTime:    "9 min",
			Tags:        []string{"energy", "infrastructure"},
			Content: map[string]json.RawMessage{
				"summary": mustSection("I. Executive Summary",
					"Interconnection backlogs are the binding constraint on new generation; tooling that compresses study cycles captures durable value."),
				sectionKeyContact: mustSection("II. Contact",
					"research@moraineventures.com"),
			},
			Contact:  "research@moraineventures.com",
			Featured: true,
		},
	}
}

func mustSection(title, content string) json.RawMessage {
	encoded, err := json.Marshal(Section{Title: title, Content: json.RawMessage(mustQuote(content))})
	if err != nil {
		panic(err)
	}
	return encoded
}

func mustQuote(text string) []byte {
	encoded, err := json.Marshal(text)
	if err != nil {
		panic(err)
	}
	return encoded
}

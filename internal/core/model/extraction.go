package model

// Envelope types for the structured pipeline stages. These match the response
// schemas requested from the model; Normalize runs after parsing.

type ExtractedVideos struct {
	Videos []Video `json:"videos"`
}

type ExtractedGraph struct {
	Nodes []ThemeNode `json:"nodes"`
	Links []ThemeLink `json:"links"`
}

type ExtractedDeck struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// DuplicateThemes is the confirmation shape the dedupe pass asks for.
type DuplicateThemes struct {
	Duplicates []DuplicatePair `json:"duplicates"`
}

type DuplicatePair struct {
	KeepID     string  `json:"keep_id"`
	DropID     string  `json:"drop_id"`
	Confidence float64 `json:"confidence"`
}

package model

// SlideBullets is the number of labeled bullet points every slide carries.
const SlideBullets = 3

// Bullet is one labeled point on a slide.
type Bullet struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Slide is one generated rebuttal slide. ImagePrompt is the text handed to
// the image model; ImageData holds the returned art as base64 PNG bytes and
// stays empty when generation failed.
type Slide struct {
	Title        string   `json:"title"`
	Bullets      []Bullet `json:"bullets"`
	Rebuttal     string   `json:"rebuttal"`
	SpeakerNotes string   `json:"speaker_notes"`
	ImagePrompt  string   `json:"image_prompt"`
	ImageData    string   `json:"image_data,omitempty"`
}

// Deck is the generated presentation for one analysis.
type Deck struct {
	ChannelURL string  `json:"channel_url"`
	Title      string  `json:"title"`
	Slides     []Slide `json:"slides"`
}

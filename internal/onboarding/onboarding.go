package onboarding

import (
	"encoding/json"
	"net/http"
)

// SplashDurationMS is how long the splash screen stays before onboarding.
const SplashDurationMS = 3000

// Slide is one onboarding page.
type Slide struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Icon            string `json:"icon"`
	BackgroundColor string `json:"background_color"`
}

// Response is the body of GET /v1/onboarding
type Response struct {
	Slides           []Slide `json:"slides"`
	SplashDurationMS int     `json:"splash_duration_ms"`
}

var slides = []Slide{
	{ID: 1, Title: "Snap and Upload", Description: "Take a picture or upload an image of the leak", Icon: "👋", BackgroundColor: "#6366f1"},
	{ID: 2, Title: "Automatic Location Capture", Description: "GPS coordinates are extracted from your image", Icon: "⚡", BackgroundColor: "#8b5cf6"},
	{ID: 3, Title: "Describe the issue", Description: "Tell us what's happening, so our maintenance team can act fast", Icon: "🎉", BackgroundColor: "#06b6d4"},
	{ID: 4, Title: "Get Started", Description: "Let's save some water", Icon: "🎉", BackgroundColor: "#06b6d4"},
}

// Slides returns a copy of the onboarding slides in display order.
func Slides() []Slide {
	out := make([]Slide, len(slides))
	copy(out, slides)
	return out
}

// HandleGet handles GET /v1/onboarding
func HandleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Response{
		Slides:           Slides(),
		SplashDurationMS: SplashDurationMS,
	})
}

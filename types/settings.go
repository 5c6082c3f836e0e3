package types

// SocialLinks is the singleton set of outbound profile links shown on the
// public site. All fields default to the empty string.
type SocialLinks struct {
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
	Spotify   string `json:"spotify"`
	YouTube   string `json:"youtube"`
}

// StudioConfig is the singleton studio-page configuration.
type StudioConfig struct {
	YouTubeVideoID string `json:"youtube_video_id"`
}

// DefaultStudioVideoID seeds the studio config on first read.
const DefaultStudioVideoID = "dQw4w9WgXcQ"

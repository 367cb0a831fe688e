package youtube

// UploadRequest is the metadata body sent when opening an upload session.
// The field layout mirrors the videos.insert JSON resource for the
// snippet and status parts.
type UploadRequest struct {
	Snippet Snippet `json:"snippet"`
	Status  Status  `json:"status"`
}

// Snippet holds the descriptive video metadata.
type Snippet struct {
	Title                string            `json:"title"`
	Description          string            `json:"description,omitempty"`
	Tags                 []string          `json:"tags,omitempty"`
	CategoryID           string            `json:"categoryId,omitempty"`
	DefaultLanguage      string            `json:"defaultLanguage,omitempty"`
	DefaultAudioLanguage string            `json:"defaultAudioLanguage,omitempty"`
	RecordingDetails     *RecordingDetails `json:"recordingDetails,omitempty"`
}

// RecordingDetails carries the recording location when both coordinates
// are supplied.
type RecordingDetails struct {
	Location *GeoPoint `json:"location,omitempty"`
}

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Status holds the visibility and rights metadata.
type Status struct {
	PrivacyStatus           string     `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool       `json:"selfDeclaredMadeForKids"`
	License                 string     `json:"license,omitempty"`
	PublicStatsViewable     bool       `json:"publicStatsViewable"`
	PublishAt               string     `json:"publishAt,omitempty"`
	Targeting               *Targeting `json:"targeting,omitempty"`
}

// Targeting restricts the audience the video is shown to.
type Targeting struct {
	AgeGroup  string   `json:"ageGroup,omitempty"`
	Genders   []string `json:"genders,omitempty"`
	Countries []string `json:"countries,omitempty"`
}

// Video is the resource returned when an upload completes.
type Video struct {
	ID      string        `json:"id"`
	Snippet *VideoSnippet `json:"snippet,omitempty"`
	Status  *VideoStatus  `json:"status,omitempty"`
}

// VideoSnippet is the subset of response snippet fields the CLI reports.
type VideoSnippet struct {
	Title        string `json:"title"`
	ChannelID    string `json:"channelId"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
}

// VideoStatus is the subset of response status fields the CLI reports.
type VideoStatus struct {
	PrivacyStatus string `json:"privacyStatus"`
	UploadStatus  string `json:"uploadStatus"`
}

// Channel identifies the authenticated account's channel.
type Channel struct {
	ID    string
	Title string
}

// UploadSession is an open resumable upload session. The URL is the
// session endpoint returned by the service; chunks are PUT against it.
type UploadSession struct {
	URL string
}

// ChunkResult reports the outcome of sending one chunk (or probing
// progress). Exactly one of the two shapes applies: Done with the final
// Video resource, or not done with the server-acknowledged byte count.
type ChunkResult struct {
	Done       bool
	AckedBytes int64
	Video      *Video
}

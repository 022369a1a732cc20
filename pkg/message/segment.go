package message

import "encoding/json"

// Segment is a flat union representing one piece of content inside a message.
// The Type field discriminates which fields are meaningful.
type Segment struct {
	Type     SegmentType     `json:"type"`
	Text     string          `json:"text,omitempty"`
	URL      string          `json:"url,omitempty"`
	MIMEType string          `json:"mime_type,omitempty"`
	FileName string          `json:"file_name,omitempty"`
	Caption  string          `json:"caption,omitempty"`
	IsVoice  bool            `json:"is_voice,omitempty"`
	Lat      *float64        `json:"lat,omitempty"`
	Lon      *float64        `json:"lon,omitempty"`
	Phone    string          `json:"phone,omitempty"`
	Name     string          `json:"name,omitempty"`
	RawType  string          `json:"raw_type,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// MarshalJSON implements json.Marshaler. It enforces union semantics:
// location segments always include lat/lon (defaulting to 0 when unset),
// non-location segments omit them.
func (s Segment) MarshalJSON() ([]byte, error) {
	type alias Segment
	normalized := s

	if normalized.Type == SegmentLocation {
		if normalized.Lat == nil {
			zero := 0.0
			normalized.Lat = &zero
		}
		if normalized.Lon == nil {
			zero := 0.0
			normalized.Lon = &zero
		}
	} else {
		normalized.Lat = nil
		normalized.Lon = nil
	}

	return json.Marshal(alias(normalized))
}

// NewTextSegment creates a text segment.
func NewTextSegment(text string) Segment {
	return Segment{Type: SegmentText, Text: text}
}

// NewImageSegment creates an image segment.
func NewImageSegment(url, mimeType string) Segment {
	return Segment{Type: SegmentImage, URL: url, MIMEType: mimeType}
}

// NewAudioSegment creates an audio segment. Set isVoice for voice notes.
func NewAudioSegment(url, mimeType string, isVoice bool) Segment {
	return Segment{Type: SegmentAudio, URL: url, MIMEType: mimeType, IsVoice: isVoice}
}

// NewFileSegment creates a file segment.
func NewFileSegment(url, mimeType, fileName string) Segment {
	return Segment{Type: SegmentFile, URL: url, MIMEType: mimeType, FileName: fileName}
}

// NewLocationSegment creates a location segment.
func NewLocationSegment(lat, lon float64) Segment {
	return Segment{Type: SegmentLocation, Lat: &lat, Lon: &lon}
}

// NewContactSegment creates a contact segment.
func NewContactSegment(phone, name string) Segment {
	return Segment{Type: SegmentContact, Phone: phone, Name: name}
}

// NewUnsupportedSegment creates the fallback segment for provider content
// that has no internal representation. rawType is the provider's type tag;
// raw optionally carries the original payload for diagnostics.
func NewUnsupportedSegment(rawType string, raw json.RawMessage) Segment {
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return Segment{Type: SegmentUnsupported, RawType: rawType, Raw: cp}
}

// textContent concatenates the text of all text segments, separated by newlines.
func textContent(segments []Segment) string {
	var result string
	for _, s := range segments {
		if s.Type == SegmentText && s.Text != "" {
			if result != "" {
				result += "\n"
			}
			result += s.Text
		}
	}
	return result
}

// hasMedia reports whether any segment carries media content.
func hasMedia(segments []Segment) bool {
	for _, s := range segments {
		switch s.Type {
		case SegmentImage, SegmentAudio, SegmentFile, SegmentLocation, SegmentContact:
			return true
		}
	}
	return false
}

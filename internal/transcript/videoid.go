package transcript

import (
	"net/url"
	"strings"
)

var youtubeHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

// ExtractVideoID returns the YouTube video id of raw, or "" if raw is not a
// recognised YouTube link. A missing scheme is tolerated.
func ExtractVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" {
		return cleanID(strings.TrimPrefix(u.Path, "/"))
	}
	if !youtubeHosts[host] {
		return ""
	}
	switch {
	case u.Path == "/watch":
		return cleanID(u.Query().Get("v"))
	case strings.HasPrefix(u.Path, "/embed/"),
		strings.HasPrefix(u.Path, "/v/"),
		strings.HasPrefix(u.Path, "/shorts/"),
		strings.HasPrefix(u.Path, "/live/"):
		segs := strings.Split(u.Path, "/")
		if len(segs) > 2 {
			return cleanID(segs[2])
		}
	}
	return ""
}

// IsVideoReference reports whether s looks like a link to a video host,
// whether or not an id can be extracted from it.
func IsVideoReference(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "youtube.com/") || strings.Contains(s, "youtu.be/") ||
		strings.Contains(s, "youtube-nocookie.com/")
}

// FindReference returns the first token of text that looks like a video link.
func FindReference(text string) (string, bool) {
	for _, field := range strings.Fields(text) {
		field = strings.Trim(field, "<>()[]\"'")
		if IsVideoReference(field) {
			return field, true
		}
	}
	return "", false
}

func cleanID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.IndexAny(id, "/?&#"); i >= 0 {
		id = id[:i]
	}
	return id
}

package embed

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var ErrUnsupportedLink = errors.New("link cannot be embedded")

var (
	youtubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
	numericID = regexp.MustCompile(`^\d+$`)
	driveID   = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}$`)
)

// ToEmbedURL converts a shared media or document link into a URL that can be
// used as an iframe source. Links that already point at an embed endpoint
// are returned unchanged.
func ToEmbedURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrUnsupportedLink
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrUnsupportedLink
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := splitPath(u.Path)

	switch host {
	case "youtube.com", "youtube-nocookie.com":
		return youtube(u, segments)
	case "youtu.be":
		if len(segments) > 0 && youtubeID.MatchString(segments[0]) {
			return "https://www.youtube.com/embed/" + segments[0], nil
		}
	case "vimeo.com":
		for _, s := range segments {
			if numericID.MatchString(s) {
				return "https://player.vimeo.com/video/" + s, nil
			}
		}
	case "player.vimeo.com":
		if len(segments) == 2 && segments[0] == "video" && numericID.MatchString(segments[1]) {
			return "https://player.vimeo.com/video/" + segments[1], nil
		}
	case "drive.google.com":
		return googleDrive(u, segments)
	case "docs.google.com":
		return googleDocs(segments)
	case "loom.com":
		if len(segments) == 2 && (segments[0] == "share" || segments[0] == "embed") {
			return "https://www.loom.com/embed/" + segments[1], nil
		}
	case "open.spotify.com":
		return spotify(segments)
	}
	return "", ErrUnsupportedLink
}

func youtube(u *url.URL, segments []string) (string, error) {
	var id string
	switch {
	case len(segments) == 1 && segments[0] == "watch":
		id = u.Query().Get("v")
	case len(segments) == 2 && (segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "live" || segments[0] == "v"):
		id = segments[1]
	}
	if !youtubeID.MatchString(id) {
		return "", ErrUnsupportedLink
	}
	return "https://www.youtube.com/embed/" + id, nil
}

func googleDrive(u *url.URL, segments []string) (string, error) {
	var id string
	switch {
	case len(segments) >= 3 && segments[0] == "file" && segments[1] == "d":
		id = segments[2]
	case len(segments) == 1 && (segments[0] == "open" || segments[0] == "uc"):
		id = u.Query().Get("id")
	}
	if !driveID.MatchString(id) {
		return "", ErrUnsupportedLink
	}
	return "https://drive.google.com/file/d/" + id + "/preview", nil
}

func googleDocs(segments []string) (string, error) {
	// /document/d/<id>/edit, /presentation/d/<id>/edit, /spreadsheets/d/<id>/edit
	if len(segments) < 3 || segments[1] != "d" || !driveID.MatchString(segments[2]) {
		return "", ErrUnsupportedLink
	}
	id := segments[2]
	switch segments[0] {
	case "document":
		return "https://docs.google.com/document/d/" + id + "/preview", nil
	case "presentation":
		return "https://docs.google.com/presentation/d/" + id + "/embed", nil
	case "spreadsheets":
		return "https://docs.google.com/spreadsheets/d/" + id + "/preview", nil
	}
	return "", ErrUnsupportedLink
}

func spotify(segments []string) (string, error) {
	if len(segments) > 0 && segments[0] == "embed" {
		segments = segments[1:]
	}
	// localized links look like /intl-de/track/<id>
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) != 2 {
		return "", ErrUnsupportedLink
	}
	switch segments[0] {
	case "track", "album", "playlist", "episode", "show", "artist":
		return "https://open.spotify.com/embed/" + segments[0] + "/" + segments[1], nil
	}
	return "", ErrUnsupportedLink
}

func splitPath(p string) []string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

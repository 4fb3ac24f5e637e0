package storage

import (
	"net/url"
	"path"
	"strings"
)

// Layout addresses artifacts as {account}/{container}/{prefix}/{file}?{sas}.
type Layout struct {
	AccountURL       string
	Container        string
	SASToken         string
	LandingPrefix    string
	TranslatedPrefix string
	GlossaryPrefix   string
	WatermarkPrefix  string
}

// Key is the object name inside the container.
func (l Layout) Key(prefix, file string) string {
	return strings.Trim(prefix, "/") + "/" + file
}

// URL is the externally reachable address of prefix/file, with the SAS
// token appended when configured.
func (l Layout) URL(prefix, file string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(l.AccountURL, "/"))
	b.WriteString("/")
	b.WriteString(l.Container)
	b.WriteString("/")
	b.WriteString(strings.Trim(prefix, "/"))
	b.WriteString("/")
	b.WriteString(url.PathEscape(file))
	if tok := strings.TrimPrefix(l.SASToken, "?"); tok != "" {
		b.WriteString("?")
		b.WriteString(tok)
	}
	return b.String()
}

func (l Layout) LandingURL(file string) string    { return l.URL(l.LandingPrefix, file) }
func (l Layout) TranslatedURL(file string) string { return l.URL(l.TranslatedPrefix, file) }
func (l Layout) GlossaryURL(file string) string   { return l.URL(l.GlossaryPrefix, file) }
func (l Layout) WatermarkURL(file string) string  { return l.URL(l.WatermarkPrefix, file) }

// SplitBlobURL returns the prefix directly above the file and the unescaped
// file name of a blob URL such as an event's data.url.
func SplitBlobURL(raw string) (prefix, file string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	p := u.Path
	file = path.Base(p)
	prefix = path.Base(path.Dir(p))
	if prefix == "." || prefix == "/" {
		prefix = ""
	}
	return prefix, file, nil
}

package artifact

import (
	"time"
	"unicode/utf8"

	"forensics/internal/intel/models"
	"forensics/pkg/platform/sanitize"
)

// Collection bounds applied while building a payload.
const (
	MaxMetaNameChars  = 100
	MaxMetaValueChars = 1000
	MaxCookieBytes    = 5000
	MaxStorageBytes   = 10000
)

// Placeholders substituted for sections that could not be collected verbatim.
const (
	CookiesTooLarge    = "Cookie data too large (>5KB)"
	CookiesUnavailable = "Error accessing cookies"
)

// Meta is one <meta> element. Name falls back to Property.
type Meta struct {
	Name     string `json:"name"`
	Property string `json:"property"`
	Content  string `json:"content"`
}

// StorageItem is one key/value pair of a web storage area, in storage order.
type StorageItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RawPage is what the page-side extraction returns before bounding and
// sanitization. An *Error field marks a section the page could not read.
type RawPage struct {
	URL          string        `json:"url"`
	Metas        []Meta        `json:"metas"`
	Cookie       string        `json:"cookie"`
	CookieError  string        `json:"cookieError"`
	Local        []StorageItem `json:"local"`
	LocalError   string        `json:"localError"`
	Session      []StorageItem `json:"session"`
	SessionError string        `json:"sessionError"`
}

// Build turns raw page data into the reply message, applying every size bound
// and sanitizing every extracted string.
func Build(raw RawPage, requestID string, now time.Time) models.ArtifactMessage {
	return models.ArtifactMessage{
		Type:      models.ArtifactMessageType,
		RequestID: requestID,
		Metadata:  BuildMetadata(raw.Metas),
		Artifacts: models.Artifacts{
			Cookies:        BuildCookies(raw.Cookie, raw.CookieError != ""),
			LocalStorage:   BuildStorage(raw.Local, raw.LocalError != "", "localStorage"),
			SessionStorage: BuildStorage(raw.Session, raw.SessionError != "", "sessionStorage"),
		},
		Timestamp: now.UTC(),
		URL:       sanitize.String(raw.URL),
	}
}

// BuildMetadata keeps entries whose name is under MaxMetaNameChars and whose
// content is under MaxMetaValueChars. Entries missing either part are skipped.
func BuildMetadata(metas []Meta) map[string]string {
	out := make(map[string]string)
	for _, m := range metas {
		name := m.Name
		if name == "" {
			name = m.Property
		}
		if name == "" || m.Content == "" {
			continue
		}
		if utf8.RuneCountInString(name) >= MaxMetaNameChars || utf8.RuneCountInString(m.Content) >= MaxMetaValueChars {
			continue
		}
		out[sanitize.String(name)] = sanitize.String(m.Content)
	}
	return out
}

// BuildCookies returns the sanitized cookie string or a placeholder.
func BuildCookies(cookie string, failed bool) string {
	switch {
	case failed:
		return CookiesUnavailable
	case len(cookie) > MaxCookieBytes:
		return CookiesTooLarge
	default:
		return sanitize.String(cookie)
	}
}

// BuildStorage accumulates items in order while the running size of keys and
// values stays under MaxStorageBytes. The first item that would reach the
// bound ends accumulation; values are never truncated.
func BuildStorage(items []StorageItem, failed bool, area string) map[string]string {
	if failed {
		return StorageError(area)
	}
	out := make(map[string]string)
	total := 0
	for _, it := range items {
		if it.Key == "" || it.Value == "" {
			continue
		}
		size := len(it.Key) + len(it.Value)
		if total+size >= MaxStorageBytes {
			break
		}
		out[sanitize.String(it.Key)] = sanitize.String(it.Value)
		total += size
	}
	return out
}

// StorageError is the placeholder object for an unreadable storage area.
func StorageError(area string) map[string]string {
	return map[string]string{"error": "Error accessing " + area}
}

// sanitizeMessage re-escapes every string of a reply that crossed the
// collection boundary. Escaping is idempotent, so replies built by Build pass
// through unchanged.
func sanitizeMessage(msg models.ArtifactMessage) models.ArtifactMessage {
	msg.Metadata = sanitize.Map(msg.Metadata)
	msg.Artifacts.Cookies = sanitize.String(msg.Artifacts.Cookies)
	msg.Artifacts.LocalStorage = sanitize.Map(msg.Artifacts.LocalStorage)
	msg.Artifacts.SessionStorage = sanitize.Map(msg.Artifacts.SessionStorage)
	msg.URL = sanitize.String(msg.URL)
	return msg
}

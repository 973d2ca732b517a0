package models

import "time"

// DNS record type codes used by the public resolver API.
const (
	DNSTypeA   = 1
	DNSTypePTR = 12
)

// DNSResponse is the subset of the resolver API response that is consumed.
// Resolvers cache the upstream body verbatim and decode it into this view.
type DNSResponse struct {
	Status int         `json:"Status"`
	Answer []DNSAnswer `json:"Answer"`
}

// DNSAnswer is one answer record.
type DNSAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

// DataOfType returns the data of every answer with the given type, in order.
func (r *DNSResponse) DataOfType(t int) []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, a := range r.Answer {
		if a.Type == t {
			out = append(out, a.Data)
		}
	}
	return out
}

// CertEntry is one certificate-transparency log record.
type CertEntry struct {
	ID             int64  `json:"id"`
	IssuerName     string `json:"issuer_name"`
	CommonName     string `json:"common_name"`
	NameValue      string `json:"name_value"`
	NotBefore      string `json:"not_before"`
	NotAfter       string `json:"not_after"`
	EntryTimestamp string `json:"entry_timestamp"`
}

// ctTimeLayout is the timestamp layout used by the CT log API.
const ctTimeLayout = "2006-01-02T15:04:05"

// NotBeforeTime parses NotBefore. ok is false when the value is not a timestamp.
func (c CertEntry) NotBeforeTime() (time.Time, bool) {
	t, err := time.Parse(ctTimeLayout, c.NotBefore)
	if err != nil {
		t, err = time.Parse(time.RFC3339, c.NotBefore)
	}
	return t, err == nil
}

// LatestCert returns the most recently issued entry by NotBefore. Entries whose
// NotBefore does not parse rank below any that do; among equals, the later
// entry wins, so an unparseable list falls back to its last element.
func LatestCert(entries []CertEntry) (CertEntry, bool) {
	if len(entries) == 0 {
		return CertEntry{}, false
	}
	best := len(entries) - 1
	bestTime, bestOK := entries[best].NotBeforeTime()
	for i := len(entries) - 2; i >= 0; i-- {
		t, ok := entries[i].NotBeforeTime()
		if ok && (!bestOK || t.After(bestTime)) {
			best, bestTime, bestOK = i, t, true
		}
	}
	return entries[best], true
}

// ArtifactPayload is the merged result of in-page collection. All strings are
// sanitized and size-bounded before the payload leaves the collector.
type ArtifactPayload struct {
	Metadata       map[string]string `json:"metadata"`
	Cookies        string            `json:"cookies"`
	LocalStorage   map[string]string `json:"localStorage"`
	SessionStorage map[string]string `json:"sessionStorage"`
}

// Artifacts is the artifacts object of an ArtifactMessage.
type Artifacts struct {
	Cookies        string            `json:"cookies"`
	LocalStorage   map[string]string `json:"localStorage"`
	SessionStorage map[string]string `json:"sessionStorage"`
}

// ArtifactMessageType tags collector replies.
const ArtifactMessageType = "forensicsData"

// ArtifactMessage is the single reply crossing the collection boundary:
// {type: "forensicsData", metadata, artifacts, timestamp, url}.
type ArtifactMessage struct {
	Type      string            `json:"type"`
	RequestID string            `json:"requestId,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	Artifacts Artifacts         `json:"artifacts"`
	Timestamp time.Time         `json:"timestamp"`
	URL       string            `json:"url"`
}

// Payload flattens the message into an ArtifactPayload.
func (m ArtifactMessage) Payload() ArtifactPayload {
	return ArtifactPayload{
		Metadata:       m.Metadata,
		Cookies:        m.Artifacts.Cookies,
		LocalStorage:   m.Artifacts.LocalStorage,
		SessionStorage: m.Artifacts.SessionStorage,
	}
}

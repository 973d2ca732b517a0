package heuristic

// TLDInfo describes a top-level domain.
type TLDInfo struct {
	Type        string
	Description string
}

var unknownTLD = TLDInfo{Type: "Unknown TLD", Description: "Unknown top-level domain"}

var tldTable = map[string]TLDInfo{
	"com": {"Generic TLD", "Commercial organizations"},
	"org": {"Generic TLD", "Non-profit organizations"},
	"net": {"Generic TLD", "Network infrastructure"},
	"edu": {"Sponsored TLD", "Educational institutions"},
	"gov": {"Sponsored TLD", "US Government"},
	"mil": {"Sponsored TLD", "US Military"},
	"int": {"Sponsored TLD", "International organizations"},
	"io":  {"ccTLD", "British Indian Ocean Territory"},
	"ai":  {"ccTLD", "Anguilla"},
	"co":  {"ccTLD", "Colombia"},
	"me":  {"ccTLD", "Montenegro"},
	"tv":  {"ccTLD", "Tuvalu"},
	"ly":  {"ccTLD", "Libya"},
	"us":  {"ccTLD", "United States"},
	"uk":  {"ccTLD", "United Kingdom"},
	"ca":  {"ccTLD", "Canada"},
	"au":  {"ccTLD", "Australia"},
	"de":  {"ccTLD", "Germany"},
	"fr":  {"ccTLD", "France"},
	"jp":  {"ccTLD", "Japan"},
	"cn":  {"ccTLD", "China"},
	"ru":  {"ccTLD", "Russia"},
	"br":  {"ccTLD", "Brazil"},
	"in":  {"ccTLD", "India"},
}

// LookupTLD returns the table entry for a lower-case label, or the
// "Unknown TLD" entry.
func LookupTLD(tld string) TLDInfo {
	if info, ok := tldTable[tld]; ok {
		return info
	}
	return unknownTLD
}

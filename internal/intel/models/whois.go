package models

import "strconv"

// Placeholders for fields a provider did not supply. Registry-side fields use
// Unknown; registrant, admin and tech contact fields use Private.
const (
	Unknown = "Unknown"
	Private = "Private"
)

// Record kinds.
const (
	KindCanonical  = "canonical"
	KindStructural = "structural"
	KindValidation = "validation"
)

// WhoisRecord is the canonical ownership record every WHOIS stage maps into.
// Every string field is always set: either a sanitized provider value or a
// placeholder. JSON keys match the display labels and the persisted layout.
type WhoisRecord struct {
	Kind string `json:"kind"`

	DomainName             string `json:"Domain Name"`
	Registrar              string `json:"Registrar"`
	CreationDate           string `json:"Creation Date"`
	ExpiryDate             string `json:"Registry Expiry Date"`
	UpdatedDate            string `json:"Updated Date"`
	Status                 string `json:"Status"`
	NameServers            string `json:"Name Server"`
	RegistrantName         string `json:"Registrant Name"`
	RegistrantOrganization string `json:"Registrant Organization"`
	RegistrantCountry      string `json:"Registrant Country"`
	RegistrantEmail        string `json:"Registrant Email"`
	AdminName              string `json:"Admin Name"`
	AdminEmail             string `json:"Admin Email"`
	TechName               string `json:"Tech Name"`
	TechEmail              string `json:"Tech Email"`
	Source                 string `json:"Source"`

	// Structure is set only by the heuristic stage.
	Structure *StructuralAnalysis `json:"structure,omitempty"`
	// Error is set only on validation failures.
	Error string `json:"Error,omitempty"`
}

// StructuralAnalysis carries the facts the heuristic stage can derive locally.
type StructuralAnalysis struct {
	SecondLevelDomain string `json:"Second Level Domain"`
	TopLevelDomain    string `json:"Top Level Domain"`
	TLDType           string `json:"TLD Type"`
	TLDDescription    string `json:"TLD Description"`
	DomainLength      int    `json:"Domain Length"`
	SubdomainCount    int    `json:"Subdomain Count"`
	Analysis          string `json:"Analysis"`
	Note              string `json:"Note"`
	Recommendation    string `json:"Recommendation"`
}

// NewWhoisRecord returns a canonical record with every field set to its placeholder.
func NewWhoisRecord(domain, source string) WhoisRecord {
	return WhoisRecord{
		Kind:                   KindCanonical,
		DomainName:             domain,
		Registrar:              Unknown,
		CreationDate:           Unknown,
		ExpiryDate:             Unknown,
		UpdatedDate:            Unknown,
		Status:                 Unknown,
		NameServers:            Unknown,
		RegistrantName:         Private,
		RegistrantOrganization: Private,
		RegistrantCountry:      Private,
		RegistrantEmail:        Private,
		AdminName:              Private,
		AdminEmail:             Private,
		TechName:               Private,
		TechEmail:              Private,
		Source:                 source,
	}
}

// NewValidationFailure builds the terminal record for input that is not a
// domain name. input is echoed back, or "Invalid" when empty.
func NewValidationFailure(input, reason string) WhoisRecord {
	if input == "" {
		input = "Invalid"
	}
	r := NewWhoisRecord(input, Unknown)
	r.Kind = KindValidation
	r.Status = "Validation Failed"
	r.Error = reason
	return r
}

// IsValidationFailure reports whether the record came from input validation.
func (r WhoisRecord) IsValidationFailure() bool {
	return r.Kind == KindValidation
}

// Complete reports whether every canonical field carries a value.
func (r WhoisRecord) Complete() bool {
	for _, v := range r.canonicalValues() {
		if v == "" {
			return false
		}
	}
	return true
}

func (r WhoisRecord) canonicalValues() []string {
	return []string{
		r.DomainName, r.Registrar, r.CreationDate, r.ExpiryDate, r.UpdatedDate,
		r.Status, r.NameServers, r.RegistrantName, r.RegistrantOrganization,
		r.RegistrantCountry, r.RegistrantEmail, r.AdminName, r.AdminEmail,
		r.TechName, r.TechEmail, r.Source,
	}
}

// Rows returns the record as ordered label/value rows for the WHOIS section.
func (r WhoisRecord) Rows() []Row {
	switch {
	case r.Kind == KindValidation:
		return []Row{
			{Label: "Error", Value: r.Error},
			{Label: "Domain Name", Value: r.DomainName},
			{Label: "Status", Value: r.Status},
		}
	case r.Structure != nil:
		s := r.Structure
		return []Row{
			{Label: "Domain Name", Value: r.DomainName},
			{Label: "Second Level Domain", Value: s.SecondLevelDomain},
			{Label: "Top Level Domain", Value: s.TopLevelDomain},
			{Label: "TLD Type", Value: s.TLDType},
			{Label: "TLD Description", Value: s.TLDDescription},
			{Label: "Domain Length", Value: strconv.Itoa(s.DomainLength)},
			{Label: "Subdomain Count", Value: strconv.Itoa(s.SubdomainCount)},
			{Label: "Analysis", Value: s.Analysis},
			{Label: "Note", Value: s.Note},
			{Label: "Recommendation", Value: s.Recommendation},
			{Label: "Status", Value: r.Status},
			{Label: "Source", Value: r.Source},
		}
	}
	return []Row{
		{Label: "Domain Name", Value: r.DomainName},
		{Label: "Registrar", Value: r.Registrar},
		{Label: "Creation Date", Value: r.CreationDate},
		{Label: "Registry Expiry Date", Value: r.ExpiryDate},
		{Label: "Updated Date", Value: r.UpdatedDate},
		{Label: "Status", Value: r.Status},
		{Label: "Name Server", Value: r.NameServers},
		{Label: "Registrant Name", Value: r.RegistrantName},
		{Label: "Registrant Organization", Value: r.RegistrantOrganization},
		{Label: "Registrant Country", Value: r.RegistrantCountry},
		{Label: "Registrant Email", Value: r.RegistrantEmail},
		{Label: "Admin Name", Value: r.AdminName},
		{Label: "Admin Email", Value: r.AdminEmail},
		{Label: "Tech Name", Value: r.TechName},
		{Label: "Tech Email", Value: r.TechEmail},
		{Label: "Source", Value: r.Source},
	}
}

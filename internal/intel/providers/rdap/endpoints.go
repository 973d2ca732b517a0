package rdap

// endpoints maps a top-level label to the registry's RDAP domain query prefix.
// The domain name is appended verbatim.
var endpoints = map[string]string{
	"com":  "https://rdap.verisign.com/com/v1/domain/",
	"net":  "https://rdap.verisign.com/net/v1/domain/",
	"org":  "https://rdap.publicinterestregistry.org/rdap/domain/",
	"info": "https://rdap.afilias.net/rdap/v1/domain/",
	"biz":  "https://rdap.afilias.net/rdap/v1/domain/",
	"us":   "https://rdap.nic.us/rdap/domain/",
	"uk":   "https://rdap.nominet.uk/uk/domain/",
	"ca":   "https://rdap.ca/rdap/domain/",
	"au":   "https://rdap.audns.net.au/au/domain/",
	"de":   "https://rdap.denic.de/domain/",
	"fr":   "https://rdap.nic.fr/domain/",
	"it":   "https://rdap.nic.it/domain/",
	"nl":   "https://rdap.sidn.nl/domain/",
	"be":   "https://rdap.dns.be/domain/",
	"ch":   "https://rdap.nic.ch/domain/",
	"at":   "https://rdap.nic.at/domain/",
	"se":   "https://rdap.internetstiftelsen.se/domain/",
	"no":   "https://rdap.norid.no/domain/",
	"dk":   "https://rdap.dk-hostmaster.dk/domain/",
	"fi":   "https://rdap.ficora.fi/domain/",
	"pl":   "https://rdap.dns.pl/domain/",
	"cz":   "https://rdap.nic.cz/domain/",
	"jp":   "https://rdap.jprs.jp/domain/",
	"kr":   "https://rdap.kr/domain/",
	"cn":   "https://rdap.cnnic.cn/domain/",
	"in":   "https://rdap.registry.in/domain/",
	"br":   "https://rdap.registro.br/domain/",
	"mx":   "https://rdap.mx/domain/",
	"ru":   "https://rdap.tcinet.ru/domain/",
	"nz":   "https://rdap.srs.net.nz/domain/",
}

// Endpoint returns the RDAP query prefix for a top-level label.
func Endpoint(tld string) (string, bool) {
	e, ok := endpoints[tld]
	return e, ok
}

// EndpointCount reports how many top-level labels have a registry endpoint.
func EndpointCount() int {
	return len(endpoints)
}

package record

// DefaultAbbreviations maps lower-case abbreviations common in RFP
// questionnaires to their expansions. Expansion happens on match text only,
// so stored answers keep their original wording.
func DefaultAbbreviations() map[string]string {
	return map[string]string{
		"baa":  "business associate agreement",
		"bcp":  "business continuity plan",
		"ehr":  "electronic health record",
		"emr":  "electronic medical record",
		"fte":  "full time equivalent",
		"hie":  "health information exchange",
		"mfa":  "multi factor authentication",
		"phi":  "protected health information",
		"pii":  "personally identifiable information",
		"rfp":  "request for proposal",
		"rfi":  "request for information",
		"rpo":  "recovery point objective",
		"rto":  "recovery time objective",
		"sla":  "service level agreement",
		"sso":  "single sign on",
		"2fa":  "two factor authentication",
		"soc2": "soc 2",
	}
}

// defaultPlaceholders are answers that carry no information.
// Keys are lower-case with surrounding punctuation removed.
var defaultPlaceholders = map[string]struct{}{
	"n/a":            {},
	"n.a":            {},
	"na":             {},
	"none":           {},
	"null":           {},
	"nil":            {},
	"undefined":      {},
	"tbd":            {},
	"tba":            {},
	"todo":           {},
	"not applicable": {},
	"-":              {},
	"--":             {},
}

// defaultBoilerplate are markers of template or filler text. Each matches
// as a case-insensitive substring.
var defaultBoilerplate = []string{
	"lorem ipsum",
	"dummy",
	"test",
	"placeholder",
	"insert answer here",
}

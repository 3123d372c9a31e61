package models

// EtymologyPart is one morpheme of a word's breakdown
type EtymologyPart struct {
	Part    string `json:"part"`
	Type    string `json:"type"` // prefix, root or suffix
	Meaning string `json:"meaning"`
}

// LookupEntry is whatever the dictionary/mnemonic service returns for a headword
type LookupEntry struct {
	Headword    string          `json:"word"`
	Translation string          `json:"translation"`
	Phonetic    string          `json:"phonetic"`
	Example     string          `json:"example"`
	Mnemonic    string          `json:"mnemonic,omitempty"`
	Etymology   []EtymologyPart `json:"etymology,omitempty"`
	Cognates    []string        `json:"cognates,omitempty"`
}

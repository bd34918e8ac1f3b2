package models

// Status is a catalog entry describing an employee's warrant/card standing.
// The backend computes which status applies; the gateway only needs the
// "Active"/"Inactive" pair to apply the derived-status rule locally.
type Status struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	NameAr string `json:"name_ar"`
}

// DocumentType is a catalog entry for archivable document kinds. The special
// roles are first-class flags agreed with the backend; nothing in the
// gateway matches on display names.
type DocumentType struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	NameAr string `json:"name_ar"`

	// IsExpiryTracked makes an expiry date mandatory on attachments of
	// this type.
	IsExpiryTracked bool `json:"is_expiry_tracked"`
	// IsMiscellaneous exempts the type from the one-per-type rule.
	IsMiscellaneous bool `json:"is_miscellaneous"`
	// IsWarrantDecision marks the type whose attachments carry related
	// legislation references.
	IsWarrantDecision bool `json:"is_warrant_decision"`
	// IsJudicialCard marks the type whose presence forces the derived
	// status to Active.
	IsJudicialCard bool `json:"is_judicial_card"`
}

// Legislation is a catalog entry referenced by warrant-decision documents.
type Legislation struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	NameAr string `json:"name_ar"`
}

// Catalogs bundles the three lookup lists the form engine depends on.
type Catalogs struct {
	Statuses      []Status       `json:"statuses"`
	DocumentTypes []DocumentType `json:"document_types"`
	Legislations  []Legislation  `json:"legislations"`
}

// DocumentTypeByID returns the catalog entry for the given id.
func (c *Catalogs) DocumentTypeByID(id string) (DocumentType, bool) {
	for _, dt := range c.DocumentTypes {
		if dt.ID == id {
			return dt, true
		}
	}
	return DocumentType{}, false
}

// StatusByName resolves a status catalog entry by its English display name.
func (c *Catalogs) StatusByName(name string) (Status, bool) {
	for _, s := range c.Statuses {
		if s.Name == name {
			return s, true
		}
	}
	return Status{}, false
}

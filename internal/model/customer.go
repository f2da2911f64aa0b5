package model

// CustomerRecord is one row of the customer/lead dataset the cleaning engine
// scans. Extra captures arbitrary CSV-sourced columns as an opaque key-value
// bag; the analysis only inspects the named fields.
type CustomerRecord struct {
	ID             string            `json:"id"`
	Code           string            `json:"code,omitempty"`
	NameEn         string            `json:"name_en,omitempty"`
	NameAr         string            `json:"name_ar,omitempty"`
	Latitude       float64           `json:"latitude,omitempty"`
	Longitude      float64           `json:"longitude,omitempty"`
	Branch         string            `json:"branch,omitempty"`
	Address        string            `json:"address,omitempty"`
	District       string            `json:"district,omitempty"`
	Classification string            `json:"classification,omitempty"`
	StoreType      string            `json:"store_type,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Name returns the English name, falling back to Arabic.
func (r CustomerRecord) Name() string {
	if r.NameEn != "" {
		return r.NameEn
	}
	return r.NameAr
}

// DuplicateProof names which detection heuristics fired for a pair.
type DuplicateProof struct {
	NameSimilar bool `json:"name_similar"`
	Proximity   bool `json:"proximity"`
	SameBranch  bool `json:"same_branch"`
}

// DuplicatePair is two customer records suspected to be the same entity.
// Pairs are ephemeral: produced per analysis pass, resolved by a human
// choice which triggers deletes/upserts on the external store.
type DuplicatePair struct {
	A            CustomerRecord `json:"a"`
	B            CustomerRecord `json:"b"`
	ConflictType string         `json:"conflict_type"`
	Proof        string         `json:"proof"`
	Evidence     DuplicateProof `json:"evidence"`
}

// StandardizationProposal is one proposed field correction for one
// record/field pair. Approval state is tracked by the caller as a set of
// Key() strings.
type StandardizationProposal struct {
	RecordID string `json:"record_id"`
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// Key identifies a proposal for approval tracking.
func (p StandardizationProposal) Key() string {
	return p.RecordID + "_" + p.Field
}

// BranchVariationCluster proposes consolidating several observed branch-name
// strings into one canonical master name.
type BranchVariationCluster struct {
	Master     string   `json:"master"`
	Variations []string `json:"variations"`
	RecordIDs  []string `json:"record_ids"`
}

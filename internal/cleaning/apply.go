package cleaning

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
)

// Resolution is a human verdict on a duplicate pair.
type Resolution string

const (
	ResolutionKeepA Resolution = "keep_a"
	ResolutionKeepB Resolution = "keep_b"
	ResolutionMerge Resolution = "smart_merge"
)

// DuplicateDecision pairs a flagged duplicate with its resolution.
type DuplicateDecision struct {
	Pair       model.DuplicatePair `json:"pair" yaml:"pair"`
	Resolution Resolution          `json:"resolution" yaml:"resolution"`
}

// Decisions is the full set of approved actions handed to the applier. The
// applier only translates; it never re-derives proposals.
type Decisions struct {
	Proposals      []model.StandardizationProposal `json:"proposals" yaml:"proposals"`
	Duplicates     []DuplicateDecision             `json:"duplicates" yaml:"duplicates"`
	BranchClusters []model.BranchVariationCluster  `json:"branch_clusters" yaml:"branch_clusters"`
}

// ChangeSet is the minimal list of store operations for a Decisions set.
// At most one upsert per record id; deletes target discarded record ids.
type ChangeSet struct {
	Upserts []model.CustomerRecord `json:"upserts" yaml:"upserts"`
	Deletes []string               `json:"deletes" yaml:"deletes"`
}

// CustomerWriter is the slice of the persistence API the applier needs.
// Upserts accept partial records merged by primary key.
type CustomerWriter interface {
	UpsertCustomers(ctx context.Context, records []model.CustomerRecord) (int64, error)
	DeleteCustomer(ctx context.Context, id string) error
}

// ItemFailure records one failed store operation during an apply. Partial
// applies are possible; failures are surfaced per item, never aggregated
// away.
type ItemFailure struct {
	Op  string `json:"op"`
	ID  string `json:"id"`
	Err string `json:"err"`
}

// ApplyResult summarizes an apply pass.
type ApplyResult struct {
	Upserted int           `json:"upserted"`
	Deleted  int           `json:"deleted"`
	Failures []ItemFailure `json:"failures,omitempty"`
}

// Applier translates approved decisions into store operations.
type Applier struct {
	store CustomerWriter
}

// NewApplier creates an Applier.
func NewApplier(store CustomerWriter) *Applier {
	return &Applier{store: store}
}

// BuildChangeSet computes the minimal upsert/delete list for a decision set.
// Field proposals and branch consolidations targeting the same record
// collapse into a single partial upsert.
func BuildChangeSet(d Decisions) ChangeSet {
	upserts := make(map[string]*model.CustomerRecord)
	var upsertOrder []string

	partial := func(id string) *model.CustomerRecord {
		if rec, ok := upserts[id]; ok {
			return rec
		}
		rec := &model.CustomerRecord{ID: id}
		upserts[id] = rec
		upsertOrder = append(upsertOrder, id)
		return rec
	}

	for _, p := range d.Proposals {
		setField(partial(p.RecordID), p.Field, p.NewValue)
	}
	for _, c := range d.BranchClusters {
		for _, id := range c.RecordIDs {
			partial(id).Branch = c.Master
		}
	}

	var cs ChangeSet
	for _, dd := range d.Duplicates {
		switch dd.Resolution {
		case ResolutionKeepA:
			cs.Deletes = append(cs.Deletes, dd.Pair.B.ID)
		case ResolutionKeepB:
			cs.Deletes = append(cs.Deletes, dd.Pair.A.ID)
		case ResolutionMerge:
			// Field proposals already accumulated for the kept record take
			// precedence over the merged pair values.
			merged := SmartMerge(dd.Pair.A, dd.Pair.B)
			p := partial(merged.ID)
			*p = SmartMerge(*p, merged)
			cs.Deletes = append(cs.Deletes, dd.Pair.B.ID)
		}
	}

	for _, id := range upsertOrder {
		cs.Upserts = append(cs.Upserts, *upserts[id])
	}
	return cs
}

// SmartMerge reconciles two suspected-duplicate records field by field,
// starting from the kept record A and filling only its empty fields from B.
// A populated A field is never overwritten.
func SmartMerge(a, b model.CustomerRecord) model.CustomerRecord {
	out := a

	fillString(&out.Code, b.Code)
	fillString(&out.NameEn, b.NameEn)
	fillString(&out.NameAr, b.NameAr)
	fillString(&out.Branch, b.Branch)
	fillString(&out.Address, b.Address)
	fillString(&out.District, b.District)
	fillString(&out.Classification, b.Classification)
	fillString(&out.StoreType, b.StoreType)

	if !geo.ValidCoordinate(out.Latitude, out.Longitude) && geo.ValidCoordinate(b.Latitude, b.Longitude) {
		out.Latitude = b.Latitude
		out.Longitude = b.Longitude
	}

	if len(b.Extra) > 0 {
		merged := make(map[string]string, len(a.Extra)+len(b.Extra))
		for k, v := range a.Extra {
			merged[k] = v
		}
		for k, v := range b.Extra {
			if merged[k] == "" {
				merged[k] = v
			}
		}
		out.Extra = merged
	}
	return out
}

func fillString(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

// Apply executes a change set one operation at a time so a single failure
// cannot silently swallow the rest of a partial apply.
func (a *Applier) Apply(ctx context.Context, cs ChangeSet) ApplyResult {
	var result ApplyResult

	for _, rec := range cs.Upserts {
		if _, err := a.store.UpsertCustomers(ctx, []model.CustomerRecord{rec}); err != nil {
			result.Failures = append(result.Failures, ItemFailure{Op: "upsert", ID: rec.ID, Err: err.Error()})
			zap.L().Warn("cleaning: upsert failed",
				zap.String("record_id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		result.Upserted++
	}
	for _, id := range cs.Deletes {
		if err := a.store.DeleteCustomer(ctx, id); err != nil {
			result.Failures = append(result.Failures, ItemFailure{Op: "delete", ID: id, Err: err.Error()})
			zap.L().Warn("cleaning: delete failed",
				zap.String("record_id", id),
				zap.Error(err),
			)
			continue
		}
		result.Deleted++
	}
	return result
}

// setField maps a proposal field name onto the partial record. Unknown
// fields land in the opaque Extra bag, matching how open-ended CSV columns
// are carried.
func setField(r *model.CustomerRecord, field, value string) {
	switch field {
	case AddressField:
		r.Address = value
	case BranchField:
		r.Branch = value
	case "district":
		r.District = value
	case "name_en":
		r.NameEn = value
	case "name_ar":
		r.NameAr = value
	case "classification":
		r.Classification = value
	case "store_type":
		r.StoreType = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[field] = value
	}
}

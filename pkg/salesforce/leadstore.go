package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
)

// Lead mirrors the subset of the Salesforce Lead object the cleaning engine
// works with. Client_Code__c and Branch__c are org-specific custom fields.
type Lead struct {
	ID             string  `json:"Id" salesforce:"Id"`
	Company        string  `json:"Company" salesforce:"Company"`
	Street         string  `json:"Street" salesforce:"Street"`
	City           string  `json:"City" salesforce:"City"`
	Latitude       float64 `json:"Latitude" salesforce:"Latitude"`
	Longitude      float64 `json:"Longitude" salesforce:"Longitude"`
	Rating         string  `json:"Rating" salesforce:"Rating"`
	Industry       string  `json:"Industry" salesforce:"Industry"`
	ClientCode     string  `json:"Client_Code__c" salesforce:"Client_Code__c"`
	Branch         string  `json:"Branch__c" salesforce:"Branch__c"`
	NameArabic     string  `json:"Name_Arabic__c" salesforce:"Name_Arabic__c"`
}

var leadFields = []string{
	"Id", "Company", "Street", "City", "Latitude", "Longitude",
	"Rating", "Industry", "Client_Code__c", "Branch__c", "Name_Arabic__c",
}

// LeadStore exposes the Salesforce Lead dataset through the same customer
// operations the local stores provide, so a cleaning pass can read from and
// apply fixes to the CRM directly.
type LeadStore struct {
	client Client
}

// NewLeadStore creates a LeadStore over a Client.
func NewLeadStore(c Client) *LeadStore {
	return &LeadStore{client: c}
}

// ListCustomers fetches all leads and converts them to customer records.
func (s *LeadStore) ListCustomers(ctx context.Context) ([]model.CustomerRecord, error) {
	soql := fmt.Sprintf("SELECT %s FROM Lead ORDER BY Id", strings.Join(leadFields, ", "))

	var leads []Lead
	if err := s.client.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, "sf: list leads")
	}

	records := make([]model.CustomerRecord, len(leads))
	for i, l := range leads {
		records[i] = model.CustomerRecord{
			ID:             l.ID,
			Code:           l.ClientCode,
			NameEn:         l.Company,
			NameAr:         l.NameArabic,
			Latitude:       l.Latitude,
			Longitude:      l.Longitude,
			Branch:         l.Branch,
			Address:        l.Street,
			District:       l.City,
			Classification: l.Rating,
			StoreType:      l.Industry,
		}
	}
	return records, nil
}

// UpsertCustomers updates leads that carry an ID and inserts the rest.
// Update payloads only carry populated fields, so stored values are never
// clobbered by empty strings.
func (s *LeadStore) UpsertCustomers(ctx context.Context, records []model.CustomerRecord) (int64, error) {
	var inserts, updates []map[string]any
	for _, r := range records {
		fields := leadFieldsOf(r)
		if r.ID == "" {
			inserts = append(inserts, fields)
			continue
		}
		fields["Id"] = r.ID
		updates = append(updates, fields)
	}

	var n int64
	if len(inserts) > 0 {
		results, err := s.client.InsertCollection(ctx, "Lead", inserts)
		if err != nil {
			return n, eris.Wrap(err, "sf: insert leads")
		}
		n += countSuccesses(results)
	}
	if len(updates) > 0 {
		results, err := s.client.UpdateCollection(ctx, "Lead", updates)
		if err != nil {
			return n, eris.Wrap(err, "sf: update leads")
		}
		n += countSuccesses(results)
	}
	return n, nil
}

// DeleteCustomer removes one lead by id.
func (s *LeadStore) DeleteCustomer(ctx context.Context, id string) error {
	results, err := s.client.DeleteCollection(ctx, "Lead", []string{id})
	if err != nil {
		return eris.Wrapf(err, "sf: delete lead %s", id)
	}
	for _, r := range results {
		if !r.Success {
			return eris.Errorf("sf: delete lead %s failed: %s", id, strings.Join(r.Errors, "; "))
		}
	}
	return nil
}

// DeleteAllCustomers is not supported against the CRM; wiping Leads is an
// admin operation that must happen in Salesforce itself.
func (s *LeadStore) DeleteAllCustomers(ctx context.Context) error {
	return eris.New("sf: bulk lead deletion is not supported")
}

// leadFieldsOf converts a customer record into a Lead field map, skipping
// empty values.
func leadFieldsOf(r model.CustomerRecord) map[string]any {
	fields := map[string]any{}
	set := func(name, value string) {
		if value != "" {
			fields[name] = value
		}
	}
	set("Company", r.NameEn)
	set("Name_Arabic__c", r.NameAr)
	set("Street", r.Address)
	set("City", r.District)
	set("Rating", r.Classification)
	set("Industry", r.StoreType)
	set("Client_Code__c", r.Code)
	set("Branch__c", r.Branch)
	if geo.ValidCoordinate(r.Latitude, r.Longitude) {
		fields["Latitude"] = r.Latitude
		fields["Longitude"] = r.Longitude
	}
	return fields
}

func countSuccesses(results []CollectionResult) int64 {
	var n int64
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

package webhook

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Field is a logical contact field resolved from an inbound payload.
type Field string

const (
	FieldScope             Field = "scope"
	FieldExternalContactID Field = "externalContactId"
	FieldFullName          Field = "fullName"
	FieldFirstName         Field = "firstName"
	FieldLastName          Field = "lastName"
	FieldPhone             Field = "phone"
	FieldEmail             Field = "email"
	FieldAddress           Field = "address"
	FieldCity              Field = "city"
	FieldState             Field = "state"
	FieldZip               Field = "zip"
	FieldReferralSource    Field = "referralSource"
	FieldLeadSource        Field = "leadSource"
	FieldProjectType       Field = "projectType"
	FieldNotes             Field = "notes"
)

// AliasTable lists, per logical field, the payload keys that may carry it
// in priority order. Nested keys are written dotted ("customData.zip").
type AliasTable map[Field][]string

// DefaultAliases returns the built-in alias table.
func DefaultAliases() AliasTable {
	return AliasTable{
		FieldScope:             {"locationId", "location.id", "companyId", "company.id", "scopeKey", "tenantId"},
		FieldExternalContactID: {"contact_id", "contact.id", "id"},
		FieldFullName:          {"full_name", "contact.full_name", "contact.name", "name"},
		FieldFirstName:         {"first_name", "contact.first_name"},
		FieldLastName:          {"last_name", "contact.last_name"},
		FieldPhone:             {"phone", "contact.phone", "phone_number", "mobile"},
		FieldEmail:             {"email", "contact.email", "email_address"},
		FieldAddress:           {"address1", "contact.address1", "address", "street_address", "full_address"},
		FieldCity:              {"city", "contact.city"},
		FieldState:             {"state", "contact.state", "province"},
		FieldZip:               {"postal_code", "contact.postal_code", "customData.postal_code", "zip", "zip_code"},
		FieldReferralSource:    {"contact.jf_referral_source", "jf_referral_source", "customData.referral_source", "referral_source"},
		FieldLeadSource:        {"contact.jf_lead_source", "customData.lead_source", "lead_source", "contact.source", "source"},
		FieldProjectType:       {"contact.jf_project_type", "customData.project_type", "project_type"},
		FieldNotes:             {"customData.notes", "notes", "message", "comments"},
	}
}

var knownFields = func() map[Field]bool {
	out := make(map[Field]bool)
	for f := range DefaultAliases() {
		out[f] = true
	}
	return out
}()

// LoadAliases returns the default table with the aliases from the YAML file
// at path appended per field. An empty path yields the defaults.
//
//	phone: [cell, contact.mobile_phone]
//	scope: [account_id]
func LoadAliases(path string) (AliasTable, error) {
	table := DefaultAliases()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}
	return mergeAliases(table, data)
}

func mergeAliases(table AliasTable, data []byte) (AliasTable, error) {
	var extra map[string][]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parse alias file: %w", err)
	}

	for name, aliases := range extra {
		field := Field(name)
		if !knownFields[field] {
			return nil, fmt.Errorf("alias file: unknown field %q", name)
		}
		table[field] = append(table[field], aliases...)
	}
	return table, nil
}

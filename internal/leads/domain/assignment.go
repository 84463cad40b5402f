package domain

import (
	"time"
)

// Field names a persisted lead attribute that write paths may assign.
type Field string

const (
	FieldExternalContactID  Field = "external_contact_id"
	FieldName               Field = "name"
	FieldPhone              Field = "phone"
	FieldEmail              Field = "email"
	FieldAddress            Field = "address"
	FieldCity               Field = "city"
	FieldState              Field = "state"
	FieldZip                Field = "zip"
	FieldBuyerType          Field = "buyer_type"
	FieldCompanyName        Field = "company_name"
	FieldProjectType        Field = "project_type"
	FieldReferralSource     Field = "referral_source"
	FieldLeadSource         Field = "lead_source"
	FieldNotes              Field = "notes"
	FieldContractPriceCents Field = "contract_price_cents"
	FieldNotSoldReason      Field = "not_sold_reason"
	FieldStatus             Field = "status"
	FieldAppointmentDate    Field = "appointment_date"
	FieldAppointmentTime    Field = "appointment_time"
	FieldInstallDate        Field = "install_date"
	FieldInstallTentative   Field = "install_tentative"
	FieldSyncSource         Field = "sync_source"
	FieldLastSyncedAt       Field = "last_synced_at"
	FieldUpdatedAt          Field = "updated_at"
)

var writeOnceFields = map[Field]bool{
	FieldReferralSource: true,
	FieldLeadSource:     true,
}

// IsWriteOnce reports whether f may only be set while its stored value is empty.
func IsWriteOnce(f Field) bool {
	return writeOnceFields[f]
}

// bookkeepingFields change on every write and are left out of change summaries.
var bookkeepingFields = map[Field]bool{
	FieldSyncSource:   true,
	FieldLastSyncedAt: true,
	FieldUpdatedAt:    true,
}

// Assignment sets one field to a value. Value types:
// string for text fields, *string for external_contact_id,
// *time.Time for dates and timestamps, *int64 for contract price,
// bool for install_tentative, Status and SyncSource for their fields.
type Assignment struct {
	Field Field
	Value any
}

// Set is shorthand for building an Assignment.
func Set(f Field, v any) Assignment {
	return Assignment{Field: f, Value: v}
}

// Apply returns a copy of l with the assignments applied in order.
// Write-once fields keep a non-empty stored value. Unknown fields and
// values of the wrong type are ignored.
func Apply(l Lead, assignments []Assignment) Lead {
	for _, a := range assignments {
		applyOne(&l, a)
	}
	return l
}

// Changed lists the non-bookkeeping fields whose value differs between
// before and after, in assignment order.
func Changed(before Lead, assignments []Assignment) []Field {
	after := Apply(before, assignments)
	seen := make(map[Field]bool)
	changed := make([]Field, 0)
	for _, a := range assignments {
		if bookkeepingFields[a.Field] || seen[a.Field] {
			continue
		}
		seen[a.Field] = true
		if !fieldEqual(before, after, a.Field) {
			changed = append(changed, a.Field)
		}
	}
	return changed
}

func applyOne(l *Lead, a Assignment) {
	if s, ok := a.Value.(string); ok {
		if target := textField(l, a.Field); target != nil {
			if IsWriteOnce(a.Field) && *target != "" {
				return
			}
			*target = s
		}
		return
	}

	switch a.Field {
	case FieldExternalContactID:
		if v, ok := a.Value.(*string); ok {
			l.ExternalContactID = cloneString(v)
		}
	case FieldContractPriceCents:
		if v, ok := a.Value.(*int64); ok {
			l.ContractPriceCents = cloneInt64(v)
		}
	case FieldStatus:
		if v, ok := a.Value.(Status); ok {
			l.Status = v
		}
	case FieldAppointmentDate:
		if v, ok := a.Value.(*time.Time); ok {
			l.AppointmentDate = cloneTime(v)
		}
	case FieldInstallDate:
		if v, ok := a.Value.(*time.Time); ok {
			l.InstallDate = cloneTime(v)
		}
	case FieldInstallTentative:
		if v, ok := a.Value.(bool); ok {
			l.InstallTentative = v
		}
	case FieldSyncSource:
		if v, ok := a.Value.(SyncSource); ok {
			l.SyncSource = v
		}
	case FieldLastSyncedAt:
		if v, ok := a.Value.(*time.Time); ok {
			l.LastSyncedAt = cloneTime(v)
		}
	case FieldUpdatedAt:
		if v, ok := a.Value.(*time.Time); ok && v != nil {
			l.UpdatedAt = *v
		}
	}
}

func textField(l *Lead, f Field) *string {
	switch f {
	case FieldName:
		return &l.Name
	case FieldPhone:
		return &l.Phone
	case FieldEmail:
		return &l.Email
	case FieldAddress:
		return &l.Address
	case FieldCity:
		return &l.City
	case FieldState:
		return &l.State
	case FieldZip:
		return &l.Zip
	case FieldBuyerType:
		return &l.BuyerType
	case FieldCompanyName:
		return &l.CompanyName
	case FieldProjectType:
		return &l.ProjectType
	case FieldReferralSource:
		return &l.ReferralSource
	case FieldLeadSource:
		return &l.LeadSource
	case FieldNotes:
		return &l.Notes
	case FieldNotSoldReason:
		return &l.NotSoldReason
	case FieldAppointmentTime:
		return &l.AppointmentTime
	}
	return nil
}

func fieldEqual(a, b Lead, f Field) bool {
	if ta, tb := textField(&a, f), textField(&b, f); ta != nil {
		return *ta == *tb
	}
	switch f {
	case FieldExternalContactID:
		return equalStringPtr(a.ExternalContactID, b.ExternalContactID)
	case FieldContractPriceCents:
		return equalInt64Ptr(a.ContractPriceCents, b.ContractPriceCents)
	case FieldStatus:
		return a.Status == b.Status
	case FieldAppointmentDate:
		return equalTimePtr(a.AppointmentDate, b.AppointmentDate)
	case FieldInstallDate:
		return equalTimePtr(a.InstallDate, b.InstallDate)
	case FieldInstallTentative:
		return a.InstallTentative == b.InstallTentative
	}
	return true
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

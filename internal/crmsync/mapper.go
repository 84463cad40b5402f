package crmsync

import (
	"fmt"
	"strings"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/phone"
)

const (
	dateLayout = "2006-01-02"
	sourceName = "leadflow"
)

// ContactFromLead builds the CRM contact for a lead. Phones are sent in
// E.164 using region for numbers stored without a country code.
func ContactFromLead(lead domain.Lead, region string) Contact {
	c := Contact{
		Name:       lead.Name,
		Phone:      phone.NormalizeE164(lead.Phone, region),
		Email:      lead.Email,
		Address:    lead.Address,
		City:       lead.City,
		State:      lead.State,
		PostalCode: lead.Zip,
		Source:     sourceName,
		Tags:       []string{"pipeline:" + strings.ToLower(string(lead.Status))},
	}
	if lead.ExternalContactID != nil {
		c.ID = *lead.ExternalContactID
	}

	add := func(key, value string) {
		if value != "" {
			c.CustomFields = append(c.CustomFields, CustomField{Key: key, Value: value})
		}
	}
	add("pipeline_status", string(lead.Status))
	add("referral_source", lead.ReferralSource)
	add("lead_source", lead.LeadSource)
	add("project_type", lead.ProjectType)
	add("not_sold_reason", lead.NotSoldReason)
	add("appointment_time", lead.AppointmentTime)
	if lead.AppointmentDate != nil {
		add("appointment_date", lead.AppointmentDate.Format(dateLayout))
	}
	if lead.InstallDate != nil {
		add("install_date", lead.InstallDate.Format(dateLayout))
		add("install_tentative", fmt.Sprintf("%t", lead.InstallTentative))
	}
	if lead.ContractPriceCents != nil {
		add("contract_price", formatCents(*lead.ContractPriceCents))
	}
	return c
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

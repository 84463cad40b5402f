package crmsync

// Contact is the outbound representation of a lead in the external CRM.
type Contact struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name"`
	Phone        string        `json:"phone,omitempty"`
	Email        string        `json:"email,omitempty"`
	Address      string        `json:"address1,omitempty"`
	City         string        `json:"city,omitempty"`
	State        string        `json:"state,omitempty"`
	PostalCode   string        `json:"postalCode,omitempty"`
	Source       string        `json:"source,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	CustomFields []CustomField `json:"customFields,omitempty"`
}

// CustomField is a keyed CRM custom field value.
type CustomField struct {
	Key   string `json:"key"`
	Value string `json:"field_value"`
}

type contactEnvelope struct {
	Contact Contact `json:"contact"`
}

type errorResponse struct {
	Message string `json:"message"`
}

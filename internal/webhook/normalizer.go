package webhook

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/platform/phone"
	"leadflow_backend/platform/sanitize"
)

// ErrMissingTenantScope means no alias of the scope field held a value.
var ErrMissingTenantScope = errors.New("missing tenant scope identifier")

// NormalizedContact is an inbound payload reduced to its tenant scope and
// canonical contact.
type NormalizedContact struct {
	ScopeKey string
	Contact  domain.IncomingContact
}

// Normalizer maps arbitrary webhook payloads onto IncomingContact.
type Normalizer struct {
	aliases     AliasTable
	phoneRegion string
}

// NewNormalizer creates a Normalizer. phoneRegion is the region assumed for
// numbers without a country code.
func NewNormalizer(aliases AliasTable, phoneRegion string) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Normalizer{aliases: aliases, phoneRegion: phoneRegion}
}

// Normalize resolves the tenant scope and contact fields of payload.
func (n *Normalizer) Normalize(payload map[string]any) (NormalizedContact, error) {
	values := flatten(payload)

	scope, ok := n.lookup(values, FieldScope)
	if !ok {
		return NormalizedContact{}, ErrMissingTenantScope
	}

	var in domain.IncomingContact
	if id, ok := n.lookup(values, FieldExternalContactID); ok {
		in.ExternalContactID = &id
	}

	if full, ok := n.lookup(values, FieldFullName); ok {
		in.Name = sanitize.CleanLine(full)
	} else {
		first, _ := n.lookup(values, FieldFirstName)
		last, _ := n.lookup(values, FieldLastName)
		in.Name = sanitize.CleanLine(first + " " + last)
	}

	if raw, ok := n.lookup(values, FieldPhone); ok {
		in.Phone = phone.NationalDigits(raw, n.phoneRegion)
	}
	if raw, ok := n.lookup(values, FieldEmail); ok {
		in.Email = strings.ToLower(raw)
	}

	in.Address = n.line(values, FieldAddress)
	in.City = n.line(values, FieldCity)
	in.State = n.line(values, FieldState)
	in.Zip = n.line(values, FieldZip)
	in.ReferralSource = n.line(values, FieldReferralSource)
	in.LeadSource = n.line(values, FieldLeadSource)
	in.ProjectType = n.line(values, FieldProjectType)
	if raw, ok := n.lookup(values, FieldNotes); ok {
		notes := sanitize.Clean(raw)
		in.Notes = &notes
	}

	return NormalizedContact{ScopeKey: scope, Contact: in}, nil
}

func (n *Normalizer) line(values map[string]string, f Field) *string {
	raw, ok := n.lookup(values, f)
	if !ok {
		return nil
	}
	v := sanitize.CleanLine(raw)
	if v == "" {
		return nil
	}
	return &v
}

// lookup returns the first non-blank value among f's aliases.
func (n *Normalizer) lookup(values map[string]string, f Field) (string, bool) {
	for _, alias := range n.aliases[f] {
		if v, ok := values[normalizeKey(alias)]; ok {
			return v, true
		}
	}
	return "", false
}

// flatten turns nested objects into dotted keys and normalizes every key.
// Blank values are dropped. When two keys normalize alike, the first in
// sorted order wins.
func flatten(payload map[string]any) map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", payload)
	return out
}

func flattenInto(out map[string]string, prefix string, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		if nested, ok := obj[k].(map[string]any); ok {
			flattenInto(out, key, nested)
			continue
		}

		v, ok := scalarString(obj[k])
		if !ok {
			continue
		}
		nk := normalizeKey(key)
		if _, exists := out[nk]; !exists {
			out[nk] = v
		}
	}
}

func scalarString(v any) (string, bool) {
	var s string
	switch typed := v.(type) {
	case string:
		s = typed
	case json.Number:
		s = typed.String()
	case float64:
		s = strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		s = strconv.Itoa(typed)
	case int64:
		s = strconv.FormatInt(typed, 10)
	case bool:
		s = strconv.FormatBool(typed)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

var keyReplacer = strings.NewReplacer("-", "", "_", "", " ", "")

// normalizeKey lower-cases k and drops '-', '_' and spaces so that
// "postal_code", "postalCode" and "Postal Code" compare equal.
func normalizeKey(k string) string {
	return keyReplacer.Replace(strings.ToLower(k))
}

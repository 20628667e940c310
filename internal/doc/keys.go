package doc

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind names one namespace of the key space.
type Kind string

const (
	KindPatient Kind = "patient"
	KindSection Kind = "section"
	KindDraft   Kind = "draft"
	KindAudit   Kind = "audit"
)

const sep = ":"

// Key builds the key for kind and parts. Each part is NFC-normalized and
// query-escaped, so visually identical ids map to one key and a ':' inside an
// id can never be mistaken for a separator.
func Key(kind Kind, parts ...string) string {
	var b strings.Builder
	b.WriteString(string(kind))
	for _, p := range parts {
		b.WriteString(sep)
		b.WriteString(escape(p))
	}
	return b.String()
}

// Prefix returns the prefix shared by every key of kind whose leading parts
// equal parts.
func Prefix(kind Kind, parts ...string) string {
	return Key(kind, parts...) + sep
}

// PatientKey is the key of a patient record.
func PatientKey(patientID string) string {
	return Key(KindPatient, patientID)
}

// SectionKey is the key of a patient's section, list or document.
func SectionKey(patientID, section string) string {
	return Key(KindSection, patientID, section)
}

// DraftKey is the key of a patient's autosaved form.
func DraftKey(patientID, formKey string) string {
	return Key(KindDraft, patientID, formKey)
}

// AuditKey is the key of one audit entry.
func AuditKey(patientID, entryID string) string {
	return Key(KindAudit, patientID, entryID)
}

// LastPart returns the unescaped final component of key.
func LastPart(key string) string {
	i := strings.LastIndex(key, sep)
	raw := key[i+1:]
	s, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return s
}

func escape(part string) string {
	return url.QueryEscape(norm.NFC.String(part))
}

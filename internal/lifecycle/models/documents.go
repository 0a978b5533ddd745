package models

import (
	"strings"
	"time"

	dErrors "certflow/pkg/domain-errors"
)

// DocumentType identifies a kind of supporting document.
type DocumentType string

const (
	DocTradeLicense               DocumentType = "trade_license"
	DocCertificateOfIncorporation DocumentType = "certificate_of_incorporation"
	DocFinancialStatements        DocumentType = "financial_statements"
	DocMemorandumOfAssociation    DocumentType = "memorandum_of_association"
	DocShareholderRegister        DocumentType = "shareholder_register"
	DocTaxRegistration            DocumentType = "tax_registration"
	DocBankStatements             DocumentType = "bank_statements"
	DocAuditReport                DocumentType = "audit_report"
	DocBusinessPlan               DocumentType = "business_plan"
	DocCompliancePolicies         DocumentType = "compliance_policies"
)

// Requirement is how strongly a document type is needed for submission.
type Requirement string

const (
	Required    Requirement = "required"
	Conditional Requirement = "conditional"
	Optional    Requirement = "optional"
)

// DocumentRequirement is one row of the document requirement table.
type DocumentRequirement struct {
	Type        DocumentType
	Label       string
	Requirement Requirement
}

// DocumentRequirements is the fixed requirement table. Only Required rows
// block submission.
var DocumentRequirements = []DocumentRequirement{
	{DocTradeLicense, "Trade license", Required},
	{DocCertificateOfIncorporation, "Certificate of incorporation", Required},
	{DocFinancialStatements, "Financial statements", Required},
	{DocMemorandumOfAssociation, "Memorandum of association", Conditional},
	{DocShareholderRegister, "Shareholder register", Conditional},
	{DocTaxRegistration, "Tax registration", Conditional},
	{DocBankStatements, "Bank statements", Optional},
	{DocAuditReport, "Audit report", Optional},
	{DocBusinessPlan, "Business plan", Optional},
	{DocCompliancePolicies, "Compliance policies", Optional},
}

// ParseDocumentType accepts only types listed in the requirement table.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.TrimSpace(s))
	for _, r := range DocumentRequirements {
		if r.Type == t {
			return t, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown document type: "+s)
}

// DocumentRef points at a file held by external document storage.
type DocumentRef struct {
	Type       DocumentType `json:"type"`
	StorageKey string       `json:"storage_key"`
	FileName   string       `json:"file_name"`
	UploadedAt time.Time    `json:"uploaded_at"`
}

// Validate checks the reference carries enough to locate the file.
func (d DocumentRef) Validate() error {
	if _, err := ParseDocumentType(string(d.Type)); err != nil {
		return err
	}
	if strings.TrimSpace(d.StorageKey) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "storage_key is required")
	}
	return nil
}

// MissingRequiredDocuments returns the required types absent from docs, in
// table order.
func MissingRequiredDocuments(docs []DocumentRef) []DocumentType {
	present := make(map[DocumentType]bool, len(docs))
	for _, d := range docs {
		present[d.Type] = true
	}
	var missing []DocumentType
	for _, r := range DocumentRequirements {
		if r.Requirement == Required && !present[r.Type] {
			missing = append(missing, r.Type)
		}
	}
	return missing
}

package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"certflow/internal/lifecycle/models"
)

// CompleteProfile returns a profile that satisfies every checklist item.
func CompleteProfile() models.Profile {
	return models.Profile{
		Company: models.CompanyInfo{
			Name:     "Gulf Freight Partners",
			Industry: "Logistics",
			Email:    "compliance@gulffreight.test",
			Phone:    "+971 4 555 0100",
			Address:  "Unit 4, Jebel Ali Free Zone",
		},
		Legal: models.LegalInfo{
			RegistrationNumber: "JAFZ-77812",
			Jurisdiction:       "AE-DU",
			LegalForm:          "FZE",
			IncorporationDate:  "2018-03-14",
		},
		Ownership: models.OwnershipInfo{
			Owners:                  []models.Owner{{Name: "Layla Haddad", SharePercent: decimal.NewFromInt(100)}},
			UltimateBeneficialOwner: "Layla Haddad",
		},
		Financial: models.FinancialInfo{
			AnnualRevenue:     decimal.RequireFromString("2450000.00"),
			ReportingCurrency: "AED",
			FiscalYearEnd:     "12-31",
		},
		Operations: models.OperationsInfo{Employees: 38, Description: "Sea and air freight forwarding"},
		Compliance: models.ComplianceInfo{AMLPolicy: true, DeclarationAccepted: true},
	}
}

// RequiredDocuments returns one reference per always-required document type.
func RequiredDocuments(uploadedAt time.Time) []models.DocumentRef {
	var docs []models.DocumentRef
	for _, r := range models.DocumentRequirements {
		if r.Requirement != models.Required {
			continue
		}
		docs = append(docs, models.DocumentRef{
			Type:       r.Type,
			StorageKey: "uploads/" + string(r.Type) + ".pdf",
			FileName:   string(r.Type) + ".pdf",
			UploadedAt: uploadedAt,
		})
	}
	return docs
}

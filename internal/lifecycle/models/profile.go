package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Profile is the SME's self-reported company information, grouped by the
// sections of the readiness checklist.
type Profile struct {
	Company    CompanyInfo    `json:"company"`
	Legal      LegalInfo      `json:"legal"`
	Ownership  OwnershipInfo  `json:"ownership"`
	Financial  FinancialInfo  `json:"financial"`
	Operations OperationsInfo `json:"operations"`
	Compliance ComplianceInfo `json:"compliance"`
}

type CompanyInfo struct {
	Name        string `json:"name"`
	TradingName string `json:"trading_name,omitempty"`
	Industry    string `json:"industry"`
	Website     string `json:"website,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type LegalInfo struct {
	RegistrationNumber string `json:"registration_number"`
	Jurisdiction       string `json:"jurisdiction"`
	LegalForm          string `json:"legal_form"`
	IncorporationDate  string `json:"incorporation_date"`
}

type Owner struct {
	Name         string          `json:"name"`
	SharePercent decimal.Decimal `json:"share_percent"`
}

type OwnershipInfo struct {
	Owners                  []Owner `json:"owners"`
	UltimateBeneficialOwner string  `json:"ultimate_beneficial_owner"`
}

type FinancialInfo struct {
	AnnualRevenue     decimal.Decimal `json:"annual_revenue"`
	ReportingCurrency string          `json:"reporting_currency"`
	FiscalYearEnd     string          `json:"fiscal_year_end"`
	AuditedAccounts   bool            `json:"audited_accounts"`
}

type OperationsInfo struct {
	Employees   int      `json:"employees"`
	Description string   `json:"description"`
	Markets     []string `json:"markets,omitempty"`
}

type ComplianceInfo struct {
	AMLPolicy             bool     `json:"aml_policy"`
	DataProtectionOfficer string   `json:"data_protection_officer,omitempty"`
	Licenses              []string `json:"licenses,omitempty"`
	DeclarationAccepted   bool     `json:"declaration_accepted"`
}

// Normalize trims free-text fields and drops blank list entries.
func (p Profile) Normalize() Profile {
	p.Company.Name = strings.TrimSpace(p.Company.Name)
	p.Company.TradingName = strings.TrimSpace(p.Company.TradingName)
	p.Company.Industry = strings.TrimSpace(p.Company.Industry)
	p.Company.Email = strings.ToLower(strings.TrimSpace(p.Company.Email))
	p.Company.Phone = strings.TrimSpace(p.Company.Phone)
	p.Company.Address = strings.TrimSpace(p.Company.Address)
	p.Legal.RegistrationNumber = strings.TrimSpace(p.Legal.RegistrationNumber)
	p.Legal.Jurisdiction = strings.TrimSpace(p.Legal.Jurisdiction)
	p.Legal.LegalForm = strings.TrimSpace(p.Legal.LegalForm)
	p.Legal.IncorporationDate = strings.TrimSpace(p.Legal.IncorporationDate)
	p.Ownership.UltimateBeneficialOwner = strings.TrimSpace(p.Ownership.UltimateBeneficialOwner)
	p.Financial.ReportingCurrency = strings.ToUpper(strings.TrimSpace(p.Financial.ReportingCurrency))
	p.Financial.FiscalYearEnd = strings.TrimSpace(p.Financial.FiscalYearEnd)
	p.Operations.Description = strings.TrimSpace(p.Operations.Description)
	p.Operations.Markets = compact(p.Operations.Markets)
	p.Compliance.Licenses = compact(p.Compliance.Licenses)

	owners := p.Ownership.Owners[:0:0]
	for _, o := range p.Ownership.Owners {
		o.Name = strings.TrimSpace(o.Name)
		if o.Name != "" {
			owners = append(owners, o)
		}
	}
	p.Ownership.Owners = owners
	return p
}

func compact(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

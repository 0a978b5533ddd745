package models

// Section is one block of the submission readiness checklist.
type Section string

const (
	SectionBasicInfo  Section = "basic_info"
	SectionLegal      Section = "legal_registration"
	SectionOwnership  Section = "ownership"
	SectionFinancial  Section = "financial"
	SectionOperations Section = "business_operations"
	SectionCompliance Section = "compliance"
	SectionDocuments  Section = "documents"
)

// Sections lists checklist sections in display order.
var Sections = []Section{
	SectionBasicInfo, SectionLegal, SectionOwnership, SectionFinancial,
	SectionOperations, SectionCompliance, SectionDocuments,
}

// SectionProgress counts satisfied checklist items in one section.
type SectionProgress struct {
	Section Section `json:"section"`
	Done    int     `json:"done"`
	Total   int     `json:"total"`
}

func (p SectionProgress) Complete() bool { return p.Done == p.Total }

// Completeness is the readiness summary of an application.
type Completeness struct {
	Percent  int               `json:"percent"`
	Sections []SectionProgress `json:"sections"`
}

// Incomplete returns sections that still have open items.
func (c Completeness) Incomplete() []Section {
	var out []Section
	for _, s := range c.Sections {
		if !s.Complete() {
			out = append(out, s.Section)
		}
	}
	return out
}

// Checklist computes completeness from the profile and attached documents.
// Every checklist item weighs the same; Percent rounds down so that 100
// means every item is satisfied.
type Checklist struct{}

func (Checklist) Completeness(app *Application) Completeness {
	p := app.Profile
	items := map[Section][]bool{
		SectionBasicInfo: {
			p.Company.Name != "",
			p.Company.Industry != "",
			p.Company.Email != "",
			p.Company.Phone != "",
			p.Company.Address != "",
		},
		SectionLegal: {
			p.Legal.RegistrationNumber != "",
			p.Legal.Jurisdiction != "",
			p.Legal.LegalForm != "",
			p.Legal.IncorporationDate != "",
		},
		SectionOwnership: {
			len(p.Ownership.Owners) > 0,
			p.Ownership.UltimateBeneficialOwner != "",
		},
		SectionFinancial: {
			p.Financial.AnnualRevenue.IsPositive(),
			p.Financial.ReportingCurrency != "",
			p.Financial.FiscalYearEnd != "",
		},
		SectionOperations: {
			p.Operations.Employees > 0,
			p.Operations.Description != "",
		},
		SectionCompliance: {
			p.Compliance.AMLPolicy,
			p.Compliance.DeclarationAccepted,
		},
	}

	present := make(map[DocumentType]bool, len(app.Documents))
	for _, d := range app.Documents {
		present[d.Type] = true
	}
	for _, r := range DocumentRequirements {
		if r.Requirement == Required {
			items[SectionDocuments] = append(items[SectionDocuments], present[r.Type])
		}
	}

	var c Completeness
	done, total := 0, 0
	for _, section := range Sections {
		sp := SectionProgress{Section: section, Total: len(items[section])}
		for _, ok := range items[section] {
			if ok {
				sp.Done++
			}
		}
		done += sp.Done
		total += sp.Total
		c.Sections = append(c.Sections, sp)
	}
	if total > 0 {
		c.Percent = done * 100 / total
	}
	return c
}

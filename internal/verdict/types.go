package verdict

import "github.com/thelabelsunday/invoice-checker/constants"

// CheckItem is one requirement's evaluation result.
type CheckItem struct {
	Requirement       string                `json:"requirement"`
	Status            constants.CheckStatus `json:"status"`
	FoundValue        *string               `json:"found_value,omitempty"`
	Comment           string                `json:"comment"`
	FixRecommendation *string               `json:"fix_recommendation,omitempty"`
}

// LayoutSuggestion is one section/issue/suggestion triple.
type LayoutSuggestion struct {
	Section    string `json:"section"`
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
}

// ExtractedData is the structured field snapshot for preview display.
// PayPal validations carry it; bank transfers do not ask for it.
type ExtractedData struct {
	SenderName    *string `json:"sender_name,omitempty"`
	SenderAddress *string `json:"sender_address,omitempty"`
	SenderEmail   *string `json:"sender_email,omitempty"`
	SenderPhone   *string `json:"sender_phone,omitempty"`

	InvoiceNumber *string `json:"invoice_number,omitempty"`
	InvoiceDate   *string `json:"invoice_date,omitempty"`
	DueDate       *string `json:"due_date,omitempty"`

	RecipientEmail   *string `json:"recipient_email,omitempty"`
	RecipientCompany *string `json:"recipient_company,omitempty"`
	RecipientAddress *string `json:"recipient_address,omitempty"`

	ServiceDescription *string `json:"service_description,omitempty"`
	Quantity           *string `json:"quantity,omitempty"`
	UnitPrice          *string `json:"unit_price,omitempty"`
	TotalAmount        *string `json:"total_amount,omitempty"`
	Currency           *string `json:"currency,omitempty"`

	CreatorName *string `json:"creator_name,omitempty"`
	ArtistName  *string `json:"artist_name,omitempty"`
	BirthDate   *string `json:"birth_date,omitempty"`
	TaxNumber   *string `json:"tax_number,omitempty"`
	TaxCountry  *string `json:"tax_country,omitempty"`
	VATStatus   *string `json:"vat_status,omitempty"`

	BankName      *string `json:"bank_name,omitempty"`
	IBAN          *string `json:"iban,omitempty"`
	SwiftBIC      *string `json:"swift_bic,omitempty"`
	AccountHolder *string `json:"account_holder,omitempty"`
}

// Verdict is the canonical validation outcome for one document. It is created
// once per validation request and never mutated, only re-rendered.
type Verdict struct {
	OverallStatus     constants.OverallStatus `json:"overall_status"`
	InvoiceType       constants.InvoiceType   `json:"invoice_type"`
	Checks            []CheckItem             `json:"checks"`
	MissingItems      []string                `json:"missing_items"`
	Warnings          []string                `json:"warnings"`
	LayoutSuggestions []LayoutSuggestion      `json:"layout_suggestions"`
	Summary           string                  `json:"summary"`
	ExtractedData     *ExtractedData          `json:"extracted_data,omitempty"`
}

// normalize replaces nil collections with empty ones so the verdict always
// marshals JSON arrays, never null.
func (v *Verdict) normalize() {
	if v.Checks == nil {
		v.Checks = []CheckItem{}
	}
	if v.MissingItems == nil {
		v.MissingItems = []string{}
	}
	if v.Warnings == nil {
		v.Warnings = []string{}
	}
	if v.LayoutSuggestions == nil {
		v.LayoutSuggestions = []LayoutSuggestion{}
	}
}

// CountByStatus returns how many checks carry the given status.
func (v Verdict) CountByStatus(s constants.CheckStatus) int {
	n := 0
	for _, c := range v.Checks {
		if c.Status == s {
			n++
		}
	}
	return n
}

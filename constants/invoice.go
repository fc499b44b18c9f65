package constants

// InvoiceType is the closed set of invoice kinds the checker understands.
type InvoiceType string

// Stable values (these exact strings appear in API payloads and history rows).
const (
	InvoiceTypePayPal       InvoiceType = "paypal"
	InvoiceTypeBankTransfer InvoiceType = "bank_transfer"
)

// Language selects the language of all human-readable verdict text.
type Language string

const (
	LanguageDanish  Language = "da"
	LanguageEnglish Language = "en"
)

// CheckStatus is the per-requirement evaluation outcome.
type CheckStatus string

const (
	CheckPresent CheckStatus = "present"
	CheckMissing CheckStatus = "missing"
	CheckUnclear CheckStatus = "unclear"
)

// OverallStatus is the verdict for the whole document.
type OverallStatus string

const (
	StatusApproved           OverallStatus = "approved"
	StatusMissingInformation OverallStatus = "missing_information"
	StatusInvalid            OverallStatus = "invalid"
)

// ParseInvoiceType validates a raw selector against the closed set.
func ParseInvoiceType(s string) (InvoiceType, bool) {
	switch InvoiceType(s) {
	case InvoiceTypePayPal, InvoiceTypeBankTransfer:
		return InvoiceType(s), true
	}
	return "", false
}

// ParseLanguage validates a raw selector against the closed set.
func ParseLanguage(s string) (Language, bool) {
	switch Language(s) {
	case LanguageDanish, LanguageEnglish:
		return Language(s), true
	}
	return "", false
}

// ParseCheckStatus validates a status string coming back from the AI service.
func ParseCheckStatus(s string) (CheckStatus, bool) {
	switch CheckStatus(s) {
	case CheckPresent, CheckMissing, CheckUnclear:
		return CheckStatus(s), true
	}
	return "", false
}

// ParseOverallStatus validates an overall status coming back from the AI service.
func ParseOverallStatus(s string) (OverallStatus, bool) {
	switch OverallStatus(s) {
	case StatusApproved, StatusMissingInformation, StatusInvalid:
		return OverallStatus(s), true
	}
	return "", false
}

// TypeLabel is the display label used in chat messages and history rows.
func TypeLabel(t InvoiceType) string {
	if t == InvoiceTypeBankTransfer {
		return "Bankoverførsel"
	}
	return "PayPal faktura"
}

package domain

// BRCodeType classifies a decoded BR Code by how the payment is settled.
type BRCodeType string

const (
	BRCodeStatic                    BRCodeType = "static"
	BRCodeDynamicImmediate          BRCodeType = "dynamic_payment_immediate"
	BRCodeDynamicWithDueDate        BRCodeType = "dynamic_payment_with_due_date"
)

// MerchantAccountInformation is tag 26 of a BR Code. Exactly one of Chave
// (static) or URL (dynamic) is populated once validation succeeds.
type MerchantAccountInformation struct {
	GUI            string `json:"gui"`
	Chave          string `json:"chave,omitempty"`
	URL            string `json:"url,omitempty"`
	InfoAdicional  string `json:"info_adicional,omitempty"`
}

// AdditionalDataFieldTemplate is tag 62 of a BR Code.
type AdditionalDataFieldTemplate struct {
	ReferenceLabel string `json:"reference_label"`
}

// BRCode is the fully validated, classified BR-Code payload.
type BRCode struct {
	PayloadFormatIndicator     string                      `json:"payload_format_indicator"`
	PointOfInitiationMethod    string                      `json:"point_of_initiation_method,omitempty"`
	MerchantAccountInformation MerchantAccountInformation  `json:"merchant_account_information"`
	MerchantCategoryCode       string                      `json:"merchant_category_code"`
	TransactionCurrency        string                      `json:"transaction_currency"`
	TransactionAmount          string                      `json:"transaction_amount,omitempty"`
	CountryCode                string                      `json:"country_code"`
	MerchantName               string                      `json:"merchant_name"`
	MerchantCity               string                      `json:"merchant_city"`
	PostalCode                 string                      `json:"postal_code,omitempty"`
	AdditionalDataFieldTemplate AdditionalDataFieldTemplate `json:"additional_data_field_template"`
	CRC                        string                      `json:"crc"`
	Type                       BRCodeType                  `json:"type"`
}

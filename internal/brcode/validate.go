package brcode

import (
	"net/url"
	"strings"

	"github.com/boddenberg/pix-br-code/internal/domain"
)

type validator struct {
	errs []*domain.ErrValidation
}

func (v *validator) fail(field, message string) {
	v.errs = append(v.errs, &domain.ErrValidation{Field: field, Message: message})
}

// Validate casts a decoded mapping (as produced by Decode) into the BRCode
// shape, accumulating every field error before returning, and classifies
// the result as static / dynamic_payment_immediate / dynamic_payment_with_due_date.
func Validate(m map[string]any) (*domain.BRCode, error) {
	v := &validator{}
	code := &domain.BRCode{}

	pfi, _ := m["payload_format_indicator"].(string)
	if pfi != "01" {
		v.fail("payload_format_indicator", `must equal "01"`)
	}
	code.PayloadFormatIndicator = pfi

	if raw, present := m["point_of_initiation_method"]; present {
		poim, _ := raw.(string)
		if poim != "12" {
			v.fail("point_of_initiation_method", `must equal "12" when present`)
		}
		code.PointOfInitiationMethod = poim
	}

	if raw, present := m["merchant_account_information"]; !present {
		v.fail("merchant_account_information", "is required")
	} else if mai, ok := raw.(map[string]string); !ok {
		v.fail("merchant_account_information", "must be a nested mapping")
	} else {
		code.MerchantAccountInformation = validateMAI(mai, v)
	}

	mcc, _ := m["merchant_category_code"].(string)
	if mcc == "" {
		mcc = "0000"
	}
	if len(mcc) != 4 || !isDigits(mcc) {
		v.fail("merchant_category_code", "must be 4 digits")
	}
	code.MerchantCategoryCode = mcc

	cur, _ := m["transaction_currency"].(string)
	if cur != "986" {
		v.fail("transaction_currency", `must equal "986"`)
	}
	code.TransactionCurrency = cur

	if raw, present := m["transaction_amount"]; present {
		code.TransactionAmount, _ = raw.(string)
	}

	cc, _ := m["country_code"].(string)
	if cc != "BR" {
		v.fail("country_code", `must equal "BR"`)
	}
	code.CountryCode = cc

	name, present := m["merchant_name"].(string)
	if !present || name == "" {
		v.fail("merchant_name", "is required")
	}
	code.MerchantName = name

	city, present := m["merchant_city"].(string)
	if !present || city == "" {
		v.fail("merchant_city", "is required")
	}
	code.MerchantCity = city

	if raw, present := m["postal_code"]; present {
		pc, _ := raw.(string)
		if len(pc) != 8 {
			v.fail("postal_code", "must have length 8 when present")
		}
		code.PostalCode = pc
	}

	if raw, present := m["additional_data_field_template"]; !present {
		v.fail("additional_data_field_template", "is required")
	} else if adft, ok := raw.(map[string]string); !ok {
		v.fail("additional_data_field_template", "must be a nested mapping")
	} else {
		rl := adft["reference_label"]
		if len(rl) < 1 || len(rl) > 25 {
			v.fail("additional_data_field_template.reference_label", "must have length 1..25")
		}
		code.AdditionalDataFieldTemplate = domain.AdditionalDataFieldTemplate{ReferenceLabel: rl}
	}

	code.CRC, _ = m["crc"].(string)

	if len(v.errs) > 0 {
		return nil, &domain.ErrValidationSet{Schema: "BRCode", Errors: v.errs}
	}

	code.Type = classify(code.MerchantAccountInformation)
	return code, nil
}

func classify(mai domain.MerchantAccountInformation) domain.BRCodeType {
	switch {
	case mai.Chave != "":
		return domain.BRCodeStatic
	case mai.URL != "" && strings.HasSuffix(strings.ToLower(mai.URL), "/cobv"):
		return domain.BRCodeDynamicWithDueDate
	case mai.URL != "":
		return domain.BRCodeDynamicImmediate
	default:
		return ""
	}
}

func validateMAI(mai map[string]string, v *validator) domain.MerchantAccountInformation {
	gui := mai["gui"]
	if gui != "br.gov.bcb.pix" && gui != "BR.GOV.BCB.PIX" {
		v.fail("merchant_account_information.gui", `must be "br.gov.bcb.pix" or "BR.GOV.BCB.PIX"`)
	}

	chave, hasChave := mai["chave"]
	rawURL, hasURL := mai["url"]
	infoAdicional, hasInfo := mai["info_adicional"]

	if hasChave == hasURL {
		v.fail("merchant_account_information", "exactly one of chave or url must be present")
	}

	if hasURL && hasInfo {
		v.fail("merchant_account_information", "info_adicional not allowed together with url")
	}

	if hasChave {
		if len(chave) < 1 || len(chave) > 77 {
			v.fail("merchant_account_information.chave", "length must be 1..77")
		}
		if hasInfo && (len(infoAdicional) < 1 || len(infoAdicional) > 72) {
			v.fail("merchant_account_information.info_adicional", "length must be 1..72")
		}
		if len(chave)+len(infoAdicional) > 99 {
			v.fail("merchant_account_information", "chave + info_adicional length must be <= 99")
		}
	}

	if hasURL {
		if len(rawURL) < 1 || len(rawURL) > 77 {
			v.fail("merchant_account_information.url", "length must be 1..77")
		}
		u, err := url.Parse("https://" + rawURL)
		if err != nil {
			v.fail("merchant_account_information.url", "must parse as a valid URL")
		} else {
			segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
			if len(segments) < 2 {
				v.fail("merchant_account_information.url", "path must have at least two non-root segments")
			}
		}
	}

	return domain.MerchantAccountInformation{
		GUI:           gui,
		Chave:         chave,
		URL:           rawURL,
		InfoAdicional: infoAdicional,
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

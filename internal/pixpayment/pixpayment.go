// Package pixpayment casts and validates the JSON body of a dynamic PIX
// payment document, the payload a PIX loader ends up with once a JWS
// signature has checked out.
package pixpayment

import (
	"fmt"
	"time"

	"github.com/boddenberg/pix-br-code/internal/document"
	"github.com/boddenberg/pix-br-code/internal/domain"
)

var validStatuses = map[string]domain.PixPaymentStatus{
	"ATIVA":                           domain.StatusAtiva,
	"CONCLUIDA":                       domain.StatusConcluida,
	"REMOVIDA_PELO_USUARIO_RECEBEDOR": domain.StatusRemovidaPeloUsuarioRecebedor,
	"REMOVIDA_PELO_PSP":               domain.StatusRemovidaPeloPSP,
}

// Validate casts a decoded JSON object into a domain.PixPayment.
func Validate(raw map[string]any) (*domain.PixPayment, error) {
	v := &validator{}
	p := &domain.PixPayment{}

	if rev, ok := numberOf(raw["revisao"]); !ok || rev < 0 {
		v.fail("revisao", "must be a non-negative integer")
	} else {
		p.Revisao = int(rev)
	}

	p.Chave, _ = raw["chave"].(string)
	if p.Chave == "" {
		v.fail("chave", "is required")
	}

	p.TxID, _ = raw["txid"].(string)
	if len(p.TxID) < 26 || len(p.TxID) > 35 {
		v.fail("txid", "length must be 26..35")
	}

	statusRaw, _ := raw["status"].(string)
	if status, ok := validStatuses[statusRaw]; !ok {
		v.fail("status", "must be one of ATIVA, CONCLUIDA, REMOVIDA_PELO_USUARIO_RECEBEDOR, REMOVIDA_PELO_PSP")
	} else {
		p.Status = status
	}

	if raw, present := raw["solicitacaoPagador"]; present {
		s, _ := raw.(string)
		if len(s) > 140 {
			v.fail("solicitacaoPagador", "length must be <= 140")
		}
		p.SolicitacaoPagador = s
	}

	if cal, ok := raw["calendario"].(map[string]any); !ok {
		v.fail("calendario", "is required")
	} else {
		p.Calendario = validateCalendario(cal, v)
	}

	if dev, present := raw["devedor"]; present && dev != nil {
		if devMap, ok := dev.(map[string]any); !ok {
			v.fail("devedor", "must be an object")
		} else {
			devedor, err := validateDevedor(devMap, v)
			if err != nil {
				return nil, err
			}
			p.Devedor = devedor
		}
	}

	if val, ok := raw["valor"].(map[string]any); !ok {
		v.fail("valor", "is required")
	} else {
		original, _ := val["original"].(string)
		amount, err := parseDecimal(original)
		if err != nil || amount <= 0 {
			v.fail("valor.original", "must be a decimal greater than 0")
		}
		p.Valor = domain.Valor{Original: original}
	}

	p.InfoAdicionais = validateInfoAdicionais(raw["infoAdicionais"], v)

	if len(v.errs) > 0 {
		return nil, &domain.ErrValidationSet{Schema: "PixPayment", Errors: v.errs}
	}
	return p, nil
}

func validateCalendario(cal map[string]any, v *validator) domain.Calendario {
	c := domain.Calendario{Expiracao: 86400}

	criacao, ok := parseTimestamp(cal["criacao"])
	if !ok {
		v.fail("calendario.criacao", "is required and must be an RFC3339 timestamp")
	}
	c.Criacao = criacao

	apresentacao, ok := parseTimestamp(cal["apresentacao"])
	if !ok {
		v.fail("calendario.apresentacao", "is required and must be an RFC3339 timestamp")
	}
	c.Apresentacao = apresentacao

	if raw, present := cal["expiracao"]; present {
		n, ok := numberOf(raw)
		if !ok || n < 0 {
			v.fail("calendario.expiracao", "must be a non-negative integer when present")
		} else {
			c.Expiracao = int(n)
		}
	}
	return c
}

// validateDevedor enforces exactly-one-of cpf/cnpj by field name, never by
// digit length, and runs the matching mod-11 check. A failed check-digit
// validation is reported as *domain.ErrDocumentChecksum rather than
// accumulated as a field error, since it gets its own HTTP status mapping.
func validateDevedor(dev map[string]any, v *validator) (*domain.Devedor, error) {
	d := &domain.Devedor{}
	d.Nome, _ = dev["nome"].(string)

	cpf, hasCPF := dev["cpf"].(string)
	cnpj, hasCNPJ := dev["cnpj"].(string)

	if hasCPF == hasCNPJ {
		v.fail("devedor", "exactly one of cpf or cnpj must be present")
		return d, nil
	}

	if hasCPF {
		if !document.ValidCPF(cpf) {
			return nil, &domain.ErrDocumentChecksum{Kind: "cpf", Value: cpf}
		}
		d.CPF = cpf
	} else {
		if !document.ValidCNPJ(cnpj) {
			return nil, &domain.ErrDocumentChecksum{Kind: "cnpj", Value: cnpj}
		}
		d.CNPJ = cnpj
	}
	return d, nil
}

// validateInfoAdicionais coerces an explicit null (or absent key) to an
// empty list, rather than leaving it nil, per the payload's normalization
// rule.
func validateInfoAdicionais(raw any, v *validator) []domain.InfoAdicional {
	out := []domain.InfoAdicional{}
	if raw == nil {
		return out
	}
	arr, ok := raw.([]any)
	if !ok {
		v.fail("infoAdicionais", "must be an array when present")
		return out
	}
	for i, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			v.fail(fmt.Sprintf("infoAdicionais[%d]", i), "must be an object")
			continue
		}
		nome, _ := m["nome"].(string)
		valor, _ := m["valor"].(string)
		if nome == "" {
			v.fail(fmt.Sprintf("infoAdicionais[%d].nome", i), "is required")
		}
		out = append(out, domain.InfoAdicional{Nome: nome, Valor: valor})
	}
	return out
}

func parseTimestamp(raw any) (time.Time, bool) {
	s, ok := raw.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func numberOf(raw any) (float64, bool) {
	n, ok := raw.(float64)
	return n, ok
}

func parseDecimal(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}

type validator struct {
	errs []*domain.ErrValidation
}

func (v *validator) fail(field, message string) {
	v.errs = append(v.errs, &domain.ErrValidation{Field: field, Message: message})
}

package pixpayment_test

import (
	"testing"

	"github.com/boddenberg/pix-br-code/internal/domain"
	"github.com/boddenberg/pix-br-code/internal/pixpayment"
)

func baseValidPayment() map[string]any {
	return map[string]any{
		"revisao": float64(0),
		"chave":   "123e4567-e12b-12d1-a456-426655440000",
		"txid":    "ABC1234567890123456789012345",
		"status":  "ATIVA",
		"calendario": map[string]any{
			"criacao":      "2026-08-01T10:00:00Z",
			"apresentacao": "2026-08-01T10:00:00Z",
		},
		"valor": map[string]any{"original": "10.50"},
	}
}

func TestValidate_MinimalPayment(t *testing.T) {
	p, err := pixpayment.Validate(baseValidPayment())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Calendario.Expiracao != 86400 {
		t.Errorf("expiracao default = %d, want 86400", p.Calendario.Expiracao)
	}
	if p.InfoAdicionais == nil || len(p.InfoAdicionais) != 0 {
		t.Errorf("infoAdicionais = %v, want empty non-nil slice", p.InfoAdicionais)
	}
}

func TestValidate_NullInfoAdicionaisCoercedToEmpty(t *testing.T) {
	m := baseValidPayment()
	m["infoAdicionais"] = nil
	p, err := pixpayment.Validate(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.InfoAdicionais) != 0 {
		t.Errorf("expected empty infoAdicionais, got %v", p.InfoAdicionais)
	}
}

func TestValidate_InvalidStatusRejected(t *testing.T) {
	m := baseValidPayment()
	m["status"] = "BOGUS"
	if _, err := pixpayment.Validate(m); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestValidate_TxIDLengthBounds(t *testing.T) {
	m := baseValidPayment()
	m["txid"] = "tooshort"
	if _, err := pixpayment.Validate(m); err == nil {
		t.Fatal("expected error for too-short txid")
	}
}

func TestValidate_DevedorWithValidCPF(t *testing.T) {
	m := baseValidPayment()
	m["devedor"] = map[string]any{"nome": "Fulano", "cpf": "111.444.777-35"}
	p, err := pixpayment.Validate(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Devedor == nil || p.Devedor.CPF != "111.444.777-35" {
		t.Errorf("unexpected devedor: %+v", p.Devedor)
	}
}

func TestValidate_DevedorWithInvalidCNPJRejected(t *testing.T) {
	m := baseValidPayment()
	m["devedor"] = map[string]any{"nome": "Empresa", "cnpj": "11.222.333/0001-99"}
	_, err := pixpayment.Validate(m)
	dc, ok := err.(*domain.ErrDocumentChecksum)
	if !ok {
		t.Fatalf("expected *domain.ErrDocumentChecksum, got %v (%T)", err, err)
	}
	if dc.Kind != "cnpj" {
		t.Errorf("kind = %q, want cnpj", dc.Kind)
	}
}

func TestValidate_DevedorWithBothCPFAndCNPJRejected(t *testing.T) {
	m := baseValidPayment()
	m["devedor"] = map[string]any{
		"nome": "X",
		"cpf":  "111.444.777-35",
		"cnpj": "11.222.333/0001-81",
	}
	if _, err := pixpayment.Validate(m); err == nil {
		t.Fatal("expected error when both cpf and cnpj are present")
	}
}

func TestValidate_ZeroAmountRejected(t *testing.T) {
	m := baseValidPayment()
	m["valor"] = map[string]any{"original": "0"}
	if _, err := pixpayment.Validate(m); err == nil {
		t.Fatal("expected error for zero amount")
	}
}

func TestValidate_MissingCalendarioFieldsAccumulate(t *testing.T) {
	m := baseValidPayment()
	m["calendario"] = map[string]any{}
	_, err := pixpayment.Validate(m)
	set, ok := err.(*domain.ErrValidationSet)
	if !ok || len(set.Errors) != 2 {
		t.Fatalf("expected a validation set with criacao and apresentacao errors, got %v", err)
	}
}

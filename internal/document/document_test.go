package document_test

import (
	"testing"

	"github.com/boddenberg/pix-br-code/internal/document"
)

func TestValidCPF(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"111.444.777-35", true},
		{"11144477735", true},
		{"111.444.777-36", false},
		{"00000000000", false},
		{"123", false},
	}
	for _, c := range cases {
		if got := document.ValidCPF(c.value); got != c.want {
			t.Errorf("ValidCPF(%q) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestValidCNPJ(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"11.222.333/0001-81", true},
		{"11222333000181", true},
		{"11.222.333/0001-82", false},
		{"00000000000000", false},
		{"123", false},
	}
	for _, c := range cases {
		if got := document.ValidCNPJ(c.value); got != c.want {
			t.Errorf("ValidCNPJ(%q) = %v, want %v", c.value, got, c.want)
		}
	}
}

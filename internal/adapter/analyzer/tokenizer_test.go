package analyzer

import (
	"reflect"
	"testing"
)

func TestTerms(t *testing.T) {
	tok := NewTokenizer()

	terms := tok.Terms("The vacation policy covers the whole team")
	want := []string{"vacation", "policy", "covers", "whole", "team"}
	if !reflect.DeepEqual(terms, want) {
		t.Errorf("got %v, want %v", terms, want)
	}
}

func TestTermsDropsShortAndStopwords(t *testing.T) {
	tok := NewTokenizer()

	terms := tok.Terms("a an I to of it is x")
	if len(terms) != 0 {
		t.Errorf("expected no terms, got %v", terms)
	}
}

func TestQueryTermsDistinctAndCapped(t *testing.T) {
	tok := NewTokenizer()

	terms := tok.QueryTerms("payroll payroll benefits payroll leave vacation insurance salary", 3)
	if len(terms) != 3 {
		t.Fatalf("got %d terms, want 3", len(terms))
	}
	if terms[0] != "payroll" || terms[1] != "benefits" || terms[2] != "leave" {
		t.Errorf("got %v", terms)
	}
}

func TestQueryTermsUnlimited(t *testing.T) {
	tok := NewTokenizer()

	terms := tok.QueryTerms("alpha beta gamma delta", 0)
	if len(terms) != 4 {
		t.Errorf("got %v", terms)
	}
}

func TestOverlap(t *testing.T) {
	tok := NewTokenizer()

	query := tok.QueryTerms("vacation days carryover", 0)
	n := tok.Overlap(query, "Unused vacation days expire in March.")
	if n != 2 {
		t.Errorf("overlap %d, want 2", n)
	}

	if tok.Overlap(query, "completely unrelated content") != 0 {
		t.Error("expected zero overlap")
	}
}

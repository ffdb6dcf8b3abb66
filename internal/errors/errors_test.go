package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestDataErrorChain(t *testing.T) {
	err := NewDataError("chain", "NIFTY", "no contracts", ErrEmptyChain)

	if !Is(err, ErrEmptyChain) {
		t.Error("sentinel not found through DataError")
	}
	var de *DataError
	if !As(err, &de) {
		t.Fatal("As failed for DataError")
	}
	if de.Symbol != "NIFTY" || de.DataType != "chain" {
		t.Errorf("fields = %q %q, want NIFTY chain", de.Symbol, de.DataType)
	}
	for _, part := range []string{"chain", "NIFTY", "no contracts", ErrEmptyChain.Error()} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("message %q missing %q", err.Error(), part)
		}
	}
}

func TestDataErrorWithoutCause(t *testing.T) {
	err := NewDataError("market", "NIFTY", "stale quote", nil)
	if err.Unwrap() != nil {
		t.Error("Unwrap should be nil without a cause")
	}
	if strings.Contains(err.Error(), "<nil>") {
		t.Errorf("message %q leaks nil cause", err.Error())
	}
}

func TestAnalysisErrorChain(t *testing.T) {
	err := Wrap(NewAnalysisError("strategy", "NIFTY", "optimize", ErrInsufficientLiquidity), "scanning")

	if !Is(err, ErrInsufficientLiquidity) {
		t.Error("sentinel not found through wrapped AnalysisError")
	}
	var ae *AnalysisError
	if !As(err, &ae) {
		t.Fatal("As failed through the wrap layer")
	}
	if ae.Engine != "strategy" || ae.Operation != "optimize" {
		t.Errorf("fields = %q %q, want strategy optimize", ae.Engine, ae.Operation)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}

func TestWrapfFormatting(t *testing.T) {
	err := Wrapf(ErrSymbolNotFound, "fetching %s", "NIFTY")
	if !Is(err, ErrSymbolNotFound) {
		t.Error("sentinel lost through Wrapf")
	}
	if want := "fetching NIFTY"; !strings.Contains(err.Error(), want) {
		t.Errorf("message %q missing %q", err.Error(), want)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("spot", -5.0, "must be positive")
	var ve *ValidationError
	if !As(fmt.Errorf("simulating: %w", err), &ve) {
		t.Fatal("As failed for wrapped ValidationError")
	}
	if ve.Field != "spot" {
		t.Errorf("field = %q, want spot", ve.Field)
	}
}

func TestRiskErrorMessage(t *testing.T) {
	err := NewRiskError("max_delta", 620, 500, "net delta over cap")
	msg := err.Error()
	for _, part := range []string{"max_delta", "620.00", "500.00"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q missing %q", msg, part)
		}
	}
}

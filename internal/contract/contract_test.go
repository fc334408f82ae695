package contract

import (
	"context"
	"errors"
	"testing"
)

func loadContract(t *testing.T) *Contract {
	t.Helper()
	c, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return c
}

func TestValidatePredictRequest(t *testing.T) {
	c := loadContract(t)

	valid := `{"CRIM":0,"ZN":0,"INDUS":0,"CHAS":0,"NOX":0,"RM":6,"AGE":65,"DIS":4,"RAD":1,"TAX":300,"PTRATIO":15,"B":390,"LSTAT":5}`
	if err := c.ValidateRequest("POST", "/predict", []byte(valid)); err != nil {
		t.Errorf("Expected valid request, got %v", err)
	}

	tests := map[string]string{
		"missing key": `{"CRIM":0}`,
		"extra key":   `{"CRIM":0,"ZN":0,"INDUS":0,"CHAS":0,"NOX":0,"RM":6,"AGE":65,"DIS":4,"RAD":1,"TAX":300,"PTRATIO":15,"B":390,"LSTAT":5,"MEDV":1}`,
		"null value":  `{"CRIM":null,"ZN":0,"INDUS":0,"CHAS":0,"NOX":0,"RM":6,"AGE":65,"DIS":4,"RAD":1,"TAX":300,"PTRATIO":15,"B":390,"LSTAT":5}`,
		"not json":    `NaN`,
	}
	for name, body := range tests {
		if err := c.ValidateRequest("POST", "/predict", []byte(body)); !errors.Is(err, ErrViolation) {
			t.Errorf("%s: expected ErrViolation, got %v", name, err)
		}
	}
}

func TestValidatePredictResponse(t *testing.T) {
	c := loadContract(t)

	if err := c.ValidateResponse("POST", "/predict", 200, []byte(`{"price": 24.5}`)); err != nil {
		t.Errorf("Expected valid response, got %v", err)
	}
	if err := c.ValidateResponse("POST", "/predict", 200, []byte(`{"prize": 24.5}`)); !errors.Is(err, ErrViolation) {
		t.Errorf("Expected ErrViolation for missing price, got %v", err)
	}
	if err := c.ValidateResponse("POST", "/predict", 200, []byte(`{"price": "24.5"}`)); !errors.Is(err, ErrViolation) {
		t.Errorf("Expected ErrViolation for string price, got %v", err)
	}
	if err := c.ValidateResponse("POST", "/predict", 500, []byte(`{"error": "boom"}`)); err != nil {
		t.Errorf("Expected default response to accept error body, got %v", err)
	}
}

func TestValidateAreaResponses(t *testing.T) {
	c := loadContract(t)

	if err := c.ValidateResponse("GET", "/areas", 200, []byte(`{"rads":[1,2,24]}`)); err != nil {
		t.Errorf("Expected valid areas response, got %v", err)
	}
	stats := `{"count":3,"mean":22.1,"median":21.0,"std":1.5,"sample":[21.0,22.0,23.3]}`
	if err := c.ValidateResponse("GET", "/area/{rad}", 200, []byte(stats)); err != nil {
		t.Errorf("Expected valid stats response, got %v", err)
	}
	if err := c.ValidateResponse("GET", "/area/{rad}", 404, []byte(`{"error":"x"}`)); !errors.Is(err, ErrViolation) {
		t.Errorf("Expected undeclared status to be a violation, got %v", err)
	}
}

func TestUnknownOperation(t *testing.T) {
	c := loadContract(t)
	if err := c.ValidateRequest("GET", "/predict", nil); err == nil {
		t.Error("Expected error for undeclared method")
	}
	if err := c.ValidateRequest("POST", "/train", nil); err == nil {
		t.Error("Expected error for unknown path")
	}
}

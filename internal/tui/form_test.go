package tui

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kartoza/boston-price/internal/features"
)

type stubDriver struct {
	inputs     []string
	selectIdx  []int
	confirm    []bool
	info       []string
	inputPos   int
	selectPos  int
	confirmPos int
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.info = append(s.info, msg)
	return nil
}

// Field order: CRIM NOX TAX PTRATIO B LSTAT RM AGE DIS are text inputs,
// CHAS RAD ZN are selects, INDUS is a text input.
var scenarioInputs = []string{"0", "0", "300", "15", "390", "5", "6", "65", "4", "0"}
var scenarioSelects = []int{0, 1, 0}

func TestRunScenario(t *testing.T) {
	driver := &stubDriver{
		inputs:    scenarioInputs,
		selectIdx: scenarioSelects,
		confirm:   []bool{false},
	}

	var sent features.InputVector
	runner := NewRunner(driver, func(_ context.Context, in features.InputVector) (float64, error) {
		sent = in
		return 24.5, nil
	})

	st, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := map[features.Key]float64{
		features.CRIM: 0, features.ZN: 0, features.INDUS: 0, features.CHAS: 0,
		features.NOX: 0, features.RM: 6, features.AGE: 65, features.DIS: 4,
		features.RAD: 1, features.TAX: 300, features.PTRATIO: 15, features.B: 390,
		features.LSTAT: 5,
	}
	for k, v := range want {
		if sent.Get(k) != v {
			t.Errorf("Sent %s=%v, want %v", k, sent.Get(k), v)
		}
	}
	if st.Display() != "24.50" {
		t.Errorf("Expected 24.50, got %q", st.Display())
	}
	if len(driver.info) != 1 || driver.info[0] != "Predicted Price: $24.50" {
		t.Errorf("Unexpected output: %v", driver.info)
	}
}

func TestRunFailureThenRetry(t *testing.T) {
	driver := &stubDriver{
		inputs:    append(append([]string{}, scenarioInputs...), "7"),
		selectIdx: append(append([]int{}, scenarioSelects...), 6),
		confirm:   []bool{true, false},
	}

	calls := 0
	runner := NewRunner(driver, func(_ context.Context, in features.InputVector) (float64, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("service down")
		}
		return in.Get(features.RM) * 4, nil
	})

	st, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if st.Inputs.Get(features.RM) != 7 {
		t.Errorf("Expected edited RM=7, got %v", st.Inputs.Get(features.RM))
	}
	if st.Display() != "28.00" {
		t.Errorf("Expected 28.00, got %q", st.Display())
	}
	want := []string{"Error predicting price", "Predicted Price: $28.00"}
	if len(driver.info) != 2 || driver.info[0] != want[0] || driver.info[1] != want[1] {
		t.Errorf("Unexpected output: %v", driver.info)
	}
}

func TestEmptyAnswerStoresNaN(t *testing.T) {
	inputs := append([]string{}, scenarioInputs...)
	inputs[6] = "" // RM
	driver := &stubDriver{inputs: inputs, selectIdx: scenarioSelects, confirm: []bool{false}}

	runner := NewRunner(driver, func(_ context.Context, in features.InputVector) (float64, error) {
		if err := in.CheckFinite(); err != nil {
			return 0, err
		}
		return 1, nil
	})

	st, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !math.IsNaN(st.Inputs.Get(features.RM)) {
		t.Errorf("Expected NaN for empty RM, got %v", st.Inputs.Get(features.RM))
	}
	if st.HasPrice {
		t.Error("Expected no price after failed prediction")
	}
}

func TestRunAborted(t *testing.T) {
	driver := &stubDriver{}
	runner := NewRunner(driver, func(context.Context, features.InputVector) (float64, error) {
		t.Error("predict must not be called")
		return 0, nil
	})
	if _, err := runner.Run(context.Background()); err == nil {
		t.Error("Expected error when the first prompt fails")
	}
}

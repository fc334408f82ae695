// Package tui runs the price form in a terminal.
package tui

import (
	"context"
	"errors"
	"strconv"

	"github.com/kartoza/boston-price/internal/features"
	"github.com/kartoza/boston-price/internal/form"
)

const failureNotice = "Error predicting price"

// Runner drives one terminal form session
type Runner struct {
	driver  PromptDriver
	predict form.PredictFunc
}

// NewRunner creates a runner prompting through driver and predicting with
// predict
func NewRunner(driver PromptDriver, predict form.PredictFunc) *Runner {
	return &Runner{driver: driver, predict: predict}
}

// Run asks for every field, predicts, and then lets the user edit single
// fields and predict again until they decline. It returns the final state.
func (r *Runner) Run(ctx context.Context) (form.State, error) {
	st := form.New()

	var err error
	for _, f := range features.Fields() {
		if st, err = r.askField(ctx, st, f); err != nil {
			return st, err
		}
	}

	for {
		st = r.runPredict(ctx, st)

		again, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Edit a field and predict again?"})
		if err != nil {
			return st, err
		}
		if !again {
			return st, nil
		}

		f, err := r.pickField(ctx)
		if err != nil {
			return st, err
		}
		if st, err = r.askField(ctx, st, f); err != nil {
			return st, err
		}
	}
}

func (r *Runner) runPredict(ctx context.Context, st form.State) form.State {
	st, err := form.BeginPredict(st)
	if err != nil {
		return st
	}

	price, err := r.predict(ctx, st.Inputs)
	if err != nil {
		st = form.FailPredict(st)
		r.driver.Info(ctx, failureNotice)
		return st
	}
	st = form.FinishPredict(st, price)
	r.driver.Info(ctx, "Predicted Price: $"+st.Display())
	return st
}

func (r *Runner) pickField(ctx context.Context) (features.Field, error) {
	fields := features.Fields()
	options := make([]string, len(fields))
	for i, f := range fields {
		options[i] = f.Label + " (" + string(f.Key) + ")"
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: "Field", Options: options, PageSize: len(options)})
	if err != nil {
		return features.Field{}, err
	}
	if idx < 0 || idx >= len(fields) {
		return features.Field{}, errors.New("tui: no field selected")
	}
	return fields[idx], nil
}

// askField prompts for one field and stores the answer. Select fields map
// the chosen option to its value; other fields take free text coerced like
// a browser number input, so an empty answer stores NaN.
func (r *Runner) askField(ctx context.Context, st form.State, f features.Field) (form.State, error) {
	current := st.Inputs.Get(f.Key)

	if f.Widget == features.WidgetSelect {
		options := make([]string, len(f.Options))
		def := 0
		for i, opt := range f.Options {
			options[i] = opt.Label
			if opt.Value == current {
				def = i
			}
		}
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      f.Label,
			Options:      options,
			DefaultIndex: def,
			Help:         f.Tooltip,
		})
		if err != nil {
			return st, err
		}
		if idx < 0 || idx >= len(f.Options) {
			return st, errors.New("tui: no option selected")
		}
		return form.SetValue(st, f.Key, f.Options[idx].Value)
	}

	text, err := r.driver.Input(ctx, InputConfig{
		Message: f.Label,
		Default: strconv.FormatFloat(current, 'f', -1, 64),
		Help:    f.Tooltip,
	})
	if err != nil {
		return st, err
	}
	return form.SetText(st, f.Key, text)
}

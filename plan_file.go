package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xiaot623/gogo/actionrunner/internal/domain"
)

// loadPlan reads a plan from path, or from stdin when path is "-".
// JSON documents parse as YAML, so one decoder serves both.
func loadPlan(path string) (domain.Plan, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.Plan{}, fmt.Errorf("read plan: %w", err)
	}
	return parsePlanFile(data)
}

func parsePlanFile(data []byte) (domain.Plan, error) {
	var plan domain.Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return domain.Plan{}, fmt.Errorf("parse plan: %w", err)
	}
	if len(plan.Actions) == 0 && plan.StartURL == "" {
		return domain.Plan{}, fmt.Errorf("parse plan: no actions and no startUrl")
	}
	return plan, nil
}

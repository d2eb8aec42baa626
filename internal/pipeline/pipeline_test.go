package pipeline

import (
	"context"
	"errors"
	"testing"
)

func TestExecuteRunsStepsInOrder(t *testing.T) {
	var order []string
	steps := []Step{
		{Name: "first", Run: func(context.Context) error {
			order = append(order, "first")
			return nil
		}},
		{Name: "second", Run: func(context.Context) error {
			order = append(order, "second")
			return nil
		}},
		{Name: "third", Run: func(context.Context) error {
			order = append(order, "third")
			return nil
		}},
	}

	results := Execute(context.Background(), steps, nil)

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	want := []string{"first", "second", "third"}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("order[%d] = %q, want %q", i, order[i], name)
		}
		if results[i].Name != name {
			t.Errorf("results[%d].Name = %q, want %q", i, results[i].Name, name)
		}
	}
}

func TestExecuteContinuesAfterFailure(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	steps := []Step{
		{Name: "fails", Run: func(context.Context) error {
			ran = append(ran, "fails")
			return boom
		}},
		{Name: "still_runs", Run: func(context.Context) error {
			ran = append(ran, "still_runs")
			return nil
		}},
	}

	results := Execute(context.Background(), steps, nil)

	if len(ran) != 2 {
		t.Fatalf("ran %d steps, want 2: %v", len(ran), ran)
	}
	if !errors.Is(results[0].Err, boom) {
		t.Errorf("results[0].Err = %v, want boom", results[0].Err)
	}
	if results[1].Err != nil {
		t.Errorf("results[1].Err = %v, want nil", results[1].Err)
	}
	if got := CountFailed(results); got != 1 {
		t.Errorf("CountFailed() = %d, want 1", got)
	}
}

func TestExecuteEmpty(t *testing.T) {
	results := Execute(context.Background(), nil, nil)
	if len(results) != 0 {
		t.Errorf("Execute(nil) = %v, want empty", results)
	}
}

func TestResultStatus(t *testing.T) {
	ok := Result{Name: "x"}
	if ok.Status() != "success" {
		t.Errorf("Status() = %q, want success", ok.Status())
	}
	bad := Result{Name: "x", Err: errors.New("nope")}
	if bad.Status() != "failed" {
		t.Errorf("Status() = %q, want failed", bad.Status())
	}
}

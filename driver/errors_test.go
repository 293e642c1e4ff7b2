package driver

import (
	"errors"
	"net"
	"strings"
	"testing"
)

func TestNameResolutionErrorMessage(t *testing.T) {
	err := &NameResolutionError{
		Service:   "SageMaker",
		Operation: "ListModels",
		Region:    "us-east-7",
		Host:      "api.sagemaker.us-east-7.amazonaws.com",
		Err:       errors.New("no such host"),
	}
	msg := err.Error()
	for _, want := range []string{"SageMaker", "ListModels", "us-east-7", "api.sagemaker.us-east-7.amazonaws.com", "no such host"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestClassifyLeavesOtherErrors(t *testing.T) {
	d := New(Config{})
	opErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	if got := d.classify("ListModels", opErr); got != error(opErr) {
		t.Errorf("expected dial error to pass through, got %v", got)
	}
}

func TestFailureMessage(t *testing.T) {
	f := &Failure{Operation: "ListModels", Page: 3, Cursor: "abc", Err: errors.New("boom")}
	if !strings.Contains(f.Error(), `cursor "abc"`) || !strings.Contains(f.Error(), "page 3") {
		t.Errorf("unexpected message %q", f.Error())
	}
	f.Cursor = ""
	if strings.Contains(f.Error(), "cursor") {
		t.Errorf("expected no cursor in message %q", f.Error())
	}
}

func TestResultErr(t *testing.T) {
	if (Result{Value: 1}).Err() != nil {
		t.Error("expected nil error for a value item")
	}
	r := Result{Failure: &Failure{Err: errors.New("x")}}
	if r.Err() == nil {
		t.Error("expected error for a failure item")
	}
}

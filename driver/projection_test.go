package driver

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		want    Selector
		wantErr bool
	}{
		{in: "", want: Selector{}},
		{in: "*", want: Selector{Mode: WholeResponse, Name: "*"}},
		{in: " Models ", want: Selector{Mode: NamedField, Name: "Models"}},
		{in: "^ModelName", want: Selector{Mode: EchoParameter, Name: "ModelName"}},
		{in: "^", wantErr: true},
		{in: "^Model.Name", wantErr: true},
		{in: "Two Words", wantErr: true},
		{in: "Mo*dels", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelector(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownSelection) {
					t.Errorf("expected ErrUnknownSelection, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSelector(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSelectorString(t *testing.T) {
	for _, s := range []string{"*", "Models", "^ModelName"} {
		sel, err := ParseSelector(s)
		if err != nil {
			t.Fatalf("ParseSelector(%q): %v", s, err)
		}
		if sel.String() != s {
			t.Errorf("expected %q, got %q", s, sel.String())
		}
	}
}

func TestResolveDefault(t *testing.T) {
	p, err := Resolve(Selector{}, "Items", testFields, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Mode() != NamedField || p.Name() != "Items" {
		t.Errorf("expected default field Items, got %s %q", p.Mode(), p.Name())
	}

	p, err = Resolve(Selector{}, "", testFields, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Mode() != WholeResponse {
		t.Errorf("expected whole response when no default is declared, got %s", p.Mode())
	}
}

func TestResolveUnknownFieldFailsFast(t *testing.T) {
	_, err := Resolve(Selector{Mode: NamedField, Name: "Nope"}, "Items", testFields, nil)
	if !errors.Is(err, ErrUnknownSelection) {
		t.Fatalf("expected ErrUnknownSelection, got %v", err)
	}
	if !strings.Contains(err.Error(), "Items, NextToken") {
		t.Errorf("expected valid field names in message, got %q", err.Error())
	}
}

func TestResolveUnknownParameter(t *testing.T) {
	_, err := Resolve(Selector{Mode: EchoParameter, Name: "Missing"}, "Items", testFields, Params{
		"Filter": func() any { return nil },
	})
	if !errors.Is(err, ErrUnknownSelection) {
		t.Fatalf("expected ErrUnknownSelection, got %v", err)
	}
}

func TestProjectionApply(t *testing.T) {
	out := &listOutput{Items: []string{"a"}, NextToken: str("t")}

	whole, _ := Resolve(Selector{Mode: WholeResponse, Name: "*"}, "", testFields, nil)
	if whole.Apply(out) != out {
		t.Error("expected whole response to return the response itself")
	}

	field, _ := Resolve(Selector{Mode: NamedField, Name: "items"}, "", testFields, nil)
	if got := field.Apply(out).([]string); len(got) != 1 || got[0] != "a" {
		t.Errorf("unexpected field projection %v", got)
	}
	if field.Apply(nil) != nil {
		t.Error("expected nil projection of nil response")
	}

	echo, _ := Resolve(Selector{Mode: EchoParameter, Name: "Filter"}, "", testFields, Params{
		"Filter": func() any { return "f" },
	})
	if echo.Apply(nil) != "f" {
		t.Errorf("expected echoed parameter, got %v", echo.Apply(nil))
	}
}

package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestAnswerIsAnswered(t *testing.T) {
	tests := []struct {
		name   string
		answer Answer
		want   bool
	}{
		{"zero value", Answer{}, false},
		{"empty string", OptionAnswer(""), false},
		{"whitespace string", OptionAnswer("   "), false},
		{"empty set", OptionSetAnswer(nil), false},
		{"empty mapping", MatchSetAnswer(nil), false},
		{"option", OptionAnswer("a"), true},
		{"option set", OptionSetAnswer([]string{"a"}), true},
		{"mapping", MatchSetAnswer(map[string]string{"p1": "m1"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.answer.IsAnswered(); got != tt.want {
				t.Errorf("IsAnswered() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnswerJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   Answer
		wire string
	}{
		{"none", Answer{}, `null`},
		{"option", OptionAnswer("Q1A2"), `"Q1A2"`},
		{"option set", OptionSetAnswer([]string{"Q2A1", "Q2A3"}), `["Q2A1","Q2A3"]`},
		{"match set", MatchSetAnswer(map[string]string{"P1": "M3"}), `{"P1":"M3"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.wire {
				t.Fatalf("marshal = %s, want %s", data, tt.wire)
			}

			var out Answer
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(tt.in, out) {
				t.Errorf("round trip mismatch: got %#v, want %#v", out, tt.in)
			}
		})
	}
}

func TestAnswerUnmarshalRejectsUnknownShapes(t *testing.T) {
	for _, raw := range []string{`42`, `true`, `nul`, ``, `[1,2]`} {
		var a Answer
		if err := json.Unmarshal([]byte(raw), &a); err == nil {
			t.Errorf("unmarshal %q: expected error", raw)
		}
	}
}

func TestAnswersJSONRoundTrip(t *testing.T) {
	in := Answers{
		"Q1": OptionAnswer("Q1A2"),
		"Q2": OptionSetAnswer([]string{"Q2A1", "Q2A3"}),
		"Q3": MatchSetAnswer(map[string]string{"P1": "M3", "P2": "M4"}),
		"Q4": OptionAnswer("jakarta"),
		"Q5": {},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Answers
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch: got %#v, want %#v", out, in)
	}

	if got := out.AnsweredCount(); got != 4 {
		t.Errorf("AnsweredCount() = %d, want 4", got)
	}
}

func TestAnswerEquality(t *testing.T) {
	if !OptionAnswer("  Jakarta ").EqualsOption("jakarta") {
		t.Error("expected trimmed case-insensitive match")
	}
	if OptionAnswer("bandung").EqualsOption("jakarta") {
		t.Error("expected mismatch for different strings")
	}
	if !OptionSetAnswer([]string{"Q2A3", "Q2A1"}).EqualsOptionSet([]string{"Q2A1", "Q2A3"}) {
		t.Error("expected order-insensitive set equality")
	}
	if OptionSetAnswer([]string{"Q2A1"}).EqualsOptionSet([]string{"Q2A1", "Q2A3"}) {
		t.Error("expected subset to not equal full set")
	}
	if !MatchSetAnswer(map[string]string{"P1": "M3"}).EqualsMatchSet(map[string]string{"P1": "M3"}) {
		t.Error("expected full mapping equality")
	}
	if MatchSetAnswer(map[string]string{"P1": "M1"}).EqualsMatchSet(map[string]string{"P1": "M3"}) {
		t.Error("expected mismatch for different mapping values")
	}
}

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// AnswerKind discriminates the closed set of answer shapes.
type AnswerKind int

const (
	// AnswerNone means the question has not been answered (JSON null).
	AnswerNone AnswerKind = iota
	// AnswerOption is a single option id (single choice, short answer).
	AnswerOption
	// AnswerOptionSet is an order-insensitive set of option ids (multiple choice).
	AnswerOptionSet
	// AnswerMatchSet maps prompt ids to match ids (matching).
	AnswerMatchSet
)

// Answer is a participant's answer to one question. The zero value is the
// unanswered state. Construct non-empty values through the OptionAnswer,
// OptionSetAnswer and MatchSetAnswer helpers so the kind tag stays consistent.
type Answer struct {
	kind    AnswerKind
	option  string
	options []string
	matches map[string]string
}

// OptionAnswer returns a single-option answer (also used for short answers).
func OptionAnswer(option string) Answer {
	return Answer{kind: AnswerOption, option: option}
}

// OptionSetAnswer returns a multiple-choice answer. The slice is copied.
func OptionSetAnswer(options []string) Answer {
	cp := make([]string, len(options))
	copy(cp, options)
	return Answer{kind: AnswerOptionSet, options: cp}
}

// MatchSetAnswer returns a matching answer. The map is copied. Partial
// mappings are valid intermediate states.
func MatchSetAnswer(matches map[string]string) Answer {
	cp := make(map[string]string, len(matches))
	for k, v := range matches {
		cp[k] = v
	}
	return Answer{kind: AnswerMatchSet, matches: cp}
}

// Kind returns the answer's shape discriminator.
func (a Answer) Kind() AnswerKind { return a.kind }

// Option returns the single option id. Empty unless Kind is AnswerOption.
func (a Answer) Option() string { return a.option }

// Options returns a copy of the option id set.
func (a Answer) Options() []string {
	cp := make([]string, len(a.options))
	copy(cp, a.options)
	return cp
}

// Matches returns a copy of the prompt-to-match mapping.
func (a Answer) Matches() map[string]string {
	cp := make(map[string]string, len(a.matches))
	for k, v := range a.matches {
		cp[k] = v
	}
	return cp
}

// IsAnswered reports whether the answer counts as effectively answered:
// non-null, non-blank after trimming, non-empty set or non-empty mapping.
// Every navigator badge, statistic and score sheet goes through this single
// predicate.
func (a Answer) IsAnswered() bool {
	switch a.kind {
	case AnswerNone:
		return false
	case AnswerOption:
		return strings.TrimSpace(a.option) != ""
	case AnswerOptionSet:
		return len(a.options) > 0
	case AnswerMatchSet:
		return len(a.matches) > 0
	default:
		return false
	}
}

// MarshalJSON encodes the answer as null, a string, an array of strings or a
// string-to-string object, matching the persisted progress layout.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerNone:
		return []byte("null"), nil
	case AnswerOption:
		return json.Marshal(a.option)
	case AnswerOptionSet:
		return json.Marshal(a.options)
	case AnswerMatchSet:
		return json.Marshal(a.matches)
	default:
		return nil, fmt.Errorf("unknown answer kind %d", a.kind)
	}
}

// UnmarshalJSON decodes the four wire shapes back into a tagged Answer.
// Any other shape is an error so corrupt progress entries are detected.
func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty answer value")
	}

	switch trimmed[0] {
	case 'n':
		if !bytes.Equal(trimmed, []byte("null")) {
			return fmt.Errorf("invalid answer literal %q", trimmed)
		}
		*a = Answer{}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*a = Answer{kind: AnswerOption, option: s}
		return nil
	case '[':
		var opts []string
		if err := json.Unmarshal(trimmed, &opts); err != nil {
			return err
		}
		*a = Answer{kind: AnswerOptionSet, options: opts}
		return nil
	case '{':
		var m map[string]string
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return err
		}
		*a = Answer{kind: AnswerMatchSet, matches: m}
		return nil
	default:
		return fmt.Errorf("unsupported answer shape %q", trimmed)
	}
}

// EqualsOption compares against an expected option id using trimmed,
// case-folded string equality.
func (a Answer) EqualsOption(expected string) bool {
	if a.kind != AnswerOption {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.option), strings.TrimSpace(expected))
}

// EqualsOptionSet compares against an expected option id set,
// order-insensitively.
func (a Answer) EqualsOptionSet(expected []string) bool {
	if a.kind != AnswerOptionSet || len(a.options) != len(expected) {
		return false
	}
	got := a.Options()
	want := make([]string, len(expected))
	copy(want, expected)
	sort.Strings(got)
	sort.Strings(want)
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// EqualsMatchSet compares against an expected prompt-to-match mapping:
// every key present, every value equal.
func (a Answer) EqualsMatchSet(expected map[string]string) bool {
	if a.kind != AnswerMatchSet || len(a.matches) != len(expected) {
		return false
	}
	for prompt, match := range expected {
		if a.matches[prompt] != match {
			return false
		}
	}
	return true
}

// Answers maps question ids to a participant's answers.
type Answers map[string]Answer

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (m Answers) Clone() Answers {
	cp := make(Answers, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// AnsweredCount counts answers that pass the IsAnswered predicate.
func (m Answers) AnsweredCount() int {
	n := 0
	for _, a := range m {
		if a.IsAnswered() {
			n++
		}
	}
	return n
}

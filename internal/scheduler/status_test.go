package scheduler

import (
	"errors"
	"testing"
)

func TestTransition(t *testing.T) {
	t.Parallel()

	statuses := []Status{StatusProposed, StatusConfirmed, StatusRejected}
	allowed := map[[2]Status]bool{
		{StatusProposed, StatusConfirmed}: true,
		{StatusProposed, StatusRejected}:  true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			err := Transition(from, to)
			if allowed[[2]Status{from, to}] {
				if err != nil {
					t.Fatalf("Transition(%s, %s) returned %v", from, to, err)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("Transition(%s, %s) = %v, want ErrInvalidTransition", from, to, err)
			}
		}
	}
}

func TestTransition_RejectsUnknownStatuses(t *testing.T) {
	t.Parallel()

	tests := map[string][2]Status{
		"unknown source": {Status("pending"), StatusConfirmed},
		"unknown target": {StatusProposed, Status("archived")},
		"empty source":   {Status(""), StatusRejected},
	}
	for name, tc := range tests {
		if err := Transition(tc[0], tc[1]); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s: Transition(%q, %q) = %v, want ErrInvalidTransition", name, tc[0], tc[1], err)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	t.Parallel()

	if StatusProposed.IsTerminal() {
		t.Fatalf("proposed must not be terminal")
	}
	if !StatusConfirmed.IsTerminal() || !StatusRejected.IsTerminal() {
		t.Fatalf("confirmed and rejected must be terminal")
	}
	if Status("pending").Valid() {
		t.Fatalf("unknown status reported as valid")
	}
	if got := StatusConfirmed.String(); got != "Confirmed" {
		t.Fatalf("unexpected label %q", got)
	}
}

package event

import "testing"

func TestTerminalReason(t *testing.T) {
	tests := []struct {
		kind, prev Kind
		want       ExitReason
	}{
		{Digestion, Arrival, DigestionInG0},
		{Digestion, EndG1SG2M, DigestionInG0},
		{Digestion, EndG0, DigestionInG1SG2M},
		{Escape, Arrival, EscapeInG0},
		{Escape, EndG0, EscapeInG1SG2M},
		{Denouement, EndG1SG2M, DenouementInG0},
		{Denouement, EndG0, DenouementInG1SG2M},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String()+"_after_"+tt.prev.String(), func(t *testing.T) {
			got, err := TerminalReason(tt.kind, tt.prev)
			if err != nil {
				t.Fatalf("TerminalReason: %v", err)
			}
			if got != tt.want {
				t.Errorf("TerminalReason(%s, %s) = %s, want %s", tt.kind, tt.prev, got, tt.want)
			}
		})
	}

	if _, err := TerminalReason(EndG0, Arrival); err == nil {
		t.Error("expected error for non-terminal kind")
	}
}

func TestOutcomeDepartureSides(t *testing.T) {
	for o := BothStay; o <= ChildNoAffinity; o++ {
		p, c := o.ParentDeparts(), o.ChildDeparts()
		if o == BothStay {
			if p || c {
				t.Errorf("%s: nobody should depart", o)
			}
			continue
		}
		if p == c {
			t.Errorf("%s: exactly one side must depart (parent=%v child=%v)", o, p, c)
		}
		if o.Reason().String() != o.String() {
			t.Errorf("%s: reason name %q does not match outcome", o, o.Reason())
		}
	}
}

func TestKindTerminal(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{Arrival, false},
		{EndG0, false},
		{EndG1SG2M, false},
		{Digestion, true},
		{Escape, true},
		{Denouement, true},
	}
	for _, tt := range tests {
		if got := tt.kind.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

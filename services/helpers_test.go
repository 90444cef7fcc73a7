package services

import (
	"errors"
	"testing"

	"github.com/aoe-board/tournament-board/models"
)

func strPtr(s string) *string { return &s }

func TestHygienateLiquipediaURL(t *testing.T) {
	tests := []struct {
		name    string
		input   *string
		want    *string
		wantErr error
	}{
		{name: "nil passes through", input: nil, want: nil},
		{name: "blank normalizes to nil", input: strPtr("   "), want: nil},
		{
			name:  "https host stripped",
			input: strPtr("https://liquipedia.net/ageofempires/Some_Cup"),
			want:  strPtr("/ageofempires/Some_Cup"),
		},
		{
			name:  "http host stripped",
			input: strPtr("http://liquipedia.net/ageofempires/Some_Cup"),
			want:  strPtr("/ageofempires/Some_Cup"),
		},
		{
			name:  "relative path kept",
			input: strPtr("/ageofempires/Some_Cup"),
			want:  strPtr("/ageofempires/Some_Cup"),
		},
		{
			name:  "surrounding whitespace trimmed",
			input: strPtr("  /ageofempires/Some_Cup  "),
			want:  strPtr("/ageofempires/Some_Cup"),
		},
		{
			name:    "wrong game section rejected",
			input:   strPtr("https://liquipedia.net/starcraft2/Some_Cup"),
			wantErr: ErrLiquipediaURLInvalid,
		},
		{
			name:    "bare page name rejected",
			input:   strPtr("Some_Cup"),
			wantErr: ErrLiquipediaURLInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hygienateLiquipediaURL(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %q, want nil", *got)
			case tt.want != nil && got == nil:
				t.Errorf("got nil, want %q", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("got %q, want %q", *got, *tt.want)
			}
		})
	}
}

func TestIsValidStatusTransition(t *testing.T) {
	allowed := []struct{ from, to models.TournamentStatus }{
		{models.StatusSubmitted, models.StatusIgnored},
		{models.StatusSubmitted, models.StatusPending},
		{models.StatusIgnored, models.StatusSubmitted},
		{models.StatusIgnored, models.StatusPending},
		{models.StatusPending, models.StatusSubmitted},
		{models.StatusPending, models.StatusIgnored},
		{models.StatusPending, models.StatusPublished},
		{models.StatusPublished, models.StatusPending},
	}
	for _, tt := range allowed {
		if !isValidStatusTransition(tt.from, tt.to) {
			t.Errorf("transition %s -> %s should be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to models.TournamentStatus }{
		{models.StatusSubmitted, models.StatusPublished},
		{models.StatusIgnored, models.StatusPublished},
		{models.StatusPublished, models.StatusSubmitted},
		{models.StatusPublished, models.StatusIgnored},
	}
	for _, tt := range denied {
		if isValidStatusTransition(tt.from, tt.to) {
			t.Errorf("transition %s -> %s should be denied", tt.from, tt.to)
		}
	}

	// Self transitions are always permitted so idempotent saves never fail.
	for status := range statusTransitions {
		if !isValidStatusTransition(status, status) {
			t.Errorf("self transition for %s should be allowed", status)
		}
	}
}

func TestTrimPtr(t *testing.T) {
	if got := trimPtr(nil); got != nil {
		t.Errorf("trimPtr(nil) = %v, want nil", got)
	}
	if got := trimPtr(strPtr("  ")); got != nil {
		t.Errorf("trimPtr(blank) = %v, want nil", got)
	}
	if got := trimPtr(strPtr("  hi  ")); got == nil || *got != "hi" {
		t.Errorf("trimPtr did not trim: %v", got)
	}
}

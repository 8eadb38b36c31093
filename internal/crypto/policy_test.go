package crypto

import (
	"fmt"
	"strings"
	"testing"
)

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "valid", password: "Valid123", wantErr: nil},
		{name: "valid with symbols", password: "C0mplex#Secret", wantErr: nil},
		{name: "too short", password: "Va1id", wantErr: ErrPasswordTooShort},
		{name: "no uppercase", password: "alllowercase1", wantErr: ErrPasswordNoUpper},
		{name: "no lowercase", password: "ALLUPPERCASE1", wantErr: ErrPasswordNoLower},
		{name: "no digit", password: "NoDigitsHere", wantErr: ErrPasswordNoDigit},
		{name: "demo password", password: "password123", wantErr: ErrPasswordNoUpper},
		{name: "too long", password: "Aa1" + strings.Repeat("x", MaxPasswordBytes), wantErr: ErrPasswordTooLong},
		{name: "exactly max", password: "Aa1" + strings.Repeat("x", MaxPasswordBytes-3), wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPasswordStrength(tt.password)
			if err != tt.wantErr {
				t.Errorf("CheckPasswordStrength(%q) = %v, want %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestPasswordTooShortMessage(t *testing.T) {
	want := fmt.Sprintf("at least %d characters", MinPasswordLength)
	if !strings.Contains(ErrPasswordTooShort.Error(), want) {
		t.Errorf("ErrPasswordTooShort = %q, want it to mention %q", ErrPasswordTooShort, want)
	}
}

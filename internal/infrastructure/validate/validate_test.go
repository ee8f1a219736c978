package validate

import (
	"strings"
	"testing"
)

func TestField(t *testing.T) {
	password := Field("password", Required(), MaxLength(8))

	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{name: "valid", value: "secret"},
		{name: "empty", value: "  ", wantErr: "password: this field is required"},
		{name: "too long", value: "abcdefghi", wantErr: "password: must be no more than 8 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := password(tt.value)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestOptional(t *testing.T) {
	email := Optional(Email())

	if err := email(""); err != nil {
		t.Fatalf("empty optional value rejected: %v", err)
	}
	if err := email("ada@example.com"); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
	if err := email("not-an-email"); err == nil {
		t.Fatal("invalid email accepted")
	}
}

func TestHTTPURL(t *testing.T) {
	v := HTTPURL()

	for _, ok := range []string{"https://example.com/a.png", "http://localhost:8080/x"} {
		if err := v(ok); err != nil {
			t.Errorf("%q rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"ftp://example.com", "/relative", "javascript:alert(1)"} {
		if err := v(bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestOneOf(t *testing.T) {
	v := OneOf("ready", "connecting")

	if err := v("ready"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := v("gone")
	if err == nil || !strings.Contains(err.Error(), "ready, connecting") {
		t.Fatalf("err = %v", err)
	}
}

package logging

import "testing"

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		wantErr bool
	}{
		{name: "default", backend: ""},
		{name: "zap", backend: "zap"},
		{name: "zerolog", backend: "zerolog"},
		{name: "unknown", backend: "logrus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(&LoggerConfig{Logger: tt.backend, Level: "error"})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for backend %q", tt.backend)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}
			logger.Info(General, Startup, "hello", map[ExtraKey]any{RoomID: "r1"})
		})
	}
}

func TestWithCategoryDoesNotMutateExtra(t *testing.T) {
	extra := map[ExtraKey]any{RoomID: "r1"}

	params := withCategory(Room, Create, extra)

	if len(extra) != 1 {
		t.Fatalf("extra was mutated: %v", extra)
	}
	if params["Category"] != Room || params["SubCategory"] != Create || params[RoomID] != "r1" {
		t.Fatalf("unexpected params: %v", params)
	}
}

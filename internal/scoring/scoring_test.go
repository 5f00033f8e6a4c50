package scoring

import "testing"

func TestTokenValue(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name       string
		rating     int
		memoryType string
		isUnknown  bool
		want       int
	}{
		{"personal rating 3", 3, "Personal", false, 1000},
		{"technical rating 1", 1, "Technical", false, 500},
		{"business rating 5", 5, "Business", false, 30000},
		{"unknown token is worthless", 4, "Technical", true, 0},
		{"unrecognized type falls back to UNKNOWN", 3, "Culinary", false, 0},
		{"explicit UNKNOWN type", 3, "UNKNOWN", false, 0},
		{"rating outside table", 9, "Personal", false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := cfg.TokenValue(tc.rating, tc.memoryType, tc.isUnknown)
			if got != tc.want {
				t.Errorf("TokenValue(%d, %q, %v) = %d, want %d",
					tc.rating, tc.memoryType, tc.isUnknown, got, tc.want)
			}
		})
	}
}

func TestParseGroupLabel(t *testing.T) {
	tests := []struct {
		raw      string
		wantName string
		wantMult int
	}{
		{"Server Logs (x5)", "Server Logs", 5},
		{"Loose Token", "Loose Token", 1},
		{"  Padded Group (x2)  ", "Padded Group", 2},
		{"caseless (X3)", "caseless", 3},
		{"Zero Mult (x0)", "Zero Mult", 1},
		{"", "Unknown", 1},
		{"   ", "Unknown", 1},
		{"Parens Inside (beta) (x4)", "Parens Inside (beta)", 4},
	}

	for _, tc := range tests {
		got := ParseGroupLabel(tc.raw)
		if got.Name != tc.wantName || got.Multiplier != tc.wantMult {
			t.Errorf("ParseGroupLabel(%q) = {%q, %d}, want {%q, %d}",
				tc.raw, got.Name, got.Multiplier, tc.wantName, tc.wantMult)
		}
	}
}

func TestNormalizeGroupName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Marcus’ Notes", "marcus' notes"},
		{"Marcus' Notes  ", "marcus' notes"},
		{"marcus' notes", "marcus' notes"},
		{"  Server   Logs ", "server logs"},
		{"‘quoted‘", "'quoted'"},
	}

	for _, tc := range tests {
		if got := NormalizeGroupName(tc.in); got != tc.want {
			t.Errorf("NormalizeGroupName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

package layout

import "testing"

func TestCalculateModalWidth(t *testing.T) {
	cfg := DefaultConfig().Modal

	tests := []struct {
		name          string
		terminalWidth int
		widthPercent  int
		want          int
	}{
		{"percentage within bounds", 120, 40, 48}, // 120*40/100 = 48
		{"clamps to max", 200, 40, 70},            // 80 > 70
		{"clamps to min", 80, 40, 40},             // 32 < 40
		{"never exceeds terminal", 30, 40, 26},    // min 40, but 30-4 = 26
		{"tiny terminal clamps to 1", 3, 40, 1},   // 3-4 = -1, clamp to 1
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateModalWidth(tt.terminalWidth, tt.widthPercent, cfg)
			if got != tt.want {
				t.Errorf("CalculateModalWidth(%d, %d) = %d, want %d",
					tt.terminalWidth, tt.widthPercent, got, tt.want)
			}
		})
	}
}

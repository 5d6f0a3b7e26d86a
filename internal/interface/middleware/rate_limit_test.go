package middleware

import "testing"

func TestRemaining(t *testing.T) {
	cases := []struct {
		max, count, want int
	}{
		{10, 1, 9},
		{10, 10, 0},
		{10, 11, 0},
		{10, 25, 0},
	}
	for _, tc := range cases {
		if got := remaining(tc.max, tc.count); got != tc.want {
			t.Errorf("remaining(%d, %d) = %d, want %d", tc.max, tc.count, got, tc.want)
		}
	}
}

func TestToInt(t *testing.T) {
	if got := toInt(int64(7)); got != 7 {
		t.Errorf("toInt(int64) = %d", got)
	}
	if got := toInt("12"); got != 12 {
		t.Errorf("toInt(string) = %d", got)
	}
	if got := toInt(3.5); got != 0 {
		t.Errorf("toInt(unsupported) = %d, want 0", got)
	}
}

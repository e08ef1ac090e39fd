package types

import "testing"

func TestStatusEscalate(t *testing.T) {
	cases := []struct {
		current, next, want Status
	}{
		{StatusGreen, StatusAmber, StatusAmber},
		{StatusAmber, StatusGreen, StatusAmber},
		{StatusGreen, StatusError, StatusError},
		{StatusError, StatusAmber, StatusAmber},
		{StatusAmber, StatusRed, StatusRed},
		{StatusRed, StatusAmber, StatusRed},
		{StatusRed, StatusError, StatusRed},
		{StatusGreen, StatusGreen, StatusGreen},
	}
	for _, tc := range cases {
		if got := tc.current.Escalate(tc.next); got != tc.want {
			t.Fatalf("%s.Escalate(%s) = %s, want %s", tc.current, tc.next, got, tc.want)
		}
	}
}

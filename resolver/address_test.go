package resolver

import (
	"strings"
	"testing"
)

func TestParseIPv4Labels(t *testing.T) {
	testCases := []struct {
		labels string // Joined with "."
		exp    string // Empty means nil
	}{
		{"1.2.3.4", "1.2.3.4"},
		{"0.0.0.0", "0.0.0.0"},
		{"255.255.255.255", "255.255.255.255"},
		{"192.168.010.001", "192.168.10.1"},
		{"256.1.1.1", ""},
		{"1.1.1.256", ""},
		{"1.1.1.1000", ""},
		{"-1.1.1.1", ""},
		{"+1.1.1.1", ""},
		{"a.1.1.1", ""},
		{"0x1.1.1.1", ""},
		{"1_0.1.1.1", ""},
		{"1. 1.1.1", ""},
		{"1..1.1", ""},
		{"1.2.3", ""},
		{"1.2.3.4.5", ""},
	}

	for ix, tc := range testCases {
		ip := parseIPv4Labels(strings.Split(tc.labels, "."))
		if len(tc.exp) == 0 {
			if ip != nil {
				t.Error(ix, tc.labels, "Expected nil, got", ip)
			}
			continue
		}
		if ip == nil {
			t.Error(ix, tc.labels, "Expected", tc.exp, "got nil")
			continue
		}
		if ip.String() != tc.exp {
			t.Error(ix, tc.labels, "Expected", tc.exp, "got", ip)
		}
		if len(ip) != 4 {
			t.Error(ix, tc.labels, "Expected 4 byte form, not", len(ip))
		}
	}
}

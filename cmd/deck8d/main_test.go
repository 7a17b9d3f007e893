package main

import "testing"

func TestListenPort(t *testing.T) {
	tests := []struct {
		addr string
		want int
	}{
		{":8765", 8765},
		{"0.0.0.0:9000", 9000},
		{"[::1]:1234", 1234},
		{"", 8765},
		{"localhost:", 8765},
		{":http", 8765},
	}
	for _, tt := range tests {
		if got := listenPort(tt.addr); got != tt.want {
			t.Errorf("listenPort(%q) = %d, want %d", tt.addr, got, tt.want)
		}
	}
}

package scanning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortSetAdd(t *testing.T) {
	tests := []struct {
		name string
		adds [][]string
		want string
		len  int
	}{
		{"empty", nil, "", 0},
		{"single", [][]string{{"80"}}, "80", 1},
		{"numeric sort", [][]string{{"8080", "22", "443"}}, "22,443,8080", 3},
		{"duplicates", [][]string{{"80", "80"}, {"80"}}, "80", 1},
		{"blank ids ignored", [][]string{{"", " ", "53"}}, "53", 1},
		{"whitespace trimmed", [][]string{{" 22 ", "22"}}, "22", 1},
		{"non-numeric after numeric", [][]string{{"http", "80", "ftp"}}, "80,ftp,http", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPortSet()
			for _, ids := range tt.adds {
				s.Add(ids...)
			}
			assert.Equal(t, tt.want, s.Snapshot())
			assert.Equal(t, tt.len, s.Len())
		})
	}
}

func TestPortSetIdempotentAndCommutative(t *testing.T) {
	a := NewPortSet()
	a.Add("443", "22", "80")
	a.Add("22")

	b := NewPortSet()
	b.Add("80")
	b.Add("80", "443")
	b.Add("22", "443")

	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.Equal(t, "22,80,443", a.Snapshot())

	before := a.Snapshot()
	a.Add("80", "22")
	assert.Equal(t, before, a.Snapshot())
}

func TestPortSetOnlyGrows(t *testing.T) {
	s := NewPortSet()
	s.Add("80")
	assert.True(t, s.Contains("80"))
	assert.False(t, s.Contains("443"))

	s.AddOutcome(&ScanOutcome{Hosts: []HostResult{{
		Address: "10.0.0.1",
		Ports:   []PortRecord{{PortID: "443", State: StateOpen}, {PortID: "80", State: StateOpen}},
	}}})
	assert.Equal(t, "80,443", s.Snapshot())

	s.AddOutcome(&ScanOutcome{})
	s.AddOutcome(nil)
	assert.Equal(t, 2, s.Len())
}

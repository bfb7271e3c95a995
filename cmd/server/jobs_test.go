package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCollected(t *testing.T) {
	tests := []struct {
		name      string
		collected map[string]uint64
		expected  string
	}{
		{name: "正常系: 通貨名順に並ぶ", collected: map[string]uint64{"topy": 149, "ruby": 3}, expected: "ruby=3,topy=149"},
		{name: "正常系: 空", collected: map[string]uint64{}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatCollected(tt.collected))
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "tax-sweep", "expire-roles"})
}

package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallback(t *testing.T) {
	greeting := fallbackRules[0].reply
	thanks := fallbackRules[1].reply
	help := fallbackRules[2].reply
	farewell := fallbackRules[3].reply

	tests := []struct {
		question string
		want     string
	}{
		{"Bonjour", greeting},
		{"SALUT tout le monde", greeting},
		{"Merci !", thanks},
		{"J'ai besoin d'aide", help},
		{"help me", help},
		{"Au revoir", farewell},
		{"bye", farewell},
		{"Quels sont les débouchés ?", UnavailableReply},
		{"", UnavailableReply},
		// 多组命中时按固定优先级
		{"Bonjour et merci", greeting},
		{"merci, au revoir", thanks},
		{"help, bye", help},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, Fallback(tt.question))
		})
	}
}

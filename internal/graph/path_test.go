package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/investigate/case-graph/internal/domain"
)

func link(a, b string) domain.CallLink {
	return domain.CallLink{SourceIdentifier: a, TargetIdentifier: b}
}

func TestShortestPath(t *testing.T) {
	links := []domain.CallLink{
		link("A", "B"), link("B", "C"), link("C", "D"),
		link("A", "X"), link("X", "D"),
		link("M", "N"),
	}

	assert.Equal(t, []string{"A", "X", "D"}, ShortestPath(links, "A", "D"))
	assert.Equal(t, []string{"D", "X", "A"}, ShortestPath(links, "D", "A"), "direction is ignored")
	assert.Equal(t, []string{"B", "C"}, ShortestPath(links, "B", "C"))
	assert.Equal(t, []string{"A"}, ShortestPath(links, "A", "A"))
	assert.Nil(t, ShortestPath(links, "A", "M"))
	assert.Nil(t, ShortestPath(links, "Q", "A"))
}

func TestShortestPath_TieBreaksLexicographically(t *testing.T) {
	links := []domain.CallLink{link("S", "Z"), link("Z", "T"), link("B", "S"), link("B", "T")}
	assert.Equal(t, []string{"S", "B", "T"}, ShortestPath(links, "S", "T"))
}

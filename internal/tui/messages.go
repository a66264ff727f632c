package tui

import (
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/pipeline"
)

// answerMsg delivers the pipeline response for the transcript entry at index.
type answerMsg struct {
	err   error
	resp  model.Response
	index int
}

type citySelectedMsg struct {
	err  error
	ctx  model.Context
	city model.City
}

type healthMsg struct {
	health pipeline.Health
}

package agent

import (
	"maps"
	"slices"
)

const statusReasoning = "reasoning"

type message int

const (
	msgCalling message = iota
	msgAnalyzing
	msgBusy
	msgFailed
)

var texts = map[string]map[message]string{
	"en": {
		msgCalling:   "Calling tool **%s**:",
		msgAnalyzing: "Analyzing error...",
		msgBusy:      "The model is busy right now. Please try again in a moment.",
		msgFailed:    "Something went wrong: ",
	},
	"de": {
		msgCalling:   "Tool **%s** wird aufgerufen:",
		msgAnalyzing: "Aufgetretener Fehler wird analysiert...",
		msgBusy:      "Das Modell ist gerade ausgelastet. Bitte versuche es gleich noch einmal.",
		msgFailed:    "Es ist ein Fehler aufgetreten: ",
	},
}

func text(language string, m message) string {
	if t, ok := texts[language]; ok {
		return t[m]
	}
	return texts["en"][m]
}

func sortedKeys(args map[string]any) []string {
	return slices.Sorted(maps.Keys(args))
}

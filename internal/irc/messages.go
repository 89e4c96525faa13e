package irc

type message int

const (
	msgIdentity message = iota
	msgChannel
	msgPrivate
	msgFile
)

var texts = map[string]map[message]string{
	"en": {
		msgIdentity: "You are %s.",
		msgChannel:  "You are in the IRC channel %s. Every line starts with the nick of its author in angle brackets.",
		msgPrivate:  "You are in a private IRC conversation with %s. Every line starts with the nick of its author in angle brackets.",
		msgFile:     "shared a file: %s",
	},
	"de": {
		msgIdentity: "Du bist %s.",
		msgChannel:  "Du bist im IRC-Channel %s. Jede Zeile beginnt mit dem Nick ihres Autors in spitzen Klammern.",
		msgPrivate:  "Du bist in einer privaten IRC-Unterhaltung mit %s. Jede Zeile beginnt mit dem Nick ihres Autors in spitzen Klammern.",
		msgFile:     "hat eine Datei geteilt: %s",
	},
}

func text(language string, m message) string {
	if t, ok := texts[language]; ok {
		return t[m]
	}
	return texts["en"][m]
}

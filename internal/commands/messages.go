package commands

type message int

const (
	msgDenied message = iota
	msgSupported
	msgForgotten
	msgNothingToForget
	msgNoTools
	msgTools
	msgFailed
)

var texts = map[string]map[message]string{
	"en": {
		msgDenied:          "You don't have permission to perform this action.",
		msgSupported:       "Supported commands: ",
		msgForgotten:       "History cleared.",
		msgNothingToForget: "Nothing to forget.",
		msgNoTools:         "No tools loaded",
		msgTools:           "Tools: ",
		msgFailed:          "Failed: %v",
	},
	"de": {
		msgDenied:          "Du hast keine Berechtigung für diese Aktion.",
		msgSupported:       "Verfügbare Befehle: ",
		msgForgotten:       "Verlauf gelöscht.",
		msgNothingToForget: "Es gibt nichts zu vergessen.",
		msgNoTools:         "Keine Tools geladen",
		msgTools:           "Tools: ",
		msgFailed:          "Fehlgeschlagen: %v",
	},
}

func text(language string, m message) string {
	if t, ok := texts[language]; ok {
		return t[m]
	}
	return texts["en"][m]
}

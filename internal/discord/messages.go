package discord

type message int

const (
	msgWrote message = iota
	msgImageName
	msgFileName
	msgIdentity
	msgChannel
	msgDirect
	msgAnswerFile
)

var texts = map[string]map[message]string{
	"en": {
		msgWrote:      "At %s %s wrote: %s",
		msgImageName:  "\nImage name: %s",
		msgFileName:   "\nFile name: %s",
		msgIdentity:   "You are %s.",
		msgChannel:    "You are in the Discord channel: %s.",
		msgDirect:     "You are in a direct message (DM) chat with %s.",
		msgAnswerFile: "%s answer.txt",
	},
	"de": {
		msgWrote:      "Um %s schrieb %s: %s",
		msgImageName:  "\nBildname: %s",
		msgFileName:   "\nDateiname: %s",
		msgIdentity:   "Du bist %s.",
		msgChannel:    "Du bist im Discord Channel: %s.",
		msgDirect:     "Du bist im direct message (DM) Chat mit %s.",
		msgAnswerFile: "%ss Antwort.txt",
	},
}

func text(language string, m message) string {
	if t, ok := texts[language]; ok {
		return t[m]
	}
	return texts["en"][m]
}

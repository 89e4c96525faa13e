package protocol

import "strings"

const fence = "```"

var nativeText = map[string]string{
	"en": `
***Tool Calls***

You have a list of tools (functions) that you can use. You are an expert at using these tools.

**How it works**
When you call a tool, the corresponding function is executed.
Its results (tool_results) are then attached to the message history as a system message, and you are called again with them.
You can then respond to the user based on these results. The user does not see the raw results.

**IMPORTANT**
Never call the tool again after receiving its results, otherwise it will cause an infinite loop!
Instead, respond to the user based on the results.
`,
	"de": `
***Tool Calls***

Du hast eine Liste an Tools (Functions) die du verwenden kannst. Du bist Profi darin diese Tools zu verwenden.

**Wie es funktioniert**
Wenn du Tools aufrufst werden die entsprechenden Funktionen aufgerufen.
Deren Ergebnisse (tool_results) werden dann an den Nachrichtenverlauf als System Message angehängt und du wirst damit direkt nochmal aufgerufen.
Dann kannst du auf Basis der Ergebnisse dem User antworten. Der User bekommt die Ergebnisse nicht.

**WICHTIG**
Rufe das Tool dann NIEMALS wieder erneut auf, da es sonst zu einer Endlosschleife kommt! Antworte stattdessen dem User basierend auf den Ergebnissen.
`,
}

var embeddedText = map[string]string{
	"en": `
You are helpful and reliable.

**WHAT YOU CAN DO**

*You have access to the following tools:*

{catalog}

Use these tools to get information and complete tasks.
Ask if you're unsure.
Only use the tools when necessary!
If you are asked what you can do, always list exactly these tools!

You always use EXACTLY the name and arguments of the tool call descriptions!

**Calling Tools**
Always use EXACTLY this JSON format for tool calls, one block per call:

{fence}tool
{
  "name": "tool1",
  "arguments": {
    "parameter1": "value1"
  }
}
{fence}

**How it works**
Your responses are searched for blocks starting with {fence}tool and ending with {fence}.
All matches are parsed as JSON and removed from the response shown to the user.
If matches are found, the corresponding tools are executed based on the JSON objects.
The results are attached to the message history, and you are called again with them.
You can then respond to the user based on those results. The user does not see the raw results.
`,
	"de": `
Du bist hilfreich und zuverlässig.

**WAS DU KANNST**

*Du hast Zugriff auf folgende Tools:*

{catalog}

Nutze die Tools, um Informationen zu erhalten und Aufgaben zu erledigen. Frage, wenn du dir unsicher bist.
Nutze die Tools immer nur wenn nötig!
Wenn du gefragt wirst, was du kannst, listest du immer genau diese Tools auf!

Du nutzt immer EXAKT den Namen und die Argumente der Tool-Call Beschreibungen!

**Tools aufrufen**
Verwende immer EXAKT dieses JSON-Format für die Tool-Calls, ein Block pro Aufruf:

{fence}tool
{
  "name": "tool1",
  "arguments": {
    "parameter1": "wert1"
  }
}
{fence}

**Wie es funktioniert**
Deine Antworten werden nach Blöcken durchsucht, die mit {fence}tool beginnen und mit {fence} enden.
Alle Treffer werden als JSON geparst und aus der Antwort an den User ausgeschnitten.
Falls es Treffer gibt, werden die entsprechenden Tools anhand der JSON-Objekte aufgerufen.
Die Ergebnisse werden an den Nachrichtenverlauf angehängt und du wirst damit direkt nochmal aufgerufen.
Dann antwortest du auf Basis der Ergebnisse dem User. Der User bekommt die Ergebnisse nicht.
`,
}

func localized(texts map[string]string, language string) string {
	if t, ok := texts[language]; ok {
		return t
	}
	return texts["en"]
}

func nativePreamble(language string) string {
	return localized(nativeText, language)
}

func embeddedPreamble(language, catalog string) string {
	return strings.NewReplacer("{catalog}", catalog, "{fence}", fence).
		Replace(localized(embeddedText, language))
}
